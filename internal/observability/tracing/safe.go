package tracing

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

// Guest names and booking references come back from the source query; they
// must never end up on a span.
var forbiddenAttributeKeys = map[attribute.Key]struct{}{
	"first_name":        {},
	"last_name":         {},
	"booking_reference": {},
	"db.password":       {},
}

// ExtractContext pulls trace context from inbound carrier headers.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

// SafeAttributes drops attributes that could leak guest data.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, forbidden := forbiddenAttributeKeys[attr.Key]; forbidden {
			continue
		}
		out = append(out, attr)
	}
	return out
}

// SafeError strips connection strings from driver errors before recording them.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if idx := strings.Index(strings.ToLower(msg), "password="); idx >= 0 {
		msg = msg[:idx] + "password=[redacted]"
	}
	return errors.New(msg)
}
