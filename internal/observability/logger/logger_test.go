package logger

import (
	"context"
	"testing"

	obscontext "github.com/smallbiznis/rateboard/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAddsCorrelationFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx := obscontext.WithRequestID(context.Background(), "req-42")
	ctx = obscontext.WithSessionID(ctx, "sess-1")

	WithContext(ctx, base).Info("hello")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Equal(t, "sess-1", fields["session_id"])
	_, hasTrace := fields["trace_id"]
	assert.False(t, hasTrace)
}

func TestOperationFromSQL(t *testing.T) {
	cases := map[string]string{
		"WITH rate_updates AS (SELECT 1) SELECT * FROM x": "SELECT",
		"insert into analysis_runs values (1)":            "INSERT",
		"":                                                "UNKNOWN",
	}
	for sql, want := range cases {
		assert.Equal(t, want, operationFromSQL(sql), sql)
	}
}

func TestNewRejectsInvalidLevel(t *testing.T) {
	_, err := New(nil, Config{Level: "loud"})
	assert.Error(t, err)
}
