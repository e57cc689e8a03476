package snapshot

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/rateboard/internal/ratemismatch/domain"
)

type column struct {
	name  string
	index int
}

var (
	recordType = reflect.TypeOf(domain.Record{})
	columns    = recordColumns()
	timeType   = reflect.TypeOf(time.Time{})
)

func recordColumns() []column {
	out := make([]column, 0, recordType.NumField())
	for i := 0; i < recordType.NumField(); i++ {
		name := recordType.Field(i).Tag.Get("csv")
		if name == "" || name == "-" {
			continue
		}
		out = append(out, column{name: name, index: i})
	}
	return out
}

// Header lists the snapshot columns in query output order.
func Header() []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.name
	}
	return names
}

func encode(rec domain.Record) []string {
	v := reflect.ValueOf(rec)
	row := make([]string, len(columns))
	for i, c := range columns {
		row[i] = formatValue(v.Field(c.index))
	}
	return row
}

func formatValue(v reflect.Value) string {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	switch {
	case v.Type() == timeType:
		t := v.Interface().(time.Time)
		if t.IsZero() {
			return ""
		}
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format(time.DateOnly)
		}
		return t.Format(time.RFC3339)
	case v.Kind() == reflect.String:
		return v.String()
	case v.Kind() == reflect.Int || v.Kind() == reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case v.Kind() == reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64)
	}
	return fmt.Sprint(v.Interface())
}

// decode maps a CSV row onto a record using the header positions. Columns
// the record does not know are ignored; unknown record columns stay zero.
func decode(header map[string]int, row []string) (domain.Record, error) {
	var rec domain.Record
	v := reflect.ValueOf(&rec).Elem()
	for _, c := range columns {
		pos, ok := header[c.name]
		if !ok || pos >= len(row) {
			continue
		}
		if err := parseInto(v.Field(c.index), strings.TrimSpace(row[pos])); err != nil {
			return domain.Record{}, fmt.Errorf("column %s: %w", c.name, err)
		}
	}
	return rec, nil
}

func parseInto(field reflect.Value, raw string) error {
	if field.Kind() == reflect.Pointer {
		if raw == "" {
			return nil
		}
		target := reflect.New(field.Type().Elem())
		if err := parseInto(target.Elem(), raw); err != nil {
			return err
		}
		field.Set(target)
		return nil
	}
	if raw == "" {
		return nil
	}

	switch {
	case field.Type() == timeType:
		t, err := parseTime(raw)
		if err != nil {
			return err
		}
		field.Set(reflect.ValueOf(t))
	case field.Kind() == reflect.String:
		field.SetString(raw)
	case field.Kind() == reflect.Int || field.Kind() == reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			f, ferr := strconv.ParseFloat(raw, 64)
			if ferr != nil {
				return err
			}
			n = int64(f)
		}
		field.SetInt(n)
	case field.Kind() == reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}

func parseTime(raw string) (time.Time, error) {
	for _, layout := range []string{time.DateOnly, time.RFC3339Nano, time.DateTime, "2006-01-02 15:04:05-07:00"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", raw)
}
