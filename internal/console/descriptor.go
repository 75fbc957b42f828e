// Package console serves the server-rendered administration screens. One
// generic set of handlers drives every resource screen from a Descriptor,
// so adding a screen means adding a descriptor, not new handler code.
package console

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/quartermaster-am/quartermaster/internal/api"
	"github.com/quartermaster-am/quartermaster/internal/table"
)

// FieldKind selects the form control rendered for a field.
type FieldKind string

const (
	FieldText     FieldKind = "text"
	FieldNumber   FieldKind = "number"
	FieldDecimal  FieldKind = "decimal"
	FieldDate     FieldKind = "date"
	FieldTextarea FieldKind = "textarea"
	FieldSelect   FieldKind = "select"
)

// Option is a select choice.
type Option struct {
	Value string
	Label string
}

// Field describes one editable property of a remote resource.
type Field struct {
	Name     string
	Label    string
	Kind     FieldKind
	Required bool
	// Options supplies select choices at render time. Only set for
	// FieldSelect.
	Options func(ctx context.Context) ([]Option, error)
}

// Descriptor binds a remote REST resource to its list and form screens.
type Descriptor struct {
	Slug     string
	Title    string
	Singular string
	IDField  string
	PageSize int
	Columns  []table.Column[map[string]any]
	Fields   []Field
	Resource api.Resource[map[string]any]
}

// IDOf extracts the row identifier named by IDField. Decoded JSON
// numbers arrive as float64.
func (d *Descriptor) IDOf(row map[string]any) int64 {
	return int64Of(row[d.IDField])
}

func int64Of(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	}
	return 0
}

func stringOf(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', 2, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return fmt.Sprintf("%v", s)
	}
}

// cell returns a column accessor for a plain string-ish property.
func cell(name string) func(map[string]any) string {
	return func(row map[string]any) string {
		return stringOf(row[name])
	}
}

// dateCell formats an ISO timestamp property as a calendar date.
func dateCell(name string) func(map[string]any) string {
	return func(row map[string]any) string {
		raw, _ := row[name].(string)
		if raw == "" {
			return ""
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if ts, err := time.Parse(layout, raw); err == nil {
				return ts.Format("02 Jan 2006")
			}
		}
		return raw
	}
}
