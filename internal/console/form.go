package console

import (
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// parseForm converts a submitted form into the JSON payload expected by
// the remote API, typed per field kind. Returned field errors map field
// name to a message; an empty map means the payload is valid.
func parseForm(d *Descriptor, form url.Values) (map[string]any, map[string]string) {
	payload := make(map[string]any, len(d.Fields))
	fieldErrs := make(map[string]string)

	for _, f := range d.Fields {
		raw := form.Get(f.Name)
		if f.Required {
			if err := validate.Var(raw, "required"); err != nil {
				fieldErrs[f.Name] = f.Label + " is required"
				continue
			}
		}
		if raw == "" {
			continue
		}
		switch f.Kind {
		case FieldNumber:
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				fieldErrs[f.Name] = f.Label + " must be a whole number"
				continue
			}
			payload[f.Name] = n
		case FieldSelect:
			// Select values reference either numeric IDs or plain
			// string enumerations like units.
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				payload[f.Name] = n
			} else {
				payload[f.Name] = raw
			}
		case FieldDecimal:
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				fieldErrs[f.Name] = f.Label + " must be a number"
				continue
			}
			payload[f.Name] = n
		default:
			payload[f.Name] = raw
		}
	}
	return payload, fieldErrs
}

// formValues renders an existing row back into form input values.
func formValues(d *Descriptor, row map[string]any) map[string]string {
	values := make(map[string]string, len(d.Fields))
	for _, f := range d.Fields {
		v := stringOf(row[f.Name])
		if f.Kind == FieldDate && len(v) > 10 {
			v = v[:10]
		}
		values[f.Name] = v
	}
	return values
}
