package tools

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FieldType enumerates the parameter types a tool schema may declare.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInteger FieldType = "integer"
	TypeBoolean FieldType = "boolean"
)

// Field describes one parameter of a tool. Field order matters: it is
// preserved in the schema sent to the model, and required fields are
// consumed positionally in that order when arguments come from the
// command line.
type Field struct {
	Name        string
	Type        FieldType
	Required    bool
	Description string

	// Enum restricts a string field to a fixed set of values.
	Enum []string

	// Minimum and Maximum bound an integer field when non-nil.
	Minimum *int
	Maximum *int
}

// Schema is the ordered parameter list of a tool.
type Schema []Field

// Validate checks args against the schema and normalizes integer values
// to float64 (the type JSON decoding produces), so handlers see one
// representation regardless of where the arguments came from.
// Unknown fields are ignored; models routinely invent extras.
func (s Schema) Validate(args map[string]any) error {
	for _, f := range s {
		v, ok := args[f.Name]
		if !ok || v == nil {
			if f.Required {
				return &InvalidParamsError{Field: f.Name, Reason: "required"}
			}
			continue
		}

		switch f.Type {
		case TypeString:
			str, ok := v.(string)
			if !ok {
				return &InvalidParamsError{Field: f.Name, Reason: fmt.Sprintf("expected string, got %T", v)}
			}
			if f.Required && str == "" {
				return &InvalidParamsError{Field: f.Name, Reason: "required"}
			}
			if len(f.Enum) > 0 && !contains(f.Enum, str) {
				return &InvalidParamsError{Field: f.Name, Reason: fmt.Sprintf("must be one of %s", strings.Join(f.Enum, ", "))}
			}

		case TypeInteger:
			var n float64
			switch num := v.(type) {
			case float64:
				n = num
			case int:
				n = float64(num)
			default:
				return &InvalidParamsError{Field: f.Name, Reason: fmt.Sprintf("expected integer, got %T", v)}
			}
			if n != math.Trunc(n) {
				return &InvalidParamsError{Field: f.Name, Reason: "expected integer, got fraction"}
			}
			if f.Minimum != nil && int(n) < *f.Minimum {
				return &InvalidParamsError{Field: f.Name, Reason: fmt.Sprintf("must be at least %d", *f.Minimum)}
			}
			if f.Maximum != nil && int(n) > *f.Maximum {
				return &InvalidParamsError{Field: f.Name, Reason: fmt.Sprintf("must be at most %d", *f.Maximum)}
			}
			args[f.Name] = n

		case TypeBoolean:
			if _, ok := v.(bool); !ok {
				return &InvalidParamsError{Field: f.Name, Reason: fmt.Sprintf("expected boolean, got %T", v)}
			}

		default:
			return &InvalidParamsError{Field: f.Name, Reason: fmt.Sprintf("unsupported field type %q", f.Type)}
		}
	}
	return nil
}

// JSONSchema renders the schema as the JSON Schema object the model
// expects in a tool definition.
func (s Schema) JSONSchema() map[string]any {
	properties := make(map[string]any, len(s))
	var required []string

	for _, f := range s {
		prop := map[string]any{
			"type":        string(f.Type),
			"description": f.Description,
		}
		if len(f.Enum) > 0 {
			prop["enum"] = f.Enum
		}
		if f.Minimum != nil {
			prop["minimum"] = *f.Minimum
		}
		if f.Maximum != nil {
			prop["maximum"] = *f.Maximum
		}
		properties[f.Name] = prop
		if f.Required {
			required = append(required, f.Name)
		}
	}

	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// ParseCLI converts command-line arguments into the args map the
// handler expects. Required fields are positional in schema order;
// optional fields are flags (--name value, or bare --name for
// booleans). The result still goes through Validate at dispatch.
func (s Schema) ParseCLI(argv []string) (map[string]any, error) {
	args := make(map[string]any)

	var positional []Field
	for _, f := range s {
		if f.Required {
			positional = append(positional, f)
		}
	}

	nextPos := 0
	for i := 0; i < len(argv); i++ {
		tok := argv[i]
		if strings.HasPrefix(tok, "--") {
			name := strings.TrimPrefix(tok, "--")
			value := ""
			if eq := strings.Index(name, "="); eq >= 0 {
				name, value = name[:eq], name[eq+1:]
			}

			field, ok := s.field(name)
			if !ok {
				return nil, &InvalidParamsError{Field: name, Reason: "unknown flag"}
			}

			if field.Type == TypeBoolean && value == "" {
				args[name] = true
				continue
			}
			if value == "" {
				if i+1 >= len(argv) {
					return nil, &InvalidParamsError{Field: name, Reason: "missing value"}
				}
				i++
				value = argv[i]
			}

			v, err := coerce(field, value)
			if err != nil {
				return nil, err
			}
			args[name] = v
			continue
		}

		if nextPos >= len(positional) {
			return nil, &InvalidParamsError{Field: tok, Reason: "unexpected argument"}
		}
		v, err := coerce(positional[nextPos], tok)
		if err != nil {
			return nil, err
		}
		args[positional[nextPos].Name] = v
		nextPos++
	}

	if nextPos < len(positional) {
		return nil, &InvalidParamsError{Field: positional[nextPos].Name, Reason: "required"}
	}

	return args, nil
}

func (s Schema) field(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func coerce(f Field, value string) (any, error) {
	switch f.Type {
	case TypeInteger:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, &InvalidParamsError{Field: f.Name, Reason: fmt.Sprintf("expected integer, got %q", value)}
		}
		return float64(n), nil
	case TypeBoolean:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, &InvalidParamsError{Field: f.Name, Reason: fmt.Sprintf("expected boolean, got %q", value)}
		}
		return b, nil
	default:
		return value, nil
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
