package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// storeFields lists the internal names of a Store in output order.
var storeFields = []string{"id", "name", "description", "created_at", "updated_at", "is_deleted"}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s Store) values() map[string]any {
	return map[string]any{
		"id":          s.ID.Hex(),
		"name":        s.Name,
		"description": s.Description,
		"created_at":  s.CreatedAt,
		"updated_at":  s.UpdatedAt,
		"is_deleted":  s.IsDeleted,
	}
}

// View returns the stored view keyed by external name, with timestamps
// formatted as RFC 3339 strings.
func (s Store) View() map[string]any {
	view := make(map[string]any, len(storeFields))
	for name, value := range s.values() {
		if t, ok := value.(time.Time); ok {
			value = t.Format(time.RFC3339Nano)
		}
		view[ToCamel(name)] = value
	}
	return view
}

func (s Store) MarshalJSON() ([]byte, error) {
	values := s.values()

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range storeFields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(ToCamel(name))
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(values[name])
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s *Store) UnmarshalJSON(data []byte) error {
	fields, err := decodeFields(data)
	if err != nil {
		return err
	}
	for name, raw := range fields {
		switch name {
		case "id":
			var hex string
			if err := json.Unmarshal(raw, &hex); err != nil {
				return fmt.Errorf("decode id: %w", err)
			}
			id, err := ParseID(hex)
			if err != nil {
				return err
			}
			s.ID = id
		case "name":
			err = json.Unmarshal(raw, &s.Name)
		case "description":
			err = json.Unmarshal(raw, &s.Description)
		case "created_at":
			err = decodeTime(raw, &s.CreatedAt)
		case "updated_at":
			err = decodeTime(raw, &s.UpdatedAt)
		case "is_deleted":
			err = json.Unmarshal(raw, &s.IsDeleted)
		}
		if err != nil {
			return fmt.Errorf("decode %s: %w", name, err)
		}
	}
	return nil
}

// UnmarshalJSON accepts the camelCase alias or the snake_case name of each
// field and ignores everything else, server-managed fields included. A null
// value leaves the field absent.
func (input *StoreInput) UnmarshalJSON(data []byte) error {
	fields, err := decodeFields(data)
	if err != nil {
		return err
	}
	for name, raw := range fields {
		var target **string
		switch name {
		case "name":
			target = &input.Name
		case "description":
			target = &input.Description
		default:
			continue
		}
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			*target = nil
			continue
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			return fmt.Errorf("decode %s: %w", name, err)
		}
		*target = &value
	}
	return nil
}

// Validate reports fields that are required but were absent. Empty strings
// are accepted.
func (input StoreInput) Validate() error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s is %s", ToCamel(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, ", "))
}

// decodeFields reads a JSON object and keys its members by internal name.
// When a field appears under both names the camelCase alias wins.
func decodeFields(data []byte) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errors.New("expected a JSON object")
	}
	fields := make(map[string]json.RawMessage, len(raw))
	for key, value := range raw {
		name := ToSnake(key)
		if _, seen := fields[name]; seen && name == key {
			continue
		}
		fields[name] = value
	}
	return fields, nil
}

func decodeTime(raw json.RawMessage, t *time.Time) error {
	if err := json.Unmarshal(raw, t); err != nil {
		return err
	}
	*t = t.UTC()
	return nil
}
