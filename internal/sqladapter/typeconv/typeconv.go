// Package typeconv converts between JSON values and the stringly-typed
// positional parameter arrays the SQL adapter core binds to prepared
// statements (spec §4.2, component C5).
package typeconv

import (
	"encoding/json"
	"strconv"

	"github.com/google/uuid"

	"dbal/internal/dbalerr"
	"dbal/internal/schema"
)

// ToParam marshals a JSON value for field f into its bound-parameter string
// form per spec §4.2 C5: booleans become "1"/"0", number/bigint/integer use
// integer form, strings pass through, null becomes "", everything else is
// compact JSON text.
func ToParam(f *schema.Field, value any) (string, error) {
	if value == nil {
		return "", nil
	}
	switch f.Type {
	case schema.TypeBoolean:
		b, ok := value.(bool)
		if !ok {
			return "", dbalerr.ValidationError("field %q: expected boolean, got %T", f.Name, value)
		}
		if b {
			return "1", nil
		}
		return "0", nil
	case schema.TypeNumber, schema.TypeBigInt, schema.TypeInteger:
		return toIntegerString(f, value)
	case schema.TypeJSON:
		b, err := json.Marshal(value)
		if err != nil {
			return "", dbalerr.ValidationError("field %q: cannot serialize to JSON: %v", f.Name, err)
		}
		return string(b), nil
	default:
		switch v := value.(type) {
		case string:
			return v, nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		default:
			b, err := json.Marshal(value)
			if err != nil {
				return "", dbalerr.ValidationError("field %q: cannot serialize: %v", f.Name, err)
			}
			return string(b), nil
		}
	}
}

func toIntegerString(f *schema.Field, value any) (string, error) {
	switch v := value.(type) {
	case float64:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case int:
		return strconv.Itoa(v), nil
	case json.Number:
		return v.String(), nil
	case string:
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			return "", dbalerr.ValidationError("field %q: %q is not a valid integer", f.Name, v)
		}
		return v, nil
	default:
		return "", dbalerr.ValidationError("field %q: expected a number, got %T", f.Name, value)
	}
}

// GenerateValue produces a value for a generated field that the caller did
// not supply explicitly (spec §3.2: "any absent generated field is filled
// by the backend"). uuid/cuid fields get a generated UUID (google/uuid);
// timestamp/datetime fields are left to the caller (the SQL adapter's
// fillGeneratedDefaults fills those with the current UTC time); anything
// else generated but
// without a recognized generation strategy is left empty for the database
// default to apply.
func GenerateValue(f *schema.Field) (any, bool) {
	switch f.Type {
	case schema.TypeUUID, schema.TypeCUID:
		return uuid.NewString(), true
	default:
		return nil, false
	}
}
