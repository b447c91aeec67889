package command

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/phrazzld/scry-assistant/internal/llm"
)

// Extract returns the JSON objects contained in a model reply. The reply may
// be a single object or a list of objects, optionally wrapped in a markdown
// code fence and preceded by a reasoning block. The second return value
// reports whether the reply was a list.
func Extract(reply string) ([]json.RawMessage, bool, error) {
	text := stripFence(strings.TrimSpace(llm.StripBlock(reply, "think")))
	if text == "" {
		return nil, false, invalid(-1, "", fmt.Errorf("%w: empty answer", ErrMalformed))
	}

	var raw json.RawMessage
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, false, invalid(-1, "", fmt.Errorf("%w: %v", ErrMalformed, err))
	}

	raw = bytes.TrimSpace(raw)
	switch raw[0] {
	case '{':
		return []json.RawMessage{raw}, false, nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, true, invalid(-1, "", fmt.Errorf("%w: %v", ErrMalformed, err))
		}
		for i, item := range items {
			item = bytes.TrimSpace(item)
			if len(item) == 0 || item[0] != '{' {
				return nil, true, invalid(i, "", ErrNotAnObject)
			}
			items[i] = item
		}
		return items, true, nil
	default:
		return nil, false, invalid(-1, "", fmt.Errorf("%w: expected an object or a list of objects", ErrMalformed))
	}
}

// stripFence removes a surrounding ``` or ```json fence.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

// DecodeStrict decodes a single JSON object into v. Unknown keys and values
// of the wrong type are protocol errors.
func DecodeStrict(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return describeDecodeError(err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after object", ErrMalformed)
	}
	return nil
}

func describeDecodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Errorf("%w: key %q must be %s, got %s", ErrFieldType, typeErr.Field, typeName(typeErr.Type), typeErr.Value)
	}
	if msg, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return fmt.Errorf("%w: unexpected key %s", ErrKeySet, msg)
	}
	return fmt.Errorf("%w: %v", ErrMalformed, err)
}

func typeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Int, reflect.Int32, reflect.Int64:
		return "an integer"
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.Slice:
		return "a list"
	default:
		return "a " + t.Kind().String()
	}
}
