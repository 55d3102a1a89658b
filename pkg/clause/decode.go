package clause

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrAmbiguousClause is returned when a clause object carries more than one recognised key.
var ErrAmbiguousClause = errors.New("clause has more than one recognised key")

var clauseKeys = []string{"and", "or", "not", "survey", "token"}

// Parse decodes a JSON clause document.
func Parse(data []byte) (Clause, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse clause: %w", err)
	}
	return FromMap(raw)
}

// FromMap decodes a clause from its generic map form, as produced by JSON or YAML decoders.
// A nil or unrecognised object decodes to Unknown.
func FromMap(m map[string]any) (Clause, error) {
	var found []string
	for _, k := range clauseKeys {
		if _, ok := m[k]; ok {
			found = append(found, k)
		}
	}
	switch len(found) {
	case 0:
		return Unknown{}, nil
	case 1:
	default:
		sort.Strings(found)
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousClause, strings.Join(found, ", "))
	}

	key := found[0]
	v := m[key]
	switch key {
	case "and", "or":
		children, err := decodeList(key, v)
		if err != nil {
			return nil, err
		}
		if key == "and" {
			return And(children), nil
		}
		return Or(children), nil
	case "not":
		child, err := decodeAny(v)
		if err != nil {
			return nil, fmt.Errorf("not: %w", err)
		}
		return Not{Clause: child}, nil
	case "survey":
		obj, err := asMap(key, v)
		if err != nil {
			return nil, err
		}
		return Survey{
			BlockID:  stringField(obj, "block"),
			Operator: Operator(stringField(obj, "operator")),
			Value:    stringField(obj, "value"),
		}, nil
	default:
		obj, err := asMap(key, v)
		if err != nil {
			return nil, err
		}
		return Token{
			Name:     stringField(obj, "token"),
			Operator: Operator(stringField(obj, "operator")),
			Value:    stringField(obj, "value"),
		}, nil
	}
}

func decodeAny(v any) (Clause, error) {
	if v == nil {
		return Unknown{}, nil
	}
	obj, err := asMap("clause", v)
	if err != nil {
		return nil, err
	}
	return FromMap(obj)
}

func decodeList(key string, v any) ([]Clause, error) {
	items, ok := v.([]any)
	if !ok {
		if v == nil {
			return []Clause{}, nil
		}
		return nil, fmt.Errorf("%s: expected a list, got %T", key, v)
	}
	out := make([]Clause, 0, len(items))
	for i, item := range items {
		c, err := decodeAny(item)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", key, i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func asMap(key string, v any) (map[string]any, error) {
	switch obj := v.(type) {
	case map[string]any:
		return obj, nil
	case map[any]any:
		out := make(map[string]any, len(obj))
		for k, val := range obj {
			out[fmt.Sprint(k)] = val
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s: expected an object, got %T", key, v)
}

// stringField reads a scalar as text; numbers and booleans keep their literal form.
func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		return fmt.Sprint(v)
	}
}
