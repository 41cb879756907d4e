package postgrest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	gojson "github.com/goccy/go-json"
)

// FilterValue: значение фильтра: Scalar, List или Nested.
type FilterValue interface {
	filterValue()
}

// Scalar: одиночное значение (string, json.Number, bool, числа, nil).
type Scalar struct {
	V any
}

// List: массив скаляров.
type List []any

// Nested: вложенная спецификация фильтра (dotted path или группа or/and).
type Nested Filter

func (Scalar) filterValue() {}
func (List) filterValue()   {}
func (Nested) filterValue() {}

// Entry: одна пара "ключ фильтра → значение". Ключ: путь колонки + опционально "@оператор".
type Entry struct {
	Key   string
	Value FilterValue
}

// Filter: упорядоченная спецификация фильтра. Порядок важен для групп or/and.
type Filter []Entry

// F собирает Entry из произвольного Go-значения.
func F(key string, v any) Entry {
	return Entry{Key: key, Value: ValueOf(v)}
}

// ValueOf приводит Go-значение к одному из вариантов FilterValue.
// Ключи map[string]any сортируются, чтобы результат был детерминированным.
func ValueOf(v any) FilterValue {
	switch t := v.(type) {
	case nil:
		return Scalar{}
	case FilterValue:
		return t
	case Filter:
		return Nested(t)
	case []Entry:
		return Nested(t)
	case []any:
		return List(t)
	case []string:
		out := make(List, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		nested := make(Nested, 0, len(keys))
		for _, k := range keys {
			nested = append(nested, F(k, t[k]))
		}
		return nested
	case []byte:
		return Scalar{V: string(t)}
	}

	// прочие срезы/массивы (например []int) — через reflect
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make(List, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return Scalar{V: v}
}

// UnmarshalJSON разбирает JSON-объект с сохранением порядка ключей.
func (f *Filter) UnmarshalJSON(data []byte) error {
	parsed, err := ParseFilterJSON(data)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseFilterJSON читает JSON-объект фильтра. Числа остаются json.Number.
func ParseFilterJSON(data []byte) (Filter, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Filter{}, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("filter: expected JSON object, got %v", tok)
	}

	out := Filter{}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("filter: %w", err)
		}
		key, _ := kt.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("filter %q: %w", key, err)
		}
		v, err := decodeRawValue(raw)
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", key, err)
		}
		out = append(out, Entry{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	return out, nil
}

func decodeRawValue(raw json.RawMessage) (FilterValue, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		nested, err := ParseFilterJSON(raw)
		if err != nil {
			return nil, err
		}
		return Nested(nested), nil
	}

	var v any
	dec := gojson.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if arr, ok := v.([]any); ok {
		return List(arr), nil
	}
	return Scalar{V: v}, nil
}
