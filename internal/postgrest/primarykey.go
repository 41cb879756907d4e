package postgrest

import (
	"bytes"
	"strings"

	gojson "github.com/goccy/go-json"
)

// PrimaryKey: упорядоченный непустой список колонок первичного ключа.
type PrimaryKey []string

// DefaultPrimaryKey используется для ресурсов без явного ключа.
var DefaultPrimaryKey = PrimaryKey{"id"}

// IsCompound: ключ из нескольких колонок.
func (pk PrimaryKey) IsCompound() bool { return len(pk) > 1 }

func (pk PrimaryKey) isPlainID() bool { return len(pk) == 1 && pk[0] == "id" }

// PrimaryKeyMap: ресурс → первичный ключ.
type PrimaryKeyMap map[string]PrimaryKey

// PrimaryKey: то же, что GetPrimaryKey(resource, m).
func (m PrimaryKeyMap) PrimaryKey(resource string) PrimaryKey {
	return GetPrimaryKey(resource, m)
}

// Record: запись ресурса так, как её отдаёт/принимает PostgREST.
type Record map[string]any

// GetPrimaryKey возвращает ключ ресурса, по умолчанию ["id"].
func GetPrimaryKey(resource string, keys PrimaryKeyMap) PrimaryKey {
	if pk, ok := keys[resource]; ok && len(pk) > 0 {
		return pk
	}
	return DefaultPrimaryKey
}

// EncodeID строит идентификатор записи. Для простого ключа — само значение колонки,
// для составного — JSON-массив значений в порядке ключа.
func EncodeID(rec Record, pk PrimaryKey) (any, error) {
	if len(pk) == 0 {
		pk = DefaultPrimaryKey
	}
	if !pk.IsCompound() {
		return rec[pk[0]], nil
	}
	values := make([]any, len(pk))
	for i, col := range pk {
		values[i] = rec[col]
	}
	return marshalCompact(values)
}

// DecodeID раскладывает идентификатор на значения колонок ключа.
// Числа составного ключа возвращаются как json.Number, без приведения типов.
func DecodeID(id any, pk PrimaryKey) ([]any, error) {
	if pk.IsCompound() {
		// уже разобранный id: [1,2] из JSON-массива ids
		switch arr := id.(type) {
		case []any:
			return compoundValues(arr, pk)
		case List:
			return compoundValues(arr, pk)
		}
	}

	s := FormatValue(id)
	if !pk.IsCompound() {
		return []any{s}, nil
	}

	var values []any
	dec := gojson.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(&values); err != nil {
		return nil, InvalidIDError{ID: s, Key: pk, Err: err}
	}
	if len(values) != len(pk) {
		return nil, InvalidIDError{ID: s, Key: pk}
	}
	return values, nil
}

func compoundValues(arr []any, pk PrimaryKey) ([]any, error) {
	if len(arr) != len(pk) {
		raw, _ := marshalCompact(arr)
		return nil, InvalidIDError{ID: raw, Key: pk}
	}
	return append([]any(nil), arr...), nil
}

// DataWithVirtualID добавляет поле id, если ключ ресурса не ["id"].
func DataWithVirtualID(rec Record, pk PrimaryKey) (Record, error) {
	if pk.isPlainID() {
		return rec, nil
	}
	id, err := EncodeID(rec, pk)
	if err != nil {
		return nil, err
	}
	out := make(Record, len(rec)+1)
	for k, v := range rec {
		out[k] = v
	}
	out["id"] = id
	return out, nil
}

// DataWithoutVirtualID убирает синтетическое поле id.
func DataWithoutVirtualID(rec Record, pk PrimaryKey) Record {
	if pk.isPlainID() {
		return rec
	}
	out := make(Record, len(rec))
	for k, v := range rec {
		if k == "id" {
			continue
		}
		out[k] = v
	}
	return out
}

// RemovePrimaryKey: копия записи без колонок ключа (payload для update).
func RemovePrimaryKey(rec Record, pk PrimaryKey) Record {
	skip := make(map[string]struct{}, len(pk))
	for _, col := range pk {
		skip[col] = struct{}{}
	}
	out := make(Record, len(rec))
	for k, v := range rec {
		if _, ok := skip[k]; ok {
			continue
		}
		out[k] = v
	}
	return out
}

// marshalCompact: JSON без экранирования HTML и без перевода строки в конце.
func marshalCompact(v any) (string, error) {
	var buf bytes.Buffer
	enc := gojson.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}
