package postgrest

import (
	"errors"
	"fmt"
)

// ErrUnsupportedQuery: набор id нельзя выразить запросом (несколько id для rpc/ ресурса).
var ErrUnsupportedQuery = errors.New("query cannot be expressed for this resource")

// MalformedFilterError: вложенный фильтр не той формы, что ожидалась для ключа.
type MalformedFilterError struct {
	Key    string
	Reason string
}

func (e MalformedFilterError) Error() string {
	return fmt.Sprintf("malformed filter %q: %s", e.Key, e.Reason)
}

// InvalidIDError: идентификатор не раскладывается на колонки первичного ключа.
type InvalidIDError struct {
	ID  string
	Key PrimaryKey
	Err error
}

func (e InvalidIDError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid id %s for primary key %v: %v", e.ID, []string(e.Key), e.Err)
	}
	return fmt.Sprintf("invalid id %s for primary key %v", e.ID, []string(e.Key))
}

func (e InvalidIDError) Unwrap() error { return e.Err }
