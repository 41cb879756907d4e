package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"crmgate/internal/postgrest"
)

type FieldError struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Коды ошибок
const (
	ErrRequired        = "required"
	ErrInvalidParam    = "invalid_param"
	ErrInvalidJSON     = "invalid_json"
	ErrMalformedFilter = "malformed_filter"
	ErrInvalidID       = "invalid_id"
	ErrUnsupported     = "unsupported_query"
)

func ferr(code, field, msg string) FieldError {
	return FieldError{Code: code, Field: field, Message: msg}
}

// errorsFor раскладывает ошибку планировщика в FieldError.
func errorsFor(err error) []FieldError {
	var (
		malformed postgrest.MalformedFilterError
		invalid   postgrest.InvalidIDError
	)
	switch {
	case errors.Is(err, postgrest.ErrUnsupportedQuery):
		return []FieldError{ferr(ErrUnsupported, "id", err.Error())}
	case errors.As(err, &malformed):
		return []FieldError{ferr(ErrMalformedFilter, malformed.Key, err.Error())}
	case errors.As(err, &invalid):
		return []FieldError{ferr(ErrInvalidID, "id", err.Error())}
	}
	return []FieldError{ferr(ErrInvalidParam, "", err.Error())}
}

// 422 — форма запроса валидна, но PostgREST её не выразит; остальное — 400.
func statusForErrors(errs []FieldError) int {
	for _, e := range errs {
		if e.Code == ErrUnsupported {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusBadRequest
}

func abortWithErrors(c *gin.Context, errs []FieldError) {
	msg := "bad request"
	if len(errs) > 0 {
		msg = errs[0].Message
	}
	c.AbortWithStatusJSON(statusForErrors(errs), gin.H{"error": msg, "errors": errs})
}

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	abortWithErrors(c, errorsFor(err))
}
