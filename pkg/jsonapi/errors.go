package jsonapi

import (
	"fmt"
	"net/http"
	"strconv"
)

// ErrorBuilder assembles an Error.
type ErrorBuilder struct {
	err Error
}

// NewError starts an error with an HTTP status, a machine code and a title.
func NewError(status int, code, title string) *ErrorBuilder {
	return &ErrorBuilder{err: Error{Status: strconv.Itoa(status), Code: code, Title: title}}
}

// Detail sets the human-readable explanation.
func (b *ErrorBuilder) Detail(detail string) *ErrorBuilder {
	b.err.Detail = detail
	return b
}

// Detailf is Detail with formatting.
func (b *ErrorBuilder) Detailf(format string, args ...any) *ErrorBuilder {
	return b.Detail(fmt.Sprintf(format, args...))
}

// ID tags the error with the request id.
func (b *ErrorBuilder) ID(id string) *ErrorBuilder {
	b.err.ID = id
	return b
}

// Parameter blames a query parameter.
func (b *ErrorBuilder) Parameter(name string) *ErrorBuilder {
	b.err.Source = &ErrorSource{Parameter: name}
	return b
}

// Header blames a request header.
func (b *ErrorBuilder) Header(name string) *ErrorBuilder {
	b.err.Source = &ErrorSource{Header: name}
	return b
}

// Meta sets one meta entry, e.g. the usage numbers behind a denial.
func (b *ErrorBuilder) Meta(key string, value any) *ErrorBuilder {
	if b.err.Meta == nil {
		b.err.Meta = make(Meta)
	}
	b.err.Meta[key] = value
	return b
}

// Build returns the error.
func (b *ErrorBuilder) Build() Error {
	return b.err
}

// StatusCode parses Status. It is 0 when Status is not a number.
func (e Error) StatusCode() int {
	n, _ := strconv.Atoi(e.Status)
	return n
}

// ErrBadRequest is a 400 for a body that could not be decoded.
func ErrBadRequest(detail string) Error {
	return NewError(http.StatusBadRequest, "bad_request", "Bad Request").Detail(detail).Build()
}

// ErrInvalidParam is a 400 blaming one query parameter.
func ErrInvalidParam(code, param, detail string) Error {
	return NewError(http.StatusBadRequest, code, "Invalid Input").Detail(detail).Parameter(param).Build()
}

// ErrUnauthorized is a 401 for a missing or wrong credential header. code
// says which.
func ErrUnauthorized(code, header string) *ErrorBuilder {
	return NewError(http.StatusUnauthorized, code, "Unauthorized").
		Detail("A valid " + header + " header is required").
		Header(header)
}

// ErrNotFound is a 404 for what.
func ErrNotFound(what string) Error {
	return NewError(http.StatusNotFound, "not_found", "Not Found").
		Detailf("The requested %s was not found", what).
		Build()
}

// ErrInternal is a 500.
func ErrInternal(detail string) Error {
	if detail == "" {
		detail = "An internal error occurred"
	}
	return NewError(http.StatusInternalServerError, "internal_error", "Internal Server Error").Detail(detail).Build()
}
