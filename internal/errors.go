package internal

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine errors so transport layers can map them to
// a status without string matching.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindNotFound
	KindUpstream
	KindPersistence
)

type AppError struct {
	Kind    ErrorKind `json:"-"`
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func NewAppError(code int, msg string) *AppError {
	return &AppError{Code: code, Message: msg}
}

func ValidationError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindValidation, Code: 400, Message: fmt.Sprintf(format, args...)}
}

func NotFoundError(format string, args ...interface{}) *AppError {
	return &AppError{Kind: KindNotFound, Code: 404, Message: fmt.Sprintf(format, args...)}
}

// UpstreamError marks a text-generation failure. It never escapes the
// mood/insight services; they absorb it into the fallback path.
func UpstreamError(msg string, err error) *AppError {
	return &AppError{Kind: KindUpstream, Code: 502, Message: msg, Err: err}
}

func PersistenceError(msg string, err error) *AppError {
	return &AppError{Kind: KindPersistence, Code: 500, Message: msg, Err: err}
}

// KindOf returns the kind of the first AppError in err's chain,
// or KindUnknown if there is none.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}
