package couchparty

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentNotFound not_found
	ErrDocumentNotFound = errors.New("not_found")
	// ErrDocumentConflict conflict
	ErrDocumentConflict = errors.New("conflict")
)

// Ошибка в параметрах вида или страницы
type ErrorConfiguration struct {
	Message string
}

func (e ErrorConfiguration) Error() string {
	return "configuration error: " + e.Message
}

// Ошибка "не найден"
type ErrorNotFound struct {
	Type    TypeName
	Name    string
	Message string
}

func (e ErrorNotFound) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("view %q not found in %s", e.Name, e.Type)
}

type ErrorNoDatabase struct {
	Type TypeName
}

func (e ErrorNoDatabase) Error() string {
	return fmt.Sprintf("no database bound for %s", e.Type)
}

// ErrorConflict is returned when a design document write lost the race
// after the single retry.
type ErrorConflict struct {
	ID       string
	Database string
	Attempts int
}

func (e ErrorConflict) Error() string {
	return fmt.Sprintf("design document %s in %s: conflict after %d attempts", e.ID, e.Database, e.Attempts)
}

func (e ErrorConflict) Unwrap() error {
	return ErrDocumentConflict
}

type ErrorUnavailable struct {
	Op  string
	Err error
}

func (e ErrorUnavailable) Error() string {
	return fmt.Sprintf("%s: store unavailable: %s", e.Op, e.Err)
}

func (e ErrorUnavailable) Unwrap() error {
	return e.Err
}

// ResponseError is a non retryable error answer of the store.
type ResponseError struct {
	StatusCode int
	Code       string `json:"error"`
	Reason     string `json:"reason"`
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, e.Code, e.Reason)
}

// storeError keeps typed errors as they are and reports anything else as an
// unavailable store.
func storeError(op string, err error) error {
	var (
		ue  ErrorUnavailable
		re  *ResponseError
		ce  ErrorConflict
		cfg ErrorConfiguration
	)
	switch {
	case errors.As(err, &ue), errors.As(err, &ce), errors.As(err, &cfg):
		return err
	case errors.Is(err, ErrDocumentNotFound), errors.Is(err, ErrDocumentConflict), errors.As(err, &re):
		return fmt.Errorf("%s: %w", op, err)
	}
	return ErrorUnavailable{Op: op, Err: err}
}
