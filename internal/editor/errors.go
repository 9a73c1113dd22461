package editor

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig: ошибка конфигурации редактора, программная, а не пользовательская.
	ErrConfig = errors.New("editor configuration")

	ErrMissingKeyComponent   = errors.New("primary key element is not available in the data set")
	ErrKeyArity              = errors.New("primary key data does not match submitted data")
	ErrCompoundKeyIncomplete = errors.New("all fields of a compound key must be submitted with a value on create")
	ErrNoKeyGenerated        = errors.New("insert did not produce a primary key")
)

func configErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// hookError: ошибка из обработчика события; прерывает весь запрос.
type hookError struct {
	event Event
	err   error
}

func (e *hookError) Error() string { return fmt.Sprintf("event %s: %v", e.event, e.err) }
func (e *hookError) Unwrap() error { return e.err }

// fatal: ошибки, которые не превращаются в ошибку строки, а прерывают Process.
func fatal(err error) bool {
	var he *hookError
	return errors.Is(err, ErrConfig) || errors.Is(err, ErrKeyArity) || errors.As(err, &he)
}
