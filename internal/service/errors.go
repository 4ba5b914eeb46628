package service

import (
	"errors"
	"fmt"
)

var (
	// ErrIO marks a persistence failure while reading or writing the backing file.
	ErrIO = errors.New("model store i/o failure")
	// ErrParse marks a backing file that could not be decoded (or a model that could not be encoded).
	ErrParse = errors.New("model store parse failure")
)

// PersistenceError is returned by Open, Save and Reload. Use errors.Is with
// ErrIO or ErrParse to tell the two apart.
type PersistenceError struct {
	Op   string // "open", "save", "reload"
	Path string
	Kind error // ErrIO or ErrParse
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the underlying cause.
func (e *PersistenceError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func ioError(op, path string, err error) error {
	return &PersistenceError{Op: op, Path: path, Kind: ErrIO, Err: err}
}

func parseError(op, path string, err error) error {
	return &PersistenceError{Op: op, Path: path, Kind: ErrParse, Err: err}
}
