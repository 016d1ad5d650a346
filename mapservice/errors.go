package mapservice

import (
	"errors"
	"fmt"
)

var (
	ErrNotLoaded      = errors.New("mapservice: map not loaded")
	ErrAlreadyLoading = errors.New("mapservice: load already in progress")
	ErrAlreadyLoaded  = errors.New("mapservice: load already attempted")
)

// LoadError reports a failure to fetch or decode the document or one of its
// images.
type LoadError struct {
	Name string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Name, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// StageError is the single terminal error of a failed load. Err keeps the
// typed cause for errors.As.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("mapservice: %s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
