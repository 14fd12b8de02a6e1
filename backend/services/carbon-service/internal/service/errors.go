package service

import "fmt"

// FetchError reports a failed intensity lookup: transport, HTTP status or payload shape.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch carbon intensity: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StoreError reports a failed reading store operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("reading store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }
