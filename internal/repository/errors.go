// Package repository holds the sentinel errors shared by the job record
// store backends.
package repository

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate job id")
	ErrTerminal  = errors.New("job already in terminal state")
)
