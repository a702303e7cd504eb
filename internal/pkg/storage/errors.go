package storage

import "github.com/pkg/errors"

// ErrNotFound indicates the named file does not exist.
var ErrNotFound = errors.New("file not found")

// ErrEmptyPath indicates a request with an empty file name.
var ErrEmptyPath = errors.New("empty path")

// ErrAlreadyExists indicates the named file already exists and cannot be replaced.
var ErrAlreadyExists = errors.New("file already exists")

// ErrAccessViolation indicates the named file cannot be accessed.
var ErrAccessViolation = errors.New("access violation")
