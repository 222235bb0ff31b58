// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates the request carried an invalid parameter
// (unknown group-by dimension, order field, provider or report type).
var ErrValidation = errors.New("validation failed")
