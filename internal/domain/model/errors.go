package model

import "errors"

// ErrNotFound is returned by object stores when a decal id no longer exists.
// The lifecycle treats it as a benign no-op.
var ErrNotFound = errors.New("decal not found")
