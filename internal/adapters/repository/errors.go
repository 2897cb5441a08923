package repository

import (
	"errors"

	"github.com/okian/footsteps/internal/domain/model"
)

// Sentinel kinds for object store errors.
var (
	ErrNotFound = model.ErrNotFound
	ErrClosed   = errors.New("store closed")
)
