package repository

import "errors"

// ErrDuplicate indicates an insert collided with an existing (tenant, username) pair.
var ErrDuplicate = errors.New("user already exists")
