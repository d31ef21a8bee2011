package service

import "errors"

// Service errors.
var (
	ErrUnknownSelector = errors.New("unknown selector")
	ErrUnknownTarget   = errors.New("unknown target")
)
