package domain

import "errors"

var (
	ErrEmptyContent    = errors.New("thought content is empty")
	ErrThoughtNotFound = errors.New("thought not found")
)
