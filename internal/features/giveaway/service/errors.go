package service

import "errors"

var (
	ErrNotFound      = errors.New("giveaway not found")
	ErrNotOpen       = errors.New("giveaway is not open")
	ErrNotFinalized  = errors.New("giveaway is not finalized")
	ErrEmptyPool     = errors.New("no eligible participants remain")
	ErrInvalidReroll = errors.New("reroll count must be greater than 0")
)
