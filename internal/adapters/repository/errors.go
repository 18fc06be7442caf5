package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrClosed     = errors.New("store closed")
	ErrNoRankings = errors.New("no rankings to store")
)
