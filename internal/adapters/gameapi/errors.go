package gameapi

import "errors"

// Sentinel kinds for game API errors.
var (
	ErrFetch = errors.New("leaderboard fetch failed")
	ErrParse = errors.New("leaderboard payload parse failed")
)
