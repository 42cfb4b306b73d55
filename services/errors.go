package services

import "errors"

// Validation errors: rejected immediately, no state change. Handlers map
// these to 4xx responses; anything else surfaces as a generic 500.
var (
	ErrCrateNotFound   = errors.New("crate not found or not owned by account")
	ErrNoCrates        = errors.New("no openable crates in inventory")
	ErrCrateEscrowed   = errors.New("crate is held in escrow; reclaim it first")
	ErrEscrowExpired   = errors.New("escrow window has lapsed")
	ErrNotEscrowed     = errors.New("crate is not in escrow")
	ErrPrimaryFull     = errors.New("primary inventory is full")
	ErrSessionNotFound = errors.New("competitive session not found")
	ErrSessionEnded    = errors.New("competitive session already ended")
	ErrNoActiveHeist   = errors.New("no active heist to answer")
)
