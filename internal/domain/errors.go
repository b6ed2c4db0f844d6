package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrSignerUninitialized = errors.New("signer not initialized")
	ErrSigningFailed       = errors.New("signing failed")
	ErrLockHeld            = errors.New("lock already held")
	ErrWSDisconnect        = errors.New("websocket disconnected")
)
