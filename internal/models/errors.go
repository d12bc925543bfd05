package models

import "errors"

var (
	ErrNotFound        = errors.New("file not found")
	ErrFolderNotFound  = errors.New("folder not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session is not accepting chunks")
	ErrOutOfOrder      = errors.New("chunk index out of order")
	ErrIncomplete      = errors.New("upload incomplete")
	ErrChecksum        = errors.New("checksum mismatch")
	ErrIntegrity       = errors.New("chunk integrity violation")
	ErrPartUnavailable = errors.New("no platform holds the requested part")
	ErrCycle           = errors.New("folder move would create a cycle")
	ErrNotEmpty        = errors.New("folder is not empty")
)
