package session

import "errors"

var (
	ErrInvalidReference       = errors.New("patient or doctor reference is invalid")
	ErrInvalidWindow          = errors.New("start time must be before end time")
	ErrSessionNotFound        = errors.New("session not found")
	ErrUnauthorized           = errors.New("not allowed to act on this session")
	ErrInvalidState           = errors.New("session is not in a valid state for this operation")
	ErrInvalidStatus          = errors.New("unknown session status")
	ErrProfileNotFound        = errors.New("patient profile not found")
	ErrRoomProvisioningFailed = errors.New("room provisioning failed")
	ErrWorkerDispatchFailed   = errors.New("ai worker dispatch failed")
	ErrTranscriptTooLarge     = errors.New("transcript exceeds the maximum size")
	ErrTranscriptNotFound     = errors.New("session has no transcript")
	ErrTranscriptEmpty        = errors.New("transcript is empty")
)
