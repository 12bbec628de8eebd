package report

import "errors"

var (
	ErrReportNotFound  = errors.New("report not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrUnauthorized    = errors.New("not allowed to act on this report")
	ErrInvalidContent  = errors.New("report content must be a non-empty object")
	ErrNoTranscript    = errors.New("session has no transcript to summarize")
)
