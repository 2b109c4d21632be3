package errors

import "fmt"

var (
	ErrWorkerPanic     = fmt.Errorf("worker panic")
	ErrUsernameTaken   = fmt.Errorf("username taken")
	ErrSessionNotFound = fmt.Errorf("session not found")
	ErrQueueClosed     = fmt.Errorf("outbound queue closed")
	ErrQueueOverflow   = fmt.Errorf("outbound queue overflow")
	ErrEmptyWords      = fmt.Errorf("no words have been found")
)
