package apperror

import "errors"

var (
	ErrInvalidPosition = errors.New("invalid board position")
	ErrUnknownSlot     = errors.New("unknown player slot")
	ErrPeerUnreachable = errors.New("peer is not reachable")
	ErrSendQueueFull   = errors.New("send queue is full")
	ErrEngineStopped   = errors.New("replication engine is stopped")
	ErrContextNotFound = errors.New("no shared context installed")
)
