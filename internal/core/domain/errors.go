package domain

import "errors"

var (
	ErrConnectionNotFound = errors.New("connection not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrBroadcasterExists  = errors.New("broadcaster already exists for stream")
	ErrAlreadyJoined      = errors.New("connection already joined a stream")
	ErrInvalidRole        = errors.New("invalid role")
	ErrEmptyStreamID      = errors.New("stream id must not be empty")
	ErrViewerNotInStream  = errors.New("viewer is not a member of the stream")
)
