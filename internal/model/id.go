package model

import (
	"errors"
	"fmt"
	"strings"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidUserID indicates that a user identifier is empty or exceeds storage bounds.
	ErrInvalidUserID = errors.New("model: invalid user id")
	// ErrInvalidMessageID indicates that a message identifier is empty or exceeds storage bounds.
	ErrInvalidMessageID = errors.New("model: invalid message id")
	// ErrInvalidClassCode indicates that a room code is empty or exceeds storage bounds.
	ErrInvalidClassCode = errors.New("model: invalid class code")
	// ErrInvalidTimestamp indicates that an epoch-millisecond value is not positive.
	ErrInvalidTimestamp = errors.New("model: invalid timestamp")
)

// UserID represents a validated user identifier.
type UserID string

// NewUserID validates raw input and returns a UserID.
func NewUserID(rawInput string) (UserID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidUserID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidUserID, maxIdentifierLength)
	}
	return UserID(trimmed), nil
}

// String returns the underlying string identifier.
func (id UserID) String() string {
	return string(id)
}

// MessageID represents a validated message identifier.
type MessageID string

// NewMessageID validates raw input and returns a MessageID.
func NewMessageID(rawInput string) (MessageID, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidMessageID)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidMessageID, maxIdentifierLength)
	}
	return MessageID(trimmed), nil
}

// String returns the underlying string identifier.
func (id MessageID) String() string {
	return string(id)
}

// ClassCode represents a normalized room identifier. Codes are compared
// case-insensitively, so normalization uppercases the raw value.
type ClassCode string

// NewClassCode trims and uppercases raw input and returns a ClassCode.
func NewClassCode(rawInput string) (ClassCode, error) {
	normalized := strings.ToUpper(strings.TrimSpace(rawInput))
	if normalized == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidClassCode)
	}
	if len(normalized) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidClassCode, maxIdentifierLength)
	}
	return ClassCode(normalized), nil
}

// String returns the underlying string code.
func (c ClassCode) String() string {
	return string(c)
}

// EpochMillis represents a validated wall-clock timestamp in milliseconds.
type EpochMillis int64

// NewEpochMillis validates the value and returns an EpochMillis.
func NewEpochMillis(value int64) (EpochMillis, error) {
	if value <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidTimestamp, value)
	}
	return EpochMillis(value), nil
}

// Int64 exposes the raw millisecond value.
func (ts EpochMillis) Int64() int64 {
	return int64(ts)
}
