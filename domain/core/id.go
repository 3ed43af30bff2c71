package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	EvaluationID ID
	StreamID     ID
)

func (id EvaluationID) String() string { return ID(id).String() }
func (id StreamID) String() string     { return ID(id).String() }

// NewEvaluationID creates a time-ordered evaluation identifier
func NewEvaluationID() EvaluationID {
	return EvaluationID(NewID())
}

var streamIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// ParseStreamID validates a caller supplied stream name
func ParseStreamID(s string) (StreamID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("stream ID cannot be empty")
	}
	if !streamIDPattern.MatchString(s) {
		return "", fmt.Errorf("stream ID %q may only contain letters, digits, '.', '_', ':' and '-'", s)
	}
	return StreamID(s), nil
}
