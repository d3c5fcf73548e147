package repository

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a random identifier for a new record.
func NewID() string {
	return uuid.NewString()
}

// NewCode returns a short human-friendly reference such as "CR-1A2B3C4D".
func NewCode(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + strings.ToUpper(raw[:8])
}
