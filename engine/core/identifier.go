package core

import (
	"fmt"

	"github.com/google/uuid"
)

// NewSessionID returns a random identifier for one run of the engine.
func NewSessionID() string {
	return uuid.NewString()
}

// ObjectName builds the debug label of a per-slot GPU object, e.g.
// "fence[2]".
func ObjectName(kind string, index int) string {
	return fmt.Sprintf("%s[%d]", kind, index)
}
