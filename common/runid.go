package common

import "github.com/google/uuid"

// GenerateRunID returns a unique identifier for one ingestion invocation,
// carried through log context so a batch can be traced end to end.
func GenerateRunID() string {
	return uuid.NewString()
}
