// Package utils holds small helpers shared by the server and the CLI:
// identifiers and great-circle distances.
package utils

import (
	"strings"

	"github.com/google/uuid"
)

// JobIDPrefix marks identifiers of coverage jobs.
const JobIDPrefix = "job_"

// GenerateJobID returns a new job identifier, "job_" followed by a random
// UUID.
//
// Go Learning Note — "github.com/google/uuid":
// uuid.New() creates a version 4 (random) UUID. IDs can be handed out by any
// server instance without coordination, and the prefix keeps a job ID
// recognisable in logs next to other hex strings such as cache keys.
func GenerateJobID() string {
	return JobIDPrefix + uuid.New().String()
}

// IsJobID reports whether s has the shape GenerateJobID produces.
func IsJobID(s string) bool {
	rest, ok := strings.CutPrefix(s, JobIDPrefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil && len(rest) == 36
}
