package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateJobID generates a job ID with a timestamp prefix, e.g. job-20260102-150405-1a2b3c4d.
func GenerateJobID() string {
	timestamp := time.Now().UTC().Format("20060102-150405")
	id := uuid.New()
	return fmt.Sprintf("job-%s-%x", timestamp, id[:4])
}

// GenerateRequestID generates a random request ID.
func GenerateRequestID() string {
	return uuid.NewString()
}
