package changerequest

import "github.com/google/uuid"

// Domain events published on the in-process bus after a successful
// transition commit.

type SubmittedEvent struct {
	ChangeRequestID uuid.UUID
	ReferenceID     uuid.UUID
	DisplayID       string
	RowCount        int
}

type DecidedEvent struct {
	ChangeRequestID uuid.UUID
	ReferenceID     uuid.UUID
	DisplayID       string
	Status          string
	Version         *int32
	DecidedBySID    string
}
