package models

// TierState describes the health of one persistence tier.
type TierState string

const (
	TierAvailable TierState = "available"
	TierDegraded  TierState = "degraded"
	TierDisabled  TierState = "disabled"
)

// Status is an observable summary of a claim session.
type Status struct {
	Metadata     TierState
	Blobs        TierState
	Submitted    bool
	Dirty        bool
	Files        int
	PendingBlobs int
	Revision     uint64
}
