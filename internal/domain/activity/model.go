package activity

import "time"

// ActivityType represents the type of activity event
type ActivityType string

const (
	TypeScanObserved     ActivityType = "scan_observed"
	TypeRegistryReset    ActivityType = "registry_reset"
	TypeRosterLoaded     ActivityType = "roster_loaded"
	TypeRosterExported   ActivityType = "roster_exported"
	TypeArtifactsPlanned ActivityType = "artifacts_planned"
)

// ActivityEntry represents an event in the gate's audit log
type ActivityEntry struct {
	ID           int64        `json:"id"`
	ActivityType ActivityType `json:"type"`
	Token        *string      `json:"token,omitempty"`
	Outcome      *string      `json:"outcome,omitempty"`
	Summary      string       `json:"summary"`
	CreatedAt    time.Time    `json:"created_at"`
}
