package models

import "time"

// Change types accepted at the ingestion boundary.
const (
	ChangeCreated  = "created"
	ChangeModified = "modified"
	ChangeDeleted  = "deleted"
)

// ChangeEvent is a raw source-change notification from the file-system
// watcher or an equivalent external collaborator. The ingestion adapter maps
// the path onto a component via the configured path mappings; unmapped paths
// are ignored.
type ChangeEvent struct {
	Path       string    `json:"path"`
	ChangeType string    `json:"change_type"`
	Timestamp  time.Time `json:"timestamp"`
}

// ValidChangeType returns true for the accepted change type values.
func ValidChangeType(s string) bool {
	switch s {
	case ChangeCreated, ChangeModified, ChangeDeleted:
		return true
	default:
		return false
	}
}
