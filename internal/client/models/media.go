package models

import "time"

// CachedMediaEntry maps a fully resolved remote URL to its local copy.
// LocalPath exists on disk and is complete whenever the entry is visible.
type CachedMediaEntry struct {
	RemoteURL string
	LocalPath string
	SizeBytes int64
	FetchedAt time.Time
}
