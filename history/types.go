package history

import (
	"time"

	"github.com/google/uuid"

	"f0oster/svcspy/diff"
	"f0oster/svcspy/snapshot"
)

// ChangeType labels a persisted service change row.
type ChangeType string

const (
	ChangeModified ChangeType = "modified"
	ChangeNew      ChangeType = "new"
	ChangeRemoved  ChangeType = "removed"
)

// Run is one monitoring run to be recorded: its identity, access statistics
// and the computed delta.
type Run struct {
	RunID      uuid.UUID
	CapturedAt time.Time
	Stats      snapshot.AccessStats
	Delta      diff.Delta
}
