package services

import "time"

// Status is the lifecycle state of a Windows service as reported by the
// service control manager.
type Status string

const (
	StatusRunning      Status = "Running"
	StatusStopped      Status = "Stopped"
	StatusStartPending Status = "StartPending"
	StatusStopPending  Status = "StopPending"
	StatusPaused       Status = "Paused"
	StatusUnknown      Status = "Unknown"
)

// AccessLevel records whether every privileged property query for a service
// succeeded (Full) or at least one was denied or failed (Limited).
type AccessLevel string

const (
	AccessFull    AccessLevel = "Full"
	AccessLimited AccessLevel = "Limited"
)

// ValueUnknown is the sentinel stored in string fields that could not be
// observed, typically because the query was denied.
const ValueUnknown = "Unknown"

// BaseRecord is the minimal set of properties the unprivileged enumeration
// API always yields for a service.
type BaseRecord struct {
	Name        string
	DisplayName string
	Status      Status
}

// ConfigDetail holds the privileged configuration properties of a service.
// Obtaining it requires query-config access on the service handle.
type ConfigDetail struct {
	StartType        string
	Account          string
	Path             string
	LastErrorCode    int
	DelayedAutoStart bool
}

// Snapshot is the observed state of one service at one point in time.
// Name is stable across runs and is the join key when comparing inventories.
// Fields that could not be observed keep their sentinel: ValueUnknown for
// strings, an empty slice for Dependencies, zero for LastErrorCode.
type Snapshot struct {
	Name             string      `json:"Name"`
	DisplayName      string      `json:"DisplayName"`
	Status           Status      `json:"Status"`
	StartType        string      `json:"StartType"`
	Account          string      `json:"Account"`
	Path             string      `json:"Path"`
	Dependencies     []string    `json:"Dependencies"`
	ProcessID        *uint32     `json:"ProcessId,omitempty"`
	LastErrorCode    int         `json:"LastErrorCode"`
	DelayedAutoStart bool        `json:"DelayedAutoStart"`
	AccessLevel      AccessLevel `json:"AccessLevel"`
	CapturedAt       time.Time   `json:"CapturedAt"`
}

// Inventory is the complete set of snapshots captured in one run, keyed by
// service name. Key uniqueness is guaranteed by construction; iteration order
// carries no meaning.
type Inventory struct {
	CapturedAt time.Time           `json:"CapturedAt"`
	Services   map[string]Snapshot `json:"Services"`
}

// NewInventory returns an empty inventory stamped with the given time.
func NewInventory(capturedAt time.Time) Inventory {
	return Inventory{
		CapturedAt: capturedAt,
		Services:   make(map[string]Snapshot),
	}
}
