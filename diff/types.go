package diff

import "f0oster/svcspy/services"

// ModifiedService pairs the previous and current snapshots of a service whose
// tracked fields changed between runs.
type ModifiedService struct {
	Previous services.Snapshot `json:"Previous"`
	Current  services.Snapshot `json:"Current"`
}

// Delta is the structured difference between two inventories.
type Delta struct {
	// Modified holds services present in both inventories whose Status,
	// StartType or Account changed.
	Modified []ModifiedService `json:"Modified"`

	// New holds services present in the current inventory only.
	New []services.Snapshot `json:"New"`

	// Removed holds the last-known snapshots of services that disappeared.
	Removed []services.Snapshot `json:"Removed"`

	// AccessDenied holds current services probed with limited access.
	AccessDenied []services.Snapshot `json:"AccessDenied"`
}

// Counts summarizes the delta for logging and history records.
func (d Delta) Counts() (modified, added, removed, accessDenied int) {
	return len(d.Modified), len(d.New), len(d.Removed), len(d.AccessDenied)
}
