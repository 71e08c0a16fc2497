package diff

import "f0oster/svcspy/services"

// Compute classifies the differences between the previous inventory and the
// current one. A nil previous marks the first run: every current service is
// reported as new.
//
// Only Status, StartType and Account participate in the modification check.
// A change in Path, Dependencies, ProcessId, LastErrorCode or
// DelayedAutoStart alone does not mark a service as modified.
func Compute(previous *services.Inventory, current services.Inventory) Delta {
	var delta Delta

	for name, curr := range current.Services {
		if curr.AccessLevel == services.AccessLimited {
			delta.AccessDenied = append(delta.AccessDenied, curr)
		}

		if previous == nil {
			delta.New = append(delta.New, curr)
			continue
		}
		prev, exists := previous.Services[name]
		if !exists {
			delta.New = append(delta.New, curr)
			continue
		}
		if tracked(prev) != tracked(curr) {
			delta.Modified = append(delta.Modified, ModifiedService{
				Previous: prev,
				Current:  curr,
			})
		}
	}

	if previous != nil {
		for name, prev := range previous.Services {
			if _, exists := current.Services[name]; !exists {
				delta.Removed = append(delta.Removed, prev)
			}
		}
	}

	return delta
}

type trackedFields struct {
	status    services.Status
	startType string
	account   string
}

// tracked projects a snapshot onto the fields whose change marks a service
// as modified.
func tracked(snap services.Snapshot) trackedFields {
	return trackedFields{
		status:    snap.Status,
		startType: snap.StartType,
		account:   snap.Account,
	}
}
