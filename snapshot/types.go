package snapshot

// AccessStats counts probe outcomes for one capture run.
// Total is the number of services actually attempted; it always equals
// FullAccess + LimitedAccess + Failed. Requested names the lookup could not
// find at all are skipped and never counted.
type AccessStats struct {
	Total         int `json:"Total"`
	FullAccess    int `json:"FullAccess"`
	LimitedAccess int `json:"LimitedAccess"`
	Failed        int `json:"Failed"`
}
