package services

import (
	"context"
	"log/slog"
	"time"
)

// Prober captures a single service's observable state. The privileged
// sub-queries (configuration, dependencies, process id) fail independently:
// a denied configuration query never prevents the dependency lookup from
// being attempted. Any sub-query failure downgrades the snapshot to
// AccessLimited and leaves the affected fields at their sentinels.
type Prober struct {
	manager Manager
	logger  *slog.Logger
	now     func() time.Time
}

func NewProber(manager Manager, logger *slog.Logger) *Prober {
	return &Prober{
		manager: manager,
		logger:  logger,
		now:     time.Now,
	}
}

// Probe builds a Snapshot for the named service. It returns an error only
// when the base query itself fails; sub-query failures are logged and
// reflected in the snapshot's AccessLevel.
func (p *Prober) Probe(ctx context.Context, name string) (*Snapshot, error) {
	base, err := p.manager.LookupService(ctx, name)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Name:         base.Name,
		DisplayName:  base.DisplayName,
		Status:       base.Status,
		StartType:    ValueUnknown,
		Account:      ValueUnknown,
		Path:         ValueUnknown,
		Dependencies: []string{},
		AccessLevel:  AccessFull,
		CapturedAt:   p.now(),
	}

	cfg, err := p.manager.QueryConfig(ctx, name)
	if err != nil {
		snap.AccessLevel = AccessLimited
		p.logSubQueryFailure(ctx, "config", name, err)
	} else {
		snap.StartType = cfg.StartType
		snap.Account = cfg.Account
		snap.Path = cfg.Path
		snap.LastErrorCode = cfg.LastErrorCode
		snap.DelayedAutoStart = cfg.DelayedAutoStart
	}

	deps, err := p.manager.QueryDependencies(ctx, name)
	if err != nil {
		snap.AccessLevel = AccessLimited
		p.logSubQueryFailure(ctx, "dependencies", name, err)
	} else if deps != nil {
		snap.Dependencies = deps
	}

	if base.Status == StatusRunning {
		pid, err := p.manager.QueryProcessID(ctx, name)
		if err != nil {
			snap.AccessLevel = AccessLimited
			p.logSubQueryFailure(ctx, "process id", name, err)
		} else {
			snap.ProcessID = &pid
		}
	}

	return snap, nil
}

func (p *Prober) logSubQueryFailure(ctx context.Context, query, name string, err error) {
	p.logger.WarnContext(ctx, "service sub-query failed",
		"service", name,
		"query", query,
		"kind", string(Classify(err)),
		"error", err,
	)
}
