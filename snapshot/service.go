package snapshot

import (
	"context"
	"log/slog"
	"time"

	"f0oster/svcspy/services"
)

// Service builds a point-in-time inventory of services plus access
// statistics. Probing is sequential and best-effort: per-service failures
// degrade to warnings and counters instead of aborting the capture.
type Service struct {
	manager services.Manager
	prober  *services.Prober
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(manager services.Manager, prober *services.Prober, logger *slog.Logger) *Service {
	return &Service{
		manager: manager,
		prober:  prober,
		logger:  logger,
		now:     time.Now,
	}
}

// Capture probes the named services, or every service visible to the base
// enumeration when targets is empty, and assembles the current inventory.
//
// An enumeration-level failure yields an empty inventory plus a warning; the
// run continues so the caller still gets a delta and statistics. A requested
// name the lookup cannot find is warned about and skipped without touching
// the statistics. A total probe failure excludes the service from the
// inventory and increments Failed, which means a transiently unprobeable
// service will show up as removed on this run and new again on the next.
func (s *Service) Capture(ctx context.Context, targets []string) (services.Inventory, AccessStats) {
	inventory := services.NewInventory(s.now())
	var stats AccessStats

	explicit := len(targets) > 0
	names := targets
	if !explicit {
		var err error
		names, err = s.manager.ListServiceNames(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "service enumeration failed, continuing with empty inventory",
				"kind", string(services.Classify(err)),
				"error", err,
			)
			return inventory, stats
		}
	}

	for _, name := range names {
		snap, err := s.prober.Probe(ctx, name)
		if err != nil {
			if explicit && services.IsNotFound(err) {
				s.logger.WarnContext(ctx, "requested service not found, skipping",
					"service", name,
				)
				continue
			}
			stats.Total++
			stats.Failed++
			s.logger.WarnContext(ctx, "service probe failed",
				"service", name,
				"kind", string(services.Classify(err)),
				"error", err,
			)
			continue
		}

		stats.Total++
		switch snap.AccessLevel {
		case services.AccessFull:
			stats.FullAccess++
		default:
			stats.LimitedAccess++
		}
		inventory.Services[snap.Name] = *snap
	}

	return inventory, stats
}
