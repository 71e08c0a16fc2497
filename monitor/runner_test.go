package monitor_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"f0oster/svcspy/logging"
	"f0oster/svcspy/monitor"
	"f0oster/svcspy/services"
	"f0oster/svcspy/snapshot"
	"f0oster/svcspy/statestore"
)

type fakeManager struct {
	base    map[string]services.BaseRecord
	configs map[string]services.ConfigDetail
}

func (f *fakeManager) ListServiceNames(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(f.base))
	for name := range f.base {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeManager) LookupService(ctx context.Context, name string) (services.BaseRecord, error) {
	rec, ok := f.base[name]
	if !ok {
		return services.BaseRecord{}, services.NewProbeError(
			services.KindNotFound, "lookup service", name, errors.New("no such service"))
	}
	return rec, nil
}

func (f *fakeManager) QueryConfig(ctx context.Context, name string) (services.ConfigDetail, error) {
	return f.configs[name], nil
}

func (f *fakeManager) QueryDependencies(ctx context.Context, name string) ([]string, error) {
	return nil, nil
}

func (f *fakeManager) QueryProcessID(ctx context.Context, name string) (uint32, error) {
	return 42, nil
}

func newRunner(manager services.Manager, statePath string) *monitor.Runner {
	logger := logging.NewWithWriter(io.Discard, false)
	prober := services.NewProber(manager, logger)
	snapshotter := snapshot.NewService(manager, prober, logger)
	return monitor.NewRunner(snapshotter, statestore.New(statePath), nil, logger)
}

func twoServiceManager() *fakeManager {
	return &fakeManager{
		base: map[string]services.BaseRecord{
			"Spooler": {Name: "Spooler", DisplayName: "Print Spooler", Status: services.StatusRunning},
			"W32Time": {Name: "W32Time", DisplayName: "Windows Time", Status: services.StatusStopped},
		},
		configs: map[string]services.ConfigDetail{
			"Spooler": {StartType: "Automatic", Account: "LocalSystem", Path: `C:\spoolsv.exe`},
			"W32Time": {StartType: "Manual", Account: "LocalService", Path: `C:\svchost.exe`},
		},
	}
}

func TestRunFirstAndSecondCycle(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.json")
	manager := twoServiceManager()
	runner := newRunner(manager, statePath)

	// first run: no previous state, everything is new
	first, err := runner.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, first.Delta.New, 2)
	require.Empty(t, first.Delta.Modified)
	require.Empty(t, first.Delta.Removed)
	require.FileExists(t, statePath)

	// second run with an unchanged world: a clean no-op
	second, err := runner.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, second.Delta.New)
	require.Empty(t, second.Delta.Modified)
	require.Empty(t, second.Delta.Removed)

	// stop a service, add one, remove one
	manager.base["Spooler"] = services.BaseRecord{
		Name: "Spooler", DisplayName: "Print Spooler", Status: services.StatusStopped,
	}
	manager.base["NewSvc"] = services.BaseRecord{
		Name: "NewSvc", DisplayName: "New Service", Status: services.StatusRunning,
	}
	manager.configs["NewSvc"] = services.ConfigDetail{
		StartType: "Automatic", Account: "LocalSystem", Path: `C:\new.exe`,
	}
	delete(manager.base, "W32Time")

	third, err := runner.Run(context.Background(), nil)
	require.NoError(t, err)

	require.Len(t, third.Delta.Modified, 1)
	require.Equal(t, "Spooler", third.Delta.Modified[0].Current.Name)
	require.Equal(t, services.StatusRunning, third.Delta.Modified[0].Previous.Status)
	require.Equal(t, services.StatusStopped, third.Delta.Modified[0].Current.Status)

	require.Len(t, third.Delta.New, 1)
	require.Equal(t, "NewSvc", third.Delta.New[0].Name)

	require.Len(t, third.Delta.Removed, 1)
	require.Equal(t, "W32Time", third.Delta.Removed[0].Name)

	require.Equal(t, third.Stats.Total,
		third.Stats.FullAccess+third.Stats.LimitedAccess+third.Stats.Failed)
}

func TestRunTreatsCorruptStateAsFirstRun(t *testing.T) {
	t.Parallel()

	statePath := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(statePath, []byte("garbage"), 0o644))

	runner := newRunner(twoServiceManager(), statePath)

	result, err := runner.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, result.Delta.New, 2)
	require.Empty(t, result.Delta.Removed)

	// the corrupt file is replaced by a valid one
	store := statestore.New(statePath)
	inv, err := store.Load()
	require.NoError(t, err)
	require.Len(t, inv.Services, 2)
}

func TestRunContinuesWhenSaveFails(t *testing.T) {
	t.Parallel()

	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	statePath := filepath.Join(blocker, "state.json")

	runner := newRunner(twoServiceManager(), statePath)

	// the delta is computed and returned even though persisting it fails
	result, err := runner.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, result.Delta.New, 2)
}

func TestRunAbortsOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := newRunner(twoServiceManager(), filepath.Join(t.TempDir(), "state.json"))

	result, err := runner.Run(ctx, nil)
	require.Error(t, err)
	require.Nil(t, result)
}
