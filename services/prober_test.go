package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"f0oster/svcspy/logging"
	"f0oster/svcspy/services"
)

// fakeManager is an in-memory Manager whose sub-queries can be made to fail
// independently, mirroring the partial-permission behavior of the SCM.
type fakeManager struct {
	base    map[string]services.BaseRecord
	configs map[string]services.ConfigDetail
	deps    map[string][]string
	pids    map[string]uint32

	listErr   error
	lookupErr map[string]error
	configErr map[string]error
	depsErr   map[string]error
	pidErr    map[string]error

	pidQueried map[string]bool
}

func (f *fakeManager) ListServiceNames(ctx context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	names := make([]string, 0, len(f.base))
	for name := range f.base {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (f *fakeManager) LookupService(ctx context.Context, name string) (services.BaseRecord, error) {
	if err := f.lookupErr[name]; err != nil {
		return services.BaseRecord{}, err
	}
	rec, ok := f.base[name]
	if !ok {
		return services.BaseRecord{}, services.NewProbeError(
			services.KindNotFound, "lookup service", name, errors.New("no such service"))
	}
	return rec, nil
}

func (f *fakeManager) QueryConfig(ctx context.Context, name string) (services.ConfigDetail, error) {
	if err := f.configErr[name]; err != nil {
		return services.ConfigDetail{}, err
	}
	return f.configs[name], nil
}

func (f *fakeManager) QueryDependencies(ctx context.Context, name string) ([]string, error) {
	if err := f.depsErr[name]; err != nil {
		return nil, err
	}
	return f.deps[name], nil
}

func (f *fakeManager) QueryProcessID(ctx context.Context, name string) (uint32, error) {
	if f.pidQueried == nil {
		f.pidQueried = make(map[string]bool)
	}
	f.pidQueried[name] = true
	if err := f.pidErr[name]; err != nil {
		return 0, err
	}
	return f.pids[name], nil
}

func testLogger() *slog.Logger {
	return logging.NewWithWriter(io.Discard, false)
}

func permissionErr(op, name string) error {
	return services.NewProbeError(services.KindPermission, op, name, errors.New("access denied"))
}

func TestProbeFullAccess(t *testing.T) {
	t.Parallel()

	manager := &fakeManager{
		base: map[string]services.BaseRecord{
			"Spooler": {Name: "Spooler", DisplayName: "Print Spooler", Status: services.StatusRunning},
		},
		configs: map[string]services.ConfigDetail{
			"Spooler": {
				StartType:        "Automatic",
				Account:          "LocalSystem",
				Path:             `C:\Windows\System32\spoolsv.exe`,
				LastErrorCode:    0,
				DelayedAutoStart: true,
			},
		},
		deps: map[string][]string{"Spooler": {"RPCSS", "http"}},
		pids: map[string]uint32{"Spooler": 4711},
	}
	prober := services.NewProber(manager, testLogger())

	snap, err := prober.Probe(context.Background(), "Spooler")
	require.NoError(t, err)
	require.Equal(t, "Spooler", snap.Name)
	require.Equal(t, "Print Spooler", snap.DisplayName)
	require.Equal(t, services.StatusRunning, snap.Status)
	require.Equal(t, "Automatic", snap.StartType)
	require.Equal(t, "LocalSystem", snap.Account)
	require.Equal(t, `C:\Windows\System32\spoolsv.exe`, snap.Path)
	require.Equal(t, []string{"RPCSS", "http"}, snap.Dependencies)
	require.True(t, snap.DelayedAutoStart)
	require.NotNil(t, snap.ProcessID)
	require.Equal(t, uint32(4711), *snap.ProcessID)
	require.Equal(t, services.AccessFull, snap.AccessLevel)
	require.False(t, snap.CapturedAt.IsZero())
}

func TestProbeConfigDeniedStillQueriesDependencies(t *testing.T) {
	t.Parallel()

	manager := &fakeManager{
		base: map[string]services.BaseRecord{
			"W32Time": {Name: "W32Time", DisplayName: "Windows Time", Status: services.StatusStopped},
		},
		configErr: map[string]error{"W32Time": permissionErr("query service config", "W32Time")},
		deps:      map[string][]string{"W32Time": {"RPCSS"}},
	}
	prober := services.NewProber(manager, testLogger())

	snap, err := prober.Probe(context.Background(), "W32Time")
	require.NoError(t, err)
	require.Equal(t, services.AccessLimited, snap.AccessLevel)
	require.Equal(t, services.ValueUnknown, snap.StartType)
	require.Equal(t, services.ValueUnknown, snap.Account)
	require.Equal(t, services.ValueUnknown, snap.Path)
	require.Zero(t, snap.LastErrorCode)
	require.False(t, snap.DelayedAutoStart)
	// the denied config query must not short-circuit the dependency lookup
	require.Equal(t, []string{"RPCSS"}, snap.Dependencies)
	// status always comes from the unprivileged base query
	require.Equal(t, services.StatusStopped, snap.Status)
}

func TestProbeDependencyFailureAlone(t *testing.T) {
	t.Parallel()

	manager := &fakeManager{
		base: map[string]services.BaseRecord{
			"Dhcp": {Name: "Dhcp", DisplayName: "DHCP Client", Status: services.StatusStopped},
		},
		configs: map[string]services.ConfigDetail{
			"Dhcp": {StartType: "Manual", Account: "LocalService", Path: `C:\x.exe`},
		},
		depsErr: map[string]error{"Dhcp": permissionErr("query service dependencies", "Dhcp")},
	}
	prober := services.NewProber(manager, testLogger())

	snap, err := prober.Probe(context.Background(), "Dhcp")
	require.NoError(t, err)
	require.Equal(t, services.AccessLimited, snap.AccessLevel)
	require.Equal(t, "Manual", snap.StartType)
	require.Equal(t, "LocalService", snap.Account)
	require.Empty(t, snap.Dependencies)
}

func TestProbeSkipsProcessIDWhenNotRunning(t *testing.T) {
	t.Parallel()

	manager := &fakeManager{
		base: map[string]services.BaseRecord{
			"Fax": {Name: "Fax", DisplayName: "Fax", Status: services.StatusStopped},
		},
	}
	prober := services.NewProber(manager, testLogger())

	snap, err := prober.Probe(context.Background(), "Fax")
	require.NoError(t, err)
	require.Nil(t, snap.ProcessID)
	require.False(t, manager.pidQueried["Fax"])
}

func TestProbeProcessIDFailureDowngradesAccess(t *testing.T) {
	t.Parallel()

	manager := &fakeManager{
		base: map[string]services.BaseRecord{
			"Winmgmt": {Name: "Winmgmt", DisplayName: "WMI", Status: services.StatusRunning},
		},
		configs: map[string]services.ConfigDetail{
			"Winmgmt": {StartType: "Automatic", Account: "LocalSystem", Path: `C:\x.exe`},
		},
		pidErr: map[string]error{"Winmgmt": permissionErr("query service process", "Winmgmt")},
	}
	prober := services.NewProber(manager, testLogger())

	snap, err := prober.Probe(context.Background(), "Winmgmt")
	require.NoError(t, err)
	require.Nil(t, snap.ProcessID)
	require.Equal(t, services.AccessLimited, snap.AccessLevel)
	// config data observed before the failure is kept
	require.Equal(t, "Automatic", snap.StartType)
}

func TestProbeBaseFailure(t *testing.T) {
	t.Parallel()

	manager := &fakeManager{
		base: map[string]services.BaseRecord{},
	}
	prober := services.NewProber(manager, testLogger())

	snap, err := prober.Probe(context.Background(), "Ghost")
	require.Error(t, err)
	require.Nil(t, snap)
	require.True(t, services.IsNotFound(err))
}

func TestClassify(t *testing.T) {
	t.Parallel()

	require.Equal(t, services.KindPermission, services.Classify(permissionErr("op", "svc")))
	require.Equal(t, services.KindOther, services.Classify(errors.New("plain")))

	wrapped := permissionErr("op", "svc")
	require.Equal(t, services.KindPermission, services.Classify(
		errors.Join(errors.New("outer"), wrapped)))
}
