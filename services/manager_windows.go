//go:build windows

package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

// SCManager is the production Manager backed by the Windows service control
// manager. The connection is opened with connect+enumerate rights only, so an
// unprivileged caller can still enumerate and perform base lookups; the
// privileged sub-queries open per-service handles and fail independently.
type SCManager struct {
	handle windows.Handle

	mu sync.Mutex
	// displayNames caches enumeration results so per-service base lookups
	// do not re-enumerate the whole SCM.
	displayNames map[string]string
}

// Connect opens a handle to the local service control manager.
func Connect() (*SCManager, error) {
	h, err := windows.OpenSCManager(nil, nil, windows.SC_MANAGER_CONNECT|windows.SC_MANAGER_ENUMERATE_SERVICE)
	if err != nil {
		return nil, fmt.Errorf("open service control manager: %w", err)
	}
	return &SCManager{handle: h}, nil
}

// Close releases the service control manager handle.
func (m *SCManager) Close() error {
	return windows.CloseServiceHandle(m.handle)
}

func (m *SCManager) ListServiceNames(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := m.enumerate()
	if err != nil {
		return nil, classify("enumerate services", "", err)
	}
	m.mu.Lock()
	m.cacheDisplayNamesLocked(records)
	m.mu.Unlock()
	names := make([]string, 0, len(records))
	for _, rec := range records {
		names = append(names, rec.Name)
	}
	return names, nil
}

func (m *SCManager) LookupService(ctx context.Context, name string) (BaseRecord, error) {
	if err := ctx.Err(); err != nil {
		return BaseRecord{}, err
	}
	h, err := m.openService(name, windows.SERVICE_QUERY_STATUS)
	if err != nil {
		return BaseRecord{}, classify("lookup service", name, err)
	}
	defer windows.CloseServiceHandle(h)

	st, err := queryStatusProcess(h)
	if err != nil {
		return BaseRecord{}, classify("query service status", name, err)
	}
	return BaseRecord{
		Name:        name,
		DisplayName: m.displayName(name),
		Status:      stateToStatus(svc.State(st.CurrentState)),
	}, nil
}

func (m *SCManager) QueryConfig(ctx context.Context, name string) (ConfigDetail, error) {
	if err := ctx.Err(); err != nil {
		return ConfigDetail{}, err
	}
	h, err := m.openService(name, windows.SERVICE_QUERY_CONFIG|windows.SERVICE_QUERY_STATUS)
	if err != nil {
		return ConfigDetail{}, classify("open service config", name, err)
	}
	s := &mgr.Service{Name: name, Handle: h}
	defer s.Close()

	cfg, err := s.Config()
	if err != nil {
		return ConfigDetail{}, classify("query service config", name, err)
	}
	detail := ConfigDetail{
		StartType:        startTypeString(cfg.StartType),
		Account:          cfg.ServiceStartName,
		Path:             cfg.BinaryPathName,
		DelayedAutoStart: cfg.DelayedAutoStart,
	}
	if st, err := queryStatusProcess(h); err == nil {
		detail.LastErrorCode = int(st.Win32ExitCode)
	}
	return detail, nil
}

func (m *SCManager) QueryDependencies(ctx context.Context, name string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h, err := m.openService(name, windows.SERVICE_QUERY_CONFIG)
	if err != nil {
		return nil, classify("open service dependencies", name, err)
	}
	s := &mgr.Service{Name: name, Handle: h}
	defer s.Close()

	cfg, err := s.Config()
	if err != nil {
		return nil, classify("query service dependencies", name, err)
	}
	return cfg.Dependencies, nil
}

func (m *SCManager) QueryProcessID(ctx context.Context, name string) (uint32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	h, err := m.openService(name, windows.SERVICE_QUERY_STATUS)
	if err != nil {
		return 0, classify("open service status", name, err)
	}
	defer windows.CloseServiceHandle(h)

	st, err := queryStatusProcess(h)
	if err != nil {
		return 0, classify("query service process", name, err)
	}
	return st.ProcessId, nil
}

func (m *SCManager) openService(name string, access uint32) (windows.Handle, error) {
	namePtr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, err
	}
	return windows.OpenService(m.handle, namePtr, access)
}

// displayName resolves a service's display name from cached enumeration
// data, enumerating once on a cache miss. It falls back to the service name
// itself when resolution fails, since the base record must always carry a
// usable label.
func (m *SCManager) displayName(name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if display, ok := m.displayNames[name]; ok {
		return display
	}
	records, err := m.enumerate()
	if err != nil {
		return name
	}
	m.cacheDisplayNamesLocked(records)
	if display, ok := m.displayNames[name]; ok {
		return display
	}
	return name
}

func (m *SCManager) cacheDisplayNamesLocked(records []BaseRecord) {
	if m.displayNames == nil {
		m.displayNames = make(map[string]string, len(records))
	}
	for _, rec := range records {
		m.displayNames[rec.Name] = rec.DisplayName
	}
}

// enumerate performs EnumServicesStatusEx over all win32 services, growing
// the buffer until the SCM reports the full set.
func (m *SCManager) enumerate() ([]BaseRecord, error) {
	var (
		bytesNeeded      uint32
		servicesReturned uint32
		buf              []byte
	)
	for {
		var p *byte
		if len(buf) > 0 {
			p = &buf[0]
		}
		err := windows.EnumServicesStatusEx(m.handle, windows.SC_ENUM_PROCESS_INFO,
			windows.SERVICE_WIN32, windows.SERVICE_STATE_ALL,
			p, uint32(len(buf)), &bytesNeeded, &servicesReturned, nil, nil)
		if err == nil {
			break
		}
		if !errors.Is(err, windows.ERROR_MORE_DATA) {
			return nil, err
		}
		if bytesNeeded <= uint32(len(buf)) {
			return nil, err
		}
		buf = make([]byte, bytesNeeded)
	}
	if servicesReturned == 0 {
		return nil, nil
	}

	entries := unsafe.Slice((*windows.ENUM_SERVICE_STATUS_PROCESS)(unsafe.Pointer(&buf[0])), int(servicesReturned))
	records := make([]BaseRecord, 0, len(entries))
	for i := range entries {
		records = append(records, BaseRecord{
			Name:        windows.UTF16PtrToString(entries[i].ServiceName),
			DisplayName: windows.UTF16PtrToString(entries[i].DisplayName),
			Status:      stateToStatus(svc.State(entries[i].ServiceStatusProcess.CurrentState)),
		})
	}
	return records, nil
}

func queryStatusProcess(h windows.Handle) (*windows.SERVICE_STATUS_PROCESS, error) {
	var needed uint32
	var buf [unsafe.Sizeof(windows.SERVICE_STATUS_PROCESS{})]byte
	err := windows.QueryServiceStatusEx(h, windows.SC_STATUS_PROCESS_INFO,
		&buf[0], uint32(len(buf)), &needed)
	if err != nil {
		return nil, err
	}
	return (*windows.SERVICE_STATUS_PROCESS)(unsafe.Pointer(&buf[0])), nil
}

func stateToStatus(state svc.State) Status {
	switch state {
	case svc.Running:
		return StatusRunning
	case svc.Stopped:
		return StatusStopped
	case svc.StartPending:
		return StatusStartPending
	case svc.StopPending:
		return StatusStopPending
	case svc.Paused:
		return StatusPaused
	default:
		return StatusUnknown
	}
}

func startTypeString(startType uint32) string {
	switch startType {
	case windows.SERVICE_BOOT_START:
		return "Boot"
	case windows.SERVICE_SYSTEM_START:
		return "System"
	case windows.SERVICE_AUTO_START:
		return "Automatic"
	case windows.SERVICE_DEMAND_START:
		return "Manual"
	case windows.SERVICE_DISABLED:
		return "Disabled"
	default:
		return ValueUnknown
	}
}

func classify(op, name string, err error) *ProbeError {
	kind := KindOther
	switch {
	case errors.Is(err, windows.ERROR_ACCESS_DENIED):
		kind = KindPermission
	case errors.Is(err, windows.ERROR_SERVICE_DOES_NOT_EXIST):
		kind = KindNotFound
	}
	return NewProbeError(kind, op, name, err)
}
