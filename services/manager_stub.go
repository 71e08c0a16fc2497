//go:build !windows

package services

import (
	"context"
	"errors"
)

// ErrUnsupported is returned on platforms without a service control manager.
var ErrUnsupported = errors.New("service control manager is only available on windows")

// SCManager is a placeholder on non-windows platforms. Connect always fails,
// so the method set below is never reached at runtime.
type SCManager struct{}

func Connect() (*SCManager, error) {
	return nil, ErrUnsupported
}

func (m *SCManager) Close() error { return nil }

func (m *SCManager) ListServiceNames(ctx context.Context) ([]string, error) {
	return nil, ErrUnsupported
}

func (m *SCManager) LookupService(ctx context.Context, name string) (BaseRecord, error) {
	return BaseRecord{}, ErrUnsupported
}

func (m *SCManager) QueryConfig(ctx context.Context, name string) (ConfigDetail, error) {
	return ConfigDetail{}, ErrUnsupported
}

func (m *SCManager) QueryDependencies(ctx context.Context, name string) ([]string, error) {
	return nil, ErrUnsupported
}

func (m *SCManager) QueryProcessID(ctx context.Context, name string) (uint32, error) {
	return 0, ErrUnsupported
}
