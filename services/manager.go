package services

import "context"

// Manager abstracts the service control manager. The production
// implementation talks to the Windows SCM; tests use in-memory fakes.
//
// ListServiceNames and LookupService form the unprivileged base surface:
// lookup always yields at least Name, DisplayName and Status when the service
// exists. The Query* methods are the privileged sub-queries and fail
// independently of each other; implementations classify failures by returning
// a *ProbeError.
type Manager interface {
	// ListServiceNames enumerates every service visible to the caller.
	ListServiceNames(ctx context.Context) ([]string, error)

	// LookupService performs the base query for one service.
	LookupService(ctx context.Context, name string) (BaseRecord, error)

	// QueryConfig fetches the privileged configuration properties.
	QueryConfig(ctx context.Context, name string) (ConfigDetail, error)

	// QueryDependencies fetches the names of services this service depends on.
	QueryDependencies(ctx context.Context, name string) ([]string, error)

	// QueryProcessID fetches the hosting process id of a running service.
	QueryProcessID(ctx context.Context, name string) (uint32, error)
}
