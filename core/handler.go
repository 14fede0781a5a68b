package core

import "context"

// IService is implemented by every external-facing service (completion,
// recognition, speech). Init validates configuration and acquires whatever
// the service holds for the process lifetime; Cleanup releases it.
type IService interface {
	Init(ctx context.Context) error
	Cleanup() error
}

// InitServices initializes services in order and cleans up the ones that
// already started if a later one fails.
func InitServices(ctx context.Context, services ...IService) error {
	for i, s := range services {
		if s == nil {
			continue
		}
		if err := s.Init(ctx); err != nil {
			for j := i - 1; j >= 0; j-- {
				if services[j] != nil {
					_ = services[j].Cleanup()
				}
			}
			return err
		}
	}
	return nil
}

// CleanupServices runs Cleanup on every non-nil service and returns the
// first error seen.
func CleanupServices(services ...IService) error {
	var first error
	for _, s := range services {
		if s == nil {
			continue
		}
		if err := s.Cleanup(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
