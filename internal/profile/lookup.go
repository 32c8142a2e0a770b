package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/MorganMind/penrose/internal/model"
	"github.com/MorganMind/penrose/internal/store"
)

// Lookup returns the tenant-scoped profile if one exists, else the user-global one.
// A nil profile with a nil error means the author has no profile yet.
func (s *Service) Lookup(ctx context.Context, tenant model.Tenant) (*model.VoiceProfile, error) {
	for _, scope := range tenant.LookupOrder() {
		p, err := s.store.GetProfile(ctx, scope)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("lookup profile %s: %w", scope.Key(), err)
		}
		return p, nil
	}
	return nil, nil
}
