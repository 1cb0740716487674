package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/ibd-library/library-service/library/internal/errs"
	"github.com/ibd-library/library-service/library/internal/model"
	libraryRepo "github.com/ibd-library/library-service/library/internal/repository"
	"github.com/pkg/errors"
)

func policyValue(ctx context.Context, repo libraryRepo.Repository, key string) (string, error) {
	c, err := repo.GetConfig(ctx, key)
	if err == nil {
		return c.Value, nil
	}
	if errors.Is(err, errs.ErrNotFound) {
		if d, ok := model.LookupPolicyDefault(key); ok {
			return d.Value, nil
		}
	}
	return "", err
}

// policyInt parses a numeric policy value. A value that does not parse is a
// configuration fault, never a policy rejection.
func policyInt(ctx context.Context, repo libraryRepo.Repository, key string) (int, error) {
	v, err := policyValue(ctx, repo, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, errors.Wrapf(errs.ErrInvalidConfig, "%s=%q", key, v)
	}
	return n, nil
}

// GetPolicyValue returns the stored value of key or its default when none is stored.
func (s *Service) GetPolicyValue(ctx context.Context, key string) (string, error) {
	return policyValue(ctx, s.repo, key)
}

// ListPolicy returns every known policy key; keys missing from the store carry their defaults.
func (s *Service) ListPolicy(ctx context.Context) ([]model.PolicyConfig, error) {
	stored, err := s.repo.ListConfig(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(stored))
	for _, c := range stored {
		seen[c.Key] = struct{}{}
	}
	for _, d := range model.PolicyDefaults {
		if _, ok := seen[d.Key]; !ok {
			stored = append(stored, model.PolicyConfig{Key: d.Key, Value: d.Value, Description: d.Description})
		}
	}
	return stored, nil
}

// SetPolicyValue stores value for a known key. Only librarians may change policy.
func (s *Service) SetPolicyValue(ctx context.Context, role model.Role, key, value string) (model.PolicyConfig, error) {
	if role != model.RoleLibrarian {
		return model.PolicyConfig{}, errors.Wrap(errs.ErrForbidden, "librarian role required")
	}
	d, ok := model.LookupPolicyDefault(key)
	if !ok {
		return model.PolicyConfig{}, errors.Wrapf(errs.ErrNotFound, "config %q", key)
	}
	return s.repo.UpsertConfig(ctx, model.PolicyConfig{
		Key:         key,
		Value:       value,
		Description: d.Description,
		UpdatedAt:   s.clock(),
	})
}
