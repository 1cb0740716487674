package service

import (
	"context"
	"strings"

	"github.com/ibd-library/library-service/library/internal/errs"
	"github.com/ibd-library/library-service/library/internal/model"
	"github.com/ibd-library/library-service/pkg/auth"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func hashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "bcrypt")
	}
	return string(b), nil
}

// Register creates a MEMBER account. Librarians are created by the seed command or promoted.
func (s *Service) Register(ctx context.Context, req model.RegisterRequest) (model.Member, error) {
	return s.createMember(ctx, req, model.RoleMember)
}

func (s *Service) createMember(ctx context.Context, req model.RegisterRequest, role model.Role) (model.Member, error) {
	hash, err := hashPassword(req.Password)
	if err != nil {
		return model.Member{}, err
	}
	return s.repo.CreateMember(ctx, model.Member{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         req.Name,
		Phone:        req.Phone,
		Address:      req.Address,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.clock(),
	})
}

// EnsureLibrarian creates the librarian account on first run and is a no-op afterwards.
func (s *Service) EnsureLibrarian(ctx context.Context, req model.RegisterRequest) (model.Member, error) {
	m, err := s.repo.GetMemberByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return model.Member{}, err
	}
	return s.createMember(ctx, req, model.RoleLibrarian)
}

// Login answers unknown email and wrong password alike.
func (s *Service) Login(ctx context.Context, req model.LoginRequest) (model.LoginResponse, error) {
	m, err := s.repo.GetMemberByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return model.LoginResponse{}, errs.ErrInvalidCredentials
		}
		return model.LoginResponse{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(m.PasswordHash), []byte(req.Password)); err != nil {
		return model.LoginResponse{}, errs.ErrInvalidCredentials
	}
	token, _, err := s.tokens.Issue(m.ID, string(m.Role))
	if err != nil {
		return model.LoginResponse{}, err
	}
	s.log.Info("login", zap.Int64("member_id", m.ID))
	return model.LoginResponse{
		Success: true,
		Message: "Welcome, " + m.Name,
		Token:   token,
		User:    &m,
	}, nil
}

func (s *Service) Logout(ctx context.Context, id auth.Identity) error {
	return s.revoker.Revoke(ctx, id.TokenID, id.Expires)
}

func (s *Service) GetMember(ctx context.Context, id int64) (model.Member, error) {
	return s.repo.GetMember(ctx, id)
}

func (s *Service) ListMembers(ctx context.Context, skip, limit int) ([]model.Member, error) {
	skip, limit = normalizePage(skip, limit)
	return s.repo.ListMembers(ctx, skip, limit)
}

func (s *Service) UpdateMember(ctx context.Context, id int64, req model.UpdateMemberRequest) (model.Member, error) {
	m, err := s.repo.GetMember(ctx, id)
	if err != nil {
		return model.Member{}, err
	}
	if req.Name != nil {
		m.Name = *req.Name
	}
	if req.Phone != nil {
		m.Phone = *req.Phone
	}
	if req.Address != nil {
		m.Address = *req.Address
	}
	if req.Password != nil {
		if m.PasswordHash, err = hashPassword(*req.Password); err != nil {
			return model.Member{}, err
		}
	}
	return s.repo.UpdateMember(ctx, m)
}

func (s *Service) DeleteMember(ctx context.Context, id int64) error {
	return s.repo.DeleteMember(ctx, id)
}

// SetMemberRole changes a member's role; only librarians may call it.
func (s *Service) SetMemberRole(ctx context.Context, caller model.Role, id int64, role model.Role) error {
	if caller != model.RoleLibrarian {
		return errors.Wrap(errs.ErrForbidden, "librarian role required")
	}
	if !role.Valid() {
		return errors.Wrapf(errs.ErrValidation, "unknown role %q", role)
	}
	return s.repo.SetMemberRole(ctx, id, role)
}
