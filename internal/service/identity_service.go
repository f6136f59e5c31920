package service

import (
	"context"
	"time"

	"coderoom/internal/cache"
	"coderoom/internal/model"
	"coderoom/internal/repository"

	"github.com/rs/zerolog/log"
)

// ProfileResolver maps a user id to its display identity
type ProfileResolver interface {
	ResolveProfile(ctx context.Context, userID string) (*model.UserProfile, error)
}

// IdentityService resolves display profiles, consulting the profile cache
// before the user directory
type IdentityService struct {
	users   repository.UserRepo
	cache   cache.UserCache // optional
	timeout time.Duration
}

// NewIdentityService creates a new identity service. profileCache may be nil.
func NewIdentityService(users repository.UserRepo, profileCache cache.UserCache, timeout time.Duration) *IdentityService {
	return &IdentityService{
		users:   users,
		cache:   profileCache,
		timeout: timeout,
	}
}

// ResolveProfile returns ErrUserNotFound for unknown users and
// ErrUpstreamUnavailable when the directory cannot be reached
func (s *IdentityService) ResolveProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if s.cache != nil {
		profile, err := s.cache.GetProfile(ctx, userID)
		if err != nil {
			log.Warn().Str("module", "identity").Str("user", userID).Err(err).Msg("profile cache read failed")
		} else if profile != nil {
			return profile, nil
		}
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, upstream("resolve user", err, ErrUserNotFound)
	}

	profile := user.Profile()
	if s.cache != nil {
		if err := s.cache.SetProfile(ctx, &profile); err != nil {
			log.Warn().Str("module", "identity").Str("user", userID).Err(err).Msg("profile cache write failed")
		}
	}
	return &profile, nil
}

// withTimeout bounds ctx by d; a non-positive d leaves ctx unbounded
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
