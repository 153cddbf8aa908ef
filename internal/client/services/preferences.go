package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/bottlemail/internal/client/client"
	"github.com/dmitrijs2005/bottlemail/internal/client/identity"
	"github.com/dmitrijs2005/bottlemail/internal/client/metrics"
	"github.com/dmitrijs2005/bottlemail/internal/client/models"
	"github.com/dmitrijs2005/bottlemail/internal/logging"
)

// PreferencesStore holds the user's letter preferences. The local cache is
// read first; the server copy, returned by check-user, wins when present.
type PreferencesStore struct {
	ident   identity.Identity
	client  client.Client
	cache   PreferencesCache
	logger  logging.Logger
	metrics *metrics.Metrics

	mu        sync.RWMutex
	current   models.Preferences
	isNewUser bool
}

func NewPreferencesStore(ident identity.Identity, c client.Client, cache PreferencesCache, logger logging.Logger, m *metrics.Metrics) *PreferencesStore {
	if logger == nil {
		logger = logging.Discard()
	}
	return &PreferencesStore{ident: ident, client: c, cache: cache, logger: logger, metrics: m}
}

// Load reconciles preferences. It performs the check-user registration
// call, so it runs once at startup; degraded identities skip the server.
func (s *PreferencesStore) Load(ctx context.Context) (Source, error) {
	uid := s.ident.UserID

	return reconcile(ctx, s.logger, s.metrics, reconciler[models.Preferences]{
		resource: "preferences",
		loadLocal: func(ctx context.Context) (models.Preferences, bool, error) {
			p, err := s.cache.LoadPreferences(ctx, uid)
			if err != nil || p == nil {
				return models.Preferences{}, false, err
			}
			return *p, true, nil
		},
		fetchRemote: func(ctx context.Context) (models.Preferences, bool, error) {
			resp, err := s.client.CheckUser(ctx, uid)
			if err != nil {
				return models.Preferences{}, false, err
			}
			s.mu.Lock()
			s.isNewUser = resp.IsNewUser
			s.mu.Unlock()
			s.logger.Info(ctx, "user checked", "user_id", uid, "is_new_user", resp.IsNewUser)

			if resp.Details == nil || resp.Details.Preferences == nil {
				return models.Preferences{}, false, nil
			}
			return resp.Details.Preferences.Normalized(), true, nil
		},
		saveLocal: func(ctx context.Context, p models.Preferences) error {
			return s.cache.SavePreferences(ctx, uid, p)
		},
		apply: func(p models.Preferences) {
			s.mu.Lock()
			s.current = p
			s.mu.Unlock()
		},
		skipRemote: s.ident.Degraded(),
	})
}

func (s *PreferencesStore) Current() models.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *PreferencesStore) IsNewUser() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isNewUser
}

// Save validates p, applies it locally and then posts it to the server.
// The local copy is kept even when the server call fails; that error is
// returned for the caller to surface. Degraded identities save locally only
// and get a nil response.
func (s *PreferencesStore) Save(ctx context.Context, p models.Preferences) (*models.UpdatePreferencesResponse, error) {
	p = p.Normalized()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.current = p
	s.mu.Unlock()

	if err := s.cache.SavePreferences(ctx, s.ident.UserID, p); err != nil {
		s.logger.Error(ctx, "failed to cache preferences", "error", err)
	}

	if s.ident.Degraded() {
		return nil, nil
	}

	resp, err := s.client.UpdatePreferences(ctx, s.ident.UserID, p)
	if err != nil {
		return nil, fmt.Errorf("update preferences: %w", err)
	}
	if resp.Status != models.PreferencesStatusUpdated {
		return resp, &client.ServerError{Status: resp.Status}
	}
	return resp, nil
}
