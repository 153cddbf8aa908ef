package services

import (
	"context"

	"github.com/dmitrijs2005/bottlemail/internal/client/models"
)

// LetterCache is the local letterbox snapshot, namespaced by user id.
type LetterCache interface {
	LoadLetters(ctx context.Context, userID string) ([]models.Letter, error)
	PutLetter(ctx context.Context, userID string, l models.Letter) error
	ReplaceLetters(ctx context.Context, userID string, ls []models.Letter) error
}

// PreferencesCache is the local preferences snapshot, namespaced by user id.
type PreferencesCache interface {
	LoadPreferences(ctx context.Context, userID string) (*models.Preferences, error)
	SavePreferences(ctx context.Context, userID string, p models.Preferences) error
}

// Cache is everything a Session persists locally.
type Cache interface {
	LetterCache
	PreferencesCache
	PurgeNamespaces(ctx context.Context, prefixes ...string) (int64, error)
}
