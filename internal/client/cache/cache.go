// Package cache is the local, per-user persistence of the letterbox and the
// preferences. Records are namespaced by the derived user id and sealed at
// rest with a key derived from that id and a random per-user salt.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/bottlemail/internal/client/models"
	"github.com/dmitrijs2005/bottlemail/internal/client/repositories/letters"
	"github.com/dmitrijs2005/bottlemail/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/bottlemail/internal/common"
	"github.com/dmitrijs2005/bottlemail/internal/cryptox"
	"github.com/dmitrijs2005/bottlemail/internal/dbx"
	"github.com/dmitrijs2005/bottlemail/internal/logging"
)

const (
	saltKey        = "cache_salt"
	preferencesKey = "preferences"
	saltSize       = 16
)

// Store implements the letter and preference caches over SQLite.
type Store struct {
	db     *sql.DB
	logger logging.Logger

	mu      sync.Mutex
	sealers map[string]*cryptox.Sealer
}

func New(db *sql.DB, logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Store{db: db, logger: logger, sealers: make(map[string]*cryptox.Sealer)}
}

// sealer returns the sealer of userID, creating its salt on first use.
func (s *Store) sealer(ctx context.Context, userID string) (*cryptox.Sealer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sl, ok := s.sealers[userID]; ok {
		return sl, nil
	}

	repo := metadata.NewSQLiteRepository(s.db)
	key := metadata.Key(userID, saltKey)
	salt, err := repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(salt) == 0 {
		salt = common.GenerateRandByteArray(saltSize)
		if err := repo.Set(ctx, key, salt); err != nil {
			return nil, err
		}
	}

	sl, err := cryptox.NewSealer([]byte(userID), salt)
	if err != nil {
		return nil, fmt.Errorf("cache key: %w", err)
	}
	s.sealers[userID] = sl
	return sl, nil
}

// LoadLetters returns the cached letterbox of userID. Records that cannot
// be opened are skipped and logged.
func (s *Store) LoadLetters(ctx context.Context, userID string) ([]models.Letter, error) {
	rows, err := letters.NewSQLiteRepository(s.db).ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	sl, err := s.sealer(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := make([]models.Letter, 0, len(rows))
	for _, row := range rows {
		var l models.Letter
		if err := sl.Open(row.Payload, row.Nonce, &l); err != nil {
			s.logger.Warn(ctx, "skipping unreadable cached letter", "user_id", userID, "letter_id", row.ID, "error", err)
			continue
		}
		result = append(result, l)
	}
	return result, nil
}

// PutLetter adds or replaces a single cached letter.
func (s *Store) PutLetter(ctx context.Context, userID string, l models.Letter) error {
	row, err := s.seal(ctx, userID, l)
	if err != nil {
		return err
	}
	return letters.NewSQLiteRepository(s.db).Upsert(ctx, row)
}

// ReplaceLetters swaps the whole cached letterbox of userID in one
// transaction.
func (s *Store) ReplaceLetters(ctx context.Context, userID string, ls []models.Letter) error {
	rows := make([]letters.Row, 0, len(ls))
	for _, l := range ls {
		row, err := s.seal(ctx, userID, l)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := letters.NewSQLiteRepository(tx)
		if err := repo.DeleteByUser(ctx, userID); err != nil {
			return err
		}
		for _, row := range rows {
			if err := repo.Upsert(ctx, row); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) seal(ctx context.Context, userID string, l models.Letter) (letters.Row, error) {
	sl, err := s.sealer(ctx, userID)
	if err != nil {
		return letters.Row{}, err
	}
	l.IsReceived = false
	payload, nonce, err := sl.Seal(l)
	if err != nil {
		return letters.Row{}, fmt.Errorf("seal letter %s: %w", l.ID, err)
	}
	return letters.Row{UserID: userID, ID: l.ID, Payload: payload, Nonce: nonce}, nil
}

// LoadPreferences returns the cached preferences of userID, or nil when
// nothing is cached.
func (s *Store) LoadPreferences(ctx context.Context, userID string) (*models.Preferences, error) {
	blob, err := metadata.NewSQLiteRepository(s.db).Get(ctx, metadata.Key(userID, preferencesKey))
	if err != nil || blob == nil {
		return nil, err
	}

	sl, err := s.sealer(ctx, userID)
	if err != nil {
		return nil, err
	}

	var p models.Preferences
	if err := sl.OpenBlob(blob, &p); err != nil {
		return nil, fmt.Errorf("open cached preferences: %w", err)
	}
	return &p, nil
}

func (s *Store) SavePreferences(ctx context.Context, userID string, p models.Preferences) error {
	sl, err := s.sealer(ctx, userID)
	if err != nil {
		return err
	}
	blob, err := sl.SealBlob(p)
	if err != nil {
		return fmt.Errorf("seal preferences: %w", err)
	}
	return metadata.NewSQLiteRepository(s.db).Set(ctx, metadata.Key(userID, preferencesKey), blob)
}

// PurgeNamespaces removes every cached record of user ids starting with one
// of prefixes, and returns the number of rows removed.
func (s *Store) PurgeNamespaces(ctx context.Context, prefixes ...string) (int64, error) {
	var total int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		lr := letters.NewSQLiteRepository(tx)
		mr := metadata.NewSQLiteRepository(tx)
		for _, p := range prefixes {
			n, err := lr.DeleteByUserPrefix(ctx, p)
			if err != nil {
				return err
			}
			total += n
			n, err = mr.DeleteByPrefix(ctx, p)
			if err != nil {
				return err
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	for uid := range s.sealers {
		for _, p := range prefixes {
			if strings.HasPrefix(uid, p) {
				delete(s.sealers, uid)
			}
		}
	}
	s.mu.Unlock()

	return total, nil
}
