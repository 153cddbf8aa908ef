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

// LetterboxStore is the in-memory letterbox of the current user, keyed by
// letter id and mirrored to the local cache.
type LetterboxStore struct {
	ident   identity.Identity
	client  client.Client
	cache   LetterCache
	logger  logging.Logger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	letters map[string]models.Letter
	// seq counts File calls; filedAt remembers the seq of each local filing
	// so a concurrent Load does not drop it.
	seq     uint64
	filedAt map[string]uint64
}

func NewLetterboxStore(ident identity.Identity, c client.Client, cache LetterCache, logger logging.Logger, m *metrics.Metrics) *LetterboxStore {
	if logger == nil {
		logger = logging.Discard()
	}
	return &LetterboxStore{
		ident:   ident,
		client:  c,
		cache:   cache,
		logger:  logger,
		metrics: m,
		letters: make(map[string]models.Letter),
		filedAt: make(map[string]uint64),
	}
}

// Load reconciles the letterbox: cache first, then GET /letterbox. Server
// sync is skipped for degraded identities.
func (s *LetterboxStore) Load(ctx context.Context) (Source, error) {
	uid := s.ident.UserID

	s.mu.RLock()
	startSeq := s.seq
	s.mu.RUnlock()

	return reconcile(ctx, s.logger, s.metrics, reconciler[[]models.Letter]{
		resource: "letterbox",
		loadLocal: func(ctx context.Context) ([]models.Letter, bool, error) {
			ls, err := s.cache.LoadLetters(ctx, uid)
			return ls, len(ls) > 0, err
		},
		fetchRemote: func(ctx context.Context) ([]models.Letter, bool, error) {
			ls, err := s.client.Letterbox(ctx, uid)
			return ls, err == nil, err
		},
		saveLocal: func(ctx context.Context, _ []models.Letter) error {
			return s.cache.ReplaceLetters(ctx, uid, s.All())
		},
		apply:      func(ls []models.Letter) { s.replace(ls, startSeq) },
		skipRemote: s.ident.Degraded(),
	})
}

func (s *LetterboxStore) replace(ls []models.Letter, startSeq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]models.Letter, len(ls))
	for _, l := range ls {
		if l.ID == "" {
			continue
		}
		l.IsReceived = false
		next[l.ID] = l
	}
	for id, seq := range s.filedAt {
		if seq <= startSeq {
			continue
		}
		if l, ok := s.letters[id]; ok {
			if _, dup := next[id]; !dup {
				next[id] = l
			}
		}
	}
	s.letters = next
}

// File adds l to the letterbox and persists it. Filing an id that is
// already present is a no-op and reports added=false.
func (s *LetterboxStore) File(ctx context.Context, l models.Letter) (bool, error) {
	if l.ID == "" {
		return false, fmt.Errorf("file letter: empty id")
	}
	l.Title = models.NormalizeTitle(l.Title)
	l.IsReceived = false

	s.mu.Lock()
	if _, ok := s.letters[l.ID]; ok {
		s.mu.Unlock()
		return false, nil
	}
	s.seq++
	s.letters[l.ID] = l
	s.filedAt[l.ID] = s.seq
	s.mu.Unlock()

	if err := s.cache.PutLetter(ctx, s.ident.UserID, l); err != nil {
		return true, fmt.Errorf("cache letter %s: %w", l.ID, err)
	}
	return true, nil
}

// All returns the letters in no particular order.
func (s *LetterboxStore) All() []models.Letter {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Letter, 0, len(s.letters))
	for _, l := range s.letters {
		out = append(out, l)
	}
	return out
}

// Sorted returns the letters newest first.
func (s *LetterboxStore) Sorted() []models.Letter {
	out := s.All()
	models.SortNewestFirst(out)
	return out
}

func (s *LetterboxStore) Get(id string) (models.Letter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.letters[id]
	return l, ok
}

func (s *LetterboxStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.letters)
}
