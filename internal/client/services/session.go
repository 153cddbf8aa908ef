package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/bottlemail/internal/client/client"
	"github.com/dmitrijs2005/bottlemail/internal/client/identity"
	"github.com/dmitrijs2005/bottlemail/internal/client/metrics"
	"github.com/dmitrijs2005/bottlemail/internal/client/models"
	"github.com/dmitrijs2005/bottlemail/internal/logging"
)

type SessionDeps struct {
	Identity identity.Identity
	Client   client.Client
	Cache    Cache
	Logger   logging.Logger
	Metrics  *metrics.Metrics

	SendTimeout  time.Duration
	RequiredTaps int
	Now          func() time.Time
}

// Session is the application state: one per process, built at startup and
// shared by every command.
type Session struct {
	Identity    identity.Identity
	Client      client.Client
	Preferences *PreferencesStore
	Letterbox   *LetterboxStore
	Delivery    *Delivery
	Opener      *Opener
	Sender      *Sender
	Draft       *models.Draft

	cache  Cache
	logger logging.Logger
}

func NewSession(deps SessionDeps) *Session {
	log := deps.Logger
	if log == nil {
		log = logging.Discard()
	}
	log = log.With("user_id", deps.Identity.UserID)

	lb := NewLetterboxStore(deps.Identity, deps.Client, deps.Cache, log, deps.Metrics)
	d := NewDelivery(deps.Identity, deps.Client, DeliveryOptions{Logger: log, Metrics: deps.Metrics, Now: deps.Now})

	return &Session{
		Identity:    deps.Identity,
		Client:      deps.Client,
		Preferences: NewPreferencesStore(deps.Identity, deps.Client, deps.Cache, log, deps.Metrics),
		Letterbox:   lb,
		Delivery:    d,
		Opener:      NewOpener(deps.Identity, deps.Client, d, lb, deps.RequiredTaps, log, deps.Metrics),
		Sender:      NewSender(deps.Client, deps.SendTimeout, log, deps.Metrics),
		Draft:       &models.Draft{},
		cache:       deps.Cache,
		logger:      log,
	}
}

// StartReport tells where the startup data came from. Notices are
// non-fatal and meant for the user.
type StartReport struct {
	Preferences Source
	Letterbox   Source
	Notices     []error
}

// Start purges caches of earlier degraded sessions and reconciles
// preferences (which registers the user) and the letterbox.
func (s *Session) Start(ctx context.Context) StartReport {
	var rep StartReport

	if n, err := s.cache.PurgeNamespaces(ctx, identity.DegradedPrefixes()...); err != nil {
		s.logger.Warn(ctx, "failed to purge degraded caches", "error", err)
	} else if n > 0 {
		s.logger.Info(ctx, "purged degraded caches", "rows", n)
	}

	if s.Identity.Warning != nil {
		rep.Notices = append(rep.Notices, s.Identity.Warning)
	}

	src, err := s.Preferences.Load(ctx)
	rep.Preferences = src
	if err != nil {
		rep.Notices = append(rep.Notices, err)
	}

	src, err = s.Letterbox.Load(ctx)
	rep.Letterbox = src
	if err != nil {
		rep.Notices = append(rep.Notices, err)
	}

	return rep
}

func (s *Session) UserID() string { return s.Identity.UserID }

// SetServer points the client at a new base URL and resets delivery so no
// response from the old server is applied.
func (s *Session) SetServer(baseURL string) {
	s.Client.SetBaseURL(baseURL)
	s.Delivery.Reset()
	s.logger.Info(context.Background(), "server changed", "base_url", s.Client.BaseURL())
}
