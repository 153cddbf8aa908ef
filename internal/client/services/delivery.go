package services

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/bottlemail/internal/client/client"
	"github.com/dmitrijs2005/bottlemail/internal/client/identity"
	"github.com/dmitrijs2005/bottlemail/internal/client/metrics"
	"github.com/dmitrijs2005/bottlemail/internal/client/models"
	"github.com/dmitrijs2005/bottlemail/internal/logging"
)

const DefaultPollInterval = 20 * time.Second

type DeliveryState int

const (
	DeliveryIdle DeliveryState = iota
	DeliveryRequesting
	DeliveryArrivalReady
	DeliveryCooldown
	DeliveryEmpty
	DeliveryError
)

func (s DeliveryState) String() string {
	switch s {
	case DeliveryIdle:
		return "idle"
	case DeliveryRequesting:
		return "requesting"
	case DeliveryArrivalReady:
		return "arrival_ready"
	case DeliveryCooldown:
		return "cooldown"
	case DeliveryEmpty:
		return "empty"
	case DeliveryError:
		return "error"
	default:
		return "unknown"
	}
}

// Reasons a poll cycle did not reach the server.
const (
	SkipDegradedIdentity = "degraded identity"
	SkipNoServer         = "no server configured"
	SkipArrivalPending   = "arrival pending"
	SkipInFlight         = "poll in flight"
	SkipSuperseded       = "superseded"
)

// PollResult describes one poll cycle. Skipped is non-empty when the cycle
// did not run or its response was discarded.
type PollResult struct {
	State    DeliveryState
	Skipped  string
	Letter   *models.Letter
	Cooldown models.Cooldown
	Err      error
}

type DeliveryOptions struct {
	Logger  logging.Logger
	Metrics *metrics.Metrics
	// Now is the clock used for cooldown end times.
	Now func() time.Time
}

// Delivery polls the server for new letters. It holds at most one pending
// arrival, never runs two polls at once and drops responses that arrive
// after Reset.
type Delivery struct {
	ident   identity.Identity
	client  client.Client
	logger  logging.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu         sync.Mutex
	state      DeliveryState
	pending    *models.Letter
	cooldown   models.Cooldown
	inFlight   bool
	generation uint64
	onArrival  func(models.Letter)
}

func NewDelivery(ident identity.Identity, c client.Client, opts DeliveryOptions) *Delivery {
	d := &Delivery{ident: ident, client: c, logger: opts.Logger, metrics: opts.Metrics, now: opts.Now}
	if d.logger == nil {
		d.logger = logging.Discard()
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// OnArrival registers fn to be called, outside any lock, whenever a new
// letter becomes pending.
func (d *Delivery) OnArrival(fn func(models.Letter)) {
	d.mu.Lock()
	d.onArrival = fn
	d.mu.Unlock()
}

// Poll runs one delivery cycle. Failures are logged and reported in the
// result; they never stop the caller's loop.
func (d *Delivery) Poll(ctx context.Context) PollResult {
	d.mu.Lock()
	if reason := d.skipReasonLocked(); reason != "" {
		res := PollResult{State: d.state, Skipped: reason, Cooldown: d.cooldown}
		d.mu.Unlock()
		d.metrics.Poll("skipped")
		return res
	}
	d.inFlight = true
	d.state = DeliveryRequesting
	gen := d.generation
	requestedAt := d.now()
	d.mu.Unlock()

	resp, err := d.client.ReceiveUnopened(ctx, d.ident.UserID)

	d.mu.Lock()
	if gen != d.generation {
		d.mu.Unlock()
		d.logger.Debug(ctx, "discarding superseded poll response")
		d.metrics.Poll("superseded")
		return PollResult{State: DeliveryIdle, Skipped: SkipSuperseded}
	}
	d.inFlight = false

	res := d.applyLocked(ctx, resp, err, requestedAt)
	callback := d.onArrival
	d.mu.Unlock()

	d.metrics.Poll(res.State.String())
	if res.State == DeliveryArrivalReady && callback != nil {
		callback(*res.Letter)
	}
	return res
}

func (d *Delivery) skipReasonLocked() string {
	switch {
	case d.ident.Degraded():
		return SkipDegradedIdentity
	case d.client.BaseURL() == "":
		return SkipNoServer
	case d.pending != nil:
		return SkipArrivalPending
	case d.inFlight:
		return SkipInFlight
	}
	return ""
}

func (d *Delivery) applyLocked(ctx context.Context, resp *models.PollResponse, err error, requestedAt time.Time) PollResult {
	if err == nil {
		switch resp.Status {
		case models.PollStatusNewLetter:
			l := resp.ArrivedLetter()
			if l.ID == "" {
				err = &client.ServerError{Status: resp.Status, Detail: "letter without id"}
				break
			}
			l.Title = models.NormalizeTitle(l.Title)
			l.IsReceived = true
			d.pending = &l
			d.cooldown = models.Cooldown{}
			d.state = DeliveryArrivalReady
			d.logger.Info(ctx, "letter arrived", "letter_id", l.ID)
			arrived := l
			return PollResult{State: d.state, Letter: &arrived}

		case models.PollStatusCooldown:
			d.cooldown = models.Cooldown{Active: true, EndsAt: requestedAt.Add(resp.CooldownRemaining())}
			d.state = DeliveryCooldown
			return PollResult{State: d.state, Cooldown: d.cooldown}

		case models.PollStatusNoLetters:
			d.cooldown = models.Cooldown{}
			d.state = DeliveryEmpty
			return PollResult{State: d.state}

		default:
			err = &client.ServerError{Status: resp.Status}
		}
	}

	d.cooldown = models.Cooldown{}
	d.state = DeliveryError
	d.logger.Warn(ctx, "poll failed", "error", err)
	return PollResult{State: d.state, Err: err}
}

// Run polls once immediately and then every interval until ctx is done.
func (d *Delivery) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	d.Poll(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Poll(ctx)
		}
	}
}

// Pending returns the arrival waiting to be opened, if any.
func (d *Delivery) Pending() (models.Letter, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending == nil {
		return models.Letter{}, false
	}
	return *d.pending, true
}

// ClearPending drops the pending arrival if it is still letterID.
func (d *Delivery) ClearPending(letterID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending != nil && d.pending.ID == letterID {
		d.pending = nil
		d.state = DeliveryIdle
	}
}

func (d *Delivery) Cooldown() models.Cooldown {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cooldown
}

func (d *Delivery) State() DeliveryState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Reset forgets cooldown state and invalidates any poll in flight. The
// pending arrival is kept: it belongs to the identity, not the server.
func (d *Delivery) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.generation++
	d.inFlight = false
	d.cooldown = models.Cooldown{}
	if d.pending == nil {
		d.state = DeliveryIdle
	} else {
		d.state = DeliveryArrivalReady
	}
}
