package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/bottlemail/internal/client/client"
	"github.com/dmitrijs2005/bottlemail/internal/client/identity"
	"github.com/dmitrijs2005/bottlemail/internal/client/metrics"
	"github.com/dmitrijs2005/bottlemail/internal/client/models"
	"github.com/dmitrijs2005/bottlemail/internal/common"
	"github.com/dmitrijs2005/bottlemail/internal/logging"
)

const DefaultRequiredTaps = 3

type ReadingState int

const (
	ReadingNone ReadingState = iota
	// ReadingFiled is a letterbox letter open for re-reading.
	ReadingFiled
	// ReadingArrival is the pending arrival, open but not yet acknowledged.
	ReadingArrival
	// ReadingFiledArrival is an arrival that was acknowledged and filed.
	ReadingFiledArrival
)

func (s ReadingState) String() string {
	switch s {
	case ReadingNone:
		return "none"
	case ReadingFiled:
		return "reading_filed"
	case ReadingArrival:
		return "reading_arrival"
	case ReadingFiledArrival:
		return "filed"
	default:
		return "unknown"
	}
}

// Opener drives reading letters. A filed letter opens and closes locally;
// the pending arrival is opened with a number of taps and must be
// acknowledged to the server before it is filed.
type Opener struct {
	ident     identity.Identity
	client    client.Client
	delivery  *Delivery
	letterbox *LetterboxStore
	logger    logging.Logger
	metrics   *metrics.Metrics

	requiredTaps int

	mu      sync.Mutex
	state   ReadingState
	current *models.Letter
	// tappedID is the arrival the taps belong to.
	tappedID string
	taps     int
	// openedID is the arrival that was opened and may be acknowledged. It
	// survives re-reading letterbox letters in between.
	openedID string
	busy     bool
}

func NewOpener(ident identity.Identity, c client.Client, d *Delivery, lb *LetterboxStore, requiredTaps int, logger logging.Logger, m *metrics.Metrics) *Opener {
	if requiredTaps < 1 {
		requiredTaps = DefaultRequiredTaps
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Opener{
		ident:        ident,
		client:       c,
		delivery:     d,
		letterbox:    lb,
		requiredTaps: requiredTaps,
		logger:       logger,
		metrics:      m,
	}
}

func (o *Opener) RequiredTaps() int { return o.requiredTaps }

// Tap records one opening gesture on the pending arrival and returns how
// many are still needed. At zero the arrival is open for reading.
func (o *Opener) Tap() (int, error) {
	pending, ok := o.delivery.Pending()
	if !ok {
		return 0, ErrNoArrival
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.tappedID != pending.ID {
		o.tappedID = pending.ID
		o.taps = 0
	}
	if o.taps < o.requiredTaps {
		o.taps++
	}
	remaining := o.requiredTaps - o.taps
	if remaining == 0 {
		o.openedID = pending.ID
		o.openLocked(pending, ReadingArrival)
	}
	return remaining, nil
}

// OpenArrival opens the pending arrival without gestures.
func (o *Opener) OpenArrival() (models.Letter, error) {
	pending, ok := o.delivery.Pending()
	if !ok {
		return models.Letter{}, ErrNoArrival
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.tappedID = pending.ID
	o.taps = o.requiredTaps
	o.openedID = pending.ID
	o.openLocked(pending, ReadingArrival)
	return pending, nil
}

// OpenFiled opens a letterbox letter for re-reading.
func (o *Opener) OpenFiled(id string) (models.Letter, error) {
	l, ok := o.letterbox.Get(id)
	if !ok {
		return models.Letter{}, fmt.Errorf("letter %s: %w", id, common.ErrorNotFound)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.openLocked(l, ReadingFiled)
	return l, nil
}

// CloseFiled closes a re-read letter. It never touches the server.
func (o *Opener) CloseFiled() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == ReadingFiled || o.state == ReadingFiledArrival {
		o.state = ReadingNone
		o.current = nil
	}
}

func (o *Opener) openLocked(l models.Letter, state ReadingState) {
	o.current = &l
	o.state = state
}

func (o *Opener) State() ReadingState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Current returns the letter being read, if any.
func (o *Opener) Current() (models.Letter, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return models.Letter{}, false
	}
	return *o.current, true
}

// Acknowledge confirms the opened arrival with the server and files the
// canonical letter. On any failure the arrival stays pending so the call
// can be retried.
func (o *Opener) Acknowledge(ctx context.Context) (models.Letter, error) {
	pending, ok := o.delivery.Pending()
	if !ok {
		return models.Letter{}, ErrNoArrival
	}

	o.mu.Lock()
	if o.busy {
		o.mu.Unlock()
		return models.Letter{}, ErrBusy
	}
	if o.openedID != pending.ID {
		o.mu.Unlock()
		return models.Letter{}, ErrArrivalNotOpened
	}
	o.busy = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.busy = false
		o.mu.Unlock()
	}()

	resp, err := o.client.MarkOpened(ctx, o.ident.UserID, pending.ID)
	if err != nil {
		o.metrics.Ack("error")
		return models.Letter{}, fmt.Errorf("mark letter opened: %w", err)
	}
	if !resp.Filed() {
		o.metrics.Ack("rejected")
		return models.Letter{}, fmt.Errorf("mark letter opened: %w", &client.ServerError{Status: resp.Status})
	}

	filed := pending
	if resp.Letter != nil && resp.Letter.ID != "" {
		filed = *resp.Letter
	}
	filed.Title = models.NormalizeTitle(filed.Title)
	filed.IsReceived = false

	added, err := o.letterbox.File(ctx, filed)
	if err != nil {
		o.logger.Error(ctx, "filed letter not cached", "letter_id", filed.ID, "error", err)
	}
	if !added {
		o.logger.Info(ctx, "letter already in letterbox", "letter_id", filed.ID)
	}

	o.delivery.ClearPending(pending.ID)

	o.mu.Lock()
	o.openLocked(filed, ReadingFiledArrival)
	o.tappedID = ""
	o.taps = 0
	o.openedID = ""
	o.mu.Unlock()

	o.metrics.Ack(resp.Status)
	return filed, nil
}
