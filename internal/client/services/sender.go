package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/bottlemail/internal/client/client"
	"github.com/dmitrijs2005/bottlemail/internal/client/metrics"
	"github.com/dmitrijs2005/bottlemail/internal/client/models"
	"github.com/dmitrijs2005/bottlemail/internal/common"
	"github.com/dmitrijs2005/bottlemail/internal/logging"
)

const DefaultSendTimeout = 10 * time.Second

type SendOutcome int

const (
	SendSuccess SendOutcome = iota
	SendServerRejected
	SendTimeout
	SendNetworkError
	SendValidationFailed
	SendBusy
)

func (o SendOutcome) String() string {
	switch o {
	case SendSuccess:
		return "success"
	case SendServerRejected:
		return "server_rejected"
	case SendTimeout:
		return "timeout"
	case SendNetworkError:
		return "network_error"
	case SendValidationFailed:
		return "validation_failed"
	case SendBusy:
		return "busy"
	default:
		return "unknown"
	}
}

type SendResult struct {
	Outcome SendOutcome
	// Detail is the server's message, on success or rejection.
	Detail string
	Err    error
}

// Sender submits drafts. Only one send runs at a time.
type Sender struct {
	client  client.Client
	timeout time.Duration
	logger  logging.Logger
	metrics *metrics.Metrics

	busy atomic.Bool
}

func NewSender(c client.Client, timeout time.Duration, logger logging.Logger, m *metrics.Metrics) *Sender {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Sender{client: c, timeout: timeout, logger: logger, metrics: m}
}

func (s *Sender) Busy() bool { return s.busy.Load() }

// Send posts draft as userID. The draft is cleared only on success.
func (s *Sender) Send(ctx context.Context, userID string, draft *models.Draft) SendResult {
	res := s.send(ctx, userID, draft)
	s.metrics.Send(res.Outcome.String())
	return res
}

func (s *Sender) send(ctx context.Context, userID string, draft *models.Draft) SendResult {
	if !s.busy.CompareAndSwap(false, true) {
		return SendResult{Outcome: SendBusy, Err: ErrBusy}
	}
	defer s.busy.Store(false)

	if draft == nil || strings.TrimSpace(draft.Content) == "" {
		return SendResult{Outcome: SendValidationFailed, Err: fmt.Errorf("%w: message is empty", common.ErrValidation)}
	}

	letter := models.OutgoingLetter{
		UserID:  userID,
		Title:   models.NormalizeTitle(draft.Title),
		Message: draft.Content,
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.Send(ctx, letter)
	if err != nil {
		s.logger.Warn(ctx, "send failed", "error", err)
		switch {
		case errors.Is(err, client.ErrTimeout) || errors.Is(ctx.Err(), context.DeadlineExceeded):
			return SendResult{Outcome: SendTimeout, Err: err}
		case errors.Is(err, client.ErrServerRejected):
			return SendResult{Outcome: SendServerRejected, Detail: client.Detail(err), Err: err}
		default:
			return SendResult{Outcome: SendNetworkError, Err: err}
		}
	}

	if !resp.Accepted() {
		return SendResult{
			Outcome: SendServerRejected,
			Detail:  resp.Message,
			Err:     &client.ServerError{Status: resp.Status, Detail: resp.Message},
		}
	}

	draft.Clear()
	s.logger.Info(ctx, "letter sent", "status", resp.Status)
	return SendResult{Outcome: SendSuccess, Detail: resp.Message}
}
