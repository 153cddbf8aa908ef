package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/bottlemail/internal/client/client"
	"github.com/dmitrijs2005/bottlemail/internal/client/identity"
	"github.com/dmitrijs2005/bottlemail/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 5, 21, 12, 0, 0, 0, time.UTC)

func newTestDelivery(ident identity.Identity, fc *fakeClient) *Delivery {
	return NewDelivery(ident, fc, DeliveryOptions{Now: func() time.Time { return fixedNow }})
}

func respond(resp *models.PollResponse) func(context.Context, string) (*models.PollResponse, error) {
	return func(context.Context, string) (*models.PollResponse, error) { return resp, nil }
}

func TestDelivery_NewLetterBecomesPending(t *testing.T) {
	fc := newFakeClient()
	fc.receiveUnopened = respond(&models.PollResponse{Status: models.PollStatusNewLetter, ID: "L1", Title: " ", Content: "hello"})
	d := newTestDelivery(healthy, fc)

	var arrived []models.Letter
	d.OnArrival(func(l models.Letter) { arrived = append(arrived, l) })

	res := d.Poll(context.Background())
	require.Equal(t, DeliveryArrivalReady, res.State)
	require.NotNil(t, res.Letter)
	assert.Equal(t, models.UntitledTitle, res.Letter.Title)
	assert.True(t, res.Letter.IsReceived)

	p, ok := d.Pending()
	require.True(t, ok)
	assert.Equal(t, "L1", p.ID)
	assert.Equal(t, "hello", p.Content)
	assert.Len(t, arrived, 1)
	assert.False(t, d.Cooldown().Active)
}

func TestDelivery_AtMostOnePendingArrival(t *testing.T) {
	fc := newFakeClient()
	var n atomic.Int32
	fc.receiveUnopened = func(context.Context, string) (*models.PollResponse, error) {
		id := string(rune('A' + n.Add(1)))
		return &models.PollResponse{Status: models.PollStatusNewLetter, ID: id}, nil
	}
	d := newTestDelivery(healthy, fc)

	first := d.Poll(context.Background())
	require.Equal(t, DeliveryArrivalReady, first.State)

	for i := 0; i < 3; i++ {
		res := d.Poll(context.Background())
		assert.Equal(t, SkipArrivalPending, res.Skipped)
	}
	assert.Equal(t, int32(1), fc.calls.Load(), "no request while an arrival is unresolved")

	p, _ := d.Pending()
	assert.Equal(t, first.Letter.ID, p.ID)

	d.ClearPending("other")
	_, ok := d.Pending()
	assert.True(t, ok, "clearing a different id keeps the arrival")

	d.ClearPending(p.ID)
	_, ok = d.Pending()
	assert.False(t, ok)
	assert.Equal(t, DeliveryIdle, d.State())

	res := d.Poll(context.Background())
	assert.Equal(t, DeliveryArrivalReady, res.State)
	assert.NotEqual(t, p.ID, res.Letter.ID)
}

func TestDelivery_CooldownEndsAtRequestTimePlusRemaining(t *testing.T) {
	fc := newFakeClient()
	fc.receiveUnopened = respond(&models.PollResponse{
		Status:                   models.PollStatusCooldown,
		CooldownRemainingSeconds: 90,
		ID:                       "ignored",
	})
	d := newTestDelivery(healthy, fc)

	res := d.Poll(context.Background())
	require.Equal(t, DeliveryCooldown, res.State)
	assert.Nil(t, res.Letter)
	assert.True(t, res.Cooldown.Active)
	assert.Equal(t, fixedNow.Add(90*time.Second), res.Cooldown.EndsAt)
	assert.Equal(t, 90*time.Second, d.Cooldown().Remaining(fixedNow))

	_, ok := d.Pending()
	assert.False(t, ok, "no arrival is accepted from a cooldown response")
}

func TestDelivery_NoLettersClearsCooldown(t *testing.T) {
	fc := newFakeClient()
	fc.receiveUnopened = respond(&models.PollResponse{Status: models.PollStatusCooldown, CooldownRemainingSeconds: 5})
	d := newTestDelivery(healthy, fc)
	d.Poll(context.Background())
	require.True(t, d.Cooldown().Active)

	fc.receiveUnopened = respond(&models.PollResponse{Status: models.PollStatusNoLetters})
	res := d.Poll(context.Background())
	assert.Equal(t, DeliveryEmpty, res.State)
	assert.False(t, d.Cooldown().Active)
}

func TestDelivery_ErrorsClearCooldownAndDoNotStick(t *testing.T) {
	fc := newFakeClient()
	fc.receiveUnopened = respond(&models.PollResponse{Status: models.PollStatusCooldown, CooldownRemainingSeconds: 5})
	d := newTestDelivery(healthy, fc)
	d.Poll(context.Background())

	fc.receiveUnopened = nil // ErrUnavailable
	res := d.Poll(context.Background())
	assert.Equal(t, DeliveryError, res.State)
	assert.ErrorIs(t, res.Err, client.ErrUnavailable)
	assert.False(t, d.Cooldown().Active)

	fc.receiveUnopened = respond(&models.PollResponse{Status: "mystery"})
	res = d.Poll(context.Background())
	assert.Equal(t, DeliveryError, res.State)
	assert.ErrorIs(t, res.Err, client.ErrServerRejected)

	fc.receiveUnopened = respond(&models.PollResponse{Status: models.PollStatusNewLetter})
	res = d.Poll(context.Background())
	assert.Equal(t, DeliveryError, res.State, "an arrival without id is malformed")

	fc.receiveUnopened = respond(&models.PollResponse{Status: models.PollStatusNoLetters})
	res = d.Poll(context.Background())
	assert.Equal(t, DeliveryEmpty, res.State)
}

func TestDelivery_Preconditions(t *testing.T) {
	fc := newFakeClient()
	fc.receiveUnopened = respond(&models.PollResponse{Status: models.PollStatusNoLetters})

	res := newTestDelivery(degraded, fc).Poll(context.Background())
	assert.Equal(t, SkipDegradedIdentity, res.Skipped)

	fc.SetBaseURL("")
	res = newTestDelivery(healthy, fc).Poll(context.Background())
	assert.Equal(t, SkipNoServer, res.Skipped)

	assert.Equal(t, int32(0), fc.calls.Load())
}

func TestDelivery_InFlightGuard(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	fc := newFakeClient()
	fc.receiveUnopened = func(context.Context, string) (*models.PollResponse, error) {
		close(started)
		<-release
		return &models.PollResponse{Status: models.PollStatusNoLetters}, nil
	}
	d := newTestDelivery(healthy, fc)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.Poll(context.Background())
	}()

	<-started
	assert.Equal(t, DeliveryRequesting, d.State())
	res := d.Poll(context.Background())
	assert.Equal(t, SkipInFlight, res.Skipped)

	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), fc.calls.Load())
	assert.Equal(t, DeliveryEmpty, d.State())
}

func TestDelivery_ResetDiscardsLateResponse(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	fc := newFakeClient()
	fc.receiveUnopened = func(context.Context, string) (*models.PollResponse, error) {
		close(started)
		<-release
		return &models.PollResponse{Status: models.PollStatusNewLetter, ID: "late"}, nil
	}
	d := newTestDelivery(healthy, fc)

	done := make(chan PollResult, 1)
	go func() { done <- d.Poll(context.Background()) }()

	<-started
	d.Reset()
	close(release)

	res := <-done
	assert.Equal(t, SkipSuperseded, res.Skipped)
	_, ok := d.Pending()
	assert.False(t, ok, "a response from before Reset is never applied")
	assert.Equal(t, DeliveryIdle, d.State())
}

func TestDelivery_RunKeepsPollingAfterErrors(t *testing.T) {
	fc := newFakeClient()
	var n atomic.Int32
	fc.receiveUnopened = func(context.Context, string) (*models.PollResponse, error) {
		if n.Add(1) <= 2 {
			return nil, client.ErrUnavailable
		}
		return &models.PollResponse{Status: models.PollStatusNewLetter, ID: "finally"}, nil
	}
	d := newTestDelivery(healthy, fc)

	arrived := make(chan models.Letter, 1)
	d.OnArrival(func(l models.Letter) { arrived <- l })

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		d.Run(ctx, 5*time.Millisecond)
		close(stopped)
	}()

	select {
	case l := <-arrived:
		assert.Equal(t, "finally", l.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("poller stopped after errors")
	}

	cancel()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestDeliveryState_String(t *testing.T) {
	assert.Equal(t, "arrival_ready", DeliveryArrivalReady.String())
	assert.Equal(t, "unknown", DeliveryState(99).String())
}
