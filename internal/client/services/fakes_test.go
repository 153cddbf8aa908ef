package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/bottlemail/internal/client/client"
	"github.com/dmitrijs2005/bottlemail/internal/client/identity"
	"github.com/dmitrijs2005/bottlemail/internal/client/models"
)

var (
	healthy  = identity.Identity{RawDeviceID: "device", UserID: "user-0123456789ab"}
	degraded = identity.Identity{UserID: "user-fallback-deadbeef", Warning: errors.New("degraded")}
)

// fakeClient implements client.Client with overridable handlers. Unset
// handlers fail the call with ErrUnavailable.
type fakeClient struct {
	mu      sync.Mutex
	baseURL string

	checkUser         func(ctx context.Context, uid string) (*models.CheckUserResponse, error)
	letterbox         func(ctx context.Context, uid string) ([]models.Letter, error)
	receiveUnopened   func(ctx context.Context, uid string) (*models.PollResponse, error)
	markOpened        func(ctx context.Context, uid, lid string) (*models.MarkOpenedResponse, error)
	send              func(ctx context.Context, l models.OutgoingLetter) (*models.SendResponse, error)
	updatePreferences func(ctx context.Context, uid string, p models.Preferences) (*models.UpdatePreferencesResponse, error)

	calls atomic.Int32
}

var _ client.Client = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{baseURL: "http://letters.test"}
}

func (f *fakeClient) BaseURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.baseURL
}

func (f *fakeClient) SetBaseURL(u string) {
	f.mu.Lock()
	f.baseURL = u
	f.mu.Unlock()
}

func (f *fakeClient) CheckUser(ctx context.Context, uid string) (*models.CheckUserResponse, error) {
	f.calls.Add(1)
	if f.checkUser == nil {
		return nil, client.ErrUnavailable
	}
	return f.checkUser(ctx, uid)
}

func (f *fakeClient) Letterbox(ctx context.Context, uid string) ([]models.Letter, error) {
	f.calls.Add(1)
	if f.letterbox == nil {
		return nil, client.ErrUnavailable
	}
	return f.letterbox(ctx, uid)
}

func (f *fakeClient) ReceiveUnopened(ctx context.Context, uid string) (*models.PollResponse, error) {
	f.calls.Add(1)
	if f.receiveUnopened == nil {
		return nil, client.ErrUnavailable
	}
	return f.receiveUnopened(ctx, uid)
}

func (f *fakeClient) MarkOpened(ctx context.Context, uid, lid string) (*models.MarkOpenedResponse, error) {
	f.calls.Add(1)
	if f.markOpened == nil {
		return nil, client.ErrUnavailable
	}
	return f.markOpened(ctx, uid, lid)
}

func (f *fakeClient) Send(ctx context.Context, l models.OutgoingLetter) (*models.SendResponse, error) {
	f.calls.Add(1)
	if f.send == nil {
		return nil, client.ErrUnavailable
	}
	return f.send(ctx, l)
}

func (f *fakeClient) UpdatePreferences(ctx context.Context, uid string, p models.Preferences) (*models.UpdatePreferencesResponse, error) {
	f.calls.Add(1)
	if f.updatePreferences == nil {
		return nil, client.ErrUnavailable
	}
	return f.updatePreferences(ctx, uid, p)
}

// memCache is an in-memory Cache.
type memCache struct {
	mu      sync.Mutex
	letters map[string]map[string]models.Letter
	prefs   map[string]models.Preferences

	putErr  error
	loadErr error
	purged  []string
}

var _ Cache = (*memCache)(nil)

func newMemCache() *memCache {
	return &memCache{
		letters: make(map[string]map[string]models.Letter),
		prefs:   make(map[string]models.Preferences),
	}
}

func (c *memCache) LoadLetters(_ context.Context, uid string) ([]models.Letter, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loadErr != nil {
		return nil, c.loadErr
	}
	var out []models.Letter
	for _, l := range c.letters[uid] {
		out = append(out, l)
	}
	return out, nil
}

func (c *memCache) PutLetter(_ context.Context, uid string, l models.Letter) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.putErr != nil {
		return c.putErr
	}
	if c.letters[uid] == nil {
		c.letters[uid] = make(map[string]models.Letter)
	}
	c.letters[uid][l.ID] = l
	return nil
}

func (c *memCache) ReplaceLetters(_ context.Context, uid string, ls []models.Letter) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.putErr != nil {
		return c.putErr
	}
	m := make(map[string]models.Letter, len(ls))
	for _, l := range ls {
		m[l.ID] = l
	}
	c.letters[uid] = m
	return nil
}

func (c *memCache) LoadPreferences(_ context.Context, uid string) (*models.Preferences, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loadErr != nil {
		return nil, c.loadErr
	}
	p, ok := c.prefs[uid]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *memCache) SavePreferences(_ context.Context, uid string, p models.Preferences) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.putErr != nil {
		return c.putErr
	}
	c.prefs[uid] = p
	return nil
}

func (c *memCache) PurgeNamespaces(_ context.Context, prefixes ...string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purged = append(c.purged, prefixes...)
	var n int64
	for uid := range c.letters {
		for _, p := range prefixes {
			if strings.HasPrefix(uid, p) {
				n += int64(len(c.letters[uid]))
				delete(c.letters, uid)
			}
		}
	}
	for uid := range c.prefs {
		for _, p := range prefixes {
			if strings.HasPrefix(uid, p) {
				n++
				delete(c.prefs, uid)
			}
		}
	}
	return n, nil
}

func (c *memCache) cachedIDs(uid string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ids []string
	for id := range c.letters[uid] {
		ids = append(ids, id)
	}
	return ids
}
