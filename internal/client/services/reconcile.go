package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/bottlemail/internal/client/metrics"
	"github.com/dmitrijs2005/bottlemail/internal/common"
	"github.com/dmitrijs2005/bottlemail/internal/logging"
)

// Source tells where the in-memory value of a reconciled resource came from.
type Source string

const (
	SourceServer  Source = "server"
	SourceCache   Source = "cache"
	SourceDefault Source = "default"
)

// reconciler describes one resource for reconcile.
type reconciler[T any] struct {
	resource string

	// loadLocal returns the cached value, ok=false when nothing is cached.
	loadLocal func(ctx context.Context) (T, bool, error)
	// fetchRemote returns the server value, ok=false when the server
	// answered but holds nothing for this user.
	fetchRemote func(ctx context.Context) (T, bool, error)
	saveLocal   func(ctx context.Context, v T) error
	apply       func(v T)

	skipRemote bool
	fallback   T
}

// reconcile applies the local value first and then lets a successful server
// fetch overwrite both memory and cache. A failed fetch keeps the local
// value; common.ErrNoData is returned only when neither source had data.
func reconcile[T any](ctx context.Context, log logging.Logger, m *metrics.Metrics, r reconciler[T]) (Source, error) {
	src := SourceDefault

	local, ok, err := r.loadLocal(ctx)
	if err != nil {
		log.Warn(ctx, "local cache unreadable", "resource", r.resource, "error", err)
		ok = false
	}
	if ok {
		r.apply(local)
		src = SourceCache
	} else {
		r.apply(r.fallback)
	}

	if r.skipRemote {
		m.Reconcile(r.resource, string(src))
		return src, nil
	}

	remote, found, err := r.fetchRemote(ctx)
	if err != nil {
		log.Warn(ctx, "server fetch failed, keeping local data", "resource", r.resource, "source", src, "error", err)
		m.Reconcile(r.resource, string(src))
		if src == SourceDefault {
			return src, fmt.Errorf("%s: %w: %v", r.resource, common.ErrNoData, err)
		}
		return src, nil
	}
	if !found {
		m.Reconcile(r.resource, string(src))
		return src, nil
	}

	r.apply(remote)
	if err := r.saveLocal(ctx, remote); err != nil {
		log.Error(ctx, "failed to update local cache", "resource", r.resource, "error", err)
	}
	m.Reconcile(r.resource, string(SourceServer))
	return SourceServer, nil
}
