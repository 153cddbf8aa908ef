// Package identity derives the pseudonymous user id from the platform device
// identifier.
//
// A healthy id has the form "user-<12 lowercase hex>" and is stable for the
// life of the install. When the platform id cannot be read, or hashing it
// fails, a random placeholder is produced instead ("user-fallback-..." or
// "user-error-..."). Placeholders are degraded: they change on every run and
// must not be used for server-side preference or letterbox sync.
package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/bottlemail/internal/common"
	"github.com/dmitrijs2005/bottlemail/internal/logging"
	"github.com/google/uuid"
)

const (
	Prefix         = "user-"
	FallbackPrefix = "user-fallback-"
	ErrorPrefix    = "user-error-"

	hashLen = 12
)

// ErrNoDeviceID is returned by sources that have nothing to offer.
var ErrNoDeviceID = errors.New("device id unavailable")

// Source supplies the platform device identifier.
type Source interface {
	DeviceID(ctx context.Context) (string, error)
}

// DigestFunc turns a raw device id into a lowercase hex digest.
type DigestFunc func(raw string) (string, error)

// SHA256Hex is the default digest.
func SHA256Hex(raw string) (string, error) {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:]), nil
}

// Identity is the resolved user identity for this run.
type Identity struct {
	RawDeviceID string
	UserID      string

	// Warning is set for degraded identities and is meant to be shown to the
	// user once.
	Warning error
}

// Degraded reports whether the id is a session-scoped placeholder.
func (i Identity) Degraded() bool {
	return IsDegraded(i.UserID)
}

// IsDegraded reports whether userID carries a placeholder prefix.
func IsDegraded(userID string) bool {
	return userID == "" || strings.HasPrefix(userID, FallbackPrefix) || strings.HasPrefix(userID, ErrorPrefix)
}

// DegradedPrefixes lists the placeholder prefixes.
func DegradedPrefixes() []string {
	return []string{FallbackPrefix, ErrorPrefix}
}

type Options struct {
	Digest DigestFunc
	Logger logging.Logger
}

// Resolve derives the identity. It never fails: problems produce a degraded
// identity with Warning set.
func Resolve(ctx context.Context, src Source, opts Options) Identity {
	digest := opts.Digest
	if digest == nil {
		digest = SHA256Hex
	}

	var raw string
	var err error
	if src != nil {
		raw, err = src.DeviceID(ctx)
	} else {
		err = ErrNoDeviceID
	}
	raw = strings.TrimSpace(raw)

	if err != nil || raw == "" {
		if err == nil {
			err = ErrNoDeviceID
		}
		id := Identity{
			UserID:  FallbackPrefix + randomSuffix(),
			Warning: fmt.Errorf("%w: device id unavailable, using a temporary id: %v", common.ErrIdentityDegraded, err),
		}
		warn(ctx, opts.Logger, id)
		return id
	}

	sum, err := digest(raw)
	if err == nil && len(sum) < hashLen {
		err = fmt.Errorf("digest too short: %d chars", len(sum))
	}
	if err != nil {
		id := Identity{
			RawDeviceID: raw,
			UserID:      ErrorPrefix + randomSuffix(),
			Warning:     fmt.Errorf("%w: hashing device id failed, using a temporary id: %v", common.ErrIdentityDegraded, err),
		}
		warn(ctx, opts.Logger, id)
		return id
	}

	return Identity{
		RawDeviceID: raw,
		UserID:      Prefix + strings.ToLower(sum[:hashLen]),
	}
}

func warn(ctx context.Context, log logging.Logger, id Identity) {
	if log == nil {
		return
	}
	log.Warn(ctx, "identity degraded", "user_id", id.UserID, "error", id.Warning)
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
