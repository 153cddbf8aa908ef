package metadata

import (
	"context"
)

// Repository is a small key/value store for per-user cache records. Keys
// are namespaced as "<user id>/<name>", see Key.
type Repository interface {
	// Get returns (nil, nil) when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
}

// Key builds the namespaced key of name for userID.
func Key(userID, name string) string {
	return userID + "/" + name
}
