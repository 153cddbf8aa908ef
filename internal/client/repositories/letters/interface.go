package letters

import "context"

// Row is one cached letter. Payload is the sealed JSON of the letter and
// Nonce the matching AEAD nonce.
type Row struct {
	UserID  string
	ID      string
	Payload []byte
	Nonce   []byte
}

type Repository interface {
	// Upsert stores row, replacing the payload of an existing (user, id) pair.
	Upsert(ctx context.Context, row Row) error

	// ListByUser returns all rows of userID in filing order.
	ListByUser(ctx context.Context, userID string) ([]Row, error)

	DeleteByUser(ctx context.Context, userID string) error

	// DeleteByUserPrefix removes the rows of every user id starting with
	// prefix and reports how many were removed.
	DeleteByUserPrefix(ctx context.Context, prefix string) (int64, error)
}
