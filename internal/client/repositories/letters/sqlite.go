package letters

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/bottlemail/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, row Row) error {
	if row.UserID == "" || row.ID == "" {
		return errors.New("letter row needs user id and letter id")
	}
	query := `INSERT INTO letters (user_id, id, payload, nonce) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, id) DO UPDATE SET payload = excluded.payload, nonce = excluded.nonce`
	if _, err := r.db.ExecContext(ctx, query, row.UserID, row.ID, row.Payload, row.Nonce); err != nil {
		return fmt.Errorf("failed to upsert letter %s: %w", row.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) ListByUser(ctx context.Context, userID string) ([]Row, error) {
	query := `SELECT user_id, id, payload, nonce FROM letters WHERE user_id = ? ORDER BY filed_at, id`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select letters: %w", err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var item Row
		if err := rows.Scan(&item.UserID, &item.ID, &item.Payload, &item.Nonce); err != nil {
			return nil, fmt.Errorf("failed to scan letter row: %w", err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate letter rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM letters WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete letters of %s: %w", userID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByUserPrefix(ctx context.Context, prefix string) (int64, error) {
	if prefix == "" {
		return 0, errors.New("empty user id prefix")
	}
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM letters WHERE substr(user_id, 1, length(?)) = ?`, prefix, prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to delete letters with prefix %s: %w", prefix, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
