// Package letters persists the local letterbox cache.
//
// Rows are namespaced by the derived user id and carry an opaque sealed
// payload; sealing and unsealing happen in the caller (see internal/cryptox).
// The SQLite implementation works over dbx.DBTX so a whole letterbox can be
// replaced inside one transaction:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//		repo := letters.NewSQLiteRepository(tx)
//		if err := repo.DeleteByUser(ctx, uid); err != nil {
//			return err
//		}
//		for _, row := range rows {
//			if err := repo.Upsert(ctx, row); err != nil {
//				return err
//			}
//		}
//		return nil
//	})
package letters
