package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sakif/yamdb/internal/apperror"
	"github.com/sakif/yamdb/internal/repository"
)

var _ repository.Seeder = (*DB)(nil)

// seedColumns lists the tables and columns InsertRows may write. Table and
// column names are spliced into SQL, so nothing outside this list is accepted.
var seedColumns = map[string]map[string]bool{
	"users":       set("id", "username", "email", "role", "bio", "first_name", "last_name", "confirmation_code", "is_superuser", "date_joined"),
	"categories":  set("id", "name", "slug"),
	"genres":      set("id", "name", "slug"),
	"titles":      set("id", "name", "year", "description", "category_id"),
	"genre_title": set("id", "genre_id", "title_id"),
	"reviews":     set("id", "title_id", "author_id", "text", "score", "pub_date"),
	"comments":    set("id", "review_id", "author_id", "text", "pub_date"),
}

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

// Seed runs fn in one transaction. If fn or any insert fails, nothing is
// written.
func (db *DB) Seed(ctx context.Context, fn func(ins repository.RowInserter) error) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		return fn(&txInserter{tx: tx})
	})
}

type txInserter struct {
	tx *sql.Tx
}

// InsertRows inserts rows into table. Each row must have one value per
// column. Constraints still apply: a duplicate id or a dangling reference
// aborts the whole seed.
func (ti *txInserter) InsertRows(ctx context.Context, table string, columns []string, rows [][]any) (int, error) {
	allowed, ok := seedColumns[table]
	if !ok {
		return 0, apperror.ValidationFailed("table", fmt.Sprintf("unknown table %q", table))
	}
	for _, col := range columns {
		if !allowed[col] {
			return 0, apperror.ValidationFailed(col, fmt.Sprintf("unknown column %q for table %s", col, table))
		}
	}
	if len(rows) == 0 {
		return 0, nil
	}

	stmt, err := ti.tx.PrepareContext(ctx,
		`INSERT INTO `+table+` (`+strings.Join(columns, ", ")+`) VALUES (`+placeholders(len(columns))+`)`,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: preparing insert into %s: %w", table, err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if len(row) != len(columns) {
			return i, apperror.ValidationFailed("", fmt.Sprintf("%s row %d: got %d values for %d columns", table, i+1, len(row), len(columns)))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return i, translateErr(fmt.Sprintf("inserting %s row %d", table, i+1), err)
		}
	}
	return len(rows), nil
}
