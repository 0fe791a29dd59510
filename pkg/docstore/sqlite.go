package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (collection, id)
);
`

// SQLiteStore keeps every collection in one table of JSON documents.
// The pool is limited to a single connection, which makes every
// transaction serializable without busy retries.
type SQLiteStore struct {
	db *sqlx.DB
}

type documentRow struct {
	ID   string `db:"id"`
	Data string `db:"data"`
}

// NewSQLiteStore opens (creating when needed) the database file at path.
// Use ":memory:" for a throwaway database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) NewID(collection string) string {
	return uuid.New().String()
}

func (s *SQLiteStore) Get(ctx context.Context, collection, id string) (Snapshot, error) {
	return getRow(ctx, s.db, collection, id)
}

func (s *SQLiteStore) Set(ctx context.Context, collection, id string, v interface{}) error {
	doc, err := toDocument(v)
	if err != nil {
		return err
	}
	return putRow(ctx, s.db, collection, id, doc)
}

func (s *SQLiteStore) Update(ctx context.Context, collection, id string, fields map[string]interface{}) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return tx.Update(collection, id, fields)
	})
}

func (s *SQLiteStore) Delete(ctx context.Context, collection, id string) error {
	query, args, err := sq.Delete("documents").
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *SQLiteStore) ArrayUnion(ctx context.Context, collection, id, field string, values ...interface{}) error {
	return s.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		stx := tx.(*sqliteTx)
		snap, err := getRow(ctx, stx.tx, collection, id)
		if err != nil {
			return err
		}
		doc, err := fromBytes(snap.(*jsonSnapshot).data)
		if err != nil {
			return err
		}
		if err := applyArrayUnion(doc, field, values); err != nil {
			return err
		}
		return putRow(ctx, stx.tx, collection, id, doc)
	})
}

func (s *SQLiteStore) List(ctx context.Context, collection string, filters ...Filter) ([]Snapshot, error) {
	builder := sq.Select("id", "data").
		From("documents").
		Where(sq.Eq{"collection": collection}).
		OrderBy("id ASC")

	var post []Filter
	for _, f := range filters {
		switch v := f.Value.(type) {
		case string:
			builder = builder.Where(sq.Expr("json_extract(data, ?) = ?", "$."+f.Field, v))
		default:
			// Non-string values are compared after decoding
			post = append(post, f)
		}
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}

	snaps := make([]Snapshot, 0, len(rows))
	for _, r := range rows {
		if len(post) > 0 {
			doc, err := fromBytes([]byte(r.Data))
			if err != nil {
				return nil, err
			}
			ok, err := matches(doc, post)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		snaps = append(snaps, &jsonSnapshot{id: r.ID, data: []byte(r.Data)})
	}
	return snaps, nil
}

func (s *SQLiteStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(ctx, &sqliteTx{ctx: ctx, tx: tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type sqliteTx struct {
	ctx context.Context
	tx  *sqlx.Tx
}

func (t *sqliteTx) Get(collection, id string) (Snapshot, error) {
	return getRow(t.ctx, t.tx, collection, id)
}

func (t *sqliteTx) Set(collection, id string, v interface{}) error {
	doc, err := toDocument(v)
	if err != nil {
		return err
	}
	return putRow(t.ctx, t.tx, collection, id, doc)
}

func (t *sqliteTx) Update(collection, id string, fields map[string]interface{}) error {
	snap, err := getRow(t.ctx, t.tx, collection, id)
	if err != nil {
		return err
	}
	doc, err := fromBytes(snap.(*jsonSnapshot).data)
	if err != nil {
		return err
	}
	if err := applyFields(doc, fields); err != nil {
		return err
	}
	return putRow(t.ctx, t.tx, collection, id, doc)
}

func (t *sqliteTx) Delete(collection, id string) error {
	query, args, err := sq.Delete("documents").
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(t.ctx, query, args...)
	return err
}

type queryer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func getRow(ctx context.Context, q queryer, collection, id string) (Snapshot, error) {
	query, args, err := sq.Select("id", "data").
		From("documents").
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var row documentRow
	if err := q.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &jsonSnapshot{id: row.ID, data: []byte(row.Data)}, nil
}

func putRow(ctx context.Context, q queryer, collection, id string, doc map[string]interface{}) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	query, args, err := sq.Insert("documents").
		Columns("collection", "id", "data").
		Values(collection, id, string(raw)).
		Suffix("ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP").
		ToSql()
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, query, args...)
	return err
}
