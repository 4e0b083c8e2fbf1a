package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/releasepost/pkg/domain/interfaces"
	"github.com/m-mizutani/releasepost/pkg/domain/model"
	"github.com/m-mizutani/releasepost/pkg/domain/types"

	_ "modernc.org/sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS records (
  id          TEXT PRIMARY KEY,
  title       TEXT NOT NULL UNIQUE,
  title_html  TEXT NOT NULL,
  body        TEXT NOT NULL,
  author_id   TEXT NOT NULL,
  status      TEXT NOT NULL,
  post_type   TEXT NOT NULL,
  release_id  INTEGER NOT NULL DEFAULT 0,
  repository  TEXT NOT NULL DEFAULT '',
  repository_url TEXT NOT NULL DEFAULT '',
  delivery_id TEXT NOT NULL DEFAULT '',
  created_at  INTEGER NOT NULL
);`,
	`CREATE TABLE IF NOT EXISTS record_meta (
  record_id TEXT NOT NULL REFERENCES records(id),
  key       TEXT NOT NULL,
  value     TEXT NOT NULL,
  PRIMARY KEY (record_id, key)
);`,
	`CREATE TABLE IF NOT EXISTS record_tags (
  record_id TEXT NOT NULL REFERENCES records(id),
  tag       TEXT NOT NULL,
  PRIMARY KEY (record_id, tag)
);`,
	`CREATE INDEX IF NOT EXISTS records_post_type_created_at_idx ON records(post_type, created_at);`,
	`CREATE INDEX IF NOT EXISTS records_release_id_idx ON records(release_id);`,
	`CREATE INDEX IF NOT EXISTS record_tags_tag_idx ON record_tags(tag);`,
}

const recordColumns = `id, title, title_html, body, author_id, status, post_type, release_id, repository, repository_url, delivery_id, created_at`

// addedColumns lists columns introduced after the first schema, added to existing databases on Open
var addedColumns = map[string]string{
	"repository_url": `ALTER TABLE records ADD COLUMN repository_url TEXT NOT NULL DEFAULT ''`,
}

// Repository is a RecordRepository backed by a local SQLite file
type Repository struct {
	db *sql.DB
}

var _ interfaces.RecordRepository = (*Repository)(nil)

// Open opens (and creates if needed) the SQLite database at path and ensures the tables exist.
func Open(ctx context.Context, path string) (*Repository, error) {
	if path == "" {
		return nil, goerr.New("sqlite path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create sqlite directory", goerr.V("path", path))
	}

	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open sqlite", goerr.V("path", path))
	}
	// Writers serialize on one connection; UNIQUE(title) still guards concurrent processes.
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, goerr.Wrap(err, "failed to bootstrap sqlite", goerr.V("path", path))
		}
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to migrate sqlite", goerr.V("path", path))
	}

	return &Repository{db: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, `SELECT name FROM pragma_table_info('records')`)
	if err != nil {
		return goerr.Wrap(err, "failed to read records columns")
	}
	existing := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return goerr.Wrap(err, "failed to scan column name")
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return goerr.Wrap(err, "failed to iterate records columns")
	}
	_ = rows.Close()

	for column, stmt := range addedColumns {
		if existing[column] {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return goerr.Wrap(err, "failed to add column", goerr.V("column", column))
		}
	}
	return nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) FindRecordByTitle(ctx context.Context, title string) (*model.ContentRecord, error) {
	return r.findOne(ctx, `SELECT `+recordColumns+` FROM records WHERE title = ?`, title)
}

func (r *Repository) FindRecordByReleaseID(ctx context.Context, releaseID int64) (*model.ContentRecord, error) {
	return r.findOne(ctx, `SELECT `+recordColumns+` FROM records WHERE release_id = ? ORDER BY created_at LIMIT 1`, releaseID)
}

// CreateRecord inserts the record, its metadata and its tags in one transaction.
func (r *Repository) CreateRecord(ctx context.Context, record *model.ContentRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO records (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(title) DO NOTHING`,
		record.ID.String(),
		record.Title,
		record.TitleHTML,
		record.Body,
		record.AuthorID,
		string(record.Status),
		string(record.PostType),
		record.ReleaseID,
		record.Repository,
		record.RepositoryURL,
		record.DeliveryID,
		record.CreatedAt.UnixNano(),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to insert record", goerr.V("id", record.ID))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to get affected rows")
	}
	if n == 0 {
		return goerr.Wrap(interfaces.ErrRecordExists, "title is taken", goerr.V("title", record.Title))
	}

	if record.Meta != (model.RecordMeta{}) {
		if err := putMeta(ctx, tx, record.ID, record.Meta); err != nil {
			return err
		}
	}
	for _, tag := range record.Tags {
		if err := addTag(ctx, tx, record.ID, tag); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit record", goerr.V("id", record.ID))
	}
	return nil
}

func (r *Repository) PutRecordMeta(ctx context.Context, id types.RecordID, meta model.RecordMeta) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err := requireRecord(ctx, tx, id); err != nil {
		return err
	}
	if err := putMeta(ctx, tx, id, meta); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit record meta", goerr.V("id", id))
	}
	return nil
}

func (r *Repository) AddRecordTag(ctx context.Context, id types.RecordID, tag string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err := requireRecord(ctx, tx, id); err != nil {
		return err
	}
	if err := addTag(ctx, tx, id, tag); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit record tag", goerr.V("id", id))
	}
	return nil
}

func requireRecord(ctx context.Context, tx *sql.Tx, id types.RecordID) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM records WHERE id = ?`, id.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return goerr.New("record not found", goerr.V("id", id))
	}
	if err != nil {
		return goerr.Wrap(err, "failed to look up record", goerr.V("id", id))
	}
	return nil
}

func putMeta(ctx context.Context, tx *sql.Tx, id types.RecordID, meta model.RecordMeta) error {
	for key, value := range meta.Map() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO record_meta (record_id, key, value) VALUES (?, ?, ?)
ON CONFLICT(record_id, key) DO UPDATE SET value = excluded.value`,
			id.String(), key, value,
		); err != nil {
			return goerr.Wrap(err, "failed to put record meta", goerr.V("id", id), goerr.V("key", key))
		}
	}
	return nil
}

func addTag(ctx context.Context, tx *sql.Tx, id types.RecordID, tag string) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO record_tags (record_id, tag) VALUES (?, ?) ON CONFLICT(record_id, tag) DO NOTHING`,
		id.String(), tag,
	); err != nil {
		return goerr.Wrap(err, "failed to add record tag", goerr.V("id", id), goerr.V("tag", tag))
	}
	return nil
}

func (r *Repository) ListRecords(ctx context.Context, query *model.RecordQuery) ([]*model.ContentRecord, error) {
	limit := -1 // unbounded in SQLite
	if query.Limit > 0 {
		limit = query.Limit
	}

	c := query.Classification
	stmt := `SELECT ` + recordColumns + ` FROM records WHERE post_type = ?`
	args := []any{string(c.PostType())}
	if c.Mode == model.ClassificationTag {
		stmt += ` AND EXISTS (SELECT 1 FROM record_tags t WHERE t.record_id = records.id AND t.tag = ?)`
		args = append(args, c.Tag)
	}
	stmt += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	records, err := r.queryRecords(ctx, stmt, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list records", goerr.V("classification", c))
	}
	return records, nil
}

func (r *Repository) findOne(ctx context.Context, stmt string, args ...any) (*model.ContentRecord, error) {
	records, err := r.queryRecords(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records[0], nil
}

// queryRecords reads all rows before loading metadata and tags, as the pool has a single connection.
func (r *Repository) queryRecords(ctx context.Context, stmt string, args ...any) ([]*model.ContentRecord, error) {
	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query records")
	}

	var records []*model.ContentRecord
	for rows.Next() {
		var (
			rec       model.ContentRecord
			id        string
			status    string
			postType  string
			createdAt int64
		)
		if err := rows.Scan(&id, &rec.Title, &rec.TitleHTML, &rec.Body, &rec.AuthorID, &status, &postType,
			&rec.ReleaseID, &rec.Repository, &rec.RepositoryURL, &rec.DeliveryID, &createdAt); err != nil {
			_ = rows.Close()
			return nil, goerr.Wrap(err, "failed to scan record")
		}
		rec.ID = types.RecordID(id)
		rec.Status = types.PostStatus(status)
		rec.PostType = types.PostType(postType)
		rec.CreatedAt = time.Unix(0, createdAt).UTC()
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, goerr.Wrap(err, "failed to iterate records")
	}
	_ = rows.Close()

	for _, rec := range records {
		if err := r.loadMetaAndTags(ctx, rec); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (r *Repository) loadMetaAndTags(ctx context.Context, rec *model.ContentRecord) error {
	metaRows, err := r.db.QueryContext(ctx, `SELECT key, value FROM record_meta WHERE record_id = ?`, rec.ID.String())
	if err != nil {
		return goerr.Wrap(err, "failed to query record meta", goerr.V("id", rec.ID))
	}
	kv := map[string]string{}
	for metaRows.Next() {
		var key, value string
		if err := metaRows.Scan(&key, &value); err != nil {
			_ = metaRows.Close()
			return goerr.Wrap(err, "failed to scan record meta", goerr.V("id", rec.ID))
		}
		kv[key] = value
	}
	if err := metaRows.Err(); err != nil {
		_ = metaRows.Close()
		return goerr.Wrap(err, "failed to iterate record meta", goerr.V("id", rec.ID))
	}
	_ = metaRows.Close()
	rec.Meta = model.RecordMetaFromMap(kv)

	tagRows, err := r.db.QueryContext(ctx, `SELECT tag FROM record_tags WHERE record_id = ? ORDER BY rowid`, rec.ID.String())
	if err != nil {
		return goerr.Wrap(err, "failed to query record tags", goerr.V("id", rec.ID))
	}
	defer func() { _ = tagRows.Close() }()
	for tagRows.Next() {
		var tag string
		if err := tagRows.Scan(&tag); err != nil {
			return goerr.Wrap(err, "failed to scan record tag", goerr.V("id", rec.ID))
		}
		rec.Tags = append(rec.Tags, tag)
	}
	if err := tagRows.Err(); err != nil {
		return goerr.Wrap(err, "failed to iterate record tags", goerr.V("id", rec.ID))
	}
	return nil
}
