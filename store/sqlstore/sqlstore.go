// Package sqlstore is the SQL backend for the template store. One set of
// queries serves SQLite and PostgreSQL; placeholders are rebound per dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/promptvars/db"
	"github.com/teranos/promptvars/errors"
	"github.com/teranos/promptvars/store"
	"github.com/teranos/promptvars/types"
)

const templateColumns = `id, name, template, variables, created_at, updated_at`

const versionColumns = `version_id, version_number, template_id, name, template, variables, created_at, updated_at, snapshot_at`

// Backend stores templates in the templates and template_versions tables
type Backend struct {
	db      *sql.DB
	dialect db.Dialect
	log     *zap.SugaredLogger
}

// NewBackend uses an already migrated connection
func NewBackend(conn *sql.DB, dialect db.Dialect, log *zap.SugaredLogger) *Backend {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Backend{db: conn, dialect: dialect, log: log}
}

// New returns a Store over conn
func New(conn *sql.DB, dialect db.Dialect, log *zap.SugaredLogger, opts ...store.Option) *store.Versioned {
	return store.NewVersioned(NewBackend(conn, dialect, log), opts...)
}

// closed marks driver errors from a closed connection with db.ErrDatabaseClosed
func closed(err error) error {
	if db.IsDatabaseClosed(err) && !errors.Is(err, db.ErrDatabaseClosed) {
		return errors.Mark(err, db.ErrDatabaseClosed)
	}
	return err
}

func (b *Backend) q(query string) string {
	return b.dialect.Rebind(query)
}

func (b *Backend) GetTemplate(ctx context.Context, id string) (*types.Template, bool, error) {
	row := b.db.QueryRowContext(ctx, b.q(`SELECT `+templateColumns+` FROM templates WHERE id = ?`), id)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(closed(err), "failed to query template %s", id)
	}
	return t, true, nil
}

func (b *Backend) PutTemplate(ctx context.Context, t *types.Template) error {
	vars, err := encodeVariables(t.Variables)
	if err != nil {
		return err
	}

	query := `INSERT INTO templates (` + templateColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			template = excluded.template,
			variables = excluded.variables,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`

	_, err = b.db.ExecContext(ctx, b.q(query),
		t.ID, t.Name, t.Template, vars, formatTime(t.CreatedAt), formatTimePtr(t.UpdatedAt))
	if err != nil {
		return errors.Wrapf(closed(err), "failed to upsert template %s", t.ID)
	}
	return nil
}

// DeleteTemplate removes the versions and the record in one transaction
func (b *Backend) DeleteTemplate(ctx context.Context, id string) (bool, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errors.Wrap(closed(err), "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, b.q(`DELETE FROM template_versions WHERE template_id = ?`), id); err != nil {
		return false, errors.Wrapf(closed(err), "failed to delete versions of %s", id)
	}

	res, err := tx.ExecContext(ctx, b.q(`DELETE FROM templates WHERE id = ?`), id)
	if err != nil {
		return false, errors.Wrapf(closed(err), "failed to delete template %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(closed(err), "failed to read affected rows")
	}

	if err := tx.Commit(); err != nil {
		return false, errors.Wrap(closed(err), "failed to commit delete")
	}

	b.log.Debugw("Deleted template", "template_id", id, "deleted", n > 0)
	return n > 0, nil
}

func (b *Backend) ListTemplates(ctx context.Context) ([]*types.Template, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT `+templateColumns+` FROM templates ORDER BY created_at, id`)
	if err != nil {
		return nil, errors.Wrap(closed(err), "failed to list templates")
	}
	defer rows.Close()

	var out []*types.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, errors.Wrap(closed(err), "failed to scan template")
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(closed(err), "failed to iterate templates")
	}
	return out, nil
}

func (b *Backend) MaxVersion(ctx context.Context, templateID string) (int, error) {
	var max int
	err := b.db.QueryRowContext(ctx,
		b.q(`SELECT COALESCE(MAX(version_number), 0) FROM template_versions WHERE template_id = ?`),
		templateID,
	).Scan(&max)
	if err != nil {
		return 0, errors.Wrapf(closed(err), "failed to read latest version of %s", templateID)
	}
	return max, nil
}

func (b *Backend) AppendVersion(ctx context.Context, v *types.Version) error {
	vars, err := encodeVariables(v.Variables)
	if err != nil {
		return err
	}

	_, err = b.db.ExecContext(ctx,
		b.q(`INSERT INTO template_versions (`+versionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		v.VersionID, v.VersionNumber, v.TemplateID, v.Name, v.Template, vars,
		formatTime(v.CreatedAt), formatTimePtr(v.UpdatedAt), formatTime(v.SnapshotAt),
	)
	if err != nil {
		return errors.Wrapf(closed(err), "failed to insert version %d of %s", v.VersionNumber, v.TemplateID)
	}

	b.log.Debugw("Appended template version",
		"template_id", v.TemplateID,
		"version_number", v.VersionNumber,
	)
	return nil
}

func (b *Backend) GetVersion(ctx context.Context, templateID, versionID string) (*types.Version, bool, error) {
	row := b.db.QueryRowContext(ctx,
		b.q(`SELECT `+versionColumns+` FROM template_versions WHERE template_id = ? AND version_id = ?`),
		templateID, versionID,
	)
	v, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(closed(err), "failed to query version %s", versionID)
	}
	return v, true, nil
}

func (b *Backend) ListVersions(ctx context.Context, templateID string) ([]*types.Version, error) {
	rows, err := b.db.QueryContext(ctx,
		b.q(`SELECT `+versionColumns+` FROM template_versions WHERE template_id = ? ORDER BY version_number DESC`),
		templateID,
	)
	if err != nil {
		return nil, errors.Wrapf(closed(err), "failed to list versions of %s", templateID)
	}
	defer rows.Close()

	var out []*types.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, errors.Wrap(closed(err), "failed to scan version")
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(closed(err), "failed to iterate versions")
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTemplate(row scanner) (*types.Template, error) {
	var (
		t         types.Template
		vars      string
		createdAt string
		updatedAt sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Name, &t.Template, &vars, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if t.Variables, err = decodeVariables(vars); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTimePtr(updatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanVersion(row scanner) (*types.Version, error) {
	var (
		v          types.Version
		vars       string
		createdAt  string
		updatedAt  sql.NullString
		snapshotAt string
	)
	err := row.Scan(&v.VersionID, &v.VersionNumber, &v.TemplateID, &v.Name, &v.Template,
		&vars, &createdAt, &updatedAt, &snapshotAt)
	if err != nil {
		return nil, err
	}

	if v.Variables, err = decodeVariables(vars); err != nil {
		return nil, err
	}
	if v.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if v.UpdatedAt, err = parseTimePtr(updatedAt); err != nil {
		return nil, err
	}
	if v.SnapshotAt, err = parseTime(snapshotAt); err != nil {
		return nil, err
	}
	return &v, nil
}

func encodeVariables(vars []types.Variable) (string, error) {
	if vars == nil {
		vars = []types.Variable{}
	}
	data, err := json.Marshal(vars)
	if err != nil {
		return "", errors.Wrap(closed(err), "failed to encode variables")
	}
	return string(data), nil
}

func decodeVariables(data string) ([]types.Variable, error) {
	vars := []types.Variable{}
	if data == "" {
		return vars, nil
	}
	if err := json.Unmarshal([]byte(data), &vars); err != nil {
		return nil, errors.Wrap(closed(err), "failed to decode variables")
	}
	return vars, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(closed(err), "invalid timestamp %q", s)
	}
	return t, nil
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

var _ store.Backend = (*Backend)(nil)
