package sqlstore

import (
	"context"
	"database/sql"

	"go.opentelemetry.io/otel/codes"

	"github.com/surveyflow/engine/internal/surveyerr"
	"github.com/surveyflow/engine/internal/surveytypes"
)

const dependentColumns = `id, respondent_id, upstream_id, downstream_id, relationship_id, deleted`

func scanDependent(row interface{ Scan(...any) error }) (*surveytypes.Dependent, error) {
	var d surveytypes.Dependent
	if err := row.Scan(&d.ID, &d.RespondentID, &d.UpstreamID, &d.DownstreamID, &d.RelationshipID, &d.Deleted); err != nil {
		return nil, err
	}
	return &d, nil
}

// ByUpstream implements dependentstore.Store.
func (s *Store) ByUpstream(ctx context.Context, respondentID, upstreamID int64) ([]*surveytypes.Dependent, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.ByUpstream")
	defer span.End()

	rows, err := s.exec(ctx).QueryContext(ctx,
		`SELECT `+dependentColumns+` FROM dependents WHERE respondent_id = ? AND upstream_id = ? AND deleted = FALSE`,
		respondentID, upstreamID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, surveyerr.Wrap("dependentstore.ByUpstream", err)
	}
	return collectDependents(rows)
}

// ByDownstream implements dependentstore.Store.
func (s *Store) ByDownstream(ctx context.Context, respondentID, downstreamID int64) ([]*surveytypes.Dependent, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.ByDownstream")
	defer span.End()

	rows, err := s.exec(ctx).QueryContext(ctx,
		`SELECT `+dependentColumns+` FROM dependents WHERE respondent_id = ? AND downstream_id = ? AND deleted = FALSE`,
		respondentID, downstreamID)
	if err != nil {
		return nil, surveyerr.Wrap("dependentstore.ByDownstream", err)
	}
	return collectDependents(rows)
}

// FindUnique implements dependentstore.Store.
func (s *Store) FindUnique(ctx context.Context, respondentID, upstreamID, downstreamID, relationshipID int64) (*surveytypes.Dependent, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.FindUnique")
	defer span.End()

	row := s.exec(ctx).QueryRowContext(ctx, `
		SELECT `+dependentColumns+` FROM dependents
		WHERE respondent_id = ? AND upstream_id = ? AND downstream_id = ? AND relationship_id = ?
		LIMIT 1`,
		respondentID, upstreamID, downstreamID, relationshipID)
	d, err := scanDependent(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, surveyerr.Wrap("dependentstore.FindUnique", err)
	}
	return d, nil
}

// Insert implements dependentstore.Store.
func (s *Store) Insert(ctx context.Context, d *surveytypes.Dependent) (int64, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.Insert.dependent")
	defer span.End()

	res, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO dependents (respondent_id, upstream_id, downstream_id, relationship_id, deleted)
		VALUES (?, ?, ?, ?, ?)`,
		d.RespondentID, d.UpstreamID, d.DownstreamID, d.RelationshipID, d.Deleted)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, surveyerr.Wrap("dependentstore.Insert", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, surveyerr.Wrap("dependentstore.Insert", err)
	}
	d.ID = id
	return id, nil
}

// SoftDelete implements dependentstore.Store.
func (s *Store) SoftDelete(ctx context.Context, respondentID, dependentID int64) error {
	ctx, span := tracer.Start(ctx, "sqlstore.SoftDelete.dependent")
	defer span.End()

	_, err := s.exec(ctx).ExecContext(ctx,
		`UPDATE dependents SET deleted = TRUE WHERE id = ? AND respondent_id = ?`,
		dependentID, respondentID)
	if err != nil {
		return surveyerr.Wrap("dependentstore.SoftDelete", err)
	}
	return nil
}

// Revive implements dependentstore.Store.
func (s *Store) Revive(ctx context.Context, respondentID, dependentID int64) error {
	ctx, span := tracer.Start(ctx, "sqlstore.Revive.dependent")
	defer span.End()

	_, err := s.exec(ctx).ExecContext(ctx,
		`UPDATE dependents SET deleted = FALSE WHERE id = ? AND respondent_id = ?`,
		dependentID, respondentID)
	if err != nil {
		return surveyerr.Wrap("dependentstore.Revive", err)
	}
	return nil
}

// HardDeleteWhereDeleted implements dependentstore.Store.
func (s *Store) HardDeleteWhereDeleted(ctx context.Context, respondentID int64) (int, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.HardDeleteWhereDeleted.dependent")
	defer span.End()

	res, err := s.exec(ctx).ExecContext(ctx,
		`DELETE FROM dependents WHERE respondent_id = ? AND deleted = TRUE`, respondentID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, surveyerr.Wrap("dependentstore.HardDeleteWhereDeleted", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, surveyerr.Wrap("dependentstore.HardDeleteWhereDeleted", err)
	}
	return int(n), nil
}

func collectDependents(rows *sql.Rows) ([]*surveytypes.Dependent, error) {
	defer func() { _ = rows.Close() }()
	var out []*surveytypes.Dependent
	for rows.Next() {
		d, err := scanDependent(rows)
		if err != nil {
			return nil, surveyerr.Wrap("dependentstore.scan", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, surveyerr.Wrap("dependentstore.rows", err)
	}
	return out, nil
}
