package sqlstore

import (
	"database/sql"

	"context"

	"go.opentelemetry.io/otel/codes"

	"github.com/surveyflow/engine/internal/surveyerr"
	"github.com/surveyflow/engine/internal/surveytypes"
)

const respondentColumns = `id, survey_id, token, active, logins, created_at, first_access_at, finalized_at`

func scanRespondent(row interface{ Scan(...any) error }) (*surveytypes.Respondent, error) {
	var r surveytypes.Respondent
	if err := row.Scan(&r.ID, &r.SurveyID, &r.Token, &r.Active, &r.Logins, &r.CreatedAt, &r.FirstAccessAt, &r.FinalizedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// ByID implements respondentstore.Store.
func (s *Store) ByID(ctx context.Context, id int64) (*surveytypes.Respondent, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.ByID.respondent")
	defer span.End()

	row := s.exec(ctx).QueryRowContext(ctx,
		`SELECT `+respondentColumns+` FROM respondents WHERE id = ? LIMIT 1`, id)
	r, err := scanRespondent(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, surveyerr.Wrap("respondentstore.ByID", err)
	}
	return r, nil
}

// MarkFinalized implements respondentstore.Store. Leaves finalized_at
// untouched on a respondent that is already finalized (spec Scenario 6).
func (s *Store) MarkFinalized(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "sqlstore.MarkFinalized")
	defer span.End()

	_, err := s.exec(ctx).ExecContext(ctx, `
		UPDATE respondents
		SET active = FALSE, finalized_at = COALESCE(finalized_at, ?)
		WHERE id = ?`,
		nowFunc(), id)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return surveyerr.Wrap("respondentstore.MarkFinalized", err)
	}
	return nil
}
