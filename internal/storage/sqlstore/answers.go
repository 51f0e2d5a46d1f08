package sqlstore

import (
	"context"
	"database/sql"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/surveyflow/engine/internal/displaykey"
	"github.com/surveyflow/engine/internal/surveyerr"
	"github.com/surveyflow/engine/internal/surveytypes"
)

const answerColumns = `id, respondent_id, survey_id, step_id, step_instance, section_id,
	section_instance, question_instance, section_question_id, question_id,
	display_key, display_text, text_value, deleted, created_at, saved_at`

func scanAnswer(row interface{ Scan(...any) error }) (*surveytypes.Answer, error) {
	var a surveytypes.Answer
	var key string
	if err := row.Scan(
		&a.ID, &a.RespondentID, &a.SurveyID, &a.StepID, &a.StepInstance, &a.SectionID,
		&a.SectionInstance, &a.QuestionInstance, &a.SectionQuestionID, &a.QuestionID,
		&key, &a.DisplayText, &a.TextValue, &a.Deleted, &a.CreatedAt, &a.SavedAt,
	); err != nil {
		return nil, err
	}
	parsed, err := displaykey.Parse(key)
	if err != nil {
		return nil, err
	}
	a.DisplayKey = parsed
	return &a, nil
}

// ByID implements answerstore.Store.
func (s *Store) ByID(ctx context.Context, respondentID, answerID int64) (*surveytypes.Answer, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.ByID")
	defer span.End()

	row := s.exec(ctx).QueryRowContext(ctx,
		`SELECT `+answerColumns+` FROM answers WHERE respondent_id = ? AND id = ?`,
		respondentID, answerID)
	a, err := scanAnswer(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, surveyerr.Wrap("answerstore.ByID", err)
	}
	return a, nil
}

// ByDisplayKey implements answerstore.Store.
func (s *Store) ByDisplayKey(ctx context.Context, respondentID int64, key string, includeDeleted bool) (*surveytypes.Answer, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.ByDisplayKey")
	defer span.End()

	query := `SELECT ` + answerColumns + ` FROM answers WHERE respondent_id = ? AND display_key = ?`
	args := []any{respondentID, key}
	if !includeDeleted {
		query += ` AND deleted = FALSE`
	}
	row := s.exec(ctx).QueryRowContext(ctx, query, args...)
	a, err := scanAnswer(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, surveyerr.Wrap("answerstore.ByDisplayKey", err)
	}
	return a, nil
}

// BySection implements answerstore.Store.
func (s *Store) BySection(ctx context.Context, respondentID, surveyID, stepID int64, stepInstance uint16, sectionID int64, sectionInstance uint16) ([]*surveytypes.Answer, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.BySection")
	defer span.End()
	span.SetAttributes(attribute.Int64("survey.section_id", sectionID))

	rows, err := s.exec(ctx).QueryContext(ctx, `
		SELECT `+answerColumns+` FROM answers
		WHERE respondent_id = ? AND survey_id = ? AND step_id = ? AND step_instance = ?
		  AND section_id = ? AND section_instance = ? AND deleted = FALSE
		ORDER BY display_key`,
		respondentID, surveyID, stepID, stepInstance, sectionID, sectionInstance)
	if err != nil {
		return nil, surveyerr.Wrap("answerstore.BySection", err)
	}
	return collectAnswers(rows)
}

// ByLikePattern implements answerstore.Store.
func (s *Store) ByLikePattern(ctx context.Context, respondentID int64, likePattern string) ([]*surveytypes.Answer, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.ByLikePattern")
	defer span.End()

	rows, err := s.exec(ctx).QueryContext(ctx, `
		SELECT `+answerColumns+` FROM answers
		WHERE respondent_id = ? AND display_key LIKE ? AND deleted = FALSE
		ORDER BY display_key`,
		respondentID, likePattern)
	if err != nil {
		return nil, surveyerr.Wrap("answerstore.ByLikePattern", err)
	}
	return collectAnswers(rows)
}

// BySectionInstances implements answerstore.Store.
func (s *Store) BySectionInstances(ctx context.Context, respondentID int64, sectionQueryPattern string) ([]*surveytypes.Answer, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.BySectionInstances")
	defer span.End()

	rows, err := s.exec(ctx).QueryContext(ctx, `
		SELECT `+answerColumns+` FROM answers
		WHERE respondent_id = ? AND display_key LIKE ? AND question_id IS NULL AND deleted = FALSE
		ORDER BY display_key`,
		respondentID, sectionQueryPattern)
	if err != nil {
		return nil, surveyerr.Wrap("answerstore.BySectionInstances", err)
	}
	return collectAnswers(rows)
}

// DownstreamAnswersForRelationship implements answerstore.Store. The
// relationship's downstream target is resolved by the caller (propagate
// already holds the defstore snapshot); here we just join dependents to
// answers for the given relationship.
func (s *Store) DownstreamAnswersForRelationship(ctx context.Context, respondentID, relationshipID int64) ([]*surveytypes.Answer, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.DownstreamAnswersForRelationship")
	defer span.End()

	rows, err := s.exec(ctx).QueryContext(ctx, `
		SELECT `+prefixedAnswerColumns("a")+` FROM answers a
		JOIN dependents d ON d.downstream_id = a.id
		WHERE d.respondent_id = ? AND d.relationship_id = ? AND d.deleted = FALSE AND a.deleted = FALSE
		ORDER BY a.display_key`,
		respondentID, relationshipID)
	if err != nil {
		return nil, surveyerr.Wrap("answerstore.DownstreamAnswersForRelationship", err)
	}
	return collectAnswers(rows)
}

// UpstreamAnswerForRelationship implements answerstore.Store. A section can
// hold more than one question, so the upstream answer must be pinned down
// by its own SectionsQuestion id — filtering on step/section alone (with no
// question filter) would return whichever row in that section instance
// happened to match first.
func (s *Store) UpstreamAnswerForRelationship(ctx context.Context, sectionQuestionID, respondentID int64, stepInstance, sectionInstance uint16) (*surveytypes.Answer, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.UpstreamAnswerForRelationship")
	defer span.End()

	row := s.exec(ctx).QueryRowContext(ctx, `
		SELECT `+answerColumns+` FROM answers
		WHERE respondent_id = ? AND section_question_id = ?
		  AND step_instance = ? AND section_instance = ? AND deleted = FALSE
		ORDER BY id DESC
		LIMIT 1`,
		respondentID, sectionQuestionID, stepInstance, sectionInstance)
	a, err := scanAnswer(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, surveyerr.Wrap("answerstore.UpstreamAnswerForRelationship", err)
	}
	return a, nil
}

// Insert implements answerstore.Store.
func (s *Store) Insert(ctx context.Context, a *surveytypes.Answer) (int64, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.Insert")
	defer span.End()

	now := nowFunc().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.SavedAt = now

	res, err := s.exec(ctx).ExecContext(ctx, `
		INSERT INTO answers (
			respondent_id, survey_id, step_id, step_instance, section_id, section_instance,
			question_instance, section_question_id, question_id, display_key, display_text,
			text_value, deleted, created_at, saved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.RespondentID, a.SurveyID, a.StepID, a.StepInstance, a.SectionID, a.SectionInstance,
		a.QuestionInstance, a.SectionQuestionID, a.QuestionID, a.DisplayKey.String(), a.DisplayText,
		a.TextValue, a.Deleted, a.CreatedAt, a.SavedAt)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, surveyerr.Wrap("answerstore.Insert", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, surveyerr.Wrap("answerstore.Insert", err)
	}
	a.ID = id
	return id, nil
}

// Update implements answerstore.Store.
func (s *Store) Update(ctx context.Context, a *surveytypes.Answer) error {
	ctx, span := tracer.Start(ctx, "sqlstore.Update")
	defer span.End()

	a.SavedAt = nowFunc().UTC()
	_, err := s.exec(ctx).ExecContext(ctx, `
		UPDATE answers SET display_text = ?, text_value = ?, saved_at = ?, deleted = ?
		WHERE id = ? AND respondent_id = ?`,
		a.DisplayText, a.TextValue, a.SavedAt, a.Deleted, a.ID, a.RespondentID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return surveyerr.Wrap("answerstore.Update", err)
	}
	return nil
}

// SoftDelete implements answerstore.Store.
func (s *Store) SoftDelete(ctx context.Context, respondentID, answerID int64) error {
	ctx, span := tracer.Start(ctx, "sqlstore.SoftDelete")
	defer span.End()

	_, err := s.exec(ctx).ExecContext(ctx,
		`UPDATE answers SET deleted = TRUE, saved_at = ? WHERE id = ? AND respondent_id = ?`,
		nowFunc().UTC(), answerID, respondentID)
	if err != nil {
		return surveyerr.Wrap("answerstore.SoftDelete", err)
	}
	return nil
}

// HardDeleteWhereDeleted implements answerstore.Store.
func (s *Store) HardDeleteWhereDeleted(ctx context.Context, respondentID int64) (int, error) {
	ctx, span := tracer.Start(ctx, "sqlstore.HardDeleteWhereDeleted")
	defer span.End()

	res, err := s.exec(ctx).ExecContext(ctx,
		`DELETE FROM answers WHERE respondent_id = ? AND deleted = TRUE`, respondentID)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, surveyerr.Wrap("answerstore.HardDeleteWhereDeleted", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, surveyerr.Wrap("answerstore.HardDeleteWhereDeleted", err)
	}
	return int(n), nil
}

func prefixedAnswerColumns(alias string) string {
	cols := []string{
		"id", "respondent_id", "survey_id", "step_id", "step_instance", "section_id",
		"section_instance", "question_instance", "section_question_id", "question_id",
		"display_key", "display_text", "text_value", "deleted", "created_at", "saved_at",
	}
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += alias + "." + c
	}
	return out
}

func collectAnswers(rows *sql.Rows) ([]*surveytypes.Answer, error) {
	defer func() { _ = rows.Close() }()
	var out []*surveytypes.Answer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, surveyerr.Wrap("answerstore.scan", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, surveyerr.Wrap("answerstore.rows", err)
	}
	return out, nil
}
