package sqlstore

import "context"

// answers, dependents, and respondents are the only tables this engine
// owns — the survey definition itself lives in internal/defstore's
// immutable snapshot, never in SQL (spec's Lifecycle paragraph).
// Respondent rows are created by the external token/registration
// collaborator; this engine only reads and finalizes them.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS respondents (
	id               BIGINT AUTO_INCREMENT PRIMARY KEY,
	survey_id        BIGINT NOT NULL,
	token            VARCHAR(191) NOT NULL,
	active           BOOLEAN NOT NULL DEFAULT TRUE,
	logins           INT NOT NULL DEFAULT 0,
	created_at       DATETIME NOT NULL,
	first_access_at  DATETIME NULL,
	finalized_at     DATETIME NULL,
	UNIQUE KEY idx_respondents_token (token)
);

CREATE TABLE IF NOT EXISTS answers (
	id                  BIGINT AUTO_INCREMENT PRIMARY KEY,
	respondent_id       BIGINT NOT NULL,
	survey_id           BIGINT NOT NULL,
	step_id             BIGINT NOT NULL,
	step_instance       SMALLINT UNSIGNED NOT NULL,
	section_id          BIGINT NOT NULL,
	section_instance    SMALLINT UNSIGNED NOT NULL,
	question_instance   SMALLINT UNSIGNED NOT NULL,
	section_question_id BIGINT NULL,
	question_id         BIGINT NULL,
	display_key         VARCHAR(34) NOT NULL,
	display_text        TEXT NOT NULL,
	text_value          TEXT NULL,
	deleted             BOOLEAN NOT NULL DEFAULT FALSE,
	created_at          DATETIME NOT NULL,
	saved_at            DATETIME NOT NULL,
	KEY idx_answers_respondent_key (respondent_id, display_key),
	KEY idx_answers_respondent_deleted (respondent_id, deleted)
);

CREATE TABLE IF NOT EXISTS dependents (
	id              BIGINT AUTO_INCREMENT PRIMARY KEY,
	respondent_id   BIGINT NOT NULL,
	upstream_id     BIGINT NOT NULL,
	downstream_id   BIGINT NOT NULL,
	relationship_id BIGINT NOT NULL,
	deleted         BOOLEAN NOT NULL DEFAULT FALSE,
	KEY idx_dependents_upstream (respondent_id, upstream_id),
	KEY idx_dependents_downstream (respondent_id, downstream_id)
);
`

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaDDL)
	return err
}
