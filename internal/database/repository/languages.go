package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// LanguageRepo handles languages and their compile steps.
type LanguageRepo struct {
	db *sql.DB
}

func NewLanguageRepo(db *sql.DB) *LanguageRepo { return &LanguageRepo{db: db} }

// StepID derives a stable id for the step at position within a language.
func StepID(languageID string, position int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("step:%s:%d", languageID, position))).String()
}

// Upsert writes the language row and replaces its compile steps.
func (r *LanguageRepo) Upsert(ctx context.Context, l Language) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := upsertLanguage(ctx, tx, l); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// UpsertTx is Upsert inside a caller-owned transaction.
func (r *LanguageRepo) UpsertTx(ctx context.Context, tx *sql.Tx, l Language) error {
	return upsertLanguage(ctx, tx, l)
}

func upsertLanguage(ctx context.Context, tx *sql.Tx, l Language) error {
	_, err := tx.ExecContext(ctx, `
	INSERT INTO languages(id, display_name, source_filename, source_text, disassembly, hex_view,
	 bits_explanation, deep_dive, sort_order, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	ON CONFLICT(id) DO UPDATE SET
	 display_name=excluded.display_name,
	 source_filename=excluded.source_filename,
	 source_text=excluded.source_text,
	 disassembly=excluded.disassembly,
	 hex_view=excluded.hex_view,
	 bits_explanation=excluded.bits_explanation,
	 deep_dive=excluded.deep_dive,
	 sort_order=excluded.sort_order,
	 updated_at=CURRENT_TIMESTAMP;
	`, l.ID, l.DisplayName, l.SourceFilename, l.SourceText, l.Disassembly, l.HexView,
		l.BitsExplanation, l.DeepDive, l.SortOrder)
	if err != nil {
		return fmt.Errorf("upsert language %s: %w", l.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM compile_steps WHERE language_id = ?`, l.ID); err != nil {
		return fmt.Errorf("clear steps %s: %w", l.ID, err)
	}
	for pos, s := range l.Steps {
		id := s.ID
		if id == "" {
			id = StepID(l.ID, pos)
		}
		if _, err := tx.ExecContext(ctx, `
		INSERT INTO compile_steps(id, language_id, position, step, command, explanation)
		VALUES (?, ?, ?, ?, ?, ?)`, id, l.ID, pos, s.Step, s.Command, s.Explanation); err != nil {
			return fmt.Errorf("insert step %d for %s: %w", pos, l.ID, err)
		}
	}
	return nil
}

// Get returns the language with its steps, or nil when it does not exist.
func (r *LanguageRepo) Get(ctx context.Context, id string) (*Language, error) {
	row := r.db.QueryRowContext(ctx, `
	SELECT id, display_name, source_filename, source_text, disassembly, hex_view,
	 bits_explanation, deep_dive, sort_order, created_at, updated_at
	FROM languages WHERE id = ?`, id)
	var l Language
	if err := row.Scan(&l.ID, &l.DisplayName, &l.SourceFilename, &l.SourceText, &l.Disassembly,
		&l.HexView, &l.BitsExplanation, &l.DeepDive, &l.SortOrder, &l.CreatedAt, &l.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	steps, err := r.steps(ctx, id)
	if err != nil {
		return nil, err
	}
	l.Steps = steps
	return &l, nil
}

func (r *LanguageRepo) steps(ctx context.Context, languageID string) ([]CompileStep, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT id, language_id, position, step, command, explanation
	FROM compile_steps WHERE language_id = ? ORDER BY position`, languageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []CompileStep{}
	for rows.Next() {
		var s CompileStep
		if err := rows.Scan(&s.ID, &s.LanguageID, &s.Position, &s.Step, &s.Command, &s.Explanation); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// List returns every language ordered for display.
func (r *LanguageRepo) List(ctx context.Context) ([]LanguageSummary, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, display_name, sort_order FROM languages ORDER BY sort_order, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LanguageSummary
	for rows.Next() {
		var s LanguageSummary
		if err := rows.Scan(&s.ID, &s.DisplayName, &s.SortOrder); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Delete removes a language; its steps go with it.
func (r *LanguageRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM languages WHERE id = ?`, id)
	return err
}
