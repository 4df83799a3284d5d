package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/maxter9595/O2RusQuizBot/quizbot/database/models"
)

type StandingsRepository interface {
	StandingsRow(ctx context.Context, participantID string) (*models.StandingsRow, error)
	UpsertStandings(ctx context.Context, row *models.StandingsRow) error
	AllStandings(ctx context.Context) ([]*models.StandingsRow, error)
	SavePlaces(ctx context.Context, rows []*models.StandingsRow) error
}

type standingsRepository struct {
	db *bun.DB
}

func NewStandingsRepository(db *bun.DB) StandingsRepository {
	return &standingsRepository{db: db}
}

func (r *standingsRepository) StandingsRow(ctx context.Context, participantID string) (*models.StandingsRow, error) {
	row := new(models.StandingsRow)
	err := r.db.NewSelect().
		Model(row).
		Where("participant_id = ?", participantID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row, nil
}

func (r *standingsRepository) UpsertStandings(ctx context.Context, row *models.StandingsRow) error {
	row.UpdatedAt = time.Now()
	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (participant_id) DO UPDATE").
		Set("full_name = EXCLUDED.full_name").
		Set("quiz_points = EXCLUDED.quiz_points").
		Set("tournament_points = EXCLUDED.tournament_points").
		Set("total_points = EXCLUDED.total_points").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert standings row: %w", err)
	}
	return nil
}

func (r *standingsRepository) AllStandings(ctx context.Context) ([]*models.StandingsRow, error) {
	var rows []*models.StandingsRow
	err := r.db.NewSelect().
		Model(&rows).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SavePlaces bulk-persists the three place columns after a re-rank pass.
func (r *standingsRepository) SavePlaces(ctx context.Context, rows []*models.StandingsRow) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, row := range rows {
			if _, err := tx.NewUpdate().
				Model((*models.StandingsRow)(nil)).
				Set("quiz_place = ?", row.QuizPlace).
				Set("tournament_place = ?", row.TournamentPlace).
				Set("final_place = ?", row.FinalPlace).
				Set("updated_at = ?", time.Now()).
				Where("participant_id = ?", row.ParticipantID).
				Exec(ctx); err != nil {
				return fmt.Errorf("failed to save places for %s: %w", row.ParticipantID, err)
			}
		}
		return nil
	})
}
