package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/maxter9595/O2RusQuizBot/quizbot/database/models"
)

// StandingsStore persists the denormalized standings table.
type StandingsStore interface {
	StandingsRow(ctx context.Context, participantID string) (*models.StandingsRow, error)
	UpsertStandings(ctx context.Context, row *models.StandingsRow) error
	AllStandings(ctx context.Context) ([]*models.StandingsRow, error)
	SavePlaces(ctx context.Context, rows []*models.StandingsRow) error
}

// Projector keeps the standings table in step with the point ledger. Point
// totals are recomputed only for the participants touched by a write; the
// three place columns are then reassigned across the whole table.
type Projector struct {
	engine    *Engine
	questions QuestionSource
	store     StandingsStore
}

func NewProjector(engine *Engine, questions QuestionSource, store StandingsStore) *Projector {
	return &Projector{
		engine:    engine,
		questions: questions,
		store:     store,
	}
}

// EnsureRow creates a zeroed standings row for a freshly registered
// participant so they show up in standings before their first point event.
func (p *Projector) EnsureRow(ctx context.Context, participantID, fullName string) error {
	existing, err := p.store.StandingsRow(ctx, participantID)
	if err != nil {
		return fmt.Errorf("failed to look up standings row: %w", err)
	}
	if existing != nil {
		return nil
	}
	return p.store.UpsertStandings(ctx, &models.StandingsRow{
		ParticipantID: participantID,
		FullName:      fullName,
	})
}

// Refresh recomputes quiz, tournament and total points for the given
// participants, then reassigns places table-wide. Rows whose participant no
// longer exists in the directory keep their last written name.
func (p *Projector) Refresh(ctx context.Context, participants ...*models.Participant) error {
	start := time.Now()

	quizIDs, err := p.questions.QuestionIDsByKind(ctx, models.TourKindQuiz)
	if err != nil {
		return fmt.Errorf("failed to resolve quiz questions: %w", err)
	}
	tournamentIDs, err := p.questions.QuestionIDsByKind(ctx, models.TourKindTournament)
	if err != nil {
		return fmt.Errorf("failed to resolve tournament questions: %w", err)
	}

	for _, participant := range participants {
		quizPoints, err := p.engine.totalsFor(ctx, participant.DiscordID, quizIDs)
		if err != nil {
			return fmt.Errorf("failed to total quiz points for %s: %w", participant.DiscordID, err)
		}
		tournamentPoints, err := p.engine.totalsFor(ctx, participant.DiscordID, tournamentIDs)
		if err != nil {
			return fmt.Errorf("failed to total tournament points for %s: %w", participant.DiscordID, err)
		}

		row := &models.StandingsRow{
			ParticipantID:    participant.DiscordID,
			FullName:         participant.FullName,
			QuizPoints:       quizPoints,
			TournamentPoints: tournamentPoints,
			TotalPoints:      quizPoints + tournamentPoints,
		}
		if err := p.store.UpsertStandings(ctx, row); err != nil {
			return err
		}
	}

	if err := p.reassignPlaces(ctx); err != nil {
		return err
	}

	slog.Debug("Standings refreshed",
		slog.String("type", "sys"),
		slog.Int("participants", len(participants)),
		slog.Duration("took", time.Since(start)))
	return nil
}

// reassignPlaces recomputes all three place columns over the full table.
// Equal point totals share a place; distinct totals within each column get
// consecutive places in column order.
func (p *Projector) reassignPlaces(ctx context.Context) error {
	rows, err := p.store.AllStandings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load standings: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	assign := func(points func(*models.StandingsRow) float64, set func(*models.StandingsRow, int)) {
		order := make([]*models.StandingsRow, len(rows))
		copy(order, rows)
		sort.SliceStable(order, func(i, j int) bool {
			if points(order[i]) != points(order[j]) {
				return points(order[i]) > points(order[j])
			}
			return order[i].FullName < order[j].FullName
		})
		place := 0
		var prev float64
		for i, row := range order {
			if i == 0 || points(row) != prev {
				place++
				prev = points(row)
			}
			set(row, place)
		}
	}

	assign(
		func(r *models.StandingsRow) float64 { return r.QuizPoints },
		func(r *models.StandingsRow, place int) { r.QuizPlace = place },
	)
	assign(
		func(r *models.StandingsRow) float64 { return r.TournamentPoints },
		func(r *models.StandingsRow, place int) { r.TournamentPlace = place },
	)
	assign(
		func(r *models.StandingsRow) float64 { return r.TotalPoints },
		func(r *models.StandingsRow, place int) { r.FinalPlace = place },
	)

	return p.store.SavePlaces(ctx, rows)
}

// StandingsText renders the standings table for chat output, ordered by
// final place then name.
func StandingsText(rows []*models.StandingsRow) string {
	order := make([]*models.StandingsRow, len(rows))
	copy(order, rows)
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].FinalPlace != order[j].FinalPlace {
			return order[i].FinalPlace < order[j].FinalPlace
		}
		return order[i].FullName < order[j].FullName
	})

	lines := make([]string, 0, len(order)+1)
	lines = append(lines, "Общий рейтинг по всем турам:")
	for _, r := range order {
		lines = append(lines, fmt.Sprintf(
			"%d. %s — викторины: %d (место %d), турниры: %d (место %d), всего: %d",
			r.FinalPlace, r.FullName,
			int64(r.QuizPoints), r.QuizPlace,
			int64(r.TournamentPoints), r.TournamentPlace,
			int64(r.TotalPoints),
		))
	}
	return strings.Join(lines, "\n")
}
