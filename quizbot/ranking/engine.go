package ranking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/maxter9595/O2RusQuizBot/quizbot/database/models"
)

var (
	ErrNoParticipants = errors.New("no participants")
	ErrTourNotFound   = errors.New("tour not found")
	ErrNoResults      = errors.New("no results")
	ErrNotInRanking   = errors.New("participant not in ranking")
)

type SortKey string

const (
	SortByTotalPoints    SortKey = "total_points"
	SortByCorrectAnswers SortKey = "correct_answers"
)

// ParticipantSource lists the ranked population (participant role only).
type ParticipantSource interface {
	Participants(ctx context.Context) ([]*models.Participant, error)
}

// QuestionSource resolves activity units to their scorable items.
type QuestionSource interface {
	QuestionIDsByTour(ctx context.Context, tour int64) ([]int64, error)
	QuestionIDsByKind(ctx context.Context, kind models.TourKind) ([]int64, error)
	ToursByQuestionIDs(ctx context.Context, ids []int64) (map[int64]int64, error)
	TourNumbers(ctx context.Context) ([]int64, error)
}

// EventSource reads the point ledger.
type EventSource interface {
	EventsBySender(ctx context.Context, senderID string, questionIDs []int64) ([]*models.PointEvent, error)
	EventsByReceiver(ctx context.Context, receiverID string, questionIDs []int64) ([]*models.PointEvent, error)
}

// Row is one ranked participant with all aggregate columns.
type Row struct {
	Rank      int
	FullName  string
	Username  string
	DiscordID string

	TotalPoints     float64
	PlacementPoints int64
	PoolSharePoints float64
	BonusPoints     int64
	TransferProfit  int64
	TransferIncome  int64
	TransferLoss    int64

	CorrectAnswers int
	QuestionsDone  int
	ToursPlayed    int
}

// Options selects the scope and ordering of a ranking run.
type Options struct {
	// TourNumber restricts aggregation to one activity unit.
	TourNumber *int64
	SortKey    SortKey
}

// Engine folds point events into per-participant totals and ranks them.
type Engine struct {
	participants ParticipantSource
	questions    QuestionSource
	events       EventSource
}

func NewEngine(participants ParticipantSource, questions QuestionSource, events EventSource) *Engine {
	return &Engine{
		participants: participants,
		questions:    questions,
		events:       events,
	}
}

// Rank computes the ranked table. Participants without a single matching
// ledger row do not appear. Ties keep participant insertion order and get
// distinct positional ranks.
func (e *Engine) Rank(ctx context.Context, opts Options) ([]Row, error) {
	start := time.Now()
	if opts.SortKey == "" {
		opts.SortKey = SortByTotalPoints
	}

	participants, err := e.participants.Participants(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}

	var questionIDs []int64
	if opts.TourNumber != nil {
		questionIDs, err = e.questions.QuestionIDsByTour(ctx, *opts.TourNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve tour %d: %w", *opts.TourNumber, err)
		}
		if len(questionIDs) == 0 {
			return nil, ErrTourNotFound
		}
	}

	rows := make([]Row, 0, len(participants))
	index := make(map[string]int, len(participants))

	for _, p := range participants {
		events, err := e.events.EventsBySender(ctx, p.DiscordID, questionIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load events for %s: %w", p.DiscordID, err)
		}
		if len(events) == 0 {
			continue
		}

		row := Row{
			FullName:  p.FullName,
			Username:  p.Username,
			DiscordID: p.DiscordID,
		}
		eventQuestions := make([]int64, 0, len(events))
		for _, ev := range events {
			row.PlacementPoints += ev.PlacementPoints
			row.BonusPoints += ev.BonusPoints
			row.PoolSharePoints += ev.PoolSharePoints
			row.TransferLoss += ev.TransferPoints
			if ev.AnsweredCorrectly {
				row.CorrectAnswers++
			}
			if ev.Completed {
				row.QuestionsDone++
			}
			eventQuestions = append(eventQuestions, ev.QuestionID)
		}

		tours, err := e.questions.ToursByQuestionIDs(ctx, eventQuestions)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve event tours: %w", err)
		}
		seen := make(map[int64]struct{}, len(tours))
		for _, tour := range tours {
			seen[tour] = struct{}{}
		}
		row.ToursPlayed = len(seen)

		index[p.DiscordID] = len(rows)
		rows = append(rows, row)
	}

	// Transfer income is keyed on the receiver linkage, independently of the
	// sender-side sums; it can create a row for a participant who has no
	// sender events at all.
	for _, p := range participants {
		events, err := e.events.EventsByReceiver(ctx, p.DiscordID, questionIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load income for %s: %w", p.DiscordID, err)
		}
		if len(events) == 0 {
			continue
		}
		var income int64
		for _, ev := range events {
			income += ev.TransferPoints
		}
		if i, ok := index[p.DiscordID]; ok {
			rows[i].TransferIncome = income
		} else {
			index[p.DiscordID] = len(rows)
			rows = append(rows, Row{
				FullName:       p.FullName,
				Username:       p.Username,
				DiscordID:      p.DiscordID,
				TransferIncome: income,
			})
		}
	}

	if len(rows) == 0 {
		return nil, ErrNoResults
	}

	for i := range rows {
		rows[i].TransferProfit = rows[i].TransferIncome - rows[i].TransferLoss
		rows[i].TotalPoints = float64(rows[i].PlacementPoints) +
			float64(rows[i].BonusPoints) +
			rows[i].PoolSharePoints +
			float64(rows[i].TransferProfit)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if opts.SortKey == SortByCorrectAnswers {
			return rows[i].CorrectAnswers > rows[j].CorrectAnswers
		}
		return rows[i].TotalPoints > rows[j].TotalPoints
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}

	slog.Debug("Ranking computed",
		slog.String("type", "sys"),
		slog.Int("rows", len(rows)),
		slog.String("sort_key", string(opts.SortKey)),
		slog.Duration("took", time.Since(start)))
	return rows, nil
}

// Find returns the row of one participant, or ErrNotInRanking.
func Find(rows []Row, discordID string) (Row, error) {
	for _, r := range rows {
		if r.DiscordID == discordID {
			return r, nil
		}
	}
	return Row{}, ErrNotInRanking
}

// totalsFor aggregates one participant's point total over a question set,
// using the same fold as Rank. The standings projector calls this with the
// quiz and tournament question sets.
func (e *Engine) totalsFor(ctx context.Context, discordID string, questionIDs []int64) (float64, error) {
	if len(questionIDs) == 0 {
		return 0, nil
	}

	var placement, bonus, loss, income int64
	var pool float64

	sent, err := e.events.EventsBySender(ctx, discordID, questionIDs)
	if err != nil {
		return 0, err
	}
	for _, ev := range sent {
		placement += ev.PlacementPoints
		bonus += ev.BonusPoints
		pool += ev.PoolSharePoints
		loss += ev.TransferPoints
	}

	received, err := e.events.EventsByReceiver(ctx, discordID, questionIDs)
	if err != nil {
		return 0, err
	}
	for _, ev := range received {
		income += ev.TransferPoints
	}

	return float64(placement) + float64(bonus) + pool + float64(income-loss), nil
}
