package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/maxter9595/O2RusQuizBot/quizbot/database/models"
)

// PointEventRepository is the point ledger. One row exists per
// (sender, director, question) key; awarding the same key again updates the
// named channel in place instead of inserting a second row.
type PointEventRepository interface {
	Upsert(ctx context.Context, senderID, directorID string, questionID int64, field models.AwardField, value float64) (*models.PointEvent, error)
	Transfer(ctx context.Context, senderID, directorID string, questionID int64, receiverID string, amount int64) (*models.PointEvent, error)
	RecordAnswer(ctx context.Context, senderID string, questionID int64, correct bool) error

	EventsBySender(ctx context.Context, senderID string, questionIDs []int64) ([]*models.PointEvent, error)
	EventsByReceiver(ctx context.Context, receiverID string, questionIDs []int64) ([]*models.PointEvent, error)
	CompletedByQuestion(ctx context.Context, senderID string, questionIDs []int64) (map[int64]bool, error)
}

type pointEventRepository struct {
	db *bun.DB
}

func NewPointEventRepository(db *bun.DB) PointEventRepository {
	return &pointEventRepository{db: db}
}

func (r *pointEventRepository) findByTrio(ctx context.Context, senderID, directorID string, questionID int64) (*models.PointEvent, error) {
	ev := new(models.PointEvent)
	err := r.db.NewSelect().
		Model(ev).
		Where("sender_id = ?", senderID).
		Where("director_id = ?", directorID).
		Where("question_id = ?", questionID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return ev, nil
}

// Upsert writes a single-value award channel (placement, pool share or
// bonus) for the (sender, director, question) key.
func (r *pointEventRepository) Upsert(ctx context.Context, senderID, directorID string, questionID int64, field models.AwardField, value float64) (*models.PointEvent, error) {
	existing, err := r.findByTrio(ctx, senderID, directorID, questionID)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		ev := &models.PointEvent{
			AwardedAt:  time.Now(),
			SenderID:   senderID,
			DirectorID: directorID,
			QuestionID: questionID,
		}
		applyAward(ev, field, value)
		if _, err := r.db.NewInsert().Model(ev).Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to insert point event: %w", err)
		}
		return ev, nil
	}

	applyAward(existing, field, value)
	existing.AwardedAt = time.Now()
	_, err = r.db.NewUpdate().
		Model((*models.PointEvent)(nil)).
		Set("? = ?", bun.Ident(string(field)), awardValue(field, value)).
		Set("awarded_at = ?", existing.AwardedAt).
		Where("id = ?", existing.ID).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update point event: %w", err)
	}

	slog.Debug("Re-awarded existing ledger row",
		slog.String("type", "db"),
		slog.Int64("event_id", existing.ID),
		slog.String("field", string(field)))
	return existing, nil
}

func applyAward(ev *models.PointEvent, field models.AwardField, value float64) {
	switch field {
	case models.AwardPlacement:
		ev.PlacementPoints = int64(value)
	case models.AwardPoolShare:
		ev.PoolSharePoints = value
	case models.AwardBonus:
		ev.BonusPoints = int64(value)
	}
}

func awardValue(field models.AwardField, value float64) interface{} {
	if field == models.AwardPoolShare {
		return value
	}
	return int64(value)
}

// Transfer records a peer-to-peer movement. The first lookup deliberately
// ignores the receiver so the sender's (sender, director, question) row is
// reused and its receiver can be attached or replaced; the second lookup
// includes the receiver to decide between attaching and updating. Repeated
// transfers from one sender to different receivers on the same question
// collide on the first row; that lookup order is part of the contract.
func (r *pointEventRepository) Transfer(ctx context.Context, senderID, directorID string, questionID int64, receiverID string, amount int64) (*models.PointEvent, error) {
	now := time.Now()

	bySender, err := r.findByTrio(ctx, senderID, directorID, questionID)
	if err != nil {
		return nil, err
	}

	if bySender == nil {
		ev := &models.PointEvent{
			AwardedAt:      now,
			TransferredAt:  now,
			SenderID:       senderID,
			DirectorID:     directorID,
			ReceiverID:     receiverID,
			QuestionID:     questionID,
			TransferPoints: amount,
		}
		if _, err := r.db.NewInsert().Model(ev).Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to insert transfer event: %w", err)
		}
		return ev, nil
	}

	withReceiver := r.db.NewSelect().
		Model((*models.PointEvent)(nil)).
		Where("sender_id = ?", senderID).
		Where("receiver_id = ?", receiverID).
		Where("director_id = ?", directorID).
		Where("question_id = ?", questionID)
	exists, err := withReceiver.Exists(ctx)
	if err != nil {
		return nil, err
	}

	if !exists {
		if _, err := r.db.NewUpdate().
			Model((*models.PointEvent)(nil)).
			Set("receiver_id = ?", receiverID).
			Where("id = ?", bySender.ID).
			Exec(ctx); err != nil {
			return nil, fmt.Errorf("failed to attach receiver: %w", err)
		}
	}

	if _, err := r.db.NewUpdate().
		Model((*models.PointEvent)(nil)).
		Set("transfer_points = ?", amount).
		Set("transferred_at = ?", now).
		Set("awarded_at = ?", now).
		Where("sender_id = ?", senderID).
		Where("receiver_id = ?", receiverID).
		Where("director_id = ?", directorID).
		Where("question_id = ?", questionID).
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to update transfer event: %w", err)
	}

	bySender.ReceiverID = receiverID
	bySender.TransferPoints = amount
	bySender.TransferredAt = now
	bySender.AwardedAt = now
	return bySender, nil
}

// RecordAnswer writes the degenerate quiz event: answer/completion flags
// only, no director and no point value. A correct answer never downgrades an
// already completed question; a wrong answer overwrites unconditionally.
func (r *pointEventRepository) RecordAnswer(ctx context.Context, senderID string, questionID int64, correct bool) error {
	existing := new(models.PointEvent)
	err := r.db.NewSelect().
		Model(existing).
		Where("sender_id = ?", senderID).
		Where("question_id = ?", questionID).
		Order("id ASC").
		Limit(1).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	if errors.Is(err, sql.ErrNoRows) {
		ev := &models.PointEvent{
			AwardedAt:         time.Now(),
			SenderID:          senderID,
			QuestionID:        questionID,
			AnsweredCorrectly: correct,
			Completed:         true,
		}
		_, err := r.db.NewInsert().Model(ev).Exec(ctx)
		return err
	}

	if correct && existing.Completed {
		return nil
	}

	_, err = r.db.NewUpdate().
		Model((*models.PointEvent)(nil)).
		Set("answered_correctly = ?", correct).
		Set("completed = ?", true).
		Where("sender_id = ?", senderID).
		Where("question_id = ?", questionID).
		Exec(ctx)
	return err
}

func (r *pointEventRepository) EventsBySender(ctx context.Context, senderID string, questionIDs []int64) ([]*models.PointEvent, error) {
	var events []*models.PointEvent
	q := r.db.NewSelect().
		Model(&events).
		Where("sender_id = ?", senderID).
		Order("id ASC")
	if len(questionIDs) > 0 {
		q = q.Where("question_id IN (?)", bun.In(questionIDs))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *pointEventRepository) EventsByReceiver(ctx context.Context, receiverID string, questionIDs []int64) ([]*models.PointEvent, error) {
	var events []*models.PointEvent
	q := r.db.NewSelect().
		Model(&events).
		Where("receiver_id = ?", receiverID).
		Order("id ASC")
	if len(questionIDs) > 0 {
		q = q.Where("question_id IN (?)", bun.In(questionIDs))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return events, nil
}

// CompletedByQuestion reports which of the given questions the participant
// has already completed. The quiz runner uses this to resume mid-tour.
func (r *pointEventRepository) CompletedByQuestion(ctx context.Context, senderID string, questionIDs []int64) (map[int64]bool, error) {
	done := make(map[int64]bool, len(questionIDs))
	if len(questionIDs) == 0 {
		return done, nil
	}
	var events []*models.PointEvent
	err := r.db.NewSelect().
		Model(&events).
		Column("question_id", "completed").
		Where("sender_id = ?", senderID).
		Where("completed = TRUE").
		Where("question_id IN (?)", bun.In(questionIDs)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		done[ev.QuestionID] = true
	}
	return done, nil
}
