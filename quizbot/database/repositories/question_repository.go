package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"github.com/maxter9595/O2RusQuizBot/quizbot/database/models"
)

// ErrQuestionNotFound is returned when a (tour, number) pair has no question.
var ErrQuestionNotFound = errors.New("question not found")

type QuestionRepository interface {
	CreateTour(ctx context.Context, t *models.Tour) error
	CreateQuestion(ctx context.Context, q *models.Question) error

	ByTourAndNumber(ctx context.Context, tour, number int64) (*models.Question, error)
	QuestionsByTour(ctx context.Context, tour int64) ([]*models.Question, error)
	QuestionIDsByTour(ctx context.Context, tour int64) ([]int64, error)
	QuestionIDsByKind(ctx context.Context, kind models.TourKind) ([]int64, error)
	ToursByQuestionIDs(ctx context.Context, ids []int64) (map[int64]int64, error)
	TourNumbers(ctx context.Context) ([]int64, error)
}

type questionRepository struct {
	db *bun.DB
}

func NewQuestionRepository(db *bun.DB) QuestionRepository {
	return &questionRepository{db: db}
}

func (r *questionRepository) CreateTour(ctx context.Context, t *models.Tour) error {
	_, err := r.db.NewInsert().
		Model(t).
		On("CONFLICT (number) DO UPDATE").
		Set("kind = EXCLUDED.kind").
		Set("title = EXCLUDED.title").
		Exec(ctx)
	return err
}

func (r *questionRepository) CreateQuestion(ctx context.Context, q *models.Question) error {
	_, err := r.db.NewInsert().Model(q).Exec(ctx)
	return err
}

func (r *questionRepository) ByTourAndNumber(ctx context.Context, tour, number int64) (*models.Question, error) {
	q := new(models.Question)
	err := r.db.NewSelect().
		Model(q).
		Where("tour_number = ?", tour).
		Where("number = ?", number).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, err
	}
	return q, nil
}

// QuestionsByTour returns the tour's questions in ordinal order. The quiz
// runner walks this slice.
func (r *questionRepository) QuestionsByTour(ctx context.Context, tour int64) ([]*models.Question, error) {
	var questions []*models.Question
	err := r.db.NewSelect().
		Model(&questions).
		Where("tour_number = ?", tour).
		Order("number ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return questions, nil
}

func (r *questionRepository) QuestionIDsByTour(ctx context.Context, tour int64) ([]int64, error) {
	var ids []int64
	err := r.db.NewSelect().
		Model((*models.Question)(nil)).
		Column("id").
		Where("tour_number = ?", tour).
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *questionRepository) QuestionIDsByKind(ctx context.Context, kind models.TourKind) ([]int64, error) {
	var ids []int64
	err := r.db.NewSelect().
		Model((*models.Question)(nil)).
		Column("q.id").
		Join("JOIN tours AS t ON t.number = q.tour_number").
		Where("t.kind = ?", kind).
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *questionRepository) ToursByQuestionIDs(ctx context.Context, ids []int64) (map[int64]int64, error) {
	if len(ids) == 0 {
		return map[int64]int64{}, nil
	}
	var questions []*models.Question
	err := r.db.NewSelect().
		Model(&questions).
		Column("id", "tour_number").
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	tours := make(map[int64]int64, len(questions))
	for _, q := range questions {
		tours[q.ID] = q.TourNumber
	}
	return tours, nil
}

func (r *questionRepository) TourNumbers(ctx context.Context) ([]int64, error) {
	var numbers []int64
	err := r.db.NewSelect().
		Model((*models.Question)(nil)).
		ColumnExpr("DISTINCT tour_number").
		Order("tour_number ASC").
		Scan(ctx, &numbers)
	if err != nil {
		return nil, err
	}
	return numbers, nil
}
