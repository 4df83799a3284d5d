package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maxter9595/O2RusQuizBot/quizbot/database/models"
	"github.com/maxter9595/O2RusQuizBot/quizbot/utils"
)

type quizState int

const (
	quizAwaitingTour quizState = iota
	quizAwaitingAnswer
)

// QuizFlow walks a participant through one tour's questions in ordinal
// order. Already-completed questions are skipped, so re-entering a half
// finished tour resumes at the first open question; a fully answered tour
// reports completion instead of restarting.
type QuizFlow struct {
	catalog   Catalog
	ledger    Ledger
	standings Standings

	participant *models.Participant

	state     quizState
	questions []*models.Question
	completed map[int64]bool
	current   int
}

func NewQuizFlow(catalog Catalog, ledger Ledger, standings Standings, participant *models.Participant) *QuizFlow {
	return &QuizFlow{
		catalog:     catalog,
		ledger:      ledger,
		standings:   standings,
		participant: participant,
	}
}

func (f *QuizFlow) Begin(ctx context.Context) ([]Effect, bool, error) {
	tours, err := f.catalog.TourNumbers(ctx)
	if err != nil {
		return nil, true, fmt.Errorf("failed to list tours: %w", err)
	}
	if len(tours) == 0 {
		return []Effect{TextEffect("Нет вопросов для викторины")}, true, nil
	}

	numbers := make([]string, 0, len(tours))
	for _, t := range tours {
		numbers = append(numbers, fmt.Sprintf("%d", t))
	}
	return []Effect{{
		Text: fmt.Sprintf("Доступные туры: %s\nВведите номер тура:", strings.Join(numbers, ", ")),
		Menu: NavMenu(),
	}}, false, nil
}

func (f *QuizFlow) Advance(ctx context.Context, input string) ([]Effect, bool, error) {
	input = strings.TrimSpace(input)

	switch f.state {
	case quizAwaitingTour:
		return f.advanceTour(ctx, input)
	case quizAwaitingAnswer:
		return f.advanceAnswer(ctx, input)
	}
	return nil, true, fmt.Errorf("quiz flow in unknown state %d", f.state)
}

func (f *QuizFlow) advanceTour(ctx context.Context, input string) ([]Effect, bool, error) {
	if !utils.IsDigits(input) {
		return []Effect{TextEffect("Некорректный ввод номера тура (должно быть число)")}, false, nil
	}
	tour, ok := utils.ParsePositiveInt(input)
	if !ok {
		return []Effect{TextEffect("Некорректный ввод номера тура (число должно быть больше нуля)")}, false, nil
	}

	questions, err := f.catalog.QuestionsByTour(ctx, tour)
	if err != nil {
		return nil, true, fmt.Errorf("failed to load tour %d: %w", tour, err)
	}
	if len(questions) == 0 {
		return []Effect{TextEffect("Нет вопросов для викторины")}, true, nil
	}
	f.questions = questions

	ids := make([]int64, 0, len(questions))
	for _, q := range questions {
		ids = append(ids, q.ID)
	}
	completed, err := f.ledger.CompletedByQuestion(ctx, f.participant.DiscordID, ids)
	if err != nil {
		return nil, true, fmt.Errorf("failed to load quiz progress: %w", err)
	}
	f.completed = completed

	f.current = f.firstIncomplete(0)
	if f.current < 0 {
		return []Effect{{
			Text: "Викторина уже завершена",
			Menu: NavMenu(),
		}}, true, nil
	}

	effects := []Effect{}
	if len(completed) == 0 {
		effects = append(effects, TextEffect("Начинаем викторину"))
	}
	f.state = quizAwaitingAnswer
	return append(effects, f.presentQuestion()...), false, nil
}

func (f *QuizFlow) advanceAnswer(ctx context.Context, input string) ([]Effect, bool, error) {
	q := f.questions[f.current]
	correct := input == q.CorrectChoice()

	if err := f.ledger.RecordAnswer(ctx, f.participant.DiscordID, q.ID, correct); err != nil {
		return nil, true, fmt.Errorf("failed to record answer: %w", err)
	}
	if err := f.standings.Refresh(ctx, f.participant); err != nil {
		slog.Error("Failed to refresh standings",
			slog.String("type", "sys"),
			slog.Any("error", err))
	}

	verdict := "Неверно!"
	if correct {
		verdict = "Верно!"
	}
	effects := []Effect{TextEffect(fmt.Sprintf("%s\n%s", verdict, utils.TrimExplanation(q.Explanation)))}

	f.completed[q.ID] = true
	f.current = f.firstIncomplete(f.current + 1)
	if f.current < 0 {
		return append(effects, Effect{
			Text: "На этом викторина окончена",
			Menu: NavMenu(),
		}), true, nil
	}
	return append(effects, f.presentQuestion()...), false, nil
}

func (f *QuizFlow) presentQuestion() []Effect {
	q := f.questions[f.current]
	return []Effect{
		TextEffect(fmt.Sprintf("### Тур № %d ### Вопрос № %d ###", q.TourNumber, q.Number)),
		{
			Text:     q.Text,
			Menu:     q.Choices(),
			ImageURL: q.ImageURL,
		},
	}
}

// firstIncomplete returns the index of the next unanswered question at or
// after from, or -1.
func (f *QuizFlow) firstIncomplete(from int) int {
	for i := from; i < len(f.questions); i++ {
		if !f.completed[f.questions[i].ID] {
			return i
		}
	}
	return -1
}
