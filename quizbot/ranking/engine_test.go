package ranking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxter9595/O2RusQuizBot/quizbot/database/models"
)

// fakeStore implements ParticipantSource, QuestionSource and EventSource in
// memory.
type fakeStore struct {
	participants []*models.Participant
	tourOf       map[int64]int64           // question id -> tour number
	kindOf       map[int64]models.TourKind // tour number -> kind
	events       []*models.PointEvent
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tourOf: map[int64]int64{},
		kindOf: map[int64]models.TourKind{},
	}
}

func (s *fakeStore) addParticipant(id int64, discordID, fullName string) *models.Participant {
	p := &models.Participant{ID: id, DiscordID: discordID, Username: "@" + discordID, FullName: fullName, RoleID: models.RoleParticipant}
	s.participants = append(s.participants, p)
	return p
}

func (s *fakeStore) addQuestion(qid, tour int64, kind models.TourKind) {
	s.tourOf[qid] = tour
	s.kindOf[tour] = kind
}

func (s *fakeStore) Participants(_ context.Context) ([]*models.Participant, error) {
	return s.participants, nil
}

func (s *fakeStore) QuestionIDsByTour(_ context.Context, tour int64) ([]int64, error) {
	var ids []int64
	for qid, t := range s.tourOf {
		if t == tour {
			ids = append(ids, qid)
		}
	}
	return ids, nil
}

func (s *fakeStore) QuestionIDsByKind(_ context.Context, kind models.TourKind) ([]int64, error) {
	var ids []int64
	for qid, tour := range s.tourOf {
		if s.kindOf[tour] == kind {
			ids = append(ids, qid)
		}
	}
	return ids, nil
}

func (s *fakeStore) ToursByQuestionIDs(_ context.Context, ids []int64) (map[int64]int64, error) {
	out := map[int64]int64{}
	for _, id := range ids {
		if tour, ok := s.tourOf[id]; ok {
			out[id] = tour
		}
	}
	return out, nil
}

func (s *fakeStore) TourNumbers(_ context.Context) ([]int64, error) {
	var tours []int64
	for tour := range s.kindOf {
		tours = append(tours, tour)
	}
	return tours, nil
}

func (s *fakeStore) EventsBySender(_ context.Context, senderID string, questionIDs []int64) ([]*models.PointEvent, error) {
	return s.filter(questionIDs, func(ev *models.PointEvent) bool { return ev.SenderID == senderID }), nil
}

func (s *fakeStore) EventsByReceiver(_ context.Context, receiverID string, questionIDs []int64) ([]*models.PointEvent, error) {
	return s.filter(questionIDs, func(ev *models.PointEvent) bool { return ev.ReceiverID == receiverID }), nil
}

func (s *fakeStore) filter(questionIDs []int64, match func(*models.PointEvent) bool) []*models.PointEvent {
	inScope := func(qid int64) bool {
		if len(questionIDs) == 0 {
			return true
		}
		for _, id := range questionIDs {
			if id == qid {
				return true
			}
		}
		return false
	}
	var out []*models.PointEvent
	for _, ev := range s.events {
		if match(ev) && inScope(ev.QuestionID) {
			out = append(out, ev)
		}
	}
	return out
}

func TestRankFoldsAllChannels(t *testing.T) {
	store := newFakeStore()
	store.addParticipant(1, "100", "Иванов Иван")
	store.addQuestion(10, 1, models.TourKindQuiz)
	store.addQuestion(11, 2, models.TourKindQuiz)
	store.events = []*models.PointEvent{
		{SenderID: "100", QuestionID: 10, PlacementPoints: 95, AnsweredCorrectly: true, Completed: true},
		{SenderID: "100", QuestionID: 11, PoolSharePoints: 2.5, BonusPoints: 7, Completed: true},
	}

	rows, err := NewEngine(store, store, store).Rank(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, 1, row.Rank)
	assert.Equal(t, int64(95), row.PlacementPoints)
	assert.Equal(t, 2.5, row.PoolSharePoints)
	assert.Equal(t, int64(7), row.BonusPoints)
	assert.Equal(t, 104.5, row.TotalPoints)
	assert.Equal(t, 1, row.CorrectAnswers)
	assert.Equal(t, 2, row.QuestionsDone)
	assert.Equal(t, 2, row.ToursPlayed)
}

func TestRankTransferInvariant(t *testing.T) {
	store := newFakeStore()
	store.addParticipant(1, "100", "Отправитель")
	store.addParticipant(2, "200", "Получатель")
	store.addQuestion(10, 1, models.TourKindQuiz)
	store.events = []*models.PointEvent{
		{SenderID: "100", DirectorID: "900", QuestionID: 10, TransferPoints: 40, ReceiverID: "200"},
	}

	rows, err := NewEngine(store, store, store).Rank(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	sender, err := Find(rows, "100")
	require.NoError(t, err)
	receiver, err := Find(rows, "200")
	require.NoError(t, err)

	assert.Equal(t, int64(40), sender.TransferLoss)
	assert.Equal(t, int64(40), receiver.TransferIncome)
	assert.Equal(t, int64(-40), sender.TransferProfit)
	assert.Equal(t, int64(40), receiver.TransferProfit)
	assert.Equal(t, int64(80), receiver.TransferProfit-sender.TransferProfit)

	// The receiver has no sender-side events; the income pass alone put
	// them in the ranking, ahead of the debited sender.
	assert.Equal(t, 1, receiver.Rank)
	assert.Equal(t, 2, sender.Rank)
}

func TestRankPlacementTwoParticipants(t *testing.T) {
	store := newFakeStore()
	store.addParticipant(1, "100", "Первый")
	store.addParticipant(2, "200", "Второй")
	store.addQuestion(10, 1, models.TourKindQuiz)
	store.events = []*models.PointEvent{
		{SenderID: "100", DirectorID: "900", QuestionID: 10, PlacementPoints: PlacementPoints(1, 2)},
		{SenderID: "200", DirectorID: "900", QuestionID: 10, PlacementPoints: PlacementPoints(2, 2)},
	}

	tour := int64(1)
	rows, err := NewEngine(store, store, store).Rank(context.Background(), Options{TourNumber: &tour})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// The 30-place schedule applies even to a two-participant field.
	assert.Equal(t, "Первый", rows[0].FullName)
	assert.Equal(t, float64(100), rows[0].TotalPoints)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, "Второй", rows[1].FullName)
	assert.Equal(t, float64(95), rows[1].TotalPoints)
	assert.Equal(t, 2, rows[1].Rank)
}

func TestRankQuizScenario(t *testing.T) {
	store := newFakeStore()
	store.addParticipant(1, "100", "Участник")
	store.addQuestion(10, 1, models.TourKindQuiz)
	store.addQuestion(11, 1, models.TourKindQuiz)
	store.events = []*models.PointEvent{
		{SenderID: "100", QuestionID: 10, AnsweredCorrectly: true, Completed: true},
		{SenderID: "100", QuestionID: 11, AnsweredCorrectly: false, Completed: true},
	}

	rows, err := NewEngine(store, store, store).Rank(context.Background(), Options{SortKey: SortByCorrectAnswers})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].CorrectAnswers)
	assert.Equal(t, 2, rows[0].QuestionsDone)
	assert.Equal(t, 1, rows[0].ToursPlayed)
}

func TestRankExcludesZeroEventParticipants(t *testing.T) {
	store := newFakeStore()
	store.addParticipant(1, "100", "Активный")
	store.addParticipant(2, "200", "Без событий")
	store.addQuestion(10, 1, models.TourKindQuiz)
	store.events = []*models.PointEvent{
		{SenderID: "100", QuestionID: 10, BonusPoints: 3},
	}

	rows, err := NewEngine(store, store, store).Rank(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "100", rows[0].DiscordID)

	_, err = Find(rows, "200")
	assert.ErrorIs(t, err, ErrNotInRanking)
}

func TestRankTiesKeepInsertionOrder(t *testing.T) {
	store := newFakeStore()
	store.addParticipant(1, "100", "Первый добавлен")
	store.addParticipant(2, "200", "Второй добавлен")
	store.addQuestion(10, 1, models.TourKindQuiz)
	store.events = []*models.PointEvent{
		{SenderID: "100", QuestionID: 10, BonusPoints: 10},
		{SenderID: "200", QuestionID: 10, BonusPoints: 10},
	}

	rows, err := NewEngine(store, store, store).Rank(context.Background(), Options{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "100", rows[0].DiscordID)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, "200", rows[1].DiscordID)
	assert.Equal(t, 2, rows[1].Rank)
}

func TestRankErrors(t *testing.T) {
	t.Run("no participants", func(t *testing.T) {
		store := newFakeStore()
		_, err := NewEngine(store, store, store).Rank(context.Background(), Options{})
		assert.ErrorIs(t, err, ErrNoParticipants)
	})

	t.Run("unknown tour", func(t *testing.T) {
		store := newFakeStore()
		store.addParticipant(1, "100", "Кто-то")
		tour := int64(99)
		_, err := NewEngine(store, store, store).Rank(context.Background(), Options{TourNumber: &tour})
		assert.ErrorIs(t, err, ErrTourNotFound)
	})

	t.Run("no results", func(t *testing.T) {
		store := newFakeStore()
		store.addParticipant(1, "100", "Кто-то")
		store.addQuestion(10, 1, models.TourKindQuiz)
		tour := int64(1)
		_, err := NewEngine(store, store, store).Rank(context.Background(), Options{TourNumber: &tour})
		assert.ErrorIs(t, err, ErrNoResults)
	})
}
