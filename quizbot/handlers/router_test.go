package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxter9595/O2RusQuizBot/quizbot/database/models"
	"github.com/maxter9595/O2RusQuizBot/quizbot/database/repositories"
	"github.com/maxter9595/O2RusQuizBot/quizbot/ranking"
	"github.com/maxter9595/O2RusQuizBot/quizbot/utils"
	"github.com/maxter9595/O2RusQuizBot/quizbot/workflow"
)

// In-memory repository fakes. They back both the router and the ranking
// engine, so a HandleMessage test exercises the whole pipeline below the
// Discord transport.

type memParticipants struct {
	byDiscord   map[string]*models.Participant
	credentials map[int64]*models.Credential
	passwords   map[int64]string
	nextID      int64

	// cascade targets, mirroring the repository's role-change purge
	ledger    *memLedger
	standings *memStandings
}

func newMemParticipants() *memParticipants {
	return &memParticipants{
		byDiscord:   map[string]*models.Participant{},
		credentials: map[int64]*models.Credential{},
		passwords:   map[int64]string{},
	}
}

func (m *memParticipants) add(p *models.Participant, password string, authorized bool) *models.Participant {
	m.nextID++
	p.ID = m.nextID
	m.byDiscord[p.DiscordID] = p
	m.credentials[p.ID] = &models.Credential{ParticipantID: p.ID, IsAuthorized: authorized}
	m.passwords[p.ID] = password
	return p
}

func (m *memParticipants) Register(_ context.Context, p *models.Participant, password string) error {
	if _, ok := m.byDiscord[p.DiscordID]; ok {
		return assert.AnError
	}
	m.add(p, password, false)
	return nil
}

func (m *memParticipants) ByDiscordID(_ context.Context, discordID string) (*models.Participant, error) {
	if p, ok := m.byDiscord[discordID]; ok {
		return p, nil
	}
	return nil, repositories.ErrNotRegistered
}

func (m *memParticipants) ByID(_ context.Context, id int64) (*models.Participant, error) {
	for _, p := range m.byDiscord {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, repositories.ErrNotRegistered
}

func (m *memParticipants) Participants(_ context.Context) ([]*models.Participant, error) {
	var out []*models.Participant
	for _, p := range m.byDiscord {
		if p.IsParticipant() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memParticipants) ChangeRole(_ context.Context, discordID string, roleID int64) error {
	p, ok := m.byDiscord[discordID]
	if !ok {
		return repositories.ErrNotRegistered
	}
	if p.RoleID == roleID {
		return nil
	}
	oldRole := p.RoleID
	p.RoleID = roleID

	if oldRole == models.RoleParticipant && roleID != models.RoleParticipant {
		m.ledger.purge(func(ev *models.PointEvent) bool {
			return ev.SenderID == discordID || ev.ReceiverID == discordID
		})
		delete(m.standings.rows, discordID)
	}
	if oldRole == models.RoleDirector && roleID != models.RoleDirector {
		m.ledger.purge(func(ev *models.PointEvent) bool {
			return ev.DirectorID == discordID
		})
	}
	return nil
}

func (m *memParticipants) Credential(_ context.Context, participantID int64) (*models.Credential, error) {
	return m.credentials[participantID], nil
}

func (m *memParticipants) Authenticate(_ context.Context, participantID int64, password string) (bool, error) {
	return m.passwords[participantID] == password, nil
}

func (m *memParticipants) SetAuthorized(_ context.Context, participantID int64, authorized bool) error {
	if cred, ok := m.credentials[participantID]; ok {
		cred.IsAuthorized = authorized
	}
	return nil
}

func (m *memParticipants) ResetPassword(_ context.Context, participantID int64, newPassword string) error {
	m.passwords[participantID] = newPassword
	if cred, ok := m.credentials[participantID]; ok {
		cred.IsAuthorized = false
	}
	return nil
}

type memQuestions struct {
	tours     map[int64]*models.Tour
	questions []*models.Question
}

func newMemQuestions() *memQuestions {
	return &memQuestions{tours: map[int64]*models.Tour{}}
}

func (m *memQuestions) CreateTour(_ context.Context, t *models.Tour) error {
	m.tours[t.Number] = t
	return nil
}

func (m *memQuestions) CreateQuestion(_ context.Context, q *models.Question) error {
	m.questions = append(m.questions, q)
	return nil
}

func (m *memQuestions) ByTourAndNumber(_ context.Context, tour, number int64) (*models.Question, error) {
	for _, q := range m.questions {
		if q.TourNumber == tour && q.Number == number {
			return q, nil
		}
	}
	return nil, repositories.ErrQuestionNotFound
}

func (m *memQuestions) QuestionsByTour(_ context.Context, tour int64) ([]*models.Question, error) {
	var out []*models.Question
	for _, q := range m.questions {
		if q.TourNumber == tour {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memQuestions) QuestionIDsByTour(_ context.Context, tour int64) ([]int64, error) {
	var ids []int64
	for _, q := range m.questions {
		if q.TourNumber == tour {
			ids = append(ids, q.ID)
		}
	}
	return ids, nil
}

func (m *memQuestions) QuestionIDsByKind(_ context.Context, kind models.TourKind) ([]int64, error) {
	var ids []int64
	for _, q := range m.questions {
		if t, ok := m.tours[q.TourNumber]; ok && t.Kind == kind {
			ids = append(ids, q.ID)
		}
	}
	return ids, nil
}

func (m *memQuestions) ToursByQuestionIDs(_ context.Context, ids []int64) (map[int64]int64, error) {
	out := map[int64]int64{}
	for _, id := range ids {
		for _, q := range m.questions {
			if q.ID == id {
				out[id] = q.TourNumber
			}
		}
	}
	return out, nil
}

func (m *memQuestions) TourNumbers(_ context.Context) ([]int64, error) {
	var out []int64
	for n := range m.tours {
		out = append(out, n)
	}
	return out, nil
}

type memLedger struct {
	events []*models.PointEvent
	nextID int64
}

func (m *memLedger) row(senderID, directorID string, questionID int64) *models.PointEvent {
	for _, ev := range m.events {
		if ev.SenderID == senderID && ev.DirectorID == directorID && ev.QuestionID == questionID {
			return ev
		}
	}
	m.nextID++
	ev := &models.PointEvent{ID: m.nextID, SenderID: senderID, DirectorID: directorID, QuestionID: questionID, AwardedAt: time.Now()}
	m.events = append(m.events, ev)
	return ev
}

func (m *memLedger) Upsert(_ context.Context, senderID, directorID string, questionID int64, field models.AwardField, value float64) (*models.PointEvent, error) {
	ev := m.row(senderID, directorID, questionID)
	switch field {
	case models.AwardPlacement:
		ev.PlacementPoints = int64(value)
	case models.AwardPoolShare:
		ev.PoolSharePoints = value
	case models.AwardBonus:
		ev.BonusPoints = int64(value)
	}
	return ev, nil
}

func (m *memLedger) Transfer(_ context.Context, senderID, directorID string, questionID int64, receiverID string, amount int64) (*models.PointEvent, error) {
	ev := m.row(senderID, directorID, questionID)
	ev.TransferPoints = amount
	ev.ReceiverID = receiverID
	ev.TransferredAt = time.Now()
	return ev, nil
}

// RecordAnswer mirrors the repository: a correct answer never touches an
// already completed question, a wrong answer overwrites unconditionally.
func (m *memLedger) RecordAnswer(_ context.Context, senderID string, questionID int64, correct bool) error {
	for _, ev := range m.events {
		if ev.SenderID == senderID && ev.QuestionID == questionID {
			if ev.Completed && correct {
				return nil
			}
			ev.AnsweredCorrectly = correct
			ev.Completed = true
			return nil
		}
	}
	ev := m.row(senderID, "", questionID)
	ev.AnsweredCorrectly = correct
	ev.Completed = true
	return nil
}

func (m *memLedger) purge(match func(*models.PointEvent) bool) {
	kept := make([]*models.PointEvent, 0, len(m.events))
	for _, ev := range m.events {
		if !match(ev) {
			kept = append(kept, ev)
		}
	}
	m.events = kept
}

func (m *memLedger) EventsBySender(_ context.Context, senderID string, questionIDs []int64) ([]*models.PointEvent, error) {
	return m.filter(questionIDs, func(ev *models.PointEvent) bool { return ev.SenderID == senderID }), nil
}

func (m *memLedger) EventsByReceiver(_ context.Context, receiverID string, questionIDs []int64) ([]*models.PointEvent, error) {
	return m.filter(questionIDs, func(ev *models.PointEvent) bool { return ev.ReceiverID == receiverID }), nil
}

func (m *memLedger) CompletedByQuestion(_ context.Context, senderID string, questionIDs []int64) (map[int64]bool, error) {
	out := map[int64]bool{}
	for _, ev := range m.filter(questionIDs, func(ev *models.PointEvent) bool { return ev.SenderID == senderID }) {
		if ev.Completed {
			out[ev.QuestionID] = true
		}
	}
	return out, nil
}

func (m *memLedger) filter(questionIDs []int64, match func(*models.PointEvent) bool) []*models.PointEvent {
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
	for _, ev := range m.events {
		if match(ev) && inScope(ev.QuestionID) {
			out = append(out, ev)
		}
	}
	return out
}

type memStandings struct {
	rows map[string]*models.StandingsRow
}

func (m *memStandings) StandingsRow(_ context.Context, participantID string) (*models.StandingsRow, error) {
	return m.rows[participantID], nil
}

func (m *memStandings) UpsertStandings(_ context.Context, row *models.StandingsRow) error {
	if m.rows == nil {
		m.rows = map[string]*models.StandingsRow{}
	}
	if existing, ok := m.rows[row.ParticipantID]; ok {
		existing.FullName = row.FullName
		existing.QuizPoints = row.QuizPoints
		existing.TournamentPoints = row.TournamentPoints
		existing.TotalPoints = row.TotalPoints
		return nil
	}
	m.rows[row.ParticipantID] = row
	return nil
}

func (m *memStandings) AllStandings(_ context.Context) ([]*models.StandingsRow, error) {
	var out []*models.StandingsRow
	for _, row := range m.rows {
		out = append(out, row)
	}
	return out, nil
}

func (m *memStandings) SavePlaces(_ context.Context, _ []*models.StandingsRow) error {
	return nil
}

type routerFixture struct {
	participants *memParticipants
	questions    *memQuestions
	ledger       *memLedger
	standings    *memStandings
	router       *Router
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	sessions, err := workflow.NewSessions(16)
	require.NoError(t, err)

	f := &routerFixture{
		participants: newMemParticipants(),
		questions:    newMemQuestions(),
		ledger:       &memLedger{},
		standings:    &memStandings{},
	}
	f.participants.ledger = f.ledger
	f.participants.standings = f.standings
	engine := ranking.NewEngine(f.participants, f.questions, f.ledger)
	projector := ranking.NewProjector(engine, f.questions, f.standings)
	f.router = NewRouter(sessions, f.participants, f.questions, f.ledger, f.standings, projector, engine, nil, nil)
	return f
}

func (f *routerFixture) send(userID, content string) []workflow.Effect {
	return f.router.HandleMessage(context.Background(), userID, "@"+userID, content)
}

func participantRecord(discordID, fullName string, roleID int64) *models.Participant {
	return &models.Participant{
		DiscordID:   discordID,
		Username:    "@" + discordID,
		FullName:    fullName,
		PhoneNumber: "8905374" + discordID,
		RoleID:      roleID,
	}
}

func TestRouterGuards(t *testing.T) {
	f := newRouterFixture(t)
	f.participants.add(participantRecord("100", "Иванов Иван", models.RoleParticipant), "secret", false)
	f.participants.add(participantRecord("200", "Директор", models.RoleDirector), "secret", true)
	f.participants.add(participantRecord("300", "Петров Пётр", models.RoleParticipant), "secret", true)

	t.Run("unregistered", func(t *testing.T) {
		effects := f.send("999", utils.CmdStartQuiz)
		require.Len(t, effects, 1)
		assert.Equal(t, "Вы не зарегистрированы. Для регистрации введите /register", effects[0].Text)
	})

	t.Run("not authorized", func(t *testing.T) {
		effects := f.send("100", utils.CmdStartQuiz)
		require.Len(t, effects, 1)
		assert.Equal(t, "Вы не авторизованы. Для авторизации введите /login", effects[0].Text)
	})

	t.Run("quiz needs participant role", func(t *testing.T) {
		effects := f.send("200", utils.CmdStartQuiz)
		require.Len(t, effects, 1)
		assert.Equal(t, "Вы не являетесь участником турнира", effects[0].Text)
	})

	t.Run("awards need director role", func(t *testing.T) {
		effects := f.send("300", utils.CmdAddPoints)
		require.Len(t, effects, 1)
		assert.Equal(t, "Вы не являетесь директором. Вы не можете начислять баллы", effects[0].Text)
	})
}

func TestRouterStartAndEmptyInput(t *testing.T) {
	f := newRouterFixture(t)

	assert.Nil(t, f.send("100", "   "))
	assert.Nil(t, f.send("100", "что-то без интента"))

	effects := f.send("100", utils.CmdStart)
	require.Len(t, effects, 1)
	assert.Contains(t, effects[0].Text, "Добро пожаловать!")
	assert.Equal(t, workflow.StartMenu(), effects[0].Menu)
}

func TestRouterRegistrationAndLogin(t *testing.T) {
	f := newRouterFixture(t)

	effects := f.send("100", utils.CmdRegister)
	require.Len(t, effects, 1)
	assert.Contains(t, effects[0].Text, "Введите ваше ФИО")

	// The active flow consumes every following message.
	f.send("100", "Иванов Иван Иванович")
	f.send("100", "1990-06-03")
	f.send("100", "89053743009")
	effects = f.send("100", "secret")
	require.Len(t, effects, 1)
	assert.Contains(t, effects[0].Text, "Регистрация прошла успешно")

	p, err := f.participants.ByDiscordID(context.Background(), "100")
	require.NoError(t, err)
	assert.Equal(t, "Иванов Иван Иванович", p.FullName)

	// Registration is not authorization.
	effects = f.send("100", utils.CmdMainMenu)
	require.Len(t, effects, 1)
	assert.Equal(t, "Вы не авторизованы. Для авторизации введите /login", effects[0].Text)

	f.send("100", utils.CmdLogin)
	effects = f.send("100", "secret")
	require.Len(t, effects, 1)
	assert.Equal(t, "Главное меню", effects[0].Text)
	assert.Equal(t, workflow.MainMenu(models.RoleParticipant), effects[0].Menu)

	effects = f.send("100", utils.CmdLogin)
	require.Len(t, effects, 1)
	assert.Equal(t, "Вы уже авторизованы.", effects[0].Text)
}

func TestRouterMenuShortcutInterruptsFlow(t *testing.T) {
	f := newRouterFixture(t)
	f.participants.add(participantRecord("100", "Иванов Иван", models.RoleParticipant), "secret", true)

	f.send("100", utils.CmdResetPassword)
	effects := f.send("100", utils.LabelMainMenu)
	require.Len(t, effects, 1)
	// The shortcut killed the flow and dispatched the main menu intent
	// instead of feeding the label to the reset conversation.
	assert.Equal(t, "Главное меню", effects[0].Text)

	effects = f.send("100", utils.LabelLogout)
	require.Len(t, effects, 1)
	assert.Equal(t, "Вы успешно вышли из аккаунта.", effects[0].Text)
}

func TestRouterReawardSameKeyUpdatesInPlace(t *testing.T) {
	f := newRouterFixture(t)
	f.participants.add(participantRecord("900", "Директор", models.RoleDirector), "secret", true)
	f.participants.add(participantRecord("100", "Иванов Иван", models.RoleParticipant), "secret", true)
	f.participants.add(participantRecord("200", "Петров Пётр", models.RoleParticipant), "secret", true)

	ctx := context.Background()
	require.NoError(t, f.questions.CreateTour(ctx, &models.Tour{Number: 1, Kind: models.TourKindQuiz}))
	require.NoError(t, f.questions.CreateQuestion(ctx, &models.Question{ID: 77, TourNumber: 1, Number: 1, CorrectAnswer: "A"}))

	award := func(typeChoice, value string) {
		f.send("900", utils.CmdAddPoints)
		for _, input := range []string{"1", "1", typeChoice, "Иванов", value} {
			f.send("900", input)
		}
	}

	award("1", "2") // place 2 of 2 scores 95
	award("1", "1") // same (sender, director, question), 100 replaces 95

	require.Len(t, f.ledger.events, 1)
	ev := f.ledger.events[0]
	assert.Equal(t, "100", ev.SenderID)
	assert.Equal(t, "900", ev.DirectorID)
	assert.Equal(t, int64(77), ev.QuestionID)
	assert.Equal(t, int64(100), ev.PlacementPoints)

	// A different channel on the same key lands on the same row.
	award("3", "7")
	require.Len(t, f.ledger.events, 1)
	assert.Equal(t, int64(7), f.ledger.events[0].BonusPoints)
	assert.Equal(t, int64(100), f.ledger.events[0].PlacementPoints)

	// Standings follow the latest values, not the sum of all awards.
	require.NotNil(t, f.standings.rows["100"])
	assert.Equal(t, float64(107), f.standings.rows["100"].TotalPoints)
}

func TestRouterRoleChangePurgesLedger(t *testing.T) {
	f := newRouterFixture(t)
	f.participants.add(participantRecord("900", "Директор", models.RoleDirector), "secret", true)
	f.participants.add(participantRecord("100", "Иванов Иван", models.RoleParticipant), "secret", true)
	f.participants.add(participantRecord("200", "Петров Пётр", models.RoleParticipant), "secret", true)

	ctx := context.Background()
	require.NoError(t, f.questions.CreateTour(ctx, &models.Tour{Number: 1, Kind: models.TourKindQuiz}))
	require.NoError(t, f.questions.CreateQuestion(ctx, &models.Question{ID: 77, TourNumber: 1, Number: 1, CorrectAnswer: "A"}))
	require.NoError(t, f.questions.CreateQuestion(ctx, &models.Question{ID: 78, TourNumber: 1, Number: 2, CorrectAnswer: "A"}))

	award := func(inputs ...string) {
		f.send("900", utils.CmdAddPoints)
		for _, input := range inputs {
			f.send("900", input)
		}
	}

	// Иванов ends up in the ledger both as sender (placement) and as
	// receiver (transfer from Петров); Петров keeps a bonus of his own on
	// a second question.
	award("1", "1", "1", "Иванов", "1")
	award("1", "1", "4", "Петров", "Иванов", "10")
	award("1", "2", "3", "Петров", "5")
	require.Len(t, f.ledger.events, 3)
	require.NotNil(t, f.standings.rows["100"])

	var repo repositories.ParticipantRepository = f.participants
	require.NoError(t, repo.ChangeRole(ctx, "100", models.RoleDirector))

	// Leaving the participant role drops every row they touch, on either
	// side of a transfer, plus their standings row.
	require.Len(t, f.ledger.events, 1)
	for _, ev := range f.ledger.events {
		assert.NotEqual(t, "100", ev.SenderID)
		assert.NotEqual(t, "100", ev.ReceiverID)
	}
	assert.Nil(t, f.standings.rows["100"])

	effects := f.send("200", utils.CmdRatingTotal)
	require.GreaterOrEqual(t, len(effects), 3)
	assert.Contains(t, effects[2].Text, "ФИО: Петров Пётр")
	assert.NotContains(t, effects[2].Text, "Иванов")

	// Leaving the director role drops every event they awarded.
	require.NoError(t, repo.ChangeRole(ctx, "900", models.RoleParticipant))
	assert.Empty(t, f.ledger.events)
}

func TestRouterAwardToRating(t *testing.T) {
	f := newRouterFixture(t)
	f.participants.add(participantRecord("900", "Директор", models.RoleDirector), "secret", true)
	f.participants.add(participantRecord("100", "Иванов Иван", models.RoleParticipant), "secret", true)
	f.participants.add(participantRecord("200", "Петров Пётр", models.RoleParticipant), "secret", true)

	ctx := context.Background()
	require.NoError(t, f.questions.CreateTour(ctx, &models.Tour{Number: 1, Kind: models.TourKindQuiz}))
	require.NoError(t, f.questions.CreateQuestion(ctx, &models.Question{ID: 77, TourNumber: 1, Number: 2, CorrectAnswer: "A"}))

	f.send("900", utils.CmdAddPoints)
	f.send("900", "1") // tour
	f.send("900", "2") // question
	f.send("900", "1") // placement award
	f.send("900", "Иванов")
	effects := f.send("900", "1")
	require.NotEmpty(t, effects)
	assert.Equal(t, "Участник Иванов Иван получил 100 баллов за 1 место в рейтинге", effects[0].Text)

	// The projector picked up the award.
	require.NotNil(t, f.standings.rows["100"])
	assert.Equal(t, float64(100), f.standings.rows["100"].QuizPoints)
	assert.Equal(t, 1, f.standings.rows["100"].FinalPlace)

	effects = f.send("100", utils.CmdRatingTotal)
	require.GreaterOrEqual(t, len(effects), 3)
	assert.Equal(t, utils.LabelRatingTotal, effects[0].Text)
	require.NotNil(t, effects[1].File)
	assert.Equal(t, ranking.ExportFileName, effects[1].File.Name)
	assert.Contains(t, effects[2].Text, "Список участников в рейтинге:")
	assert.Contains(t, effects[2].Text, "ФИО: Иванов Иван")
}
