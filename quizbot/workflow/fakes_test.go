package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/maxter9595/O2RusQuizBot/quizbot/database/models"
	"github.com/maxter9595/O2RusQuizBot/quizbot/database/repositories"
)

// In-memory stand-ins for the repository interfaces, shared by the flow
// tests in this package.

type stubDirectory struct {
	roster []*models.Participant
}

func (s *stubDirectory) ByDiscordID(_ context.Context, discordID string) (*models.Participant, error) {
	for _, p := range s.roster {
		if p.DiscordID == discordID {
			return p, nil
		}
	}
	return nil, repositories.ErrNotRegistered
}

func (s *stubDirectory) ByID(_ context.Context, id int64) (*models.Participant, error) {
	for _, p := range s.roster {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, repositories.ErrNotRegistered
}

func (s *stubDirectory) Participants(_ context.Context) ([]*models.Participant, error) {
	return s.roster, nil
}

type stubCatalog struct {
	questions []*models.Question
	tours     []int64
}

func (s *stubCatalog) ByTourAndNumber(_ context.Context, tour, number int64) (*models.Question, error) {
	for _, q := range s.questions {
		if q.TourNumber == tour && q.Number == number {
			return q, nil
		}
	}
	return nil, repositories.ErrQuestionNotFound
}

func (s *stubCatalog) QuestionsByTour(_ context.Context, tour int64) ([]*models.Question, error) {
	var out []*models.Question
	for _, q := range s.questions {
		if q.TourNumber == tour {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *stubCatalog) TourNumbers(_ context.Context) ([]int64, error) {
	return s.tours, nil
}

type upsertCall struct {
	senderID   string
	directorID string
	questionID int64
	field      models.AwardField
	value      float64
}

type transferCall struct {
	senderID   string
	directorID string
	questionID int64
	receiverID string
	amount     int64
}

type answerCall struct {
	senderID   string
	questionID int64
	correct    bool
}

type stubLedger struct {
	upserts   []upsertCall
	transfers []transferCall
	answers   []answerCall
	completed map[int64]bool
}

func (s *stubLedger) Upsert(_ context.Context, senderID, directorID string, questionID int64, field models.AwardField, value float64) (*models.PointEvent, error) {
	s.upserts = append(s.upserts, upsertCall{senderID, directorID, questionID, field, value})
	return &models.PointEvent{SenderID: senderID, DirectorID: directorID, QuestionID: questionID}, nil
}

func (s *stubLedger) Transfer(_ context.Context, senderID, directorID string, questionID int64, receiverID string, amount int64) (*models.PointEvent, error) {
	s.transfers = append(s.transfers, transferCall{senderID, directorID, questionID, receiverID, amount})
	return &models.PointEvent{SenderID: senderID, DirectorID: directorID, QuestionID: questionID, ReceiverID: receiverID, TransferPoints: amount}, nil
}

func (s *stubLedger) RecordAnswer(_ context.Context, senderID string, questionID int64, correct bool) error {
	s.answers = append(s.answers, answerCall{senderID, questionID, correct})
	if s.completed == nil {
		s.completed = map[int64]bool{}
	}
	s.completed[questionID] = true
	return nil
}

func (s *stubLedger) CompletedByQuestion(_ context.Context, _ string, questionIDs []int64) (map[int64]bool, error) {
	out := map[int64]bool{}
	for _, id := range questionIDs {
		if s.completed[id] {
			out[id] = true
		}
	}
	return out, nil
}

type stubStandings struct {
	refreshed [][]string // discord ids per Refresh call
	seeded    map[string]string
}

func (s *stubStandings) Refresh(_ context.Context, participants ...*models.Participant) error {
	ids := make([]string, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.DiscordID)
	}
	s.refreshed = append(s.refreshed, ids)
	return nil
}

func (s *stubStandings) EnsureRow(_ context.Context, participantID, fullName string) error {
	if s.seeded == nil {
		s.seeded = map[string]string{}
	}
	s.seeded[participantID] = fullName
	return nil
}

type stubIdentity struct {
	registered  []*models.Participant
	registerErr error
	password    string
	authorized  map[int64]bool
	resetTo     string
}

func (s *stubIdentity) Register(_ context.Context, p *models.Participant, _ string) error {
	if s.registerErr != nil {
		return s.registerErr
	}
	s.registered = append(s.registered, p)
	return nil
}

func (s *stubIdentity) Credential(_ context.Context, participantID int64) (*models.Credential, error) {
	return &models.Credential{ParticipantID: participantID, IsAuthorized: s.authorized[participantID]}, nil
}

func (s *stubIdentity) Authenticate(_ context.Context, _ int64, password string) (bool, error) {
	return password == s.password, nil
}

func (s *stubIdentity) SetAuthorized(_ context.Context, participantID int64, authorized bool) error {
	if s.authorized == nil {
		s.authorized = map[int64]bool{}
	}
	s.authorized[participantID] = authorized
	return nil
}

func (s *stubIdentity) ResetPassword(_ context.Context, _ int64, newPassword string) error {
	s.resetTo = newPassword
	return nil
}

var errDuplicate = errors.New("duplicate key value violates unique constraint")

func participantFixture(id int64, discordID, fullName string, roleID int64) *models.Participant {
	return &models.Participant{
		ID:          id,
		DiscordID:   discordID,
		Username:    "@user" + discordID,
		FullName:    fullName,
		PhoneNumber: "8905374300" + discordID[:1],
		DateOfBirth: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		RoleID:      roleID,
	}
}
