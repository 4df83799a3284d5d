package workflow

import (
	"context"

	"github.com/maxter9595/O2RusQuizBot/quizbot/database/models"
	"github.com/maxter9595/O2RusQuizBot/quizbot/ranking"
)

// Flow is a multi-step conversation. Begin emits the opening prompt;
// Advance consumes one user message and either re-prompts, moves on, or
// finishes. The done flag ends the session; the transport discards the flow
// once it reports done. Menu shortcut keywords are intercepted before
// Advance is called, so flows never see them.
type Flow interface {
	Begin(ctx context.Context) (effects []Effect, done bool, err error)
	Advance(ctx context.Context, input string) (effects []Effect, done bool, err error)
}

// Directory reads participant records.
type Directory interface {
	ByDiscordID(ctx context.Context, discordID string) (*models.Participant, error)
	ByID(ctx context.Context, id int64) (*models.Participant, error)
	Participants(ctx context.Context) ([]*models.Participant, error)
}

// Identity covers registration and credential checks.
type Identity interface {
	Register(ctx context.Context, p *models.Participant, password string) error
	Credential(ctx context.Context, participantID int64) (*models.Credential, error)
	Authenticate(ctx context.Context, participantID int64, password string) (bool, error)
	SetAuthorized(ctx context.Context, participantID int64, authorized bool) error
	ResetPassword(ctx context.Context, participantID int64, newPassword string) error
}

// Catalog resolves tours and questions.
type Catalog interface {
	ByTourAndNumber(ctx context.Context, tour, number int64) (*models.Question, error)
	QuestionsByTour(ctx context.Context, tour int64) ([]*models.Question, error)
	TourNumbers(ctx context.Context) ([]int64, error)
}

// Ledger writes point events.
type Ledger interface {
	Upsert(ctx context.Context, senderID, directorID string, questionID int64, field models.AwardField, value float64) (*models.PointEvent, error)
	Transfer(ctx context.Context, senderID, directorID string, questionID int64, receiverID string, amount int64) (*models.PointEvent, error)
	RecordAnswer(ctx context.Context, senderID string, questionID int64, correct bool) error
	CompletedByQuestion(ctx context.Context, senderID string, questionIDs []int64) (map[int64]bool, error)
}

// Standings is notified after every ledger mutation.
type Standings interface {
	Refresh(ctx context.Context, participants ...*models.Participant) error
	EnsureRow(ctx context.Context, participantID, fullName string) error
}

// Reporter renders rating replies. Implemented by the handlers layer so
// rating flows can emit the same tables the direct rating commands do.
type Reporter interface {
	RatingReport(ctx context.Context, tourNumber *int64, focusID string, sortKey ranking.SortKey) ([]Effect, error)
}
