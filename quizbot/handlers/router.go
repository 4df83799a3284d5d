package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maxter9595/O2RusQuizBot/quizbot/database/models"
	"github.com/maxter9595/O2RusQuizBot/quizbot/database/repositories"
	"github.com/maxter9595/O2RusQuizBot/quizbot/ranking"
	"github.com/maxter9595/O2RusQuizBot/quizbot/services"
	"github.com/maxter9595/O2RusQuizBot/quizbot/utils"
	"github.com/maxter9595/O2RusQuizBot/quizbot/workflow"
)

// request carries the resolved identity of one inbound message.
type request struct {
	userID      string
	username    string
	participant *models.Participant
	authorized  bool
}

type handlerFunc func(ctx context.Context, req *request) []workflow.Effect

// intentSpec pairs a handler with its guard requirements. The guard ladder
// runs registered → authorized → role before the handler is invoked.
type intentSpec struct {
	needsRegistered bool
	needsAuthorized bool
	role            int64 // 0 = any role
	roleReply       string
	handle          handlerFunc
}

// Router resolves each inbound message to either the user's active flow or
// a fresh intent dispatch, and turns the outcome into effects.
type Router struct {
	sessions     *workflow.Sessions
	participants repositories.ParticipantRepository
	questions    repositories.QuestionRepository
	ledger       repositories.PointEventRepository
	standings    repositories.StandingsRepository
	projector    *ranking.Projector
	engine       *ranking.Engine

	// images and archive are optional; nil disables the PNG broadcast and
	// the export archive respectively.
	images  *services.StandingsImageService
	archive *services.ExportArchiveService

	table map[Intent]intentSpec
}

func NewRouter(
	sessions *workflow.Sessions,
	participants repositories.ParticipantRepository,
	questions repositories.QuestionRepository,
	ledger repositories.PointEventRepository,
	standings repositories.StandingsRepository,
	projector *ranking.Projector,
	engine *ranking.Engine,
	images *services.StandingsImageService,
	archive *services.ExportArchiveService,
) *Router {
	r := &Router{
		sessions:     sessions,
		participants: participants,
		questions:    questions,
		ledger:       ledger,
		standings:    standings,
		projector:    projector,
		engine:       engine,
		images:       images,
		archive:      archive,
	}
	r.table = map[Intent]intentSpec{
		IntentStart:         {handle: r.handleStart},
		IntentRegister:      {handle: r.handleRegister},
		IntentLogin:         {handle: r.handleLogin},
		IntentLogout:        {handle: r.handleLogout},
		IntentMainMenu:      {needsRegistered: true, needsAuthorized: true, handle: r.handleMainMenu},
		IntentResetPassword: {needsRegistered: true, handle: r.handleResetPassword},
		IntentStartQuiz: {
			needsRegistered: true, needsAuthorized: true,
			role: models.RoleParticipant, roleReply: "Вы не являетесь участником турнира",
			handle: r.handleStartQuiz,
		},
		IntentAddPoints: {
			needsRegistered: true, needsAuthorized: true,
			role: models.RoleDirector, roleReply: "Вы не являетесь директором. Вы не можете начислять баллы",
			handle: r.handleAddPoints,
		},
		IntentRatingTotal:    {needsRegistered: true, needsAuthorized: true, handle: r.handleRatingTotal},
		IntentRatingSelf:     {needsRegistered: true, needsAuthorized: true, handle: r.handleRatingSelf},
		IntentRatingAnswers:  {needsRegistered: true, needsAuthorized: true, handle: r.handleRatingAnswers},
		IntentRatingTour:     {needsRegistered: true, needsAuthorized: true, handle: r.handleRatingTour},
		IntentRatingAllTours: {needsRegistered: true, needsAuthorized: true, handle: r.handleRatingAllTours},
	}
	return r
}

// HandleMessage processes one inbound message and returns the effects to
// apply. Menu shortcut intents interrupt an active flow; any other message
// is fed to the flow first.
func (r *Router) HandleMessage(ctx context.Context, userID, username, content string) []workflow.Effect {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	start := time.Now()

	req, err := r.identify(ctx, userID, username)
	if err != nil {
		slog.Error("Failed to resolve identity",
			slog.String("type", "cmd"),
			slog.String("user_id", userID),
			slog.Any("error", err))
		return []workflow.Effect{workflow.TextEffect("Произошла ошибка. Попробуйте ещё раз")}
	}

	intent := ParseIntent(content)

	// Main menu and logout short-circuit out of any flow.
	if intent == IntentMainMenu || intent == IntentLogout {
		r.sessions.End(userID)
	} else if flow, ok := r.sessions.Active(userID); ok {
		effects, done, err := flow.Advance(ctx, content)
		if done || err != nil {
			r.sessions.End(userID)
		}
		if err != nil {
			slog.Error("Workflow step failed",
				slog.String("type", "cmd"),
				slog.String("user_id", userID),
				slog.Any("error", err))
			return []workflow.Effect{workflow.TextEffect("Произошла ошибка. Попробуйте ещё раз")}
		}
		return effects
	}

	spec, ok := r.table[intent]
	if !ok {
		return nil
	}
	if guard := r.guard(&spec, req); guard != nil {
		return guard
	}

	effects := spec.handle(ctx, req)
	slog.Debug("Intent handled",
		slog.String("type", "cmd"),
		slog.String("user_id", userID),
		slog.Int("intent", int(intent)),
		slog.Duration("took", time.Since(start)))
	return effects
}

func (r *Router) identify(ctx context.Context, userID, username string) (*request, error) {
	req := &request{userID: userID, username: username}

	participant, err := r.participants.ByDiscordID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotRegistered) {
			return req, nil
		}
		return nil, err
	}
	req.participant = participant

	// A missing credential row degrades to "not authorized", never an
	// internal error.
	cred, err := r.participants.Credential(ctx, participant.ID)
	if err != nil || cred == nil {
		return req, nil
	}
	req.authorized = cred.IsAuthorized
	return req, nil
}

func (r *Router) guard(spec *intentSpec, req *request) []workflow.Effect {
	if spec.needsRegistered && req.participant == nil {
		return []workflow.Effect{workflow.TextEffect("Вы не зарегистрированы. Для регистрации введите /register")}
	}
	if spec.needsAuthorized && !req.authorized {
		return []workflow.Effect{workflow.TextEffect("Вы не авторизованы. Для авторизации введите /login")}
	}
	if spec.role != 0 && req.participant.RoleID != spec.role {
		return []workflow.Effect{workflow.TextEffect(spec.roleReply)}
	}
	return nil
}

func (r *Router) begin(ctx context.Context, userID string, flow workflow.Flow) []workflow.Effect {
	effects, done, err := flow.Begin(ctx)
	if err != nil {
		slog.Error("Failed to start workflow",
			slog.String("type", "cmd"),
			slog.String("user_id", userID),
			slog.Any("error", err))
		return []workflow.Effect{workflow.TextEffect("Произошла ошибка. Попробуйте ещё раз")}
	}
	if !done {
		r.sessions.Begin(userID, flow)
	}
	return effects
}

func (r *Router) handleStart(ctx context.Context, req *request) []workflow.Effect {
	if req.participant != nil && req.authorized {
		return []workflow.Effect{workflow.TextEffect("Вы уже авторизованы")}
	}
	return []workflow.Effect{{
		Text: strings.Join([]string{
			"Добро пожаловать!",
			"📝 Для регистрации введите /register",
			"🔒 Для авторизации введите /login",
		}, "\n"),
		Menu: workflow.StartMenu(),
	}}
}

func (r *Router) handleRegister(ctx context.Context, req *request) []workflow.Effect {
	if req.participant != nil {
		return []workflow.Effect{workflow.TextEffect("Вы уже зарегистрированы!")}
	}
	return r.begin(ctx, req.userID, workflow.NewRegistrationFlow(r.participants, r.projector, req.userID, req.username))
}

func (r *Router) handleLogin(ctx context.Context, req *request) []workflow.Effect {
	if req.participant == nil {
		return []workflow.Effect{workflow.TextEffect("Вы не зарегистрированы. Для регистрации введите /register")}
	}
	if req.authorized {
		return []workflow.Effect{workflow.TextEffect("Вы уже авторизованы.")}
	}
	return r.begin(ctx, req.userID, workflow.NewLoginFlow(r.participants, req.participant))
}

func (r *Router) handleLogout(ctx context.Context, req *request) []workflow.Effect {
	if req.participant == nil {
		return []workflow.Effect{workflow.TextEffect("Вы не зарегистрированы")}
	}
	if !req.authorized {
		return []workflow.Effect{workflow.TextEffect("Вы не авторизованы")}
	}
	if err := r.participants.SetAuthorized(ctx, req.participant.ID, false); err != nil {
		slog.Error("Failed to log out",
			slog.String("type", "cmd"),
			slog.String("user_id", req.userID),
			slog.Any("error", err))
		return []workflow.Effect{workflow.TextEffect("Произошла ошибка. Попробуйте ещё раз")}
	}
	return []workflow.Effect{{
		Text: "Вы успешно вышли из аккаунта.",
		Menu: workflow.StartMenu(),
	}}
}

func (r *Router) handleMainMenu(ctx context.Context, req *request) []workflow.Effect {
	return []workflow.Effect{{
		Text: "Главное меню",
		Menu: workflow.MainMenu(req.participant.RoleID),
	}}
}

func (r *Router) handleResetPassword(ctx context.Context, req *request) []workflow.Effect {
	return r.begin(ctx, req.userID, workflow.NewPasswordResetFlow(r.participants, req.participant))
}

func (r *Router) handleStartQuiz(ctx context.Context, req *request) []workflow.Effect {
	return r.begin(ctx, req.userID, workflow.NewQuizFlow(r.questions, r.ledger, r.projector, req.participant))
}

func (r *Router) handleAddPoints(ctx context.Context, req *request) []workflow.Effect {
	return r.begin(ctx, req.userID, workflow.NewAwardFlow(r.participants, r.questions, r.ledger, r.projector, req.participant))
}

func (r *Router) handleRatingTotal(ctx context.Context, req *request) []workflow.Effect {
	effects := []workflow.Effect{{
		Text: utils.LabelRatingTotal,
		Menu: workflow.NavMenu(),
	}}
	report, err := r.RatingReport(ctx, nil, "", ranking.SortByTotalPoints)
	if err != nil {
		return r.reportError(req.userID, err)
	}
	return append(effects, report...)
}

func (r *Router) handleRatingSelf(ctx context.Context, req *request) []workflow.Effect {
	return r.begin(ctx, req.userID, workflow.NewSelfRatingFlow(r.participants, r))
}

func (r *Router) handleRatingAnswers(ctx context.Context, req *request) []workflow.Effect {
	effects := []workflow.Effect{{
		Text: "Вывожу рейтинг участников с сортировкой по количеству правильных ответов",
		Menu: workflow.NavMenu(),
	}}
	report, err := r.RatingReport(ctx, nil, "", ranking.SortByCorrectAnswers)
	if err != nil {
		return r.reportError(req.userID, err)
	}
	return append(effects, report...)
}

func (r *Router) handleRatingTour(ctx context.Context, req *request) []workflow.Effect {
	return r.begin(ctx, req.userID, workflow.NewTourRatingFlow(r))
}

// handleRatingAllTours emits one rating table per tour, then the combined
// standings table (with its PNG rendering when available).
func (r *Router) handleRatingAllTours(ctx context.Context, req *request) []workflow.Effect {
	tours, err := r.questions.TourNumbers(ctx)
	if err != nil {
		return r.reportError(req.userID, err)
	}
	if len(tours) == 0 {
		return []workflow.Effect{workflow.TextEffect("Нет туров для получения статистики")}
	}

	effects := []workflow.Effect{{
		Text: "Вывожу результаты туров",
		Menu: workflow.NavMenu(),
	}}
	for _, tour := range tours {
		tour := tour
		report, err := r.RatingReport(ctx, &tour, "", ranking.SortByTotalPoints)
		if err != nil {
			return r.reportError(req.userID, err)
		}
		effects = append(effects, report...)
	}
	return append(effects, r.standingsEffects(ctx)...)
}

func (r *Router) standingsEffects(ctx context.Context) []workflow.Effect {
	rows, err := r.standings.AllStandings(ctx)
	if err != nil {
		slog.Error("Failed to load standings",
			slog.String("type", "sys"),
			slog.Any("error", err))
		return nil
	}
	if len(rows) == 0 {
		return nil
	}

	effects := []workflow.Effect{workflow.TextEffect(ranking.StandingsText(rows))}
	if r.images != nil {
		png, err := r.images.GenerateStandingsImage(ctx, utils.LabelRatingAllTours, rows)
		if err != nil {
			slog.Error("Failed to render standings image",
				slog.String("type", "sys"),
				slog.Any("error", err))
		} else {
			effects = append(effects, workflow.Effect{File: &workflow.FileAttachment{
				Name: "standings.png",
				Data: png,
			}})
		}
	}
	return effects
}

func (r *Router) reportError(userID string, err error) []workflow.Effect {
	if text := ratingErrorText(err); text != "" {
		return []workflow.Effect{workflow.TextEffect(text)}
	}
	slog.Error("Failed to build rating report",
		slog.String("type", "cmd"),
		slog.String("user_id", userID),
		slog.Any("error", err))
	return []workflow.Effect{workflow.TextEffect("Произошла ошибка. Попробуйте ещё раз")}
}

func ratingErrorText(err error) string {
	switch {
	case errors.Is(err, ranking.ErrNoParticipants):
		return "Нет участников в турнире"
	case errors.Is(err, ranking.ErrTourNotFound):
		return "Номера тура не существует"
	case errors.Is(err, ranking.ErrNoResults):
		return "Нет результатов"
	case errors.Is(err, ranking.ErrNotInRanking):
		return "Не удалось найти ваш результат в рейтинге"
	}
	return ""
}

// RatingReport implements workflow.Reporter: for the given scope it builds
// the xlsx export plus the conversational table, archiving the export when
// an archive service is configured.
func (r *Router) RatingReport(ctx context.Context, tourNumber *int64, focusID string, sortKey ranking.SortKey) ([]workflow.Effect, error) {
	rows, err := r.engine.Rank(ctx, ranking.Options{TourNumber: tourNumber, SortKey: sortKey})
	if err != nil {
		return nil, err
	}

	var caption, heading, label string
	switch {
	case focusID != "":
		row, err := ranking.Find(rows, focusID)
		if err != nil {
			return nil, err
		}
		rows = []ranking.Row{row}
		caption = fmt.Sprintf("Рейтинг участника (%s, %s)", row.FullName, row.DiscordID)
		heading = "Положение участника в рейтинге:"
		label = "participant"
	case tourNumber != nil:
		caption = fmt.Sprintf("Рейтинг участников тура №%d", *tourNumber)
		heading = fmt.Sprintf("Список участников в рейтинге по туру № %d:", *tourNumber)
		label = fmt.Sprintf("tour-%d", *tourNumber)
	default:
		caption = "Рейтинг участников турнира"
		heading = "Список участников в рейтинге:"
		label = "total"
	}

	data, err := ranking.BuildExport(rows)
	if err != nil {
		return nil, err
	}

	if r.archive != nil {
		if _, err := r.archive.Archive(ctx, label, data); err != nil {
			slog.Error("Failed to archive export",
				slog.String("type", "sys"),
				slog.Any("error", err))
		}
	}

	return []workflow.Effect{
		{File: &workflow.FileAttachment{
			Name:    ranking.ExportFileName,
			Caption: caption,
			Data:    data,
		}},
		workflow.TextEffect(ranking.TableText(heading, rows)),
	}, nil
}
