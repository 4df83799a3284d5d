package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/maxter9595/O2RusQuizBot/quizbot/database/models"
	"github.com/maxter9595/O2RusQuizBot/quizbot/database/repositories"
	"github.com/maxter9595/O2RusQuizBot/quizbot/ranking"
	"github.com/maxter9595/O2RusQuizBot/quizbot/utils"
)

type awardState int

const (
	awardAwaitingTour awardState = iota
	awardAwaitingQuestion
	awardAwaitingType
	awardAwaitingTarget
	awardAwaitingPlace
	awardAwaitingPoolTotal
	awardAwaitingBonus
	awardAwaitingBonusRange
	awardAwaitingReceiver
	awardAwaitingAmount
)

const (
	awardTypePlacement = 1
	awardTypePool      = 2
	awardTypeBonus     = 3
	awardTypeTransfer  = 4
)

var awardTypePrompt = strings.Join([]string{
	"Введите тип начисления баллов в виде числа:",
	"1 - порядковый номер занятого места с шагом 5 баллов",
	"2 - РОТ (ПОТ) [указываем общую цифру, делим на /50 и зачисляем полученные баллы]",
	"3 - произвольная цифра (бонусы)",
	"4 - перевод баллов между участниками",
}, "\n")

// AwardFlow is the director-side scoring conversation: tour, question, award
// type, target participant, then the type-specific value. Malformed input
// re-prompts in the same state; unknown entities end the flow. The target may
// be given by database id or by a name fragment.
type AwardFlow struct {
	directory Directory
	catalog   Catalog
	ledger    Ledger
	standings Standings

	director *models.Participant

	state        awardState
	tour         int64
	question     int64
	awardType    int
	roster       []*models.Participant
	target       *models.Participant
	receiver     *models.Participant
	participants int

	// drawBonus is swappable in tests; the default draws uniformly from
	// the inclusive range.
	drawBonus func(min, max int64) int64
}

func NewAwardFlow(directory Directory, catalog Catalog, ledger Ledger, standings Standings, director *models.Participant) *AwardFlow {
	return &AwardFlow{
		directory: directory,
		catalog:   catalog,
		ledger:    ledger,
		standings: standings,
		director:  director,
		drawBonus: func(min, max int64) int64 {
			return min + rand.Int63n(max-min+1)
		},
	}
}

func (f *AwardFlow) Begin(ctx context.Context) ([]Effect, bool, error) {
	return []Effect{{
		Text: "Введите номер тура:",
		Menu: NavMenu(),
	}}, false, nil
}

func (f *AwardFlow) Advance(ctx context.Context, input string) ([]Effect, bool, error) {
	input = strings.TrimSpace(input)

	switch f.state {
	case awardAwaitingTour:
		return f.advanceTour(input)
	case awardAwaitingQuestion:
		return f.advanceQuestion(input)
	case awardAwaitingType:
		return f.advanceType(ctx, input)
	case awardAwaitingTarget:
		return f.advanceTarget(input)
	case awardAwaitingPlace:
		return f.advancePlace(ctx, input)
	case awardAwaitingPoolTotal:
		return f.advancePoolTotal(ctx, input)
	case awardAwaitingBonus:
		return f.advanceBonus(ctx, input)
	case awardAwaitingBonusRange:
		return f.advanceBonusRange(ctx, input)
	case awardAwaitingReceiver:
		return f.advanceReceiver(input)
	case awardAwaitingAmount:
		return f.advanceAmount(ctx, input)
	}
	return nil, true, fmt.Errorf("award flow in unknown state %d", f.state)
}

func (f *AwardFlow) advanceTour(input string) ([]Effect, bool, error) {
	if !utils.IsDigits(input) {
		return []Effect{TextEffect("Некорректный ввод номера тура (должно быть число)")}, false, nil
	}
	tour, ok := utils.ParsePositiveInt(input)
	if !ok {
		return []Effect{TextEffect("Некорректный ввод номера тура (число должно быть больше нуля)")}, false, nil
	}
	f.tour = tour
	f.state = awardAwaitingQuestion
	return []Effect{TextEffect("Введите номер вопроса:")}, false, nil
}

func (f *AwardFlow) advanceQuestion(input string) ([]Effect, bool, error) {
	if !utils.IsDigits(input) {
		return []Effect{TextEffect("Некорректный ввод номера вопроса (должно быть число)")}, false, nil
	}
	question, ok := utils.ParsePositiveInt(input)
	if !ok {
		return []Effect{TextEffect("Некорректный ввод номера вопроса (число должно быть больше нуля)")}, false, nil
	}
	f.question = question
	f.state = awardAwaitingType
	return []Effect{TextEffect(awardTypePrompt)}, false, nil
}

func (f *AwardFlow) advanceType(ctx context.Context, input string) ([]Effect, bool, error) {
	switch input {
	case "1":
		f.awardType = awardTypePlacement
	case "2":
		f.awardType = awardTypePool
	case "3":
		f.awardType = awardTypeBonus
	case "4":
		f.awardType = awardTypeTransfer
	default:
		return []Effect{TextEffect("Некорректный тип начисления баллов. Пожалуйста, выберите один из предложенных вариантов")}, false, nil
	}

	roster, err := f.directory.Participants(ctx)
	if err != nil {
		return nil, true, fmt.Errorf("failed to load participants: %w", err)
	}
	if len(roster) == 0 {
		return []Effect{TextEffect("У вас отсутствуют участники")}, true, nil
	}
	if f.awardType == awardTypeTransfer && len(roster) < 2 {
		return []Effect{TextEffect("Недостаточное количество участников для начисления баллов")}, true, nil
	}
	f.roster = roster
	f.participants = len(roster)
	f.state = awardAwaitingTarget

	var prompt string
	switch f.awardType {
	case awardTypePlacement:
		prompt = "Выберите по ID участника, которому будем ставить место в рейтинге:"
	case awardTypeTransfer:
		prompt = "Выберите участника, у которого забираем баллы по его ID в БД:"
	default:
		prompt = "Выберите по ID участника, которому назначаем баллы:"
	}
	return []Effect{
		TextEffect("Список участников:\n" + rosterText(roster)),
		TextEffect(prompt),
	}, false, nil
}

func (f *AwardFlow) advanceTarget(input string) ([]Effect, bool, error) {
	target, effects, done := f.resolveParticipant(input)
	if target == nil {
		return effects, done, nil
	}
	f.target = target

	switch f.awardType {
	case awardTypePlacement:
		f.state = awardAwaitingPlace
		return []Effect{TextEffect(fmt.Sprintf(
			"Введите номер места в рейтинге для следующего участника: %s (Discord: %s, %s). На текущий момент можно ввести место в диапазоне от 1 до %d",
			target.FullName, target.Username, target.DiscordID, f.participants))}, false, nil
	case awardTypePool:
		f.state = awardAwaitingPoolTotal
		return []Effect{TextEffect("Введите общую цифру для начисления баллов:")}, false, nil
	case awardTypeBonus:
		f.state = awardAwaitingBonus
		return []Effect{TextEffect("Введите размер бонуса (если хотите автоматом задать рандомное число введите 'random'):")}, false, nil
	case awardTypeTransfer:
		f.state = awardAwaitingReceiver
		return []Effect{TextEffect("Выберите участника, которому начисляем баллы по его ID в БД:")}, false, nil
	}
	return nil, true, fmt.Errorf("award flow with unknown type %d", f.awardType)
}

func (f *AwardFlow) advancePlace(ctx context.Context, input string) ([]Effect, bool, error) {
	if !utils.IsDigits(input) {
		return []Effect{TextEffect("Некорректный ввод места в рейтинге (должно быть число)")}, false, nil
	}
	place, ok := utils.ParsePositiveInt(input)
	if !ok {
		return []Effect{TextEffect("Некорректный ввод места в рейтинге (число должно быть больше нуля)")}, false, nil
	}
	if int(place) > f.participants {
		return []Effect{TextEffect(fmt.Sprintf("Место в рейтинге должно быть в диапазоне от 1 до %d", f.participants))}, false, nil
	}

	points := ranking.PlacementPoints(int(place), f.participants)
	effects, questionID, err := f.lookupQuestion(ctx)
	if questionID == 0 {
		return effects, true, err
	}
	if _, err := f.ledger.Upsert(ctx, f.target.DiscordID, f.director.DiscordID, questionID, models.AwardPlacement, float64(points)); err != nil {
		return nil, true, fmt.Errorf("failed to record placement award: %w", err)
	}
	f.refresh(ctx, f.target)
	return []Effect{{
		Text: fmt.Sprintf("Участник %s получил %d баллов за %d место в рейтинге", f.target.FullName, points, place),
		Menu: NavMenu(),
	}}, true, nil
}

func (f *AwardFlow) advancePoolTotal(ctx context.Context, input string) ([]Effect, bool, error) {
	if !utils.IsDigits(input) {
		return []Effect{TextEffect("Некорректный ввод общей цифры (нужно именно число)")}, false, nil
	}
	total, ok := utils.ParsePositiveInt(input)
	if !ok {
		return []Effect{TextEffect("Некорректный ввод общей цифры (число должно быть больше нуля)")}, false, nil
	}

	points := float64(total) / 50
	effects, questionID, err := f.lookupQuestion(ctx)
	if questionID == 0 {
		return effects, true, err
	}
	if _, err := f.ledger.Upsert(ctx, f.target.DiscordID, f.director.DiscordID, questionID, models.AwardPoolShare, points); err != nil {
		return nil, true, fmt.Errorf("failed to record pool share award: %w", err)
	}
	f.refresh(ctx, f.target)
	return []Effect{{
		Text: fmt.Sprintf("Участник %s получил %d баллов", f.target.FullName, int64(points)),
		Menu: NavMenu(),
	}}, true, nil
}

func (f *AwardFlow) advanceBonus(ctx context.Context, input string) ([]Effect, bool, error) {
	if input == "random" {
		f.state = awardAwaitingBonusRange
		return []Effect{TextEffect("Введите минимальный и максимальный возможный размер бонуса через запятую (пример - 1, 100):")}, false, nil
	}
	if !utils.IsDigits(input) {
		return []Effect{TextEffect("Некорректный ввод размера бонуса")}, false, nil
	}
	bonus, ok := utils.ParsePositiveInt(input)
	if !ok {
		return []Effect{TextEffect("Размер бонуса должен быть больше нуля")}, false, nil
	}
	return f.commitBonus(ctx, bonus)
}

func (f *AwardFlow) advanceBonusRange(ctx context.Context, input string) ([]Effect, bool, error) {
	parts := strings.Split(strings.ReplaceAll(input, " ", ""), ",")
	if len(parts) != 2 || !utils.IsDigits(parts[0]) || !utils.IsDigits(parts[1]) {
		return []Effect{TextEffect("Некорректный ввод диапазона бонуса")}, false, nil
	}
	min, okMin := utils.ParsePositiveInt(parts[0])
	max, okMax := utils.ParsePositiveInt(parts[1])
	if !okMin || !okMax {
		return []Effect{TextEffect("Принимаются только положительные числа")}, false, nil
	}
	if max <= min {
		return []Effect{TextEffect("Диапазон бонуса должен быть указан от меньшего к большему в формате 'a, b'")}, false, nil
	}
	return f.commitBonus(ctx, f.drawBonus(min, max))
}

func (f *AwardFlow) commitBonus(ctx context.Context, bonus int64) ([]Effect, bool, error) {
	effects, questionID, err := f.lookupQuestion(ctx)
	if questionID == 0 {
		return effects, true, err
	}
	if _, err := f.ledger.Upsert(ctx, f.target.DiscordID, f.director.DiscordID, questionID, models.AwardBonus, float64(bonus)); err != nil {
		return nil, true, fmt.Errorf("failed to record bonus award: %w", err)
	}
	f.refresh(ctx, f.target)
	return []Effect{{
		Text: fmt.Sprintf("Баллы начислены участнику %s в размере %d баллов/балла", f.target.FullName, bonus),
		Menu: NavMenu(),
	}}, true, nil
}

func (f *AwardFlow) advanceReceiver(input string) ([]Effect, bool, error) {
	receiver, effects, done := f.resolveParticipant(input)
	if receiver == nil {
		return effects, done, nil
	}
	if receiver.DiscordID == f.target.DiscordID {
		return []Effect{TextEffect("Нельзя переводить баллы самому себе")}, true, nil
	}
	if !receiver.IsParticipant() {
		return []Effect{TextEffect("Я принимаю только участников")}, true, nil
	}
	f.receiver = receiver
	f.state = awardAwaitingAmount
	return []Effect{TextEffect("Введите количество начисляемых баллов:")}, false, nil
}

func (f *AwardFlow) advanceAmount(ctx context.Context, input string) ([]Effect, bool, error) {
	if !utils.IsDigits(input) {
		return []Effect{TextEffect("Количество начисляемых баллов должно быть числом")}, false, nil
	}
	amount, ok := utils.ParsePositiveInt(input)
	if !ok {
		return []Effect{TextEffect("Количество начисляемых баллов должно быть больше 0")}, false, nil
	}

	effects, questionID, err := f.lookupQuestion(ctx)
	if questionID == 0 {
		return effects, true, err
	}
	if _, err := f.ledger.Transfer(ctx, f.target.DiscordID, f.director.DiscordID, questionID, f.receiver.DiscordID, amount); err != nil {
		return nil, true, fmt.Errorf("failed to record transfer: %w", err)
	}
	f.refresh(ctx, f.target, f.receiver)
	return []Effect{{
		Text: fmt.Sprintf("Баллы начислены участнику %s в размере %d баллов/балла", f.receiver.FullName, amount),
		Menu: NavMenu(),
	}}, true, nil
}

// lookupQuestion resolves the collected tour/question pair. A zero id means
// the flow should end with the returned effects.
func (f *AwardFlow) lookupQuestion(ctx context.Context) ([]Effect, int64, error) {
	q, err := f.catalog.ByTourAndNumber(ctx, f.tour, f.question)
	if err != nil {
		if errors.Is(err, repositories.ErrQuestionNotFound) {
			return []Effect{TextEffect("Пара 'тур-вопрос' не существует в БД")}, 0, nil
		}
		return nil, 0, fmt.Errorf("failed to resolve question: %w", err)
	}
	return nil, q.ID, nil
}

// resolveParticipant accepts a database id or a name fragment. A nil result
// comes with the effects to emit and whether the flow ends.
func (f *AwardFlow) resolveParticipant(input string) (*models.Participant, []Effect, bool) {
	if utils.IsDigits(input) {
		id, ok := utils.ParsePositiveInt(input)
		if !ok {
			return nil, []Effect{TextEffect("ID должен быть больше нуля")}, false
		}
		for _, p := range f.roster {
			if p.ID == id {
				return p, nil, false
			}
		}
		return nil, []Effect{TextEffect("Участника не существует в БД")}, true
	}

	matches := fuzzy.FindFrom(input, rosterSource(f.roster))
	switch len(matches) {
	case 0:
		return nil, []Effect{TextEffect("Участника не существует в БД")}, true
	case 1:
		return f.roster[matches[0].Index], nil, false
	default:
		return nil, []Effect{TextEffect("Найдено несколько участников, уточните ввод:")}, false
	}
}

func (f *AwardFlow) refresh(ctx context.Context, participants ...*models.Participant) {
	if err := f.standings.Refresh(ctx, participants...); err != nil {
		slog.Error("Failed to refresh standings",
			slog.String("type", "sys"),
			slog.Any("error", err))
	}
}

func rosterText(roster []*models.Participant) string {
	lines := make([]string, 0, len(roster))
	for _, p := range roster {
		lines = append(lines, fmt.Sprintf("%d: %s (Discord: %s, %s)", p.ID, p.FullName, p.Username, p.DiscordID))
	}
	return strings.Join(lines, "\n")
}

type rosterSource []*models.Participant

func (r rosterSource) String(i int) string { return r[i].FullName }
func (r rosterSource) Len() int            { return len(r) }
