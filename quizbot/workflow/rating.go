package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/maxter9595/O2RusQuizBot/quizbot/database/models"
	"github.com/maxter9595/O2RusQuizBot/quizbot/ranking"
	"github.com/maxter9595/O2RusQuizBot/quizbot/utils"
)

// SelfRatingFlow shows the participant roster, then renders the rating row
// of whichever id the user names.
type SelfRatingFlow struct {
	directory Directory
	reporter  Reporter
	roster    []*models.Participant
}

func NewSelfRatingFlow(directory Directory, reporter Reporter) *SelfRatingFlow {
	return &SelfRatingFlow{directory: directory, reporter: reporter}
}

func (f *SelfRatingFlow) Begin(ctx context.Context) ([]Effect, bool, error) {
	roster, err := f.directory.Participants(ctx)
	if err != nil {
		return nil, true, fmt.Errorf("failed to load participants: %w", err)
	}
	if len(roster) == 0 {
		return []Effect{TextEffect("Участников в турнире пока нет")}, true, nil
	}
	f.roster = roster
	return []Effect{
		{
			Text: "Список участников:\n" + rosterText(roster),
			Menu: NavMenu(),
		},
		TextEffect("Укажите свой ID (его вы можете найти в представленном выше списке):"),
	}, false, nil
}

func (f *SelfRatingFlow) Advance(ctx context.Context, input string) ([]Effect, bool, error) {
	input = strings.TrimSpace(input)

	var focusID string
	for _, p := range f.roster {
		if p.DiscordID == input {
			focusID = p.DiscordID
			break
		}
		if utils.IsDigits(input) {
			if id, ok := utils.ParsePositiveInt(input); ok && p.ID == id {
				focusID = p.DiscordID
				break
			}
		}
	}
	if focusID == "" {
		return []Effect{TextEffect("Не удалось найти ваш результат в рейтинге")}, true, nil
	}

	effects, err := f.reporter.RatingReport(ctx, nil, focusID, "")
	if err != nil {
		if e := ratingErrorEffects(err); e != nil {
			return e, true, nil
		}
		return nil, true, err
	}
	return effects, true, nil
}

// TourRatingFlow asks for a tour number and renders that tour's rating.
type TourRatingFlow struct {
	reporter Reporter
}

func NewTourRatingFlow(reporter Reporter) *TourRatingFlow {
	return &TourRatingFlow{reporter: reporter}
}

func (f *TourRatingFlow) Begin(ctx context.Context) ([]Effect, bool, error) {
	return []Effect{{
		Text: "Введите номер тура по которому хотите получить статистику",
		Menu: NavMenu(),
	}}, false, nil
}

func (f *TourRatingFlow) Advance(ctx context.Context, input string) ([]Effect, bool, error) {
	input = strings.TrimSpace(input)
	if !utils.IsDigits(input) {
		return []Effect{TextEffect("Нужен именно номер турнира")}, false, nil
	}
	tour, ok := utils.ParsePositiveInt(input)
	if !ok {
		return []Effect{TextEffect("Нужно именно положительное число")}, false, nil
	}

	effects, err := f.reporter.RatingReport(ctx, &tour, "", "")
	if err != nil {
		if e := ratingErrorEffects(err); e != nil {
			return e, true, nil
		}
		return nil, true, err
	}
	return effects, true, nil
}

// ratingErrorEffects maps the ranking sentinels to their user replies; any
// other error propagates.
func ratingErrorEffects(err error) []Effect {
	switch {
	case errors.Is(err, ranking.ErrNoParticipants):
		return []Effect{TextEffect("Нет участников в турнире")}
	case errors.Is(err, ranking.ErrTourNotFound):
		return []Effect{TextEffect("Номера тура не существует")}
	case errors.Is(err, ranking.ErrNoResults):
		return []Effect{TextEffect("Нет результатов")}
	case errors.Is(err, ranking.ErrNotInRanking):
		return []Effect{TextEffect("Не удалось найти ваш результат в рейтинге")}
	}
	return nil
}
