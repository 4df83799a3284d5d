package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maxter9595/O2RusQuizBot/quizbot/database/models"
	"github.com/maxter9595/O2RusQuizBot/quizbot/utils"
)

type registrationState int

const (
	regAwaitingName registrationState = iota
	regAwaitingDateOfBirth
	regAwaitingPhone
	regAwaitingPassword
)

// RegistrationFlow collects full name, date of birth, phone number and
// password, then creates the participant with the default participant role.
// Invalid input re-prompts without advancing.
type RegistrationFlow struct {
	identity  Identity
	standings Standings

	discordID string
	username  string

	state       registrationState
	fullName    string
	dateOfBirth time.Time
	phone       string
}

func NewRegistrationFlow(identity Identity, standings Standings, discordID, username string) *RegistrationFlow {
	return &RegistrationFlow{
		identity:  identity,
		standings: standings,
		discordID: discordID,
		username:  username,
	}
}

func (f *RegistrationFlow) Begin(ctx context.Context) ([]Effect, bool, error) {
	return []Effect{{
		Text: "Введите ваше ФИО (пример - Иванов Иван Иванович):",
		Menu: NavMenu(),
	}}, false, nil
}

func (f *RegistrationFlow) Advance(ctx context.Context, input string) ([]Effect, bool, error) {
	input = strings.TrimSpace(input)

	switch f.state {
	case regAwaitingName:
		if input == "" {
			return []Effect{TextEffect("ФИО не может быть пустым. Повторите ввод:")}, false, nil
		}
		f.fullName = input
		f.state = regAwaitingDateOfBirth
		return []Effect{TextEffect("Введите вашу дату рождения в формате ГГГГ-ММ-ДД (пример - 2024-06-03):")}, false, nil

	case regAwaitingDateOfBirth:
		d, err := utils.ParseDateOfBirth(input)
		if err != nil {
			return []Effect{TextEffect(dateErrorText(err))}, false, nil
		}
		f.dateOfBirth = d
		f.state = regAwaitingPhone
		return []Effect{TextEffect("Введите ваш номер телефона в формате 8xxxxxxxxxx (пример - 89053743009):")}, false, nil

	case regAwaitingPhone:
		phone, err := utils.ParsePhone(input)
		if err != nil {
			return []Effect{TextEffect("Некорректный формат номера телефона. Повторите ввод:")}, false, nil
		}
		f.phone = phone
		f.state = regAwaitingPassword
		return []Effect{TextEffect("Введите ваш пароль для авторизации:")}, false, nil

	case regAwaitingPassword:
		if input == "" {
			return []Effect{TextEffect("Пароль не может быть пустым. Повторите ввод:")}, false, nil
		}
		participant := &models.Participant{
			DiscordID:   f.discordID,
			Username:    f.username,
			FullName:    f.fullName,
			DateOfBirth: f.dateOfBirth,
			PhoneNumber: f.phone,
			RoleID:      models.RoleParticipant,
		}
		if err := f.identity.Register(ctx, participant, input); err != nil {
			slog.Error("Registration failed",
				slog.String("type", "cmd"),
				slog.String("discord_id", f.discordID),
				slog.Any("error", err))
			return []Effect{TextEffect("Пользователь уже существует")}, true, nil
		}
		if err := f.standings.EnsureRow(ctx, f.discordID, f.fullName); err != nil {
			slog.Error("Failed to seed standings row",
				slog.String("type", "sys"),
				slog.String("discord_id", f.discordID),
				slog.Any("error", err))
		}
		return []Effect{{
			Text: "Регистрация прошла успешно. Авторизируйтесь через команду /login",
			Menu: StartMenu(),
		}}, true, nil
	}

	return nil, true, fmt.Errorf("registration flow in unknown state %d", f.state)
}

func dateErrorText(err error) string {
	switch {
	case errors.Is(err, utils.ErrDateInFuture):
		return "Дата рождения не может быть в будущем. Повторите ввод:"
	case errors.Is(err, utils.ErrDateTooEarly):
		return "Слишком ранняя дата рождения. Повторите ввод:"
	default:
		return "Некорректный формат даты. Введите дату в формате ГГГГ-ММ-ДД:"
	}
}
