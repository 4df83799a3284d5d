package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maxter9595/O2RusQuizBot/quizbot/database/models"
	"github.com/maxter9595/O2RusQuizBot/quizbot/utils"
)

// LoginFlow asks for the password and marks the credential authorized on a
// match. A wrong password ends the flow; the user restarts it with /login.
type LoginFlow struct {
	identity    Identity
	participant *models.Participant
}

func NewLoginFlow(identity Identity, participant *models.Participant) *LoginFlow {
	return &LoginFlow{identity: identity, participant: participant}
}

func (f *LoginFlow) Begin(ctx context.Context) ([]Effect, bool, error) {
	return []Effect{TextEffect("Введите ваш пароль:")}, false, nil
}

func (f *LoginFlow) Advance(ctx context.Context, input string) ([]Effect, bool, error) {
	ok, err := f.identity.Authenticate(ctx, f.participant.ID, input)
	if err != nil {
		return nil, true, fmt.Errorf("failed to check password: %w", err)
	}
	if !ok {
		return []Effect{TextEffect("Неправильный пароль")}, true, nil
	}
	if err := f.identity.SetAuthorized(ctx, f.participant.ID, true); err != nil {
		return nil, true, fmt.Errorf("failed to authorize: %w", err)
	}
	slog.Info("Participant logged in",
		slog.String("type", "cmd"),
		slog.String("discord_id", f.participant.DiscordID))
	return []Effect{{
		Text: "Главное меню",
		Menu: MainMenu(f.participant.RoleID),
	}}, true, nil
}

type passwordResetState int

const (
	resetAwaitingPhone passwordResetState = iota
	resetAwaitingPassword
)

// PasswordResetFlow verifies the account's phone number before accepting a
// new password. A mismatched phone aborts; the new password replaces the
// hash and de-authorizes the session.
type PasswordResetFlow struct {
	identity    Identity
	participant *models.Participant
	state       passwordResetState
}

func NewPasswordResetFlow(identity Identity, participant *models.Participant) *PasswordResetFlow {
	return &PasswordResetFlow{identity: identity, participant: participant}
}

func (f *PasswordResetFlow) Begin(ctx context.Context) ([]Effect, bool, error) {
	return []Effect{{
		Text: "Введите ваш номер телефона, указанный при регистрации:",
		Menu: NavMenu(),
	}}, false, nil
}

func (f *PasswordResetFlow) Advance(ctx context.Context, input string) ([]Effect, bool, error) {
	switch f.state {
	case resetAwaitingPhone:
		phone, err := utils.ParsePhone(input)
		if err != nil {
			return []Effect{TextEffect("Некорректный формат номера телефона. Повторите ввод:")}, false, nil
		}
		if phone != f.participant.PhoneNumber {
			return []Effect{TextEffect("Номер телефона не совпадает с указанным при регистрации")}, true, nil
		}
		f.state = resetAwaitingPassword
		return []Effect{TextEffect("Введите новый пароль:")}, false, nil

	case resetAwaitingPassword:
		input = strings.TrimSpace(input)
		if input == "" {
			return []Effect{TextEffect("Пароль не может быть пустым. Повторите ввод:")}, false, nil
		}
		if err := f.identity.ResetPassword(ctx, f.participant.ID, input); err != nil {
			return nil, true, fmt.Errorf("failed to reset password: %w", err)
		}
		slog.Info("Password reset",
			slog.String("type", "cmd"),
			slog.String("discord_id", f.participant.DiscordID))
		return []Effect{TextEffect("Пароль изменён. Авторизируйтесь через команду /login")}, true, nil
	}

	return nil, true, fmt.Errorf("password reset flow in unknown state %d", f.state)
}
