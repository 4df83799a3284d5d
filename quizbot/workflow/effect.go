package workflow

import (
	"github.com/maxter9595/O2RusQuizBot/quizbot/database/models"
	"github.com/maxter9595/O2RusQuizBot/quizbot/utils"
)

// Effect is one outbound action produced by a workflow step. The transport
// layer applies effects in order; a workflow never talks to the chat
// platform directly.
type Effect struct {
	Text     string
	Menu     []string
	File     *FileAttachment
	ImageURL string
}

// FileAttachment is a document sent alongside a message.
type FileAttachment struct {
	Name    string
	Caption string
	Data    []byte
}

func TextEffect(text string) Effect {
	return Effect{Text: text}
}

// NavMenu is the persistent two-button menu shown during multi-step flows.
func NavMenu() []string {
	return []string{utils.LabelMainMenu, utils.LabelLogout}
}

// StartMenu is shown to unauthenticated users.
func StartMenu() []string {
	return []string{utils.LabelRegister, utils.LabelLogin}
}

// MainMenu returns the role-dependent main menu: directors award points,
// participants take quizzes, everyone sees the rating entries.
func MainMenu(roleID int64) []string {
	labels := []string{utils.LabelLogout}
	if roleID == models.RoleDirector {
		labels = append(labels, utils.LabelAddPoints)
	} else {
		labels = append(labels, utils.LabelStartQuiz)
	}
	return append(labels,
		utils.LabelRatingTotal,
		utils.LabelRatingSelf,
		utils.LabelRatingAnswers,
		utils.LabelRatingTour,
		utils.LabelRatingAllTours,
	)
}
