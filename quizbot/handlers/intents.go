package handlers

import (
	"strings"

	"github.com/maxter9595/O2RusQuizBot/quizbot/utils"
)

// Intent is an enumerated conversational command. Routing is keyed on the
// intent, never on the raw label text.
type Intent int

const (
	IntentNone Intent = iota
	IntentStart
	IntentRegister
	IntentLogin
	IntentLogout
	IntentMainMenu
	IntentResetPassword
	IntentStartQuiz
	IntentAddPoints
	IntentRatingTotal
	IntentRatingSelf
	IntentRatingAnswers
	IntentRatingTour
	IntentRatingAllTours
)

var commandIntents = map[string]Intent{
	utils.CmdStart:          IntentStart,
	utils.CmdRegister:       IntentRegister,
	utils.CmdLogin:          IntentLogin,
	utils.CmdLogout:         IntentLogout,
	utils.CmdMainMenu:       IntentMainMenu,
	utils.CmdResetPassword:  IntentResetPassword,
	utils.CmdStartQuiz:      IntentStartQuiz,
	utils.CmdAddPoints:      IntentAddPoints,
	utils.CmdRatingTotal:    IntentRatingTotal,
	utils.CmdRatingSelf:     IntentRatingSelf,
	utils.CmdRatingAnswers:  IntentRatingAnswers,
	utils.CmdRatingTour:     IntentRatingTour,
	utils.CmdRatingAllTours: IntentRatingAllTours,
}

// labelIntents is ordered: longer labels are matched before their prefixes
// ("Общий рейтинг по всем турам" before "Общий рейтинг по баллам" is not a
// prefix pair, but substring matching makes order observable).
var labelIntents = []struct {
	label  string
	intent Intent
}{
	{utils.LabelRegister, IntentRegister},
	{utils.LabelLogin, IntentLogin},
	{utils.LabelLogout, IntentLogout},
	{utils.LabelMainMenu, IntentMainMenu},
	{utils.LabelResetPassword, IntentResetPassword},
	{utils.LabelStartQuiz, IntentStartQuiz},
	{utils.LabelAddPoints, IntentAddPoints},
	{utils.LabelRatingAllTours, IntentRatingAllTours},
	{utils.LabelRatingTotal, IntentRatingTotal},
	{utils.LabelRatingSelf, IntentRatingSelf},
	{utils.LabelRatingAnswers, IntentRatingAnswers},
	{utils.LabelRatingTour, IntentRatingTour},
}

// ParseIntent maps a message to its intent: exact slash command or menu
// label substring. IntentNone means the message is free-form input.
func ParseIntent(text string) Intent {
	text = strings.TrimSpace(text)
	if intent, ok := commandIntents[text]; ok {
		return intent
	}
	for _, l := range labelIntents {
		if strings.Contains(text, l.label) {
			return l.intent
		}
	}
	return IntentNone
}
