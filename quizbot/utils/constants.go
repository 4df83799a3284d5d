package utils

// Menu labels shown on the conversational keyboard. Every label has a slash
// alias so power users can skip the menu.
const (
	LabelRegister       = "Регистрация"
	LabelLogin          = "Авторизация"
	LabelLogout         = "Выход"
	LabelMainMenu       = "Главное меню"
	LabelResetPassword  = "Сброс пароля"
	LabelStartQuiz      = "Начать викторину"
	LabelAddPoints      = "Добавить очки участнику"
	LabelRatingTotal    = "Общий рейтинг по баллам"
	LabelRatingSelf     = "Мое место в рейтинге по баллам"
	LabelRatingAnswers  = "Общий рейтинг по верным ответам"
	LabelRatingTour     = "Общий рейтинг тура по баллам"
	LabelRatingAllTours = "Общий рейтинг по всем турам"
)

const (
	CmdStart          = "/start"
	CmdRegister       = "/register"
	CmdLogin          = "/login"
	CmdLogout         = "/logout"
	CmdMainMenu       = "/main_menu"
	CmdResetPassword  = "/reset_password"
	CmdStartQuiz      = "/start_quiz"
	CmdAddPoints      = "/add_points"
	CmdRatingTotal    = "/tournament_rating"
	CmdRatingSelf     = "/participant_rating"
	CmdRatingAnswers  = "/answers_rating"
	CmdRatingTour     = "/tour_statistics"
	CmdRatingAllTours = "/tours_statistics"
)
