package models

import (
	"github.com/uptrace/bun"
)

type TourKind string

const (
	TourKindQuiz       TourKind = "quiz"
	TourKindTournament TourKind = "tournament"
)

// Tour is a numbered activity unit: a quiz tour groups questions, a
// tournament is scored as a unit of its own.
type Tour struct {
	bun.BaseModel `bun:"table:tours,alias:t"`

	ID     int64    `bun:"id,pk,autoincrement"`
	Number int64    `bun:"number,notnull,unique"`
	Kind   TourKind `bun:"kind,notnull,default:'quiz'"`
	Title  string   `bun:"title"`
}

type Question struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID            int64  `bun:"id,pk,autoincrement"`
	TourNumber    int64  `bun:"tour_number,notnull"`
	Number        int64  `bun:"number,notnull"`
	Text          string `bun:"text,notnull"`
	AnswerA       string `bun:"answer_a,notnull"`
	AnswerB       string `bun:"answer_b,notnull"`
	AnswerC       string `bun:"answer_c,notnull"`
	AnswerD       string `bun:"answer_d,notnull"`
	CorrectAnswer string `bun:"correct_answer,notnull"`
	Explanation   string `bun:"explanation"`
	ImageURL      string `bun:"image_url"`
}

// Choices returns the four answer options in presentation order.
func (q *Question) Choices() []string {
	return []string{q.AnswerA, q.AnswerB, q.AnswerC, q.AnswerD}
}

// CorrectChoice resolves the correct answer letter (A-D) to its text.
func (q *Question) CorrectChoice() string {
	switch q.CorrectAnswer {
	case "A":
		return q.AnswerA
	case "B":
		return q.AnswerB
	case "C":
		return q.AnswerC
	case "D":
		return q.AnswerD
	}
	return ""
}
