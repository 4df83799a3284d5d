package models

import (
	"time"

	"github.com/uptrace/bun"
)

// StandingsRow is the denormalized per-participant summary maintained by the
// standings projector. Point totals are recomputed for the touched
// participant on every ledger write; all three place columns are then
// reassigned table-wide, so ties share a place.
type StandingsRow struct {
	bun.BaseModel `bun:"table:standings,alias:st"`

	ID            int64  `bun:"id,pk,autoincrement"`
	ParticipantID string `bun:"participant_id,notnull,unique"`
	FullName      string `bun:"full_name,notnull"`

	QuizPoints       float64 `bun:"quiz_points,notnull,default:0"`
	TournamentPoints float64 `bun:"tournament_points,notnull,default:0"`
	TotalPoints      float64 `bun:"total_points,notnull,default:0"`

	QuizPlace       int `bun:"quiz_place,notnull,default:0"`
	TournamentPlace int `bun:"tournament_place,notnull,default:0"`
	FinalPlace      int `bun:"final_place,notnull,default:0"`

	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
