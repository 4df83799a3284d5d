package models

import (
	"time"

	"github.com/uptrace/bun"
)

// AwardField names one of the single-value award channels of a point event.
type AwardField string

const (
	AwardPlacement AwardField = "placement_points"
	AwardPoolShare AwardField = "pool_share_points"
	AwardBonus     AwardField = "bonus_points"
)

// PointEvent is the central ledger row. At most one row exists per
// (sender, director, question) key; re-awarding updates the row in place.
// The four award channels are independent fields on the same row. Quiz
// answers produce degenerate events with no director and no point value.
type PointEvent struct {
	bun.BaseModel `bun:"table:point_events,alias:pe"`

	ID        int64     `bun:"id,pk,autoincrement"`
	AwardedAt time.Time `bun:"awarded_at,notnull,default:current_timestamp"`

	SenderID   string `bun:"sender_id,notnull"`
	DirectorID string `bun:"director_id,nullzero"`
	QuestionID int64  `bun:"question_id,notnull"`

	PlacementPoints int64   `bun:"placement_points,nullzero"`
	PoolSharePoints float64 `bun:"pool_share_points,nullzero"`
	BonusPoints     int64   `bun:"bonus_points,nullzero"`

	TransferPoints int64     `bun:"transfer_points,nullzero"`
	ReceiverID     string    `bun:"receiver_id,nullzero"`
	TransferredAt  time.Time `bun:"transferred_at,nullzero"`

	AnsweredCorrectly bool `bun:"answered_correctly,notnull,default:false"`
	Completed         bool `bun:"completed,notnull,default:false"`
}
