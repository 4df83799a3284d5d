package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Role ids follow the original deployment: 1 admin, 2 director, 3 participant.
const (
	RoleAdmin       int64 = 1
	RoleDirector    int64 = 2
	RoleParticipant int64 = 3
)

type Participant struct {
	bun.BaseModel `bun:"table:participants,alias:p"`

	ID           int64     `bun:"id,pk,autoincrement"`
	DiscordID    string    `bun:"discord_id,notnull,unique"`
	Username     string    `bun:"username,notnull"`
	FullName     string    `bun:"full_name,notnull"`
	DateOfBirth  time.Time `bun:"date_of_birth,notnull"`
	PhoneNumber  string    `bun:"phone_number,notnull,unique"`
	RoleID       int64     `bun:"role_id,notnull,default:3"`
	RegisteredAt time.Time `bun:"registered_at,notnull,default:current_timestamp"`
}

func (p *Participant) IsDirector() bool {
	return p.RoleID == RoleDirector
}

func (p *Participant) IsParticipant() bool {
	return p.RoleID == RoleParticipant
}

// Credential carries the authentication state for a registered participant.
// A participant without a credential row is treated as not authenticated.
type Credential struct {
	bun.BaseModel `bun:"table:credentials,alias:cr"`

	ID            int64     `bun:"id,pk,autoincrement"`
	ParticipantID int64     `bun:"participant_id,notnull,unique"`
	PasswordHash  string    `bun:"password_hash,notnull"`
	IsAuthorized  bool      `bun:"is_authorized,notnull,default:false"`
	LastLogin     time.Time `bun:"last_login,nullzero"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}
