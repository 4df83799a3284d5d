package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	"github.com/maxter9595/O2RusQuizBot/quizbot/database/models"
)

// ErrNotRegistered is returned when no participant row exists for the id.
var ErrNotRegistered = errors.New("participant not registered")

type ParticipantRepository interface {
	Register(ctx context.Context, p *models.Participant, password string) error
	ByDiscordID(ctx context.Context, discordID string) (*models.Participant, error)
	ByID(ctx context.Context, id int64) (*models.Participant, error)
	Participants(ctx context.Context) ([]*models.Participant, error)
	ChangeRole(ctx context.Context, discordID string, roleID int64) error

	Credential(ctx context.Context, participantID int64) (*models.Credential, error)
	Authenticate(ctx context.Context, participantID int64, password string) (bool, error)
	SetAuthorized(ctx context.Context, participantID int64, authorized bool) error
	ResetPassword(ctx context.Context, participantID int64, newPassword string) error
}

type participantRepository struct {
	db *bun.DB
}

func NewParticipantRepository(db *bun.DB) ParticipantRepository {
	return &participantRepository{db: db}
}

// Register creates the participant together with its credential row in one
// transaction, so a participant never exists without a password hash.
func (r *participantRepository) Register(ctx context.Context, p *models.Participant, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		p.RegisteredAt = time.Now()
		if _, err := tx.NewInsert().Model(p).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}

		cred := &models.Credential{
			ParticipantID: p.ID,
			PasswordHash:  string(hash),
			CreatedAt:     time.Now(),
			UpdatedAt:     time.Now(),
		}
		if _, err := tx.NewInsert().Model(cred).Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert credential: %w", err)
		}
		return nil
	})
}

func (r *participantRepository) ByDiscordID(ctx context.Context, discordID string) (*models.Participant, error) {
	p := new(models.Participant)
	err := r.db.NewSelect().
		Model(p).
		Where("discord_id = ?", discordID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotRegistered
		}
		return nil, err
	}
	return p, nil
}

func (r *participantRepository) ByID(ctx context.Context, id int64) (*models.Participant, error) {
	p := new(models.Participant)
	err := r.db.NewSelect().
		Model(p).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotRegistered
		}
		return nil, err
	}
	return p, nil
}

// Participants returns everyone holding the participant role, in insertion
// order. Rating iteration order depends on this.
func (r *participantRepository) Participants(ctx context.Context) ([]*models.Participant, error) {
	var parts []*models.Participant
	err := r.db.NewSelect().
		Model(&parts).
		Where("role_id = ?", models.RoleParticipant).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return parts, nil
}

// ChangeRole switches the participant's role and performs the cascading
// ledger purge: leaving the participant role removes every point event where
// they appear as sender or receiver, leaving the director role removes every
// event they awarded.
func (r *participantRepository) ChangeRole(ctx context.Context, discordID string, roleID int64) error {
	p, err := r.ByDiscordID(ctx, discordID)
	if err != nil {
		return err
	}
	if p.RoleID == roleID {
		return nil
	}

	oldRole := p.RoleID
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewUpdate().
			Model((*models.Participant)(nil)).
			Set("role_id = ?", roleID).
			Where("discord_id = ?", discordID).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}

		if oldRole == models.RoleParticipant && roleID != models.RoleParticipant {
			res, err := tx.NewDelete().
				Model((*models.PointEvent)(nil)).
				Where("sender_id = ? OR receiver_id = ?", discordID, discordID).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to purge participant events: %w", err)
			}
			logPurge(res, discordID, "participant")

			if _, err := tx.NewDelete().
				Model((*models.StandingsRow)(nil)).
				Where("participant_id = ?", discordID).
				Exec(ctx); err != nil {
				return fmt.Errorf("failed to purge standings row: %w", err)
			}
		}

		if oldRole == models.RoleDirector && roleID != models.RoleDirector {
			res, err := tx.NewDelete().
				Model((*models.PointEvent)(nil)).
				Where("director_id = ?", discordID).
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("failed to purge director events: %w", err)
			}
			logPurge(res, discordID, "director")
		}
		return nil
	})
}

func logPurge(res sql.Result, discordID, role string) {
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		slog.Info("Purged ledger rows after role change",
			slog.String("type", "db"),
			slog.String("discord_id", discordID),
			slog.String("left_role", role),
			slog.Int64("rows", n))
	}
}

func (r *participantRepository) Credential(ctx context.Context, participantID int64) (*models.Credential, error) {
	cred := new(models.Credential)
	err := r.db.NewSelect().
		Model(cred).
		Where("participant_id = ?", participantID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return cred, nil
}

func (r *participantRepository) Authenticate(ctx context.Context, participantID int64, password string) (bool, error) {
	cred, err := r.Credential(ctx, participantID)
	if err != nil {
		return false, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		return false, nil
	}
	return true, nil
}

func (r *participantRepository) SetAuthorized(ctx context.Context, participantID int64, authorized bool) error {
	q := r.db.NewUpdate().
		Model((*models.Credential)(nil)).
		Set("is_authorized = ?", authorized).
		Set("updated_at = ?", time.Now()).
		Where("participant_id = ?", participantID)
	if authorized {
		q = q.Set("last_login = ?", time.Now())
	}
	_, err := q.Exec(ctx)
	return err
}

func (r *participantRepository) ResetPassword(ctx context.Context, participantID int64, newPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	_, err = r.db.NewUpdate().
		Model((*models.Credential)(nil)).
		Set("password_hash = ?", string(hash)).
		Set("is_authorized = ?", false).
		Set("updated_at = ?", time.Now()).
		Where("participant_id = ?", participantID).
		Exec(ctx)
	return err
}
