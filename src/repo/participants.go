package repo

import (
	"fmt"
	"strings"
	"time"

	"github.com/commforge/challengebot/src/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Participants is the typed repository for hub memberships.
type Participants struct {
	db *gorm.DB
}

func NewParticipants(db *gorm.DB) *Participants { return &Participants{db: db} }

// AddIfCapacity inserts the (hub,user) membership only while the hub is
// under capacity, and returns the participant count after the insert.
// The count read and the insert run in one transaction holding a row lock
// on the hub, so two racing joins cannot both observe the same count.
func (r *Participants) AddIfCapacity(hubID, userID, role string, capacity int) (int, error) {
	var countAfter int
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var hub types.ChallengeHub
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&hub, "id = ?", hubID).Error; err != nil {
			return fmt.Errorf("lock hub: %w", err)
		}

		var count int64
		if err := tx.Model(&types.ChallengeParticipant{}).
			Where("hub_id = ?", hubID).Count(&count).Error; err != nil {
			return err
		}
		if int(count) >= capacity {
			return types.ErrCapacityExceeded
		}

		p := types.ChallengeParticipant{
			ID:       uuid.NewString(),
			HubID:    hubID,
			UserID:   userID,
			Role:     role,
			JoinedAt: time.Now(),
		}
		if err := tx.Create(&p).Error; err != nil {
			if isDuplicateKey(err) {
				return types.ErrAlreadyParticipating
			}
			return err
		}
		countAfter = int(count) + 1
		return nil
	})
	return countAfter, err
}

func (r *Participants) ListByHub(hubID string) ([]types.ChallengeParticipant, error) {
	var ps []types.ChallengeParticipant
	return ps, r.db.Where("hub_id = ?", hubID).Order("joined_at ASC").Find(&ps).Error
}

func (r *Participants) UserIDsByHub(hubID string) ([]string, error) {
	var ids []string
	err := r.db.Model(&types.ChallengeParticipant{}).
		Where("hub_id = ?", hubID).Pluck("user_id", &ids).Error
	return ids, err
}

func (r *Participants) Remove(hubID, userID string) error {
	return r.db.Where("hub_id = ? AND user_id = ?", hubID, userID).
		Delete(&types.ChallengeParticipant{}).Error
}

// OpenHubIDsForUser returns recruiting/active hubs the user belongs to.
func (r *Participants) OpenHubIDsForUser(userID string) ([]string, error) {
	var ids []string
	err := r.db.Model(&types.ChallengeParticipant{}).
		Joins("JOIN challenge_hubs ON challenge_hubs.id = challenge_participants.hub_id").
		Where("challenge_participants.user_id = ? AND challenge_hubs.status IN ?",
			userID, []string{types.HubRecruiting, types.HubActive}).
		Pluck("challenge_participants.hub_id", &ids).Error
	return ids, err
}

// isDuplicateKey matches the MySQL unique-violation error (1062). gorm
// exposes ErrDuplicatedKey on newer driver versions; keep both checks.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if err == gorm.ErrDuplicatedKey {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Error 1062") || strings.Contains(msg, "Duplicate entry")
}
