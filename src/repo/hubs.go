package repo

import (
	"errors"
	"fmt"
	"time"

	"github.com/commforge/challengebot/src/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Hubs is the typed repository for challenge hubs.
type Hubs struct {
	db *gorm.DB
}

func NewHubs(db *gorm.DB) *Hubs { return &Hubs{db: db} }

func (r *Hubs) Create(hub *types.ChallengeHub) error {
	if hub.ID == "" {
		hub.ID = uuid.NewString()
	}
	hub.CreatedAt = time.Now()
	return r.db.Create(hub).Error
}

func (r *Hubs) Get(id string) (*types.ChallengeHub, error) {
	var hub types.ChallengeHub
	err := r.db.First(&hub, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &hub, nil
}

// CurrentRecruiting resolves the "join without an id" case: the single
// most recent hub still recruiting members.
func (r *Hubs) CurrentRecruiting() (*types.ChallengeHub, error) {
	var hub types.ChallengeHub
	err := r.db.Where("status = ?", types.HubRecruiting).
		Order("created_at DESC").
		First(&hub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &hub, nil
}

// GetByChallengeChannel resolves the hub that owns a working channel.
func (r *Hubs) GetByChallengeChannel(channelID string) (*types.ChallengeHub, error) {
	var hub types.ChallengeHub
	err := r.db.First(&hub, "challenge_channel_id = ?", channelID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &hub, nil
}

// HubUpdate carries the mutable hub fields; nil pointers are left untouched.
type HubUpdate struct {
	Status             *string
	ChallengeChannelID *string
	Deadline           *time.Time
	StartedAt          *time.Time
	CompletedAt        *time.Time
}

func (r *Hubs) Update(id string, u HubUpdate) error {
	updates := map[string]interface{}{}
	if u.Status != nil {
		updates["status"] = *u.Status
	}
	if u.ChallengeChannelID != nil {
		updates["challenge_channel_id"] = *u.ChallengeChannelID
	}
	if u.Deadline != nil {
		updates["deadline"] = *u.Deadline
	}
	if u.StartedAt != nil {
		updates["started_at"] = *u.StartedAt
	}
	if u.CompletedAt != nil {
		updates["completed_at"] = *u.CompletedAt
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&types.ChallengeHub{}).Where("id = ?", id).Updates(updates).Error
}

// TransitionStatus performs the atomic check-and-transition: the status
// column is only written when the current value is one of `from`. Returns
// false when another caller got there first.
func (r *Hubs) TransitionStatus(id string, from []string, to string) (bool, error) {
	res := r.db.Model(&types.ChallengeHub{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListByStatus returns hubs filtered by status; an empty status lists all.
func (r *Hubs) ListByStatus(status string, limit int) ([]types.ChallengeHub, error) {
	q := r.db.Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var hubs []types.ChallengeHub
	return hubs, q.Find(&hubs).Error
}

// OpenByCreator returns recruiting/active hubs created by the user.
func (r *Hubs) OpenByCreator(userID string) ([]types.ChallengeHub, error) {
	var hubs []types.ChallengeHub
	err := r.db.Where("creator_id = ? AND status IN ?", userID,
		[]string{types.HubRecruiting, types.HubActive}).Find(&hubs).Error
	return hubs, err
}

// WithChannels returns hubs that still hold a live working channel.
func (r *Hubs) WithChannels() ([]types.ChallengeHub, error) {
	var hubs []types.ChallengeHub
	err := r.db.Where("challenge_channel_id <> '' AND status IN ?",
		[]string{types.HubActive, types.HubEvaluating}).Find(&hubs).Error
	return hubs, err
}

// Purge removes a hub and all dependent records. Operator tooling only.
func (r *Hubs) Purge(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var eval types.ChallengeEvaluation
		err := tx.First(&eval, "hub_id = ?", id).Error
		if err == nil {
			if err := tx.Where("evaluation_id = ?", eval.ID).Delete(&types.ChallengeEvaluator{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&eval).Error; err != nil {
				return err
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := tx.Where("hub_id = ?", id).Delete(&types.ChallengeParticipant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("hub_id = ?", id).Delete(&types.ChallengeSubmission{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&types.ChallengeHub{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("hub %s: %w", id, types.ErrNotFound)
		}
		return nil
	})
}
