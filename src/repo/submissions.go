package repo

import (
	"time"

	"github.com/commforge/challengebot/src/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Submissions stores team project outputs recorded against a hub.
type Submissions struct {
	db *gorm.DB
}

func NewSubmissions(db *gorm.DB) *Submissions { return &Submissions{db: db} }

func (r *Submissions) Create(sub *types.ChallengeSubmission) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	sub.SubmittedAt = time.Now()
	return r.db.Create(sub).Error
}

func (r *Submissions) ListByHub(hubID string) ([]types.ChallengeSubmission, error) {
	var subs []types.ChallengeSubmission
	return subs, r.db.Where("hub_id = ?", hubID).Order("submitted_at DESC").Find(&subs).Error
}
