package repo

import (
	"errors"
	"fmt"
	"time"

	"github.com/commforge/challengebot/src/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Evaluators is the typed repository for jury pool slots.
type Evaluators struct {
	db *gorm.DB
}

func NewEvaluators(db *gorm.DB) *Evaluators { return &Evaluators{db: db} }

// AddIfCapacity inserts a juror slot while the pool is under capacity and
// returns the pool size after the insert. The evaluation row is locked for
// the duration of the count+insert, so only one of two racing joins can
// observe the transition to a full pool.
func (r *Evaluators) AddIfCapacity(evaluationID, userID string, capacity int) (int, error) {
	var countAfter int
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var eval types.ChallengeEvaluation
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&eval, "id = ?", evaluationID).Error; err != nil {
			return fmt.Errorf("lock evaluation: %w", err)
		}

		var count int64
		if err := tx.Model(&types.ChallengeEvaluator{}).
			Where("evaluation_id = ?", evaluationID).Count(&count).Error; err != nil {
			return err
		}
		if int(count) >= capacity {
			return types.ErrPoolFull
		}

		ev := types.ChallengeEvaluator{
			ID:           uuid.NewString(),
			EvaluationID: evaluationID,
			UserID:       userID,
			JoinedAt:     time.Now(),
		}
		if err := tx.Create(&ev).Error; err != nil {
			if isDuplicateKey(err) {
				return types.ErrDuplicate
			}
			return err
		}
		countAfter = int(count) + 1
		return nil
	})
	return countAfter, err
}

func (r *Evaluators) GetByEvaluationAndUser(evaluationID, userID string) (*types.ChallengeEvaluator, error) {
	var ev types.ChallengeEvaluator
	err := r.db.First(&ev, "evaluation_id = ? AND user_id = ?", evaluationID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// Delete removes a juror slot; only legal before a vote is cast, which
// the conditional guard enforces.
func (r *Evaluators) Delete(id string) error {
	res := r.db.Where("id = ? AND (vote = '' OR vote IS NULL)", id).
		Delete(&types.ChallengeEvaluator{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return types.ErrAlreadyVoted
	}
	return nil
}

func (r *Evaluators) ListByEvaluation(evaluationID string) ([]types.ChallengeEvaluator, error) {
	var evs []types.ChallengeEvaluator
	return evs, r.db.Where("evaluation_id = ?", evaluationID).
		Order("joined_at ASC").Find(&evs).Error
}

func (r *Evaluators) Count(evaluationID string) (int, error) {
	var count int64
	err := r.db.Model(&types.ChallengeEvaluator{}).
		Where("evaluation_id = ?", evaluationID).Count(&count).Error
	return int(count), err
}

// SetVote writes the vote once; a second write is rejected because the
// guard only matches an empty vote column.
func (r *Evaluators) SetVote(id, vote string, votedAt time.Time) error {
	res := r.db.Model(&types.ChallengeEvaluator{}).
		Where("id = ? AND (vote = '' OR vote IS NULL)", id).
		Updates(map[string]interface{}{"vote": vote, "voted_at": votedAt})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return types.ErrAlreadyVoted
	}
	return nil
}

// VoteTallies recounts cast votes for an evaluation.
func (r *Evaluators) VoteTallies(evaluationID string) (trueVotes, falseVotes int, err error) {
	var t, f int64
	if err = r.db.Model(&types.ChallengeEvaluator{}).
		Where("evaluation_id = ? AND vote = ?", evaluationID, types.VoteTrue).
		Count(&t).Error; err != nil {
		return 0, 0, err
	}
	if err = r.db.Model(&types.ChallengeEvaluator{}).
		Where("evaluation_id = ? AND vote = ?", evaluationID, types.VoteFalse).
		Count(&f).Error; err != nil {
		return 0, 0, err
	}
	return int(t), int(f), nil
}

func (r *Evaluators) UserIDsByEvaluation(evaluationID string) ([]string, error) {
	var ids []string
	err := r.db.Model(&types.ChallengeEvaluator{}).
		Where("evaluation_id = ?", evaluationID).Pluck("user_id", &ids).Error
	return ids, err
}
