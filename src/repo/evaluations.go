package repo

import (
	"errors"
	"time"

	"github.com/commforge/challengebot/src/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Evaluations is the typed repository for evaluation records.
type Evaluations struct {
	db *gorm.DB
}

func NewEvaluations(db *gorm.DB) *Evaluations { return &Evaluations{db: db} }

// Create inserts the single evaluation for a hub. The unique index on
// hub_id makes a second start request fail with ErrDuplicate.
func (r *Evaluations) Create(eval *types.ChallengeEvaluation) error {
	if eval.ID == "" {
		eval.ID = uuid.NewString()
	}
	eval.CreatedAt = time.Now()
	if err := r.db.Create(eval).Error; err != nil {
		if isDuplicateKey(err) {
			return types.ErrDuplicate
		}
		return err
	}
	return nil
}

func (r *Evaluations) Get(id string) (*types.ChallengeEvaluation, error) {
	var eval types.ChallengeEvaluation
	err := r.db.First(&eval, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &eval, nil
}

func (r *Evaluations) GetByHub(hubID string) (*types.ChallengeEvaluation, error) {
	var eval types.ChallengeEvaluation
	err := r.db.First(&eval, "hub_id = ?", hubID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &eval, nil
}

// GetByChannel resolves the evaluation whose private channel a slash
// command was typed in.
func (r *Evaluations) GetByChannel(channelID string) (*types.ChallengeEvaluation, error) {
	var eval types.ChallengeEvaluation
	err := r.db.First(&eval, "evaluation_channel_id = ?", channelID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &eval, nil
}

// EvalUpdate carries the mutable evaluation fields.
type EvalUpdate struct {
	Status              *string
	EvaluationChannelID *string
	GithubRepoURL       *string
	GithubRepoPublic    *bool
	AdminDecision       *string
}

func (r *Evaluations) Update(id string, u EvalUpdate) error {
	updates := map[string]interface{}{}
	if u.Status != nil {
		updates["status"] = *u.Status
	}
	if u.EvaluationChannelID != nil {
		updates["evaluation_channel_id"] = *u.EvaluationChannelID
	}
	if u.GithubRepoURL != nil {
		updates["github_repo_url"] = *u.GithubRepoURL
	}
	if u.GithubRepoPublic != nil {
		updates["github_repo_public"] = *u.GithubRepoPublic
	}
	if u.AdminDecision != nil {
		updates["admin_decision"] = *u.AdminDecision
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.Model(&types.ChallengeEvaluation{}).Where("id = ?", id).Updates(updates).Error
}

// SetVoteTallies stores the recomputed running tallies.
func (r *Evaluations) SetVoteTallies(id string, trueVotes, falseVotes int) error {
	return r.db.Model(&types.ChallengeEvaluation{}).Where("id = ?", id).
		Updates(map[string]interface{}{"true_votes": trueVotes, "false_votes": falseVotes}).Error
}

// CompleteIfEvaluating atomically moves evaluating->completed with the
// final result. Returns false when the record already left evaluating,
// which makes finalize idempotent under racing callers.
func (r *Evaluations) CompleteIfEvaluating(id, result string, completedAt time.Time) (bool, error) {
	res := r.db.Model(&types.ChallengeEvaluation{}).
		Where("id = ? AND status = ?", id, types.EvalEvaluating).
		Updates(map[string]interface{}{
			"status":       types.EvalCompleted,
			"final_result": result,
			"completed_at": completedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Delete removes an evaluation record; used to unwind a failed start so
// the whole operation can be retried.
func (r *Evaluations) Delete(id string) error {
	return r.db.Delete(&types.ChallengeEvaluation{}, "id = ?", id).Error
}

// ListOpen returns evaluations still collecting votes.
func (r *Evaluations) ListOpen() ([]types.ChallengeEvaluation, error) {
	var evals []types.ChallengeEvaluation
	err := r.db.Where("status = ?", types.EvalEvaluating).Find(&evals).Error
	return evals, err
}

// ListOverdue returns evaluations still open past their deadline.
func (r *Evaluations) ListOverdue(now time.Time) ([]types.ChallengeEvaluation, error) {
	var evals []types.ChallengeEvaluation
	err := r.db.Where("status = ? AND deadline IS NOT NULL AND deadline < ?",
		types.EvalEvaluating, now).Find(&evals).Error
	return evals, err
}
