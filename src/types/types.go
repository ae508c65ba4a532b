package types

import "time"

// Hub lifecycle states. Transitions out of recruiting/active belong to the
// challenge service; evaluating->completed belongs to the evaluation service.
const (
	HubRecruiting = "recruiting"
	HubActive     = "active"
	HubEvaluating = "evaluating"
	HubCompleted  = "completed"
	HubFailed     = "failed"
	HubCancelled  = "cancelled"
)

// Evaluation states.
const (
	EvalPending    = "pending"
	EvalEvaluating = "evaluating"
	EvalCompleted  = "completed"
)

// Final evaluation results.
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
)

// Admin decisions.
const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

// Juror votes. Stored lowercase, write-once.
const (
	VoteTrue  = "true"
	VoteFalse = "false"
)

// Participant roles.
const (
	RoleCreator = "creator"
	RoleMember  = "member"
)

// JurySize is the fixed jury pool capacity per evaluation.
const JurySize = 3

// HubTerminal reports whether a hub status accepts no further transitions.
func HubTerminal(status string) bool {
	return status == HubCompleted || status == HubFailed || status == HubCancelled
}

// ChallengeHub is one challenge instance, from announcement to completion.
type ChallengeHub struct {
	ID                 string `gorm:"primaryKey;size:36"`
	CreatorID          string `gorm:"size:64;index;not null"`
	Theme              string `gorm:"size:64;not null"`
	TeamSize           int    `gorm:"not null"`
	Status             string `gorm:"size:16;index;default:recruiting"`
	ChallengeChannelID string `gorm:"size:64"`
	HubChannelID       string `gorm:"size:64"`
	SelectedProjectID  string `gorm:"size:36"`
	Customizations     string `gorm:"type:text"`
	DeadlineHours      int    `gorm:"default:48"`
	Difficulty         string `gorm:"size:16;default:intermediate"`
	Deadline           *time.Time
	StartedAt          *time.Time
	CompletedAt        *time.Time
	CreatedAt          time.Time
}

// ChallengeParticipant is one user's membership in one hub.
type ChallengeParticipant struct {
	ID           string `gorm:"primaryKey;size:36"`
	HubID        string `gorm:"size:36;not null;uniqueIndex:idx_hub_user"`
	UserID       string `gorm:"size:64;not null;uniqueIndex:idx_hub_user"`
	Role         string `gorm:"size:16"`
	PointsEarned int    `gorm:"default:0"`
	JoinedAt     time.Time
}

// ChallengeEvaluation is the single evaluation record for a hub.
type ChallengeEvaluation struct {
	ID                  string `gorm:"primaryKey;size:36"`
	HubID               string `gorm:"size:36;uniqueIndex;not null"`
	Status              string `gorm:"size:16;index;default:pending"`
	EvaluationChannelID string `gorm:"size:64"`
	Deadline            *time.Time
	TrueVotes           int    `gorm:"default:0"`
	FalseVotes          int    `gorm:"default:0"`
	GithubRepoURL       string `gorm:"size:256"`
	GithubRepoPublic    bool   `gorm:"default:false"`
	AdminDecision       string `gorm:"size:16"`
	FinalResult         string `gorm:"size:16"`
	CompletedAt         *time.Time
	CreatedAt           time.Time
}

// ChallengeEvaluator is one juror slot, holding at most one cast vote.
type ChallengeEvaluator struct {
	ID           string `gorm:"primaryKey;size:36"`
	EvaluationID string `gorm:"size:36;not null;uniqueIndex:idx_eval_user"`
	UserID       string `gorm:"size:64;not null;uniqueIndex:idx_eval_user"`
	Vote         string `gorm:"size:8"`
	VotedAt      *time.Time
	JoinedAt     time.Time
}

// ChallengeSubmission is a team's recorded project output for a hub.
type ChallengeSubmission struct {
	ID              string `gorm:"primaryKey;size:36"`
	HubID           string `gorm:"size:36;index;not null"`
	TeamName        string `gorm:"size:128"`
	ProjectName     string `gorm:"size:128"`
	SolutionSummary string `gorm:"type:text"`
	Deliverables    string `gorm:"type:text"`
	SubmittedAt     time.Time
}

// ChallengeTheme is a catalog row; validation reads the enumerated set from here.
type ChallengeTheme struct {
	ID              string `gorm:"primaryKey;size:36"`
	Name            string `gorm:"size:64;unique;not null"`
	Description     string `gorm:"size:256"`
	Icon            string `gorm:"size:16"`
	DifficultyRange string `gorm:"size:32"`
	Active          bool   `gorm:"default:true"`
	CreatedAt       time.Time
}

// Setting is a name/value configuration row with env fallback in config.Load.
type Setting struct {
	ID    uint8  `gorm:"primaryKey"`
	Name  string `gorm:"size:32;not null"`
	Value string `gorm:"size:256;not null"`
}
