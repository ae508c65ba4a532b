// Package evaluation owns the evaluation record: jury recruitment, vote
// collection, artifact verification and finalization.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/commforge/challengebot/src/gateway"
	"github.com/commforge/challengebot/src/repo"
	"github.com/commforge/challengebot/src/types"
	"github.com/google/uuid"
)

// Component custom IDs for message buttons; the bot layer routes
// interactions back into the service by these prefixes.
const (
	ButtonJuryToggle   = "challenge_jury_toggle"
	ButtonAdminApprove = "admin_approve_evaluation"
	ButtonAdminReject  = "admin_reject_evaluation"
)

// EvaluationWindow is the hard finalize deadline after evaluation start.
const EvaluationWindow = 48 * time.Hour

type EvaluationStore interface {
	Create(eval *types.ChallengeEvaluation) error
	Get(id string) (*types.ChallengeEvaluation, error)
	GetByHub(hubID string) (*types.ChallengeEvaluation, error)
	Update(id string, u repo.EvalUpdate) error
	SetVoteTallies(id string, trueVotes, falseVotes int) error
	CompleteIfEvaluating(id, result string, completedAt time.Time) (bool, error)
	Delete(id string) error
	ListOpen() ([]types.ChallengeEvaluation, error)
	ListOverdue(now time.Time) ([]types.ChallengeEvaluation, error)
}

type EvaluatorStore interface {
	AddIfCapacity(evaluationID, userID string, capacity int) (int, error)
	GetByEvaluationAndUser(evaluationID, userID string) (*types.ChallengeEvaluator, error)
	Delete(id string) error
	ListByEvaluation(evaluationID string) ([]types.ChallengeEvaluator, error)
	SetVote(id, vote string, votedAt time.Time) error
	VoteTallies(evaluationID string) (trueVotes, falseVotes int, err error)
}

type HubStore interface {
	Get(id string) (*types.ChallengeHub, error)
	Update(id string, u repo.HubUpdate) error
}

type ParticipantStore interface {
	UserIDsByHub(hubID string) ([]string, error)
}

type Scheduler interface {
	Once(jobID string, delay time.Duration, fn func()) bool
	Cancel(jobID string)
}

type Verifier interface {
	IsPublic(ctx context.Context, repoURL string) (bool, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event string, fields map[string]interface{}) error
}

type Config struct {
	Evaluations  EvaluationStore
	Evaluators   EvaluatorStore
	Hubs         HubStore
	Participants ParticipantStore
	Messenger    gateway.Messenger
	Directory    gateway.ChannelDirectory
	Scheduler    Scheduler
	Verifier     Verifier
	Events       EventPublisher
	AdminUserID  string
}

type Service struct {
	config Config
}

func NewService(config Config) *Service {
	return &Service{config: config}
}

func finalizeJobID(evaluationID string) string { return "finalize_evaluation_" + evaluationID }

// StartEvaluation creates the evaluation for a hub, provisions its
// channel, invites the team, arms the hard finalize timer and opens jury
// recruitment. A channel failure unwinds the record so a retried start is
// safe; a second start for the same hub is rejected, not duplicated.
func (s *Service) StartEvaluation(ctx context.Context, hubID, triggerChannelID string) (types.Result, error) {
	hub, err := s.config.Hubs.Get(hubID)
	if errors.Is(err, types.ErrNotFound) {
		return types.Fail("❌ Challenge not found."), nil
	}
	if err != nil {
		return types.Result{}, err
	}

	if _, err := s.config.Evaluations.GetByHub(hubID); err == nil {
		return types.Fail("⚠️ An evaluation for this challenge has already been started."), nil
	} else if !errors.Is(err, types.ErrNotFound) {
		return types.Result{}, err
	}

	deadline := time.Now().Add(EvaluationWindow)
	eval := &types.ChallengeEvaluation{
		ID:       uuid.NewString(),
		HubID:    hubID,
		Status:   types.EvalPending,
		Deadline: &deadline,
	}
	if err := s.config.Evaluations.Create(eval); err != nil {
		if errors.Is(err, types.ErrDuplicate) {
			return types.Fail("⚠️ An evaluation for this challenge has already been started."), nil
		}
		return types.Result{}, fmt.Errorf("create evaluation: %w", err)
	}

	channelName := fmt.Sprintf("challenge-evaluation-%s", eval.ID[:8])
	channelID, err := s.config.Directory.CreatePrivateChannel(channelName)
	if err != nil {
		// No stuck pending record: remove it so the whole start can be retried.
		if delErr := s.config.Evaluations.Delete(eval.ID); delErr != nil {
			log.Printf("evaluation: cleanup of %s failed: %v", eval.ID, delErr)
		}
		log.Printf("evaluation: channel creation for hub %s failed: %v", hubID, err)
		return types.Fail("❌ The evaluation channel could not be created."), nil
	}

	status := types.EvalEvaluating
	err = s.config.Evaluations.Update(eval.ID, repo.EvalUpdate{
		Status:              &status,
		EvaluationChannelID: &channelID,
	})
	if err != nil {
		return types.Result{}, fmt.Errorf("update evaluation: %w", err)
	}
	log.Printf("evaluation: channel %s created for hub %s", channelID, hubID)

	participants, err := s.config.Participants.UserIDsByHub(hubID)
	if err != nil {
		return types.Result{}, err
	}
	invitees := dedupe(append(participants, hub.CreatorID, s.config.AdminUserID))
	if err := s.config.Directory.InviteUsers(channelID, invitees); err != nil {
		log.Printf("evaluation: inviting team into %s failed: %v", channelID, err)
	}

	evalID := eval.ID
	s.config.Scheduler.Once(finalizeJobID(evalID), EvaluationWindow, func() {
		if err := s.Finalize(context.Background(), evalID, ""); err != nil {
			log.Printf("evaluation: deadline finalize of %s failed: %v", evalID, err)
		}
	})

	welcome := "👋 Evaluation started!\n\n" +
		"Great work shipping your project. A jury of 3 volunteers is being recruited.\n" +
		"• Jurors vote true/false on the project.\n" +
		"• Your team only needs to share the GitHub link: /challenge github <link>\n\n" +
		"Good luck! 🍀"
	if err := s.config.Messenger.Post(channelID, gateway.Message{Text: welcome}); err != nil {
		log.Printf("evaluation: welcome message for %s failed: %v", evalID, err)
	}

	target := hub.HubChannelID
	if target == "" {
		target = triggerChannelID
	}
	call := gateway.Message{
		Text: fmt.Sprintf("📣 Jury wanted: %s\nA project is complete! We need 3 volunteers to evaluate it.\n👇 Click to join. Evaluation starts automatically once the jury is full.", hub.Theme),
		Buttons: []gateway.Button{{
			Label:    "🙋 Join jury (0/3)",
			CustomID: ButtonJuryToggle + ":" + evalID,
			Style:    "primary",
		}},
	}
	if err := s.config.Messenger.Post(target, call); err != nil {
		log.Printf("evaluation: jury call for %s failed: %v", evalID, err)
	}

	s.publish(ctx, "evaluation.started", map[string]interface{}{"evaluation_id": evalID, "hub_id": hubID})
	log.Printf("evaluation: started %s for hub %s", evalID, hubID)

	return types.Result{Success: true, Message: "✅ Evaluation started!", ID: evalID}, nil
}

// ToggleJuror adds the user to the jury pool or withdraws them. The third
// successful join triggers the batch invite exactly once, derived from
// the atomic insert's returned count.
func (s *Service) ToggleJuror(ctx context.Context, evaluationID, userID string) (types.Result, error) {
	eval, err := s.config.Evaluations.Get(evaluationID)
	if errors.Is(err, types.ErrNotFound) {
		return types.Fail("❌ Evaluation not found."), nil
	}
	if err != nil {
		return types.Result{}, err
	}
	if eval.Status != types.EvalEvaluating {
		return types.Fail("⚠️ This evaluation is already completed."), nil
	}
	hub, err := s.config.Hubs.Get(eval.HubID)
	if err != nil {
		return types.Result{}, err
	}

	eligible, err := s.eligibleJuror(hub, userID)
	if err != nil {
		return types.Result{}, err
	}
	if !eligible {
		return types.Result{Message: "⚠️ Project team members and the admin cannot join the jury.", Action: "none"}, nil
	}

	// Toggle: an existing slot means withdrawal, always allowed before voting.
	if existing, err := s.config.Evaluators.GetByEvaluationAndUser(evaluationID, userID); err == nil {
		if err := s.config.Evaluators.Delete(existing.ID); err != nil {
			if errors.Is(err, types.ErrAlreadyVoted) {
				return types.Fail("⚠️ You already voted and can no longer withdraw."), nil
			}
			return types.Result{}, err
		}
		jurors, _ := s.config.Evaluators.ListByEvaluation(evaluationID)
		if err := s.config.Messenger.PostDM(userID,
			fmt.Sprintf("ℹ️ You withdrew from the jury for %q.", hub.Theme)); err != nil {
			log.Printf("evaluation: withdrawal dm failed: %v", err)
		}
		return types.Result{
			Success: true,
			Message: "❌ You withdrew from the jury.",
			Action:  "left",
			Count:   len(jurors),
			Max:     types.JurySize,
		}, nil
	} else if !errors.Is(err, types.ErrNotFound) {
		return types.Result{}, err
	}

	count, err := s.config.Evaluators.AddIfCapacity(evaluationID, userID, types.JurySize)
	if errors.Is(err, types.ErrPoolFull) {
		return types.Result{Message: fmt.Sprintf("⚠️ The jury is full (%d/%d).", types.JurySize, types.JurySize), Action: "full"}, nil
	}
	if errors.Is(err, types.ErrDuplicate) {
		return types.Result{Message: "⚠️ You are already on this jury.", Action: "none"}, nil
	}
	if err != nil {
		return types.Result{}, err
	}

	if err := s.config.Messenger.PostDM(userID, fmt.Sprintf(
		"🎉 You're on the jury shortlist for %q!\nCurrently %d/%d. You'll be added to the channel once the jury is complete.",
		hub.Theme, count, types.JurySize)); err != nil {
		log.Printf("evaluation: juror dm failed: %v", err)
	}

	result := types.Result{
		Success: true,
		Message: fmt.Sprintf("✅ You joined the jury! (%d/%d)", count, types.JurySize),
		Action:  "joined",
		Count:   count,
		Max:     types.JurySize,
	}

	if count == types.JurySize {
		result.IsFull = true
		s.onJuryFilled(ctx, eval, hub)
	}
	return result, nil
}

// onJuryFilled performs the single batch invite plus announcements. Only
// the caller whose insert filled the pool reaches here.
func (s *Service) onJuryFilled(ctx context.Context, eval *types.ChallengeEvaluation, hub *types.ChallengeHub) {
	jurors, err := s.config.Evaluators.ListByEvaluation(eval.ID)
	if err != nil {
		log.Printf("evaluation: listing jurors of %s failed: %v", eval.ID, err)
		return
	}
	ids := make([]string, 0, len(jurors))
	for _, j := range jurors {
		ids = append(ids, j.UserID)
	}

	if eval.EvaluationChannelID == "" {
		log.Printf("evaluation: %s has no channel, skipping jury invite", eval.ID)
		return
	}
	if err := s.config.Directory.InviteUsers(eval.EvaluationChannelID, ids); err != nil {
		log.Printf("evaluation: jury batch invite for %s failed: %v", eval.ID, err)
		return
	}

	mentions := make([]string, len(ids))
	for i, id := range ids {
		mentions[i] = "<@" + id + ">"
	}
	text := fmt.Sprintf("🚨 The jury is complete! 🚨\n\nWelcome %s!\nPlease review %q and cast your votes with /challenge vote true|false.",
		strings.Join(mentions, ", "), hub.Theme)
	if err := s.config.Messenger.Post(eval.EvaluationChannelID, gateway.Message{Text: text}); err != nil {
		log.Printf("evaluation: jury welcome for %s failed: %v", eval.ID, err)
	}

	for _, id := range ids {
		if err := s.config.Messenger.PostDM(id, "🚀 The jury is complete and you've been added to the evaluation channel!"); err != nil {
			log.Printf("evaluation: jury dm failed: %v", err)
		}
	}

	s.publish(ctx, "evaluation.jury_filled", map[string]interface{}{"evaluation_id": eval.ID})
}

// SubmitVote records a juror's write-once vote and, at 3 total votes,
// fires the completion trigger. Finalization still requires admin action
// or the deadline timer.
func (s *Service) SubmitVote(ctx context.Context, evaluationID, userID, vote string) (types.Result, error) {
	vote = strings.ToLower(strings.TrimSpace(vote))
	if vote != types.VoteTrue && vote != types.VoteFalse {
		return types.Fail("❌ Vote must be true or false."), nil
	}

	eval, err := s.config.Evaluations.Get(evaluationID)
	if errors.Is(err, types.ErrNotFound) {
		return types.Fail("❌ Evaluation not found."), nil
	}
	if err != nil {
		return types.Result{}, err
	}
	if eval.Status != types.EvalEvaluating {
		return types.Fail("⚠️ This evaluation is already completed."), nil
	}
	hub, err := s.config.Hubs.Get(eval.HubID)
	if err != nil {
		return types.Result{}, err
	}

	if userID == s.config.AdminUserID {
		return types.Fail("❌ The admin cannot vote. Use the approve/reject buttons instead."), nil
	}
	if userID == hub.CreatorID {
		return types.Fail("❌ The project owner cannot vote; only external jurors can."), nil
	}
	participants, err := s.config.Participants.UserIDsByHub(hub.ID)
	if err != nil {
		return types.Result{}, err
	}
	for _, p := range participants {
		if p == userID {
			return types.Fail("❌ Project team members cannot vote; only external jurors can."), nil
		}
	}

	juror, err := s.config.Evaluators.GetByEvaluationAndUser(evaluationID, userID)
	if errors.Is(err, types.ErrNotFound) {
		return types.Fail("❌ You are not a juror for this evaluation."), nil
	}
	if err != nil {
		return types.Result{}, err
	}

	if err := s.config.Evaluators.SetVote(juror.ID, vote, time.Now()); err != nil {
		if errors.Is(err, types.ErrAlreadyVoted) {
			return types.Fail("⚠️ You already voted. Votes cannot be changed."), nil
		}
		return types.Result{}, err
	}

	trueVotes, falseVotes, err := s.config.Evaluators.VoteTallies(evaluationID)
	if err != nil {
		return types.Result{}, err
	}
	if err := s.config.Evaluations.SetVoteTallies(evaluationID, trueVotes, falseVotes); err != nil {
		return types.Result{}, err
	}
	log.Printf("evaluation: vote %s recorded for %s by %s", vote, evaluationID, userID)

	if trueVotes+falseVotes >= types.JurySize {
		s.onAllVotesIn(eval, trueVotes, falseVotes)
	}

	return types.OK(fmt.Sprintf("✅ Your vote has been recorded: %s", vote)), nil
}

// onAllVotesIn posts either the admin approval prompt (artifact verified
// public) or instructions to fix the artifact link.
func (s *Service) onAllVotesIn(eval *types.ChallengeEvaluation, trueVotes, falseVotes int) {
	if eval.EvaluationChannelID == "" {
		return
	}
	if eval.GithubRepoURL != "" && eval.GithubRepoPublic {
		s.postAdminPrompt(eval, trueVotes, falseVotes)
		return
	}

	var text string
	if eval.GithubRepoURL == "" {
		text = "✅ All jurors have voted!\n\n🔗 Now add your GitHub repository link with /challenge github <link>.\nThe evaluation concludes once the repo is added and verified public."
	} else {
		text = "✅ All jurors have voted!\n\n⚠️ The GitHub repository looks private. Make it public or submit the correct link with /challenge github <link>."
	}
	if err := s.config.Messenger.Post(eval.EvaluationChannelID, gateway.Message{Text: text}); err != nil {
		log.Printf("evaluation: artifact reminder for %s failed: %v", eval.ID, err)
	}
}

func (s *Service) postAdminPrompt(eval *types.ChallengeEvaluation, trueVotes, falseVotes int) {
	msg := gateway.Message{
		Text: fmt.Sprintf("✅ All jurors voted and the GitHub repo is public!\n\n📊 Votes: true=%d, false=%d\n🔗 %s\n\n👤 Waiting for admin approval...",
			trueVotes, falseVotes, eval.GithubRepoURL),
		Buttons: []gateway.Button{
			{Label: "✅ Approve and finish", CustomID: ButtonAdminApprove + ":" + eval.ID, Style: "primary"},
			{Label: "❌ Reject and finish", CustomID: ButtonAdminReject + ":" + eval.ID, Style: "danger"},
		},
	}
	if err := s.config.Messenger.Post(eval.EvaluationChannelID, msg); err != nil {
		log.Printf("evaluation: admin prompt for %s failed: %v", eval.ID, err)
	}
}

// SubmitGithubLink validates, verifies and stores the artifact link. When
// the repo is public and all votes are in, the admin prompt fires.
func (s *Service) SubmitGithubLink(ctx context.Context, evaluationID, url string) (types.Result, error) {
	eval, err := s.config.Evaluations.Get(evaluationID)
	if errors.Is(err, types.ErrNotFound) {
		return types.Fail("❌ Evaluation not found."), nil
	}
	if err != nil {
		return types.Result{}, err
	}
	if eval.Status != types.EvalEvaluating {
		return types.Fail("⚠️ This evaluation is already completed."), nil
	}

	url = strings.TrimSpace(url)
	if !ValidGithubURL(url) {
		return types.Fail("❌ Invalid GitHub URL. Expected: https://github.com/user/repo"), nil
	}

	public, err := s.config.Verifier.IsPublic(ctx, url)
	if err != nil {
		log.Printf("evaluation: github check for %s failed: %v", evaluationID, err)
		public = false
	}

	err = s.config.Evaluations.Update(evaluationID, repo.EvalUpdate{
		GithubRepoURL:    &url,
		GithubRepoPublic: &public,
	})
	if err != nil {
		return types.Result{}, err
	}

	if !public {
		return types.OK(fmt.Sprintf("⚠️ Link saved, but the repository looks private: %s\n💡 It must be public to count as a success.", url)), nil
	}

	trueVotes, falseVotes, err := s.config.Evaluators.VoteTallies(evaluationID)
	if err != nil {
		return types.Result{}, err
	}
	if trueVotes+falseVotes >= types.JurySize {
		eval.GithubRepoURL = url
		eval.GithubRepoPublic = true
		s.postAdminPrompt(eval, trueVotes, falseVotes)
		return types.OK(fmt.Sprintf("✅ Repository verified public. Waiting for admin approval: %s", url)), nil
	}
	return types.OK(fmt.Sprintf("✅ Repository link saved and verified public: %s\n💡 The evaluation concludes once all jurors have voted.", url)), nil
}

// AdminFinalize records the admin decision and finalizes immediately.
func (s *Service) AdminFinalize(ctx context.Context, evaluationID, adminUserID, decision string) (types.Result, error) {
	if adminUserID != s.config.AdminUserID {
		return types.Fail("❌ Only the admin can do this."), nil
	}
	if decision != types.DecisionApproved && decision != types.DecisionRejected {
		return types.Fail("❌ Decision must be approved or rejected."), nil
	}

	eval, err := s.config.Evaluations.Get(evaluationID)
	if errors.Is(err, types.ErrNotFound) {
		return types.Fail("❌ Evaluation not found."), nil
	}
	if err != nil {
		return types.Result{}, err
	}
	if eval.Status == types.EvalCompleted {
		return types.Fail("⚠️ This evaluation is already completed."), nil
	}

	if err := s.config.Evaluations.Update(evaluationID, repo.EvalUpdate{AdminDecision: &decision}); err != nil {
		return types.Result{}, err
	}
	log.Printf("evaluation: admin decision %s on %s by %s", decision, evaluationID, adminUserID)

	if err := s.Finalize(ctx, evaluationID, decision); err != nil {
		return types.Result{}, err
	}

	if decision == types.DecisionApproved {
		return types.OK("✅ Evaluation approved and completed."), nil
	}
	return types.OK("❌ Evaluation rejected and completed."), nil
}

// Finalize computes and applies the terminal result. It no-ops unless the
// record is still evaluating, so the deadline timer and an admin click
// can race safely.
func (s *Service) Finalize(ctx context.Context, evaluationID, adminDecision string) error {
	eval, err := s.config.Evaluations.Get(evaluationID)
	if errors.Is(err, types.ErrNotFound) {
		log.Printf("evaluation: finalize skipped, %s not found", evaluationID)
		return nil
	}
	if err != nil {
		return err
	}

	trueVotes, falseVotes, err := s.config.Evaluators.VoteTallies(evaluationID)
	if err != nil {
		return err
	}

	result, reasons := decide(adminDecision, trueVotes, falseVotes, eval.GithubRepoURL, eval.GithubRepoPublic)

	won, err := s.config.Evaluations.CompleteIfEvaluating(evaluationID, result, time.Now())
	if err != nil {
		return err
	}
	if !won {
		log.Printf("evaluation: %s already finalized, skipping", evaluationID)
		return nil
	}
	s.config.Scheduler.Cancel(finalizeJobID(evaluationID))

	s.applyTerminalState(ctx, eval, result, resultMessage(result, reasons, trueVotes, falseVotes, eval.GithubRepoPublic))
	return nil
}

// ForceComplete is the admin escape hatch: it bypasses vote and artifact
// requirements entirely for stuck or disputed evaluations.
func (s *Service) ForceComplete(ctx context.Context, evaluationID, adminUserID, result string) (types.Result, error) {
	if adminUserID != s.config.AdminUserID {
		return types.Fail("❌ Unauthorized."), nil
	}
	if result != types.ResultSuccess && result != types.ResultFailed {
		return types.Fail("❌ Result must be success or failed."), nil
	}

	eval, err := s.config.Evaluations.Get(evaluationID)
	if errors.Is(err, types.ErrNotFound) {
		return types.Fail("❌ Evaluation not found."), nil
	}
	if err != nil {
		return types.Result{}, err
	}

	won, err := s.config.Evaluations.CompleteIfEvaluating(evaluationID, result, time.Now())
	if err != nil {
		return types.Result{}, err
	}
	if !won {
		return types.Fail("⚠️ This evaluation is already completed."), nil
	}
	s.config.Scheduler.Cancel(finalizeJobID(evaluationID))

	var msg string
	if result == types.ResultSuccess {
		msg = "🎉 Challenge successful! (admin decision)"
	} else {
		msg = "❌ Challenge failed (admin decision)"
	}
	s.applyTerminalState(ctx, eval, result, msg)

	return types.OK(fmt.Sprintf("✅ Evaluation force-completed: %s", strings.ToUpper(result))), nil
}

// RearmDeadlines re-registers the hard finalize timers for open
// evaluations after a restart. Already-expired deadlines fire
// immediately.
func (s *Service) RearmDeadlines(ctx context.Context) {
	open, err := s.config.Evaluations.ListOpen()
	if err != nil {
		log.Printf("evaluation: rearm failed: %v", err)
		return
	}
	for _, eval := range open {
		if eval.Deadline == nil {
			continue
		}
		evalID := eval.ID
		s.config.Scheduler.Once(finalizeJobID(evalID), time.Until(*eval.Deadline), func() {
			if err := s.Finalize(context.Background(), evalID, ""); err != nil {
				log.Printf("evaluation: deadline finalize of %s failed: %v", evalID, err)
			}
		})
	}
}

// FinalizeOverdue sweeps evaluations past their deadline; the hourly
// recurring job drives it as a backstop behind the one-off timers.
func (s *Service) FinalizeOverdue(ctx context.Context) {
	overdue, err := s.config.Evaluations.ListOverdue(time.Now())
	if err != nil {
		log.Printf("evaluation: overdue sweep failed: %v", err)
		return
	}
	for _, eval := range overdue {
		if err := s.Finalize(ctx, eval.ID, ""); err != nil {
			log.Printf("evaluation: overdue finalize of %s failed: %v", eval.ID, err)
		}
	}
}

// applyTerminalState updates the hub, posts results and archives the
// evaluation channel. The hub lands on completed for both results; the
// success/failure distinction lives on the evaluation record.
func (s *Service) applyTerminalState(ctx context.Context, eval *types.ChallengeEvaluation, result, message string) {
	now := time.Now()
	completed := types.HubCompleted
	err := s.config.Hubs.Update(eval.HubID, repo.HubUpdate{
		Status:      &completed,
		CompletedAt: &now,
	})
	if err != nil {
		log.Printf("evaluation: hub update for %s failed: %v", eval.HubID, err)
	}

	hub, err := s.config.Hubs.Get(eval.HubID)
	if err == nil {
		if hub.HubChannelID != "" {
			if err := s.config.Messenger.Post(hub.HubChannelID, gateway.Message{Text: message}); err != nil {
				log.Printf("evaluation: result post to hub channel failed: %v", err)
			}
		}
		if hub.ChallengeChannelID != "" {
			// The working channel may already be archived; not fatal.
			if err := s.config.Messenger.Post(hub.ChallengeChannelID, gateway.Message{Text: message}); err != nil {
				log.Printf("evaluation: result post to challenge channel failed: %v", err)
			}
		}
	}

	if eval.EvaluationChannelID != "" {
		if err := s.config.Messenger.Post(eval.EvaluationChannelID, gateway.Message{Text: message}); err != nil {
			log.Printf("evaluation: result post to evaluation channel failed: %v", err)
		}
		if err := s.config.Directory.ArchiveChannel(eval.EvaluationChannelID); err != nil {
			log.Printf("evaluation: archive of %s failed: %v", eval.EvaluationChannelID, err)
		}
	}

	s.publish(ctx, "evaluation.completed", map[string]interface{}{
		"evaluation_id": eval.ID,
		"hub_id":        eval.HubID,
		"result":        result,
	})
	log.Printf("evaluation: %s finalized with result %s", eval.ID, result)
}

// decide applies the decision rule in priority order and itemizes every
// applicable failure reason.
func decide(adminDecision string, trueVotes, falseVotes int, repoURL string, repoPublic bool) (string, []string) {
	if adminDecision == types.DecisionRejected {
		return types.ResultFailed, []string{"rejected by the administrator"}
	}
	if trueVotes > falseVotes && repoURL != "" && repoPublic {
		return types.ResultSuccess, nil
	}
	var reasons []string
	if trueVotes <= falseVotes {
		reasons = append(reasons, fmt.Sprintf("true votes (%d) do not outnumber false votes (%d)", trueVotes, falseVotes))
	}
	if repoURL == "" {
		reasons = append(reasons, "no GitHub repository link was added")
	} else if !repoPublic {
		reasons = append(reasons, "the GitHub repository is not public")
	}
	return types.ResultFailed, reasons
}

func resultMessage(result string, reasons []string, trueVotes, falseVotes int, repoPublic bool) string {
	repoState := "❌ private/missing"
	if repoPublic {
		repoState = "✅ public"
	}
	footer := fmt.Sprintf("\n\n📊 Votes: true=%d, false=%d | GitHub: %s", trueVotes, falseVotes, repoState)

	if result == types.ResultSuccess {
		return "🎉 Challenge successful!" + footer
	}
	msg := "❌ Challenge failed"
	if len(reasons) > 0 {
		msg += "\n\nReasons:"
		for _, r := range reasons {
			msg += "\n• " + r
		}
	}
	return msg + footer
}

func (s *Service) eligibleJuror(hub *types.ChallengeHub, userID string) (bool, error) {
	if userID == s.config.AdminUserID || userID == hub.CreatorID {
		return false, nil
	}
	participants, err := s.config.Participants.UserIDsByHub(hub.ID)
	if err != nil {
		return false, err
	}
	for _, p := range participants {
		if p == userID {
			return false, nil
		}
	}
	return true, nil
}

func (s *Service) publish(ctx context.Context, event string, fields map[string]interface{}) {
	if s.config.Events == nil {
		return
	}
	if err := s.config.Events.Publish(ctx, event, fields); err != nil {
		log.Printf("evaluation: publish %s failed: %v", event, err)
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
