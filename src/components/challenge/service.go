// Package challenge owns the hub lifecycle: recruiting, activation with a
// dedicated working channel, the deadline transition into evaluation, and
// recovery operations for stuck users.
package challenge

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
	"github.com/microcosm-cc/bluemonday"
)

// HubStore is the hub repository surface the service needs.
type HubStore interface {
	Create(hub *types.ChallengeHub) error
	Get(id string) (*types.ChallengeHub, error)
	CurrentRecruiting() (*types.ChallengeHub, error)
	Update(id string, u repo.HubUpdate) error
	TransitionStatus(id string, from []string, to string) (bool, error)
	OpenByCreator(userID string) ([]types.ChallengeHub, error)
	ListByStatus(status string, limit int) ([]types.ChallengeHub, error)
}

// ParticipantStore is the participant pool surface.
type ParticipantStore interface {
	AddIfCapacity(hubID, userID, role string, capacity int) (int, error)
	UserIDsByHub(hubID string) ([]string, error)
	Remove(hubID, userID string) error
	OpenHubIDsForUser(userID string) ([]string, error)
}

// ThemeStore exposes the enumerated theme catalog.
type ThemeStore interface {
	ActiveNames() ([]string, error)
}

// Scheduler is the bridge for deadline timers.
type Scheduler interface {
	Once(jobID string, delay time.Duration, fn func()) bool
	Cancel(jobID string)
}

// EvaluationStarter delegates the evaluating phase to the evaluation
// orchestrator without importing it.
type EvaluationStarter interface {
	StartEvaluation(ctx context.Context, hubID, triggerChannelID string) (types.Result, error)
}

// EventPublisher emits lifecycle events for observability consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event string, fields map[string]interface{}) error
}

type Config struct {
	Hubs         HubStore
	Participants ParticipantStore
	Themes       ThemeStore
	Messenger    gateway.Messenger
	Directory    gateway.ChannelDirectory
	Scheduler    Scheduler
	Evaluations  EvaluationStarter
	Events       EventPublisher
	AdminUserID  string
	HubChannelID string
}

type Service struct {
	config    Config
	sanitizer *bluemonday.Policy
}

func NewService(config Config) *Service {
	return &Service{config: config, sanitizer: bluemonday.StrictPolicy()}
}

func deadlineJobID(hubID string) string { return "hub_deadline_" + hubID }

// StartChallenge creates a hub in recruiting and auto-enrolls the creator.
func (s *Service) StartChallenge(ctx context.Context, creatorID, triggerChannelID string, req StartRequest) (types.Result, error) {
	themes, err := s.config.Themes.ActiveNames()
	if err != nil {
		return types.Result{}, fmt.Errorf("load themes: %w", err)
	}
	if err := ValidateStart(&req, themes); err != nil {
		return types.Fail(rejectionMessage(err)), nil
	}

	hubChannel := s.config.HubChannelID
	if hubChannel == "" {
		hubChannel = triggerChannelID
	}

	hub := &types.ChallengeHub{
		ID:             uuid.NewString(),
		CreatorID:      creatorID,
		Theme:          req.Theme,
		TeamSize:       req.TeamSize,
		Status:         types.HubRecruiting,
		HubChannelID:   hubChannel,
		Customizations: s.sanitizer.Sanitize(req.Customization),
		DeadlineHours:  req.DeadlineHours,
		Difficulty:     req.Difficulty,
	}
	if err := s.config.Hubs.Create(hub); err != nil {
		return types.Result{}, fmt.Errorf("create hub: %w", err)
	}

	if _, err := s.config.Participants.AddIfCapacity(hub.ID, creatorID, types.RoleCreator, req.TeamSize); err != nil {
		return types.Result{}, fmt.Errorf("enroll creator: %w", err)
	}

	s.publish(ctx, "hub.recruiting", map[string]interface{}{"hub_id": hub.ID, "theme": hub.Theme})

	announce := fmt.Sprintf(
		"🚀 New challenge: %s (%s)\nTeam of %d, %d hours on the clock. Join with /challenge join",
		hub.Theme, hub.Difficulty, hub.TeamSize, hub.DeadlineHours)
	if err := s.config.Messenger.Post(hubChannel, gateway.Message{Text: announce}); err != nil {
		log.Printf("challenge: announcement for hub %s failed: %v", hub.ID, err)
	}

	return types.Result{
		Success: true,
		Message: fmt.Sprintf("✅ Challenge created! Recruiting %d members for %q.", hub.TeamSize, hub.Theme),
		ID:      hub.ID,
	}, nil
}

// JoinChallenge adds a user to a hub's team. Passing an empty hubID
// resolves the most recent hub still recruiting. Reaching exact capacity
// triggers the recruiting->active transition.
func (s *Service) JoinChallenge(ctx context.Context, hubID, userID string) (types.Result, error) {
	var hub *types.ChallengeHub
	var err error
	if hubID == "" {
		hub, err = s.config.Hubs.CurrentRecruiting()
	} else {
		hub, err = s.config.Hubs.Get(hubID)
	}
	if errors.Is(err, types.ErrNotFound) {
		return types.Fail("❌ No challenge found to join."), nil
	}
	if err != nil {
		return types.Result{}, err
	}

	if hub.Status != types.HubRecruiting {
		if types.HubTerminal(hub.Status) {
			return types.Fail("❌ This challenge has already ended."), nil
		}
		return types.Fail("❌ This challenge is no longer recruiting."), nil
	}

	count, err := s.config.Participants.AddIfCapacity(hub.ID, userID, types.RoleMember, hub.TeamSize)
	if errors.Is(err, types.ErrAlreadyParticipating) {
		return types.Fail("❌ You already joined this challenge."), nil
	}
	if errors.Is(err, types.ErrCapacityExceeded) {
		return types.Fail(fmt.Sprintf("❌ Team is full (%d/%d).", hub.TeamSize, hub.TeamSize)), nil
	}
	if err != nil {
		return types.Result{}, fmt.Errorf("join hub %s: %w", hub.ID, err)
	}

	result := types.Result{
		Success: true,
		Message: fmt.Sprintf("✅ You're in! Team %d/%d.", count, hub.TeamSize),
		Count:   count,
		Max:     hub.TeamSize,
		ID:      hub.ID,
	}

	// The joiner whose insert filled the pool performs the activation,
	// derived from the atomic insert's own count.
	if count == hub.TeamSize {
		if err := s.activate(ctx, hub); err != nil {
			log.Printf("challenge: activation of hub %s failed: %v", hub.ID, err)
			return types.Fail("❌ Team is complete but the working channel could not be set up. Please try again shortly."), nil
		}
		result.IsFull = true
		result.Message = fmt.Sprintf("✅ You're in! Team complete (%d/%d), challenge started.", count, hub.TeamSize)
	}
	return result, nil
}

// activate provisions the working channel and arms the deadline. The
// status flips first so racing activations collapse to one; on a channel
// failure the status is reverted so the operation can be retried.
func (s *Service) activate(ctx context.Context, hub *types.ChallengeHub) error {
	won, err := s.config.Hubs.TransitionStatus(hub.ID, []string{types.HubRecruiting}, types.HubActive)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}

	name := fmt.Sprintf("challenge-%s-%s", slug(hub.Theme), hub.ID[:8])
	channelID, err := s.config.Directory.CreatePrivateChannel(name)
	if err != nil {
		if _, revertErr := s.config.Hubs.TransitionStatus(hub.ID, []string{types.HubActive}, types.HubRecruiting); revertErr != nil {
			log.Printf("challenge: revert of hub %s failed: %v", hub.ID, revertErr)
		}
		return fmt.Errorf("%w: create channel: %v", types.ErrExternalService, err)
	}

	now := time.Now()
	deadline := now.Add(time.Duration(hub.DeadlineHours) * time.Hour)
	err = s.config.Hubs.Update(hub.ID, repo.HubUpdate{
		ChallengeChannelID: &channelID,
		StartedAt:          &now,
		Deadline:           &deadline,
	})
	if err != nil {
		// Unwind the channel and the status so the activation is retryable
		// instead of leaving an active hub with no deadline on record.
		if archiveErr := s.config.Directory.ArchiveChannel(channelID); archiveErr != nil {
			log.Printf("challenge: archive of %s failed: %v", channelID, archiveErr)
		}
		if _, revertErr := s.config.Hubs.TransitionStatus(hub.ID, []string{types.HubActive}, types.HubRecruiting); revertErr != nil {
			log.Printf("challenge: revert of hub %s failed: %v", hub.ID, revertErr)
		}
		return err
	}

	members, err := s.config.Participants.UserIDsByHub(hub.ID)
	if err != nil {
		return err
	}
	invitees := appendUnique(members, s.config.AdminUserID)
	if err := s.config.Directory.InviteUsers(channelID, invitees); err != nil {
		log.Printf("challenge: invite into %s failed: %v", channelID, err)
	}

	hubID := hub.ID
	s.config.Scheduler.Once(deadlineJobID(hubID), time.Until(deadline), func() {
		if err := s.OnDeadlineExpired(context.Background(), hubID); err != nil {
			log.Printf("challenge: deadline handling for hub %s failed: %v", hubID, err)
		}
	})

	welcome := fmt.Sprintf(
		"👋 Welcome aboard! Your %q challenge runs until %s.\nShip something great. The jury arrives when time is up.",
		hub.Theme, deadline.Format("Mon 02 Jan 15:04"))
	if hub.Customizations != "" {
		welcome += "\n\n📌 Notes from the creator:\n" + hub.Customizations
	}
	if err := s.config.Messenger.Post(channelID, gateway.Message{Text: welcome}); err != nil {
		log.Printf("challenge: welcome message for hub %s failed: %v", hub.ID, err)
	}

	s.publish(ctx, "hub.active", map[string]interface{}{"hub_id": hub.ID, "channel_id": channelID})
	return nil
}

// OnDeadlineExpired is the one-off deadline callback. A hub that already
// left active (cancelled in the meantime) makes this a no-op.
func (s *Service) OnDeadlineExpired(ctx context.Context, hubID string) error {
	won, err := s.config.Hubs.TransitionStatus(hubID, []string{types.HubActive}, types.HubEvaluating)
	if err != nil {
		return err
	}
	if !won {
		log.Printf("challenge: hub %s left active before its deadline, skipping", hubID)
		return nil
	}

	hub, err := s.config.Hubs.Get(hubID)
	if err != nil {
		return err
	}

	if hub.ChallengeChannelID != "" {
		msg := "⏰ Time's up! The working channel is closing and the evaluation phase begins."
		if err := s.config.Messenger.Post(hub.ChallengeChannelID, gateway.Message{Text: msg}); err != nil {
			log.Printf("challenge: closing notice for hub %s failed: %v", hubID, err)
		}
		if err := s.config.Directory.ArchiveChannel(hub.ChallengeChannelID); err != nil {
			log.Printf("challenge: archive of %s failed: %v", hub.ChallengeChannelID, err)
		}
	}

	s.publish(ctx, "hub.evaluating", map[string]interface{}{"hub_id": hubID})

	res, err := s.config.Evaluations.StartEvaluation(ctx, hubID, hub.HubChannelID)
	if err != nil {
		return fmt.Errorf("start evaluation for hub %s: %w", hubID, err)
	}
	if !res.Success {
		log.Printf("challenge: evaluation start for hub %s rejected: %s", hubID, res.Message)
	}
	return nil
}

// RearmDeadlines re-registers the one-off deadline timers for active
// hubs after a restart. Already-expired deadlines fire immediately.
func (s *Service) RearmDeadlines(ctx context.Context) {
	hubs, err := s.config.Hubs.ListByStatus(types.HubActive, 0)
	if err != nil {
		log.Printf("challenge: rearm failed: %v", err)
		return
	}
	for _, hub := range hubs {
		if hub.Deadline == nil {
			continue
		}
		hubID := hub.ID
		s.config.Scheduler.Once(deadlineJobID(hubID), time.Until(*hub.Deadline), func() {
			if err := s.OnDeadlineExpired(context.Background(), hubID); err != nil {
				log.Printf("challenge: deadline handling for hub %s failed: %v", hubID, err)
			}
		})
	}
}

// ResetUser frees a user stuck by a prior partial failure: drops their
// open participations and cancels any open hub they created.
func (s *Service) ResetUser(ctx context.Context, userID string) (types.Result, error) {
	hubIDs, err := s.config.Participants.OpenHubIDsForUser(userID)
	if err != nil {
		return types.Result{}, err
	}
	for _, id := range hubIDs {
		if err := s.config.Participants.Remove(id, userID); err != nil {
			return types.Result{}, fmt.Errorf("remove participant: %w", err)
		}
	}

	created, err := s.config.Hubs.OpenByCreator(userID)
	if err != nil {
		return types.Result{}, err
	}
	cancelled := 0
	for _, hub := range created {
		won, err := s.config.Hubs.TransitionStatus(hub.ID,
			[]string{types.HubRecruiting, types.HubActive}, types.HubCancelled)
		if err != nil {
			return types.Result{}, err
		}
		if !won {
			continue
		}
		cancelled++
		s.config.Scheduler.Cancel(deadlineJobID(hub.ID))
		if hub.ChallengeChannelID != "" {
			if err := s.config.Directory.ArchiveChannel(hub.ChallengeChannelID); err != nil {
				log.Printf("challenge: archive of %s failed: %v", hub.ChallengeChannelID, err)
			}
		}
		s.publish(ctx, "hub.cancelled", map[string]interface{}{"hub_id": hub.ID})
	}

	return types.Result{
		Success: true,
		Message: fmt.Sprintf("✅ User reset: left %d challenge(s), cancelled %d created challenge(s).",
			len(hubIDs), cancelled),
	}, nil
}

func (s *Service) publish(ctx context.Context, event string, fields map[string]interface{}) {
	if s.config.Events == nil {
		return
	}
	if err := s.config.Events.Publish(ctx, event, fields); err != nil {
		log.Printf("challenge: publish %s failed: %v", event, err)
	}
}

func rejectionMessage(err error) string {
	return "❌ " + strings.TrimSpace(strings.TrimPrefix(err.Error(), types.ErrInvalidInput.Error()+":"))
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, " ", "-")
}

func appendUnique(ids []string, extra ...string) []string {
	seen := make(map[string]bool, len(ids)+len(extra))
	var out []string
	for _, id := range append(append([]string{}, ids...), extra...) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
