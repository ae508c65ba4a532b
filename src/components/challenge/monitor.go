package challenge

import (
	"context"
	"log"
	"time"

	"github.com/commforge/challengebot/src/gateway"
	"github.com/commforge/challengebot/src/types"
)

// Monitor reconciles channel membership against the authorized set
// (participants, evaluators, admin, bot). Manual invitations that bypass
// the pool logic are rolled back.
type MonitorConfig struct {
	Hubs         MonitorHubStore
	Participants ParticipantStore
	Evaluations  MonitorEvaluationStore
	Evaluators   MonitorEvaluatorStore
	Directory    gateway.ChannelDirectory
	AdminUserID  string
	BotUserID    string
}

type MonitorHubStore interface {
	Get(id string) (*types.ChallengeHub, error)
	WithChannels() ([]types.ChallengeHub, error)
}

type MonitorEvaluationStore interface {
	GetByHub(hubID string) (*types.ChallengeEvaluation, error)
}

type MonitorEvaluatorStore interface {
	UserIDsByEvaluation(evaluationID string) ([]string, error)
}

// MemberAction records what happened to one channel member during a sweep.
type MemberAction struct {
	ChannelID string
	UserID    string
	// Action is removed, failed_to_remove or error.
	Action string
	Err    error
}

type Monitor struct {
	config MonitorConfig
}

func NewMonitor(config MonitorConfig) *Monitor {
	return &Monitor{config: config}
}

// Run drives periodic sweeps until the context is cancelled.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	log.Println("Starting channel membership monitor")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Stopping channel membership monitor")
			return
		case <-ticker.C:
			for _, a := range m.Sweep() {
				logAction(a)
			}
		}
	}
}

// Sweep audits every live challenge and evaluation channel and returns
// the action taken per unauthorized member.
func (m *Monitor) Sweep() []MemberAction {
	hubs, err := m.config.Hubs.WithChannels()
	if err != nil {
		return []MemberAction{{Action: "error", Err: err}}
	}

	var actions []MemberAction
	for _, hub := range hubs {
		authorized, err := m.authorizedFor(&hub)
		if err != nil {
			actions = append(actions, MemberAction{ChannelID: hub.ChallengeChannelID, Action: "error", Err: err})
			continue
		}
		for _, channelID := range m.channelsFor(&hub) {
			actions = append(actions, m.auditChannel(channelID, authorized)...)
		}
	}
	return actions
}

// CheckUser is the member-join fast path: it audits a single user the
// moment they appear in a channel the bot manages. A nil return means the
// channel is not one of ours or the user belongs there.
func (m *Monitor) CheckUser(channelID, userID string) *MemberAction {
	hubs, err := m.config.Hubs.WithChannels()
	if err != nil {
		return &MemberAction{ChannelID: channelID, UserID: userID, Action: "error", Err: err}
	}
	for _, hub := range hubs {
		for _, id := range m.channelsFor(&hub) {
			if id != channelID {
				continue
			}
			authorized, err := m.authorizedFor(&hub)
			if err != nil {
				return &MemberAction{ChannelID: channelID, UserID: userID, Action: "error", Err: err}
			}
			if authorized[userID] {
				return nil
			}
			a := m.remove(channelID, userID)
			return &a
		}
	}
	return nil
}

func (m *Monitor) auditChannel(channelID string, authorized map[string]bool) []MemberAction {
	members, err := m.config.Directory.ListMembers(channelID)
	if err != nil {
		return []MemberAction{{ChannelID: channelID, Action: "error", Err: err}}
	}
	var actions []MemberAction
	for _, userID := range members {
		if authorized[userID] {
			continue
		}
		actions = append(actions, m.remove(channelID, userID))
	}
	return actions
}

func (m *Monitor) remove(channelID, userID string) MemberAction {
	if err := m.config.Directory.RemoveUser(channelID, userID); err != nil {
		return MemberAction{ChannelID: channelID, UserID: userID, Action: "failed_to_remove", Err: err}
	}
	return MemberAction{ChannelID: channelID, UserID: userID, Action: "removed"}
}

func (m *Monitor) channelsFor(hub *types.ChallengeHub) []string {
	channels := []string{hub.ChallengeChannelID}
	if hub.Status == types.HubEvaluating {
		if eval, err := m.config.Evaluations.GetByHub(hub.ID); err == nil && eval.EvaluationChannelID != "" {
			channels = append(channels, eval.EvaluationChannelID)
		}
	}
	return channels
}

func (m *Monitor) authorizedFor(hub *types.ChallengeHub) (map[string]bool, error) {
	authorized := map[string]bool{
		hub.CreatorID:        true,
		m.config.AdminUserID: true,
		m.config.BotUserID:   true,
	}
	participants, err := m.config.Participants.UserIDsByHub(hub.ID)
	if err != nil {
		return nil, err
	}
	for _, id := range participants {
		authorized[id] = true
	}
	if hub.Status == types.HubEvaluating {
		if eval, err := m.config.Evaluations.GetByHub(hub.ID); err == nil {
			jurors, err := m.config.Evaluators.UserIDsByEvaluation(eval.ID)
			if err != nil {
				return nil, err
			}
			for _, id := range jurors {
				authorized[id] = true
			}
		}
	}
	return authorized, nil
}

func logAction(a MemberAction) {
	switch a.Action {
	case "removed":
		log.Printf("monitor: removed unauthorized user %s from %s", a.UserID, a.ChannelID)
	case "failed_to_remove":
		log.Printf("monitor: could not remove %s from %s: %v", a.UserID, a.ChannelID, a.Err)
	case "error":
		log.Printf("monitor: audit error on %s: %v", a.ChannelID, a.Err)
	}
}
