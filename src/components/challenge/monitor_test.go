package challenge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commforge/challengebot/src/types"
)

type fakeEvalLookup struct {
	byHub map[string]*types.ChallengeEvaluation
}

func (f *fakeEvalLookup) GetByHub(hubID string) (*types.ChallengeEvaluation, error) {
	if eval, ok := f.byHub[hubID]; ok {
		return eval, nil
	}
	return nil, types.ErrNotFound
}

type fakeJurorLookup struct {
	byEval map[string][]string
}

func (f *fakeJurorLookup) UserIDsByEvaluation(evaluationID string) ([]string, error) {
	return f.byEval[evaluationID], nil
}

func monitorEnv(t *testing.T) (*Monitor, *fakeHubStore, *fakeParticipantStore, *fakeDirectory, *fakeEvalLookup, *fakeJurorLookup) {
	t.Helper()
	hubs := newFakeHubStore()
	participants := newFakeParticipantStore()
	directory := newFakeDirectory()
	evals := &fakeEvalLookup{byHub: map[string]*types.ChallengeEvaluation{}}
	jurors := &fakeJurorLookup{byEval: map[string][]string{}}
	m := NewMonitor(MonitorConfig{
		Hubs:         hubs,
		Participants: participants,
		Evaluations:  evals,
		Evaluators:   jurors,
		Directory:    directory,
		AdminUserID:  "admin",
		BotUserID:    "bot",
	})
	return m, hubs, participants, directory, evals, jurors
}

func activeHub(t *testing.T, hubs *fakeHubStore, participants *fakeParticipantStore, channelID string, members ...string) *types.ChallengeHub {
	t.Helper()
	hub := &types.ChallengeHub{
		CreatorID:          members[0],
		Theme:              "Web App",
		TeamSize:           len(members),
		Status:             types.HubActive,
		ChallengeChannelID: channelID,
	}
	require.NoError(t, hubs.Create(hub))
	for _, u := range members {
		_, err := participants.AddIfCapacity(hub.ID, u, types.RoleMember, len(members))
		require.NoError(t, err)
	}
	return hub
}

func TestSweepRemovesIntruders(t *testing.T) {
	m, hubs, participants, directory, _, _ := monitorEnv(t)
	activeHub(t, hubs, participants, "work-1", "creator", "alice")
	directory.channels["work-1"] = []string{"creator", "alice", "admin", "bot", "intruder"}

	actions := m.Sweep()
	require.Len(t, actions, 1)
	assert.Equal(t, "removed", actions[0].Action)
	assert.Equal(t, "intruder", actions[0].UserID)

	members, _ := directory.ListMembers("work-1")
	assert.NotContains(t, members, "intruder")
	assert.Contains(t, members, "alice")
}

func TestSweepCoversEvaluationChannel(t *testing.T) {
	m, hubs, participants, directory, evals, jurors := monitorEnv(t)
	hub := activeHub(t, hubs, participants, "work-1", "creator", "alice")

	evaluating := types.HubEvaluating
	_, err := hubs.TransitionStatus(hub.ID, []string{types.HubActive}, evaluating)
	require.NoError(t, err)
	evals.byHub[hub.ID] = &types.ChallengeEvaluation{
		ID:                  "eval-1",
		HubID:               hub.ID,
		Status:              types.EvalEvaluating,
		EvaluationChannelID: "eval-chan",
	}
	jurors.byEval["eval-1"] = []string{"juror1", "juror2", "juror3"}
	directory.channels["eval-chan"] = []string{"creator", "juror1", "juror2", "juror3", "lurker"}

	actions := m.Sweep()
	require.Len(t, actions, 1)
	assert.Equal(t, "lurker", actions[0].UserID)
	assert.Equal(t, "removed", actions[0].Action)
}

func TestSweepReportsRemovalFailure(t *testing.T) {
	m, hubs, participants, directory, _, _ := monitorEnv(t)
	activeHub(t, hubs, participants, "work-1", "creator")
	directory.channels["work-1"] = []string{"creator", "intruder"}
	directory.removeErrs["work-1/intruder"] = assert.AnError

	actions := m.Sweep()
	require.Len(t, actions, 1)
	assert.Equal(t, "failed_to_remove", actions[0].Action)
	assert.Error(t, actions[0].Err)
}

func TestCheckUser(t *testing.T) {
	m, hubs, participants, directory, _, _ := monitorEnv(t)
	activeHub(t, hubs, participants, "work-1", "creator", "alice")
	directory.channels["work-1"] = []string{"creator", "alice", "intruder"}

	t.Run("authorized member", func(t *testing.T) {
		assert.Nil(t, m.CheckUser("work-1", "alice"))
	})

	t.Run("admin and bot", func(t *testing.T) {
		assert.Nil(t, m.CheckUser("work-1", "admin"))
		assert.Nil(t, m.CheckUser("work-1", "bot"))
	})

	t.Run("intruder removed immediately", func(t *testing.T) {
		action := m.CheckUser("work-1", "intruder")
		require.NotNil(t, action)
		assert.Equal(t, "removed", action.Action)
	})

	t.Run("unmanaged channel ignored", func(t *testing.T) {
		assert.Nil(t, m.CheckUser("random-chan", "whoever"))
	})
}

func TestRunStopsOnContextCancel(t *testing.T) {
	m, _, _, _, _, _ := monitorEnv(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		m.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop on context cancel")
	}
}
