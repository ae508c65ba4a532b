package evaluation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/commforge/challengebot/src/gateway"
	"github.com/commforge/challengebot/src/repo"
	"github.com/commforge/challengebot/src/types"
	"github.com/google/uuid"
)

type fakeEvaluationStore struct {
	mu    sync.Mutex
	evals map[string]*types.ChallengeEvaluation
}

func newFakeEvaluationStore() *fakeEvaluationStore {
	return &fakeEvaluationStore{evals: map[string]*types.ChallengeEvaluation{}}
}

func (f *fakeEvaluationStore) Create(eval *types.ChallengeEvaluation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.evals {
		if e.HubID == eval.HubID {
			return types.ErrDuplicate
		}
	}
	if eval.ID == "" {
		eval.ID = uuid.NewString()
	}
	eval.CreatedAt = time.Now()
	cp := *eval
	f.evals[eval.ID] = &cp
	return nil
}

func (f *fakeEvaluationStore) Get(id string) (*types.ChallengeEvaluation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	eval, ok := f.evals[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	cp := *eval
	return &cp, nil
}

func (f *fakeEvaluationStore) GetByHub(hubID string) (*types.ChallengeEvaluation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, eval := range f.evals {
		if eval.HubID == hubID {
			cp := *eval
			return &cp, nil
		}
	}
	return nil, types.ErrNotFound
}

func (f *fakeEvaluationStore) Update(id string, u repo.EvalUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	eval, ok := f.evals[id]
	if !ok {
		return types.ErrNotFound
	}
	if u.Status != nil {
		eval.Status = *u.Status
	}
	if u.EvaluationChannelID != nil {
		eval.EvaluationChannelID = *u.EvaluationChannelID
	}
	if u.GithubRepoURL != nil {
		eval.GithubRepoURL = *u.GithubRepoURL
	}
	if u.GithubRepoPublic != nil {
		eval.GithubRepoPublic = *u.GithubRepoPublic
	}
	if u.AdminDecision != nil {
		eval.AdminDecision = *u.AdminDecision
	}
	return nil
}

func (f *fakeEvaluationStore) SetVoteTallies(id string, trueVotes, falseVotes int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	eval, ok := f.evals[id]
	if !ok {
		return types.ErrNotFound
	}
	eval.TrueVotes = trueVotes
	eval.FalseVotes = falseVotes
	return nil
}

func (f *fakeEvaluationStore) CompleteIfEvaluating(id, result string, completedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	eval, ok := f.evals[id]
	if !ok || eval.Status != types.EvalEvaluating {
		return false, nil
	}
	eval.Status = types.EvalCompleted
	eval.FinalResult = result
	eval.CompletedAt = &completedAt
	return true, nil
}

func (f *fakeEvaluationStore) Delete(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.evals, id)
	return nil
}

func (f *fakeEvaluationStore) ListOpen() ([]types.ChallengeEvaluation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.ChallengeEvaluation
	for _, eval := range f.evals {
		if eval.Status == types.EvalEvaluating {
			out = append(out, *eval)
		}
	}
	return out, nil
}

func (f *fakeEvaluationStore) ListOverdue(now time.Time) ([]types.ChallengeEvaluation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.ChallengeEvaluation
	for _, eval := range f.evals {
		if eval.Status == types.EvalEvaluating && eval.Deadline != nil && eval.Deadline.Before(now) {
			out = append(out, *eval)
		}
	}
	return out, nil
}

type fakeEvaluatorStore struct {
	mu     sync.Mutex
	nextID int
	jurors map[string]*types.ChallengeEvaluator
}

func newFakeEvaluatorStore() *fakeEvaluatorStore {
	return &fakeEvaluatorStore{jurors: map[string]*types.ChallengeEvaluator{}}
}

func (f *fakeEvaluatorStore) AddIfCapacity(evaluationID, userID string, capacity int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, j := range f.jurors {
		if j.EvaluationID != evaluationID {
			continue
		}
		if j.UserID == userID {
			return 0, types.ErrDuplicate
		}
		count++
	}
	if count >= capacity {
		return 0, types.ErrPoolFull
	}
	f.nextID++
	id := fmt.Sprintf("juror-%d", f.nextID)
	f.jurors[id] = &types.ChallengeEvaluator{
		ID:           id,
		EvaluationID: evaluationID,
		UserID:       userID,
		JoinedAt:     time.Now(),
	}
	return count + 1, nil
}

func (f *fakeEvaluatorStore) GetByEvaluationAndUser(evaluationID, userID string) (*types.ChallengeEvaluator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.jurors {
		if j.EvaluationID == evaluationID && j.UserID == userID {
			cp := *j
			return &cp, nil
		}
	}
	return nil, types.ErrNotFound
}

func (f *fakeEvaluatorStore) Delete(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jurors[id]
	if !ok {
		return types.ErrNotFound
	}
	if j.Vote != "" {
		return types.ErrAlreadyVoted
	}
	delete(f.jurors, id)
	return nil
}

func (f *fakeEvaluatorStore) ListByEvaluation(evaluationID string) ([]types.ChallengeEvaluator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.ChallengeEvaluator
	for _, j := range f.jurors {
		if j.EvaluationID == evaluationID {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (f *fakeEvaluatorStore) SetVote(id, vote string, votedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jurors[id]
	if !ok {
		return types.ErrNotFound
	}
	if j.Vote != "" {
		return types.ErrAlreadyVoted
	}
	j.Vote = vote
	j.VotedAt = &votedAt
	return nil
}

func (f *fakeEvaluatorStore) VoteTallies(evaluationID string) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var trueVotes, falseVotes int
	for _, j := range f.jurors {
		if j.EvaluationID != evaluationID {
			continue
		}
		switch j.Vote {
		case types.VoteTrue:
			trueVotes++
		case types.VoteFalse:
			falseVotes++
		}
	}
	return trueVotes, falseVotes, nil
}

type fakeHubStore struct {
	mu   sync.Mutex
	hubs map[string]*types.ChallengeHub
}

func newFakeHubStore() *fakeHubStore {
	return &fakeHubStore{hubs: map[string]*types.ChallengeHub{}}
}

func (f *fakeHubStore) put(hub *types.ChallengeHub) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *hub
	f.hubs[hub.ID] = &cp
}

func (f *fakeHubStore) Get(id string) (*types.ChallengeHub, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hub, ok := f.hubs[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	cp := *hub
	return &cp, nil
}

func (f *fakeHubStore) Update(id string, u repo.HubUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	hub, ok := f.hubs[id]
	if !ok {
		return types.ErrNotFound
	}
	if u.Status != nil {
		hub.Status = *u.Status
	}
	if u.CompletedAt != nil {
		hub.CompletedAt = u.CompletedAt
	}
	return nil
}

type fakeParticipantStore struct {
	members map[string][]string
}

func (f *fakeParticipantStore) UserIDsByHub(hubID string) ([]string, error) {
	return f.members[hubID], nil
}

type post struct {
	channelID string
	msg       gateway.Message
}

type fakeMessenger struct {
	mu    sync.Mutex
	posts []post
	dms   map[string][]string
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{dms: map[string][]string{}}
}

func (f *fakeMessenger) Post(channelID string, msg gateway.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, post{channelID: channelID, msg: msg})
	return nil
}

func (f *fakeMessenger) PostDM(userID string, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dms[userID] = append(f.dms[userID], text)
	return nil
}

func (f *fakeMessenger) postsTo(channelID string) []gateway.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []gateway.Message
	for _, p := range f.posts {
		if p.channelID == channelID {
			out = append(out, p.msg)
		}
	}
	return out
}

type fakeDirectory struct {
	mu        sync.Mutex
	nextID    int
	createErr error
	channels  map[string][]string
	archived  []string
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{channels: map[string][]string{}}
}

func (f *fakeDirectory) CreatePrivateChannel(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextID++
	id := fmt.Sprintf("chan-%d", f.nextID)
	f.channels[id] = nil
	return id, nil
}

func (f *fakeDirectory) InviteUsers(channelID string, userIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels[channelID] = append(f.channels[channelID], userIDs...)
	return nil
}

func (f *fakeDirectory) RemoveUser(channelID, userID string) error {
	return nil
}

func (f *fakeDirectory) ArchiveChannel(channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived = append(f.archived, channelID)
	return nil
}

func (f *fakeDirectory) ListMembers(channelID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.channels[channelID]...), nil
}

type fakeScheduler struct {
	mu        sync.Mutex
	once      map[string]func()
	cancelled []string
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{once: map[string]func(){}}
}

func (f *fakeScheduler) Once(jobID string, delay time.Duration, fn func()) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.once[jobID]; ok {
		return false
	}
	f.once[jobID] = fn
	return true
}

func (f *fakeScheduler) Cancel(jobID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.once, jobID)
	f.cancelled = append(f.cancelled, jobID)
}

func (f *fakeScheduler) pending(jobID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.once[jobID]
	return ok
}

type fakeVerifier struct {
	public map[string]bool
	err    error
}

func (f *fakeVerifier) IsPublic(ctx context.Context, repoURL string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.public[repoURL], nil
}
