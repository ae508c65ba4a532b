package challenge

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

type fakeHubStore struct {
	mu        sync.Mutex
	hubs      map[string]*types.ChallengeHub
	updateErr error
}

func newFakeHubStore() *fakeHubStore {
	return &fakeHubStore{hubs: map[string]*types.ChallengeHub{}}
}

func (f *fakeHubStore) Create(hub *types.ChallengeHub) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if hub.ID == "" {
		hub.ID = uuid.NewString()
	}
	hub.CreatedAt = time.Now()
	cp := *hub
	f.hubs[hub.ID] = &cp
	return nil
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

func (f *fakeHubStore) CurrentRecruiting() (*types.ChallengeHub, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *types.ChallengeHub
	for _, hub := range f.hubs {
		if hub.Status != types.HubRecruiting {
			continue
		}
		if latest == nil || hub.CreatedAt.After(latest.CreatedAt) {
			latest = hub
		}
	}
	if latest == nil {
		return nil, types.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeHubStore) Update(id string, u repo.HubUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	hub, ok := f.hubs[id]
	if !ok {
		return types.ErrNotFound
	}
	if u.Status != nil {
		hub.Status = *u.Status
	}
	if u.ChallengeChannelID != nil {
		hub.ChallengeChannelID = *u.ChallengeChannelID
	}
	if u.Deadline != nil {
		hub.Deadline = u.Deadline
	}
	if u.StartedAt != nil {
		hub.StartedAt = u.StartedAt
	}
	if u.CompletedAt != nil {
		hub.CompletedAt = u.CompletedAt
	}
	return nil
}

func (f *fakeHubStore) TransitionStatus(id string, from []string, to string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hub, ok := f.hubs[id]
	if !ok {
		return false, nil
	}
	for _, s := range from {
		if hub.Status == s {
			hub.Status = to
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeHubStore) OpenByCreator(userID string) ([]types.ChallengeHub, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.ChallengeHub
	for _, hub := range f.hubs {
		if hub.CreatorID == userID &&
			(hub.Status == types.HubRecruiting || hub.Status == types.HubActive) {
			out = append(out, *hub)
		}
	}
	return out, nil
}

func (f *fakeHubStore) ListByStatus(status string, limit int) ([]types.ChallengeHub, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.ChallengeHub
	for _, hub := range f.hubs {
		if status == "" || hub.Status == status {
			out = append(out, *hub)
		}
	}
	return out, nil
}

func (f *fakeHubStore) WithChannels() ([]types.ChallengeHub, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.ChallengeHub
	for _, hub := range f.hubs {
		if hub.ChallengeChannelID != "" &&
			(hub.Status == types.HubActive || hub.Status == types.HubEvaluating) {
			out = append(out, *hub)
		}
	}
	return out, nil
}

type fakeParticipantStore struct {
	mu      sync.Mutex
	members map[string][]string // hubID -> userIDs
	roles   map[string]string   // hubID/userID -> role
}

func newFakeParticipantStore() *fakeParticipantStore {
	return &fakeParticipantStore{
		members: map[string][]string{},
		roles:   map[string]string{},
	}
}

func (f *fakeParticipantStore) AddIfCapacity(hubID, userID, role string, capacity int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.members[hubID] {
		if id == userID {
			return 0, types.ErrAlreadyParticipating
		}
	}
	if len(f.members[hubID]) >= capacity {
		return 0, types.ErrCapacityExceeded
	}
	f.members[hubID] = append(f.members[hubID], userID)
	f.roles[hubID+"/"+userID] = role
	return len(f.members[hubID]), nil
}

func (f *fakeParticipantStore) UserIDsByHub(hubID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.members[hubID]...), nil
}

func (f *fakeParticipantStore) Remove(hubID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []string
	for _, id := range f.members[hubID] {
		if id != userID {
			kept = append(kept, id)
		}
	}
	f.members[hubID] = kept
	return nil
}

func (f *fakeParticipantStore) OpenHubIDsForUser(userID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for hubID, ids := range f.members {
		for _, id := range ids {
			if id == userID {
				out = append(out, hubID)
			}
		}
	}
	return out, nil
}

type fakeThemeStore struct {
	names []string
}

func (f *fakeThemeStore) ActiveNames() ([]string, error) {
	return f.names, nil
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
	mu         sync.Mutex
	nextID     int
	createErr  error
	channels   map[string][]string // channelID -> member userIDs
	archived   []string
	removed    map[string][]string
	removeErrs map[string]error
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		channels:   map[string][]string{},
		removed:    map[string][]string{},
		removeErrs: map[string]error{},
	}
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
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.removeErrs[channelID+"/"+userID]; err != nil {
		return err
	}
	f.removed[channelID] = append(f.removed[channelID], userID)
	var kept []string
	for _, id := range f.channels[channelID] {
		if id != userID {
			kept = append(kept, id)
		}
	}
	f.channels[channelID] = kept
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

type fakeStarter struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeStarter) StartEvaluation(ctx context.Context, hubID, triggerChannelID string) (types.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, hubID)
	return types.OK("started"), nil
}
