package service

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/craftlink/whitelistd/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory PlayerStore.
type fakeStore struct {
	mu      sync.Mutex
	players map[string]*models.Player
}

func newFakeStore(players ...*models.Player) *fakeStore {
	s := &fakeStore{players: map[string]*models.Player{}}
	for _, p := range players {
		s.players[p.ExternalID] = p
	}
	return s
}

func (s *fakeStore) FindByExternalID(externalID string) (*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[externalID]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

func (s *fakeStore) Save(player *models.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *player
	s.players[player.ExternalID] = &clone
	return nil
}

func (s *fakeStore) UpdateServers(externalID string, serverIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[externalID]
	if !ok {
		return fmt.Errorf("player %s not found", externalID)
	}
	return p.SetServerList(serverIDs)
}

func (s *fakeStore) FindBound() ([]models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Player
	for _, p := range s.players {
		if p.Bound() {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *fakeStore) memberships(externalID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.players[externalID].ServerList()
}

// fakeExecutor records commands and replies from a script.
type fakeExecutor struct {
	mu       sync.Mutex
	commands []string
	response string
	err      error
}

func (e *fakeExecutor) Execute(server *models.ServerConfig, command string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commands = append(e.commands, command)
	return e.response, e.err
}

func (e *fakeExecutor) sent() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.commands...)
}

func usernameServer(id string) *models.ServerConfig {
	return &models.ServerConfig{
		ID:            id,
		Name:          id,
		Address:       "127.0.0.1:25575",
		Password:      "hunter2",
		AddCommand:    "whitelist add ${MCID}",
		RemoveCommand: "whitelist remove ${MCID}",
		IDType:        models.IDTypeUsername,
		Enabled:       true,
	}
}

func boundPlayer(externalID, username string, servers ...string) *models.Player {
	p := &models.Player{ExternalID: externalID, MCUsername: username}
	if err := p.SetServerList(servers); err != nil {
		panic(err)
	}
	return p
}

func TestAddWhitelistSuccess(t *testing.T) {
	store := newFakeStore(boundPlayer("ext1", "Notch"))
	exec := &fakeExecutor{response: "Added Notch to the whitelist"}
	svc := NewWhitelistService(store, exec, time.Millisecond)

	ok, err := svc.Add("ext1", usernameServer("s1"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"whitelist add Notch"}, exec.sent())
	assert.Equal(t, []string{"s1"}, store.memberships("ext1"))
}

func TestAddWhitelistEmptyResponseNotAccepted(t *testing.T) {
	store := newFakeStore(boundPlayer("ext1", "Notch"))
	exec := &fakeExecutor{response: ""}
	svc := NewWhitelistService(store, exec, time.Millisecond)

	server := usernameServer("s1")
	server.AcceptEmptyResponse = false

	ok, err := svc.Add("ext1", server)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, store.memberships("ext1"), "failed mutation must not touch persisted state")
}

func TestAddWhitelistEmptyResponseAccepted(t *testing.T) {
	store := newFakeStore(boundPlayer("ext1", "Notch"))
	exec := &fakeExecutor{response: ""}
	svc := NewWhitelistService(store, exec, time.Millisecond)

	server := usernameServer("s1")
	server.AcceptEmptyResponse = true

	ok, err := svc.Add("ext1", server)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"s1"}, store.memberships("ext1"))
}

func TestAddWhitelistIdempotent(t *testing.T) {
	store := newFakeStore(boundPlayer("ext1", "Notch", "s1"))
	exec := &fakeExecutor{response: "Added Notch to the whitelist"}
	svc := NewWhitelistService(store, exec, time.Millisecond)

	ok, err := svc.Add("ext1", usernameServer("s1"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, exec.sent(), "repeat add must not reach the network")
}

func TestRemoveWhitelistNonMemberIdempotent(t *testing.T) {
	store := newFakeStore(boundPlayer("ext1", "Notch"))
	exec := &fakeExecutor{response: "Removed Notch from the whitelist"}
	svc := NewWhitelistService(store, exec, time.Millisecond)

	ok, err := svc.Remove("ext1", usernameServer("s1"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, exec.sent(), "removing a non-member must not reach the network")
}

func TestAddThenRemoveRoundTrip(t *testing.T) {
	store := newFakeStore(boundPlayer("ext1", "Notch", "other"))
	exec := &fakeExecutor{response: "Added Notch to the whitelist"}
	svc := NewWhitelistService(store, exec, time.Millisecond)

	before := store.memberships("ext1")

	ok, err := svc.Add("ext1", usernameServer("s1"))
	require.NoError(t, err)
	require.True(t, ok)

	exec.response = "Removed Notch from the whitelist"
	ok, err = svc.Remove("ext1", usernameServer("s1"))
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, before, store.memberships("ext1"))
}

func TestRemoveUnknownResponseKeepsMembership(t *testing.T) {
	store := newFakeStore(boundPlayer("ext1", "Notch", "s1"))
	exec := &fakeExecutor{response: "Whitelist wurde aktualisiert"}
	svc := NewWhitelistService(store, exec, time.Millisecond)

	ok, err := svc.Remove("ext1", usernameServer("s1"))
	require.NoError(t, err)
	assert.False(t, ok, "unrecognized remove response must not count as removed")
	assert.Equal(t, []string{"s1"}, store.memberships("ext1"))
}

func TestMutationSanitizesIdentifier(t *testing.T) {
	store := newFakeStore(boundPlayer("ext1", "Notch;rm -rf"))
	exec := &fakeExecutor{response: "Added Notchrm-rf to the whitelist"}
	svc := NewWhitelistService(store, exec, time.Millisecond)

	ok, err := svc.Add("ext1", usernameServer("s1"))
	require.NoError(t, err)
	assert.True(t, ok)

	require.Len(t, exec.sent(), 1)
	sent := exec.sent()[0]
	for _, ch := range ";&|$`\"'<>" {
		assert.NotContains(t, sent, string(ch))
	}
}

func TestMutationRejectsMalformedUUID(t *testing.T) {
	player := boundPlayer("ext1", "Notch")
	player.MCUUID = "not-a-uuid"
	store := newFakeStore(player)
	exec := &fakeExecutor{response: "Added"}
	svc := NewWhitelistService(store, exec, time.Millisecond)

	server := usernameServer("s1")
	server.IDType = models.IDTypeUUID

	ok, err := svc.Add("ext1", server)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, exec.sent(), "validation failure must not reach the network")
}

func TestMutationDisabledServer(t *testing.T) {
	store := newFakeStore(boundPlayer("ext1", "Notch"))
	exec := &fakeExecutor{response: "Added"}
	svc := NewWhitelistService(store, exec, time.Millisecond)

	server := usernameServer("s1")
	server.Enabled = false

	ok, err := svc.Add("ext1", server)
	assert.ErrorIs(t, err, ErrServerDisabled)
	assert.False(t, ok)
}

func TestMutationUnknownPlayer(t *testing.T) {
	svc := NewWhitelistService(newFakeStore(), &fakeExecutor{}, time.Millisecond)

	ok, err := svc.Add("ghost", usernameServer("s1"))
	assert.ErrorIs(t, err, ErrPlayerNotFound)
	assert.False(t, ok)
}

func TestSyncAllAbortsOnFailureRate(t *testing.T) {
	var players []*models.Player
	for i := 0; i < 8; i++ {
		players = append(players, boundPlayer(fmt.Sprintf("ext%d", i), fmt.Sprintf("Player%d", i)))
	}
	store := newFakeStore(players...)
	exec := &fakeExecutor{response: "Failed to add player"}
	svc := NewWhitelistService(store, exec, time.Millisecond)

	report, err := svc.SyncAll(usernameServer("s1"))
	require.NoError(t, err)

	assert.True(t, report.Aborted)
	assert.Equal(t, 5, report.Failed, "run should stop once the failure-rate guard trips")
	assert.Equal(t, 0, report.Succeeded)
	assert.Equal(t, 8, report.Total)
}

func TestSyncAllSkipsExistingMembers(t *testing.T) {
	store := newFakeStore(
		boundPlayer("ext1", "Alpha", "s1"),
		boundPlayer("ext2", "Beta"),
	)
	exec := &fakeExecutor{response: "Added Beta to the whitelist"}
	svc := NewWhitelistService(store, exec, time.Millisecond)

	report, err := svc.SyncAll(usernameServer("s1"))
	require.NoError(t, err)

	assert.False(t, report.Aborted)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.Failed)

	sent := exec.sent()
	require.Len(t, sent, 1)
	assert.True(t, strings.HasPrefix(sent[0], "whitelist add "))
}

func TestAddWhitelistTransportErrorPropagates(t *testing.T) {
	store := newFakeStore(boundPlayer("ext1", "Notch"))
	exec := &fakeExecutor{err: fmt.Errorf("boom")}
	svc := NewWhitelistService(store, exec, time.Millisecond)

	ok, err := svc.Add("ext1", usernameServer("s1"))
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Empty(t, store.memberships("ext1"))
}
