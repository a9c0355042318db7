package service

import (
	"sync"
	"testing"
	"time"

	"github.com/craftlink/whitelistd/internal/external"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMojang struct {
	mu      sync.Mutex
	calls   int
	profile *external.MojangProfile
	err     error
}

func (m *fakeMojang) Profile(username string) (*external.MojangProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.profile, m.err
}

func (m *fakeMojang) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

const usernameOnlyFleet = `[
  {
    "id": "s1",
    "name": "Survival",
    "address": "mc.example.com:25575",
    "password": "p",
    "add_command": "whitelist add ${MCID}",
    "remove_command": "whitelist remove ${MCID}",
    "id_type": "username",
    "enabled": true
  }
]`

const uuidFleet = `[
  {
    "id": "s1",
    "name": "Survival",
    "address": "mc.example.com:25575",
    "password": "p",
    "add_command": "fwhitelist add ${MCID}",
    "remove_command": "fwhitelist remove ${MCID}",
    "id_type": "uuid",
    "enabled": true
  }
]`

func newBindFixture(t *testing.T, fleetJSON string, store *fakeStore, exec *fakeExecutor, mojang *fakeMojang) *BindService {
	t.Helper()
	fleet, err := NewFleetService(writeFleetFile(t, fleetJSON))
	require.NoError(t, err)
	whitelist := NewWhitelistService(store, exec, time.Millisecond)
	return NewBindService(store, mojang, whitelist, fleet)
}

func TestBindWithoutUUIDServers(t *testing.T) {
	store := newFakeStore()
	mojang := &fakeMojang{}
	binds := newBindFixture(t, usernameOnlyFleet, store, &fakeExecutor{}, mojang)

	player, err := binds.Bind("ext1", "  Notch  ")
	require.NoError(t, err)
	assert.Equal(t, "Notch", player.MCUsername)
	assert.Empty(t, player.MCUUID)
	assert.Equal(t, 0, mojang.callCount(), "username-only fleet should not hit Mojang")

	saved, err := store.FindByExternalID("ext1")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "Notch", saved.MCUsername)
}

func TestBindResolvesUUID(t *testing.T) {
	store := newFakeStore()
	mojang := &fakeMojang{profile: &external.MojangProfile{
		ID:   "069A79F444E94726A5BEFCA90E38AAF5",
		Name: "Notch",
	}}
	binds := newBindFixture(t, uuidFleet, store, &fakeExecutor{}, mojang)

	player, err := binds.Bind("ext1", "notch")
	require.NoError(t, err)
	assert.Equal(t, "Notch", player.MCUsername, "Mojang's canonical casing wins")
	assert.Equal(t, "069a79f444e94726a5befca90e38aaf5", player.MCUUID)
	assert.Equal(t, 1, mojang.callCount())
}

func TestBindRejectsEmptyUsername(t *testing.T) {
	binds := newBindFixture(t, usernameOnlyFleet, newFakeStore(), &fakeExecutor{}, &fakeMojang{})

	_, err := binds.Bind("ext1", " ;;; ")
	assert.Error(t, err)
}

func TestUnbindRemovesMemberships(t *testing.T) {
	store := newFakeStore(boundPlayer("ext1", "Notch", "s1"))
	exec := &fakeExecutor{response: "Removed Notch from the whitelist"}
	binds := newBindFixture(t, usernameOnlyFleet, store, exec, &fakeMojang{})

	require.NoError(t, binds.Unbind("ext1"))

	saved, err := store.FindByExternalID("ext1")
	require.NoError(t, err)
	assert.False(t, saved.Bound())
	assert.Empty(t, saved.ServerList())
	assert.Equal(t, []string{"whitelist remove Notch"}, exec.sent())
}

func TestUnbindSkipsStaleServers(t *testing.T) {
	store := newFakeStore(boundPlayer("ext1", "Notch", "gone-from-fleet"))
	exec := &fakeExecutor{}
	binds := newBindFixture(t, usernameOnlyFleet, store, exec, &fakeMojang{})

	require.NoError(t, binds.Unbind("ext1"))

	saved, err := store.FindByExternalID("ext1")
	require.NoError(t, err)
	assert.False(t, saved.Bound())
	assert.Empty(t, exec.sent())
}

func TestUnbindKeepsBindingOnUnconfirmedRemoval(t *testing.T) {
	store := newFakeStore(boundPlayer("ext1", "Notch", "s1"))
	exec := &fakeExecutor{response: "Whitelist wurde aktualisiert"}
	binds := newBindFixture(t, usernameOnlyFleet, store, exec, &fakeMojang{})

	assert.Error(t, binds.Unbind("ext1"))

	saved, err := store.FindByExternalID("ext1")
	require.NoError(t, err)
	assert.True(t, saved.Bound())
	assert.Equal(t, []string{"s1"}, saved.ServerList())
}
