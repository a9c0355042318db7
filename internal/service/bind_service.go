package service

import (
	"fmt"
	"strings"

	"github.com/craftlink/whitelistd/internal/external"
	"github.com/craftlink/whitelistd/internal/models"
	"github.com/craftlink/whitelistd/pkg/logger"
)

// MojangAPI is the slice of the Mojang client the bind service uses.
type MojangAPI interface {
	Profile(username string) (*external.MojangProfile, error)
}

// BindService attaches and detaches Minecraft accounts on player
// records. The multi-turn binding dialogue lives in the chat layer;
// this is the final commit step it calls.
type BindService struct {
	players   PlayerStore
	mojang    MojangAPI
	whitelist *WhitelistService
	fleet     *FleetService
}

// NewBindService creates the bind service.
func NewBindService(players PlayerStore, mojang MojangAPI, whitelist *WhitelistService, fleet *FleetService) *BindService {
	return &BindService{players: players, mojang: mojang, whitelist: whitelist, fleet: fleet}
}

// Bind records a Minecraft username for the player, resolving the UUID
// through Mojang when the fleet contains uuid-typed servers. Rebinding
// replaces the previous account.
func (b *BindService) Bind(externalID, username string) (*models.Player, error) {
	username = SanitizeIdentifier(strings.TrimSpace(username))
	if username == "" {
		return nil, fmt.Errorf("username is empty after sanitization")
	}

	player, err := b.players.FindByExternalID(externalID)
	if err != nil {
		return nil, fmt.Errorf("loading player %s: %w", externalID, err)
	}
	if player == nil {
		player = &models.Player{ExternalID: externalID}
		if err := player.SetServerList(nil); err != nil {
			return nil, err
		}
	}

	player.MCUsername = username
	player.MCUUID = ""

	if b.fleet.HasUUIDServers() {
		profile, err := b.mojang.Profile(username)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", username, err)
		}
		player.MCUsername = profile.Name
		player.MCUUID = strings.ToLower(profile.ID)
	}

	if err := b.players.Save(player); err != nil {
		return nil, fmt.Errorf("saving player %s: %w", externalID, err)
	}

	logger.Info("Minecraft account bound", map[string]interface{}{
		"external_id": externalID,
		"mc_username": player.MCUsername,
	})
	return player, nil
}

// Unbind removes the player's whitelist memberships server by server,
// then clears the binding. Memberships that fail to remove keep the
// binding in place so nothing is orphaned on a server.
func (b *BindService) Unbind(externalID string) error {
	player, err := b.players.FindByExternalID(externalID)
	if err != nil {
		return fmt.Errorf("loading player %s: %w", externalID, err)
	}
	if player == nil || !player.Bound() {
		return nil
	}

	for _, serverID := range player.ServerList() {
		server := b.fleet.Get(serverID)
		if server == nil {
			// Server left the fleet; drop the stale membership.
			continue
		}
		ok, err := b.whitelist.Remove(externalID, server)
		if err != nil {
			return fmt.Errorf("removing %s from %s: %w", externalID, serverID, err)
		}
		if !ok {
			return fmt.Errorf("server %s did not confirm removal of %s", serverID, externalID)
		}
	}

	player.MCUsername = ""
	player.MCUUID = ""
	if err := player.SetServerList(nil); err != nil {
		return err
	}
	if err := b.players.Save(player); err != nil {
		return fmt.Errorf("saving player %s: %w", externalID, err)
	}

	logger.Info("Minecraft account unbound", map[string]interface{}{
		"external_id": externalID,
	})
	return nil
}
