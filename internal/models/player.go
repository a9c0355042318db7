package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Player links a messaging-platform identity to external accounts and
// tracks which servers the player currently holds allow-list membership on.
type Player struct {
	ExternalID string `gorm:"primaryKey;size:64" json:"external_id"`

	// Video-platform account id, stored opaquely for the broadcast
	// integrations that live outside this service.
	VideoID string `gorm:"size:64;index" json:"video_id,omitempty"`

	MCUsername string `gorm:"size:32;index" json:"mc_username,omitempty"`
	MCUUID     string `gorm:"size:32" json:"mc_uuid,omitempty"` // 32 lowercase hex digits, no dashes

	// Servers holds the ids of servers the player is whitelisted on,
	// serialized as a JSON array.
	Servers datatypes.JSON `gorm:"type:jsonb" json:"servers"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Bound reports whether the player has a Minecraft account attached.
func (p *Player) Bound() bool {
	return p.MCUsername != "" || p.MCUUID != ""
}

// ServerList decodes the membership set. A nil or malformed column is
// treated as empty.
func (p *Player) ServerList() []string {
	if len(p.Servers) == 0 {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(p.Servers, &ids); err != nil {
		return nil
	}
	return ids
}

// HasServer reports whether the player is recorded as whitelisted on the
// given server.
func (p *Player) HasServer(serverID string) bool {
	for _, id := range p.ServerList() {
		if id == serverID {
			return true
		}
	}
	return false
}

// SetServerList replaces the membership set.
func (p *Player) SetServerList(ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	p.Servers = datatypes.JSON(data)
	return nil
}
