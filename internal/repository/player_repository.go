package repository

import (
	"errors"

	"github.com/craftlink/whitelistd/internal/models"
	"gorm.io/gorm"
)

// PlayerRepository handles database operations for players.
type PlayerRepository struct {
	db *gorm.DB
}

// NewPlayerRepository creates a new player repository.
func NewPlayerRepository(db *gorm.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// FindByExternalID finds a player by messaging-platform id. Returns
// (nil, nil) when the player is absent.
func (r *PlayerRepository) FindByExternalID(externalID string) (*models.Player, error) {
	var player models.Player
	err := r.db.First(&player, "external_id = ?", externalID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &player, nil
}

// Save creates or updates a player record.
func (r *PlayerRepository) Save(player *models.Player) error {
	return r.db.Save(player).Error
}

// UpdateServers replaces the player's membership set. Last write wins;
// per-server command issuance is already serialized upstream.
func (r *PlayerRepository) UpdateServers(externalID string, serverIDs []string) error {
	player := &models.Player{ExternalID: externalID}
	if err := player.SetServerList(serverIDs); err != nil {
		return err
	}
	return r.db.Model(&models.Player{}).Where("external_id = ?", externalID).
		Update("servers", player.Servers).Error
}

// FindBound returns every player with a Minecraft account attached, for
// batch synchronization.
func (r *PlayerRepository) FindBound() ([]models.Player, error) {
	var players []models.Player
	err := r.db.Where("mc_username <> '' OR mc_uuid <> ''").Find(&players).Error
	return players, err
}

// Delete removes a player record.
func (r *PlayerRepository) Delete(externalID string) error {
	return r.db.Delete(&models.Player{}, "external_id = ?", externalID).Error
}
