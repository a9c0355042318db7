package service

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/craftlink/whitelistd/internal/models"
)

// FleetService loads the server fleet definition at startup and serves
// lookups. The fleet is immutable for the lifetime of the process.
type FleetService struct {
	servers []models.ServerConfig
	byID    map[string]*models.ServerConfig
}

// NewFleetService reads and validates the fleet file.
func NewFleetService(path string) (*FleetService, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fleet file %s: %w", path, err)
	}

	var servers []models.ServerConfig
	if err := json.Unmarshal(data, &servers); err != nil {
		return nil, fmt.Errorf("parsing fleet file %s: %w", path, err)
	}

	byID := make(map[string]*models.ServerConfig, len(servers))
	for i := range servers {
		if err := servers[i].Validate(); err != nil {
			return nil, err
		}
		if _, dup := byID[servers[i].ID]; dup {
			return nil, fmt.Errorf("duplicate server id %q in fleet file", servers[i].ID)
		}
		byID[servers[i].ID] = &servers[i]
	}

	return &FleetService{servers: servers, byID: byID}, nil
}

// Get returns the server by id, or nil when unknown.
func (f *FleetService) Get(id string) *models.ServerConfig {
	return f.byID[id]
}

// List returns the whole fleet.
func (f *FleetService) List() []models.ServerConfig {
	return f.servers
}

// Enabled returns the servers currently accepting mutations.
func (f *FleetService) Enabled() []models.ServerConfig {
	var out []models.ServerConfig
	for _, s := range f.servers {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// HasUUIDServers reports whether any enabled server needs a UUID
// identifier, which decides whether binding must resolve one.
func (f *FleetService) HasUUIDServers() bool {
	for _, s := range f.servers {
		if s.Enabled && s.IDType == models.IDTypeUUID {
			return true
		}
	}
	return false
}
