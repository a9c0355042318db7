package models

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// IdentifierType selects which player identifier a server's allow-list
// commands expect.
type IdentifierType string

const (
	IDTypeUsername IdentifierType = "username"
	IDTypeUUID     IdentifierType = "uuid"
)

// PlaceholderID is the substitution marker inside command templates.
const PlaceholderID = "${MCID}"

// ServerConfig describes one managed Minecraft server. Loaded from the
// fleet file at startup and immutable afterwards.
type ServerConfig struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"` // host:port of the RCON listener
	Password string `json:"password"`

	AddCommand    string         `json:"add_command"`    // e.g. "whitelist add ${MCID}"
	RemoveCommand string         `json:"remove_command"` // e.g. "whitelist remove ${MCID}"
	IDType        IdentifierType `json:"id_type"`

	// AcceptEmptyResponse marks servers whose whitelist commands reply
	// with an empty string on success.
	AcceptEmptyResponse bool `json:"accept_empty_response"`

	// AllowSelfService lets players whitelist themselves through the
	// chat-command layer. Consumed by callers, not by the core.
	AllowSelfService bool `json:"allow_self_service"`

	Enabled bool `json:"enabled"`
}

// Validate checks the fields the RCON core depends on.
func (s *ServerConfig) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("server config: missing id")
	}
	host, portStr, err := net.SplitHostPort(s.Address)
	if err != nil {
		return fmt.Errorf("server %s: invalid address %q: %w", s.ID, s.Address, err)
	}
	if host == "" {
		return fmt.Errorf("server %s: empty host in address %q", s.ID, s.Address)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("server %s: invalid port %q", s.ID, portStr)
	}
	if s.IDType != IDTypeUsername && s.IDType != IDTypeUUID {
		return fmt.Errorf("server %s: unknown id_type %q", s.ID, s.IDType)
	}
	if !strings.Contains(s.AddCommand, PlaceholderID) {
		return fmt.Errorf("server %s: add_command missing %s placeholder", s.ID, PlaceholderID)
	}
	if !strings.Contains(s.RemoveCommand, PlaceholderID) {
		return fmt.Errorf("server %s: remove_command missing %s placeholder", s.ID, PlaceholderID)
	}
	return nil
}

// Redacted returns a copy safe for API responses and logs.
func (s ServerConfig) Redacted() ServerConfig {
	s.Password = "****"
	return s
}
