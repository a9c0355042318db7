package service

import (
	"fmt"
	"strings"

	"github.com/craftlink/whitelistd/internal/models"
	"github.com/google/uuid"
)

// commandMetachars are stripped from identifiers before template
// substitution so an identifier can never smuggle a second command or
// shell syntax into the RCON line.
const commandMetachars = ";&|$`'\"\\<>(){}[]*?!#~\n\r\t "

// SanitizeIdentifier strips command and shell metacharacters.
func SanitizeIdentifier(id string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(commandMetachars, r) {
			return -1
		}
		return r
	}, id)
}

// NormalizeUUID parses a UUID in any accepted textual form and returns
// the 32-hex-digit lowercase form Minecraft whitelist commands expect.
func NormalizeUUID(raw string) (string, error) {
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("malformed uuid %q: %w", raw, err)
	}
	return strings.ReplaceAll(parsed.String(), "-", ""), nil
}

// DeriveIdentifier produces the sanitized identifier to substitute into
// the server's command templates: the raw username for username-typed
// servers, the normalized UUID for uuid-typed ones.
func DeriveIdentifier(player *models.Player, idType models.IdentifierType) (string, error) {
	switch idType {
	case models.IDTypeUsername:
		name := SanitizeIdentifier(player.MCUsername)
		if name == "" {
			return "", fmt.Errorf("player %s has no usable minecraft username", player.ExternalID)
		}
		return name, nil
	case models.IDTypeUUID:
		if player.MCUUID == "" {
			return "", fmt.Errorf("player %s has no minecraft uuid", player.ExternalID)
		}
		normalized, err := NormalizeUUID(player.MCUUID)
		if err != nil {
			return "", fmt.Errorf("player %s: %w", player.ExternalID, err)
		}
		return normalized, nil
	}
	return "", fmt.Errorf("unknown identifier type %q", idType)
}
