package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/craftlink/whitelistd/internal/models"
	"github.com/craftlink/whitelistd/internal/monitoring"
	"github.com/craftlink/whitelistd/internal/rcon"
	"github.com/craftlink/whitelistd/pkg/logger"
)

// PlayerStore is the persistence contract the synchronizer needs. It is
// satisfied by repository.PlayerRepository and by in-memory fakes in
// tests.
type PlayerStore interface {
	FindByExternalID(externalID string) (*models.Player, error)
	Save(player *models.Player) error
	UpdateServers(externalID string, serverIDs []string) error
	FindBound() ([]models.Player, error)
}

// CommandExecutor is the slice of the RCON executor the synchronizer
// uses.
type CommandExecutor interface {
	Execute(server *models.ServerConfig, command string) (string, error)
}

// Caller-side failure modes, surfaced as sentinels so the HTTP layer
// can map them to 4xx instead of blaming the upstream server.
var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrServerDisabled = errors.New("server is disabled")
)

// mutationStatus distinguishes a performed mutation from an idempotent
// skip, which the batch path counts separately.
type mutationStatus int

const (
	statusApplied mutationStatus = iota
	statusSkipped
	statusFailed
)

// BatchReport summarizes a batch synchronization run.
type BatchReport struct {
	Total     int  `json:"total"`
	Succeeded int  `json:"succeeded"`
	Failed    int  `json:"failed"`
	Skipped   int  `json:"skipped"`
	Aborted   bool `json:"aborted"`
}

// WhitelistService orchestrates one logical allow-list mutation end to
// end: re-read state, derive the identifier, execute over RCON,
// classify the response, and persist the membership change. It is the
// only component that touches persistence.
type WhitelistService struct {
	players    PlayerStore
	executor   CommandExecutor
	batchDelay time.Duration
}

// NewWhitelistService creates the synchronizer.
func NewWhitelistService(players PlayerStore, executor CommandExecutor, batchDelay time.Duration) *WhitelistService {
	if batchDelay <= 0 {
		batchDelay = 500 * time.Millisecond
	}
	return &WhitelistService{players: players, executor: executor, batchDelay: batchDelay}
}

// Add whitelists the player on the server. Returns true when the player
// is on the allow-list afterwards, false for any expected failure mode.
// The persisted membership set is only ever updated on a classified
// success; failed and unknown outcomes leave it untouched.
func (s *WhitelistService) Add(externalID string, server *models.ServerConfig) (bool, error) {
	status, err := s.mutate(externalID, server, rcon.OpAdd)
	return status != statusFailed, err
}

// Remove takes the player off the server's allow-list. Removing a
// player who is not a member succeeds without a network call.
func (s *WhitelistService) Remove(externalID string, server *models.ServerConfig) (bool, error) {
	status, err := s.mutate(externalID, server, rcon.OpRemove)
	return status != statusFailed, err
}

func (s *WhitelistService) mutate(externalID string, server *models.ServerConfig, op rcon.Operation) (mutationStatus, error) {
	if !server.Enabled {
		return statusFailed, fmt.Errorf("%w: %s", ErrServerDisabled, server.ID)
	}

	// Re-fetch the freshest record: the caller's view of the binding may
	// be stale by the time the mutation runs.
	player, err := s.players.FindByExternalID(externalID)
	if err != nil {
		return statusFailed, fmt.Errorf("loading player %s: %w", externalID, err)
	}
	if player == nil {
		return statusFailed, fmt.Errorf("%w: %s", ErrPlayerNotFound, externalID)
	}

	member := player.HasServer(server.ID)
	if op == rcon.OpAdd && member {
		return statusSkipped, nil
	}
	if op == rcon.OpRemove && !member {
		return statusSkipped, nil
	}

	identifier, err := DeriveIdentifier(player, server.IDType)
	if err != nil {
		logger.Warn("Whitelist mutation rejected at validation", map[string]interface{}{
			"external_id": externalID,
			"server_id":   server.ID,
			"error":       err.Error(),
		})
		s.observe(server.ID, op, "invalid")
		return statusFailed, nil
	}

	template := server.AddCommand
	if op == rcon.OpRemove {
		template = server.RemoveCommand
	}
	command := strings.ReplaceAll(template, models.PlaceholderID, identifier)

	response, err := s.executor.Execute(server, command)
	if err != nil {
		s.observe(server.ID, op, "transport-error")
		return statusFailed, err
	}

	outcome := rcon.Classify(response, op, server.AcceptEmptyResponse, member)
	s.observe(server.ID, op, string(outcome))
	if !outcome.Success() {
		logger.Warn("Whitelist command not confirmed by server", map[string]interface{}{
			"external_id": externalID,
			"server_id":   server.ID,
			"operation":   string(op),
			"outcome":     string(outcome),
		})
		return statusFailed, nil
	}

	if err := s.persist(player, server.ID, op); err != nil {
		return statusFailed, fmt.Errorf("persisting membership for %s: %w", externalID, err)
	}

	logger.Info("Whitelist updated", map[string]interface{}{
		"external_id": externalID,
		"server_id":   server.ID,
		"operation":   string(op),
	})
	return statusApplied, nil
}

func (s *WhitelistService) persist(player *models.Player, serverID string, op rcon.Operation) error {
	current := player.ServerList()
	var next []string
	if op == rcon.OpAdd {
		next = append(append(next, current...), serverID)
	} else {
		for _, id := range current {
			if id != serverID {
				next = append(next, id)
			}
		}
	}
	return s.players.UpdateServers(player.ExternalID, next)
}

// SyncAll applies the add mutation to every bound player sequentially,
// with a fixed delay between network attempts. Once at least five
// attempts have been made, a running failure rate above 50% aborts the
// run: a server that is rejecting most commands should not keep being
// hammered.
func (s *WhitelistService) SyncAll(server *models.ServerConfig) (*BatchReport, error) {
	players, err := s.players.FindBound()
	if err != nil {
		return nil, fmt.Errorf("listing bound players: %w", err)
	}

	report := &BatchReport{Total: len(players)}
	for i, player := range players {
		status, _ := s.mutate(player.ExternalID, server, rcon.OpAdd)
		switch status {
		case statusApplied:
			report.Succeeded++
		case statusSkipped:
			report.Skipped++
			continue // no network attempt, no delay needed
		case statusFailed:
			report.Failed++
		}

		attempts := report.Succeeded + report.Failed
		if attempts >= 5 && report.Failed*2 > attempts {
			report.Aborted = true
			logger.Warn("Batch whitelist sync aborted on failure rate", map[string]interface{}{
				"server_id": server.ID,
				"succeeded": report.Succeeded,
				"failed":    report.Failed,
			})
			break
		}

		if i < len(players)-1 {
			time.Sleep(s.batchDelay)
		}
	}
	return report, nil
}

func (s *WhitelistService) observe(serverID string, op rcon.Operation, outcome string) {
	monitoring.WhitelistMutations.WithLabelValues(serverID, string(op), outcome).Inc()
}
