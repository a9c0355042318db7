package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the RCON core and whitelist mutations.
var (
	CommandsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whitelistd_rcon_commands_total",
			Help: "RCON commands executed, by server and result",
		},
		[]string{"server_id", "result"},
	)

	CommandsRateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whitelistd_rcon_rate_limited_total",
			Help: "Mutating RCON commands rejected by the sliding-window limiter",
		},
		[]string{"server_id"},
	)

	PoolConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "whitelistd_rcon_pool_connections",
			Help: "Open connections currently held by the RCON pool",
		},
	)

	WhitelistMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "whitelistd_whitelist_mutations_total",
			Help: "Whitelist mutations, by server, operation and outcome",
		},
		[]string{"server_id", "operation", "outcome"},
	)
)
