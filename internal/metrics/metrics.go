package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Deployment metrics
	// ============================================
	ContractsDeployed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_contracts_deployed_total",
			Help: "Total number of contracts deployed through the registry",
		},
		[]string{"contract_type"},
	)

	DeploymentFeesCollected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backend_deployment_fees_wei_total",
		Help: "Total deployment fees collected in wei",
	})

	DeploymentFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_deployment_failures_total",
			Help: "Total number of failed deployment attempts",
		},
		[]string{"contract_type", "reason"},
	)

	// ============================================
	// Settlement metrics
	// ============================================
	ResultsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backend_quiz_results_recorded_total",
		Help: "Total number of participant results recorded",
	})

	RewardsPaidOut = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backend_quiz_rewards_wei_total",
		Help: "Total rewards paid out in wei",
	})

	QuizzesEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_quizzes_ended_total",
			Help: "Total number of quizzes terminated",
		},
		[]string{"trigger"}, // operator | expiry
	)

	ResultFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_quiz_result_failures_total",
			Help: "Total number of rejected result submissions",
		},
		[]string{"reason"},
	)

	// ============================================
	// NATS metrics
	// ============================================
	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backend_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})

	NATSEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_nats_events_published_total",
			Help: "Total number of NATS events published",
		},
		[]string{"event_type"},
	)

	NATSPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_nats_publish_failures_total",
			Help: "Total number of NATS publish failures",
		},
		[]string{"event_type"},
	)

	// ============================================
	// Database metrics
	// ============================================
	DBConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backend_db_connection_status",
		Help: "Database connection status (1=healthy, 0=unhealthy)",
	})

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backend_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query_type"},
	)

	// ============================================
	// WebSocket metrics
	// ============================================
	WebSocketClientsConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backend_websocket_clients_connected",
		Help: "Number of connected WebSocket clients",
	})

	WebSocketMessagesPushed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_websocket_messages_pushed_total",
			Help: "Total number of WebSocket messages pushed to clients",
		},
		[]string{"event_type"},
	)
)
