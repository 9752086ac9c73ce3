package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis command failures by command name.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// MessagesAppended counts chat messages stored, by conversation kind.
	MessagesAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_messages_appended_total",
		Help: "Total number of chat messages appended",
	}, []string{"kind"})

	// MessagesMarkedRead counts messages transitioned from unread to read.
	MessagesMarkedRead = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agora_messages_marked_read_total",
		Help: "Total number of messages transitioned to read",
	})

	// SolutionsMarked counts accepted solution markings.
	SolutionsMarked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "agora_solutions_marked_total",
		Help: "Total number of comments marked as a discussion solution",
	})

	// TransactionRetries counts store transactions retried after a transient conflict.
	TransactionRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_transaction_retries_total",
		Help: "Total number of transactions retried after a transient conflict",
	}, []string{"operation"})

	// WebSocketConnections is the gauge of open websocket connections.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "agora_websocket_connections",
		Help: "Number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts events dropped because a client buffer was full or closed.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "agora_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"reason"})
)
