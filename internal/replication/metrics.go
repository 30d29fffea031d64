package replication

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeAdopted      = "adopted"
	outcomeStale        = "stale"
	outcomeApplied      = "applied"
	outcomeDecodeFailed = "decode_failed"
	outcomeEcho         = "echo"

	reasonUnreachable = "unreachable"
	reasonSendFailed  = "send_failed"
)

var (
	MessagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peersync_messages_sent_total",
			Help: "Payloads handed to the peer link",
		},
		[]string{"kind"},
	)
	MessagesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peersync_messages_dropped_total",
			Help: "Payloads that were not handed to the peer link",
		},
		[]string{"kind", "reason"},
	)
	MessagesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "peersync_messages_received_total",
			Help: "Payloads received from the peer by outcome",
		},
		[]string{"kind", "outcome"},
	)
	PeerReachable = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "peersync_peer_reachable",
			Help: "1 while the peer is reachable",
		},
	)
)

func init() {
	prometheus.MustRegister(MessagesSent)
	prometheus.MustRegister(MessagesDropped)
	prometheus.MustRegister(MessagesReceived)
	prometheus.MustRegister(PeerReachable)
}
