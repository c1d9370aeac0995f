package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector exposes the signaling metrics. A nil *Collector is valid and
// records nothing, which keeps wiring optional in tests.
type Collector struct {
	connectionsActive *prometheus.GaugeVec
	roomsActive       *prometheus.GaugeVec
	framesRelayed     *prometheus.CounterVec
	connectsRejected  *prometheus.CounterVec
	messagesPersisted prometheus.Counter
}

func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		connectionsActive: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "telesignal_connections_active",
			Help: "Currently open websocket connections",
		}, []string{"room_kind"}),

		roomsActive: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "telesignal_rooms_active",
			Help: "Currently populated rooms",
		}, []string{"room_kind"}),

		framesRelayed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "telesignal_frames_relayed_total",
			Help: "Frames relayed to room members",
		}, []string{"room_kind", "frame_type"}),

		connectsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "telesignal_connects_rejected_total",
			Help: "Connection attempts refused before room registration",
		}, []string{"room_kind", "reason"}),

		messagesPersisted: factory.NewCounter(prometheus.CounterOpts{
			Name: "telesignal_chat_messages_persisted_total",
			Help: "Chat messages written to the store before relay",
		}),
	}
}

func (c *Collector) ConnectionOpened(roomKind string) {
	if c == nil {
		return
	}
	c.connectionsActive.WithLabelValues(roomKind).Inc()
}

func (c *Collector) ConnectionClosed(roomKind string) {
	if c == nil {
		return
	}
	c.connectionsActive.WithLabelValues(roomKind).Dec()
}

// SetActiveRooms replaces the per-kind room gauges with a fresh snapshot.
func (c *Collector) SetActiveRooms(rooms map[string]int) {
	if c == nil {
		return
	}
	c.roomsActive.Reset()
	for kind, count := range rooms {
		c.roomsActive.WithLabelValues(kind).Set(float64(count))
	}
}

func (c *Collector) FrameRelayed(roomKind, frameType string) {
	if c == nil {
		return
	}
	c.framesRelayed.WithLabelValues(roomKind, frameType).Inc()
}

func (c *Collector) ConnectRejected(roomKind, reason string) {
	if c == nil {
		return
	}
	c.connectsRejected.WithLabelValues(roomKind, reason).Inc()
}

func (c *Collector) MessagePersisted() {
	if c == nil {
		return
	}
	c.messagesPersisted.Inc()
}
