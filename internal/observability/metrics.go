package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/danmuck/wirectl/internal/protocol"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wirectl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "wirectl",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	codecFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wirectl",
			Subsystem: "codec",
			Name:      "frames_total",
			Help:      "Frames encoded or decoded, by message.",
		},
		[]string{"node", "op", "message"},
	)
	codecBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wirectl",
			Subsystem: "codec",
			Name:      "bytes_total",
			Help:      "Bytes produced by encoding or consumed by decoding.",
		},
		[]string{"node", "op"},
	)
	codecErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "wirectl",
			Subsystem: "codec",
			Name:      "errors_total",
			Help:      "Codec failures, by operation and error kind.",
		},
		[]string{"node", "op", "kind"},
	)
	registeredMessages = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "wirectl",
			Subsystem: "registry",
			Name:      "messages",
			Help:      "Declarations currently registered.",
		},
		[]string{"node"},
	)
)

const (
	OpEncode = "encode"
	OpDecode = "decode"
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, codecFrames, codecBytes, codecErrors, registeredMessages)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordCodec counts one encode or decode attempt. On failure message may be
// empty and size is ignored.
func RecordCodec(node, op, message string, size int, err error) {
	RegisterMetrics()
	if err != nil {
		codecErrors.WithLabelValues(node, op, protocol.ErrorKind(err)).Inc()
		return
	}
	codecFrames.WithLabelValues(node, op, message).Inc()
	codecBytes.WithLabelValues(node, op).Add(float64(size))
}

func SetRegisteredMessages(node string, n int) {
	RegisterMetrics()
	registeredMessages.WithLabelValues(node).Set(float64(n))
}
