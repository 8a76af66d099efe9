// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	AnswersChecked prometheus.Counter
	AnswersCorrect prometheus.Counter
	ChatMessages   prometheus.Counter
	ChatReconnects prometheus.Counter
	RoundsClosed   *prometheus.CounterVec // labeled by close reason

	// Gauges
	ChatConnectedGauge prometheus.Gauge // 1=connected,0=disconnected
	PlayerCountGauge   prometheus.Gauge
)

// Init registers metrics (idempotent). Helpers below tolerate a missing Init
// so library code and tests can run without the registry.
func Init() {
	once.Do(func() {
		AnswersChecked = promauto.NewCounter(prometheus.CounterOpts{Name: "quiz_answers_checked_total", Help: "Number of answer submissions evaluated"})
		AnswersCorrect = promauto.NewCounter(prometheus.CounterOpts{Name: "quiz_answers_correct_total", Help: "Number of correct answers scored"})
		ChatMessages = promauto.NewCounter(prometheus.CounterOpts{Name: "quiz_chat_messages_total", Help: "Number of inbound chat messages processed"})
		ChatReconnects = promauto.NewCounter(prometheus.CounterOpts{Name: "quiz_chat_reconnects_total", Help: "Number of chat reconnect attempts"})
		RoundsClosed = promauto.NewCounterVec(prometheus.CounterOpts{Name: "quiz_rounds_closed_total", Help: "Number of rounds closed, by reason"}, []string{"reason"})
		ChatConnectedGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "quiz_chat_connected", Help: "Chat bridge connected=1 disconnected=0"})
		PlayerCountGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "quiz_player_count", Help: "Players on the scoreboard"})
	})
}

// CountAnswerChecked increments the checked-answers counter.
func CountAnswerChecked() {
	if AnswersChecked != nil {
		AnswersChecked.Inc()
	}
}

// CountAnswerCorrect increments the correct-answers counter.
func CountAnswerCorrect() {
	if AnswersCorrect != nil {
		AnswersCorrect.Inc()
	}
}

// CountChatMessage increments the inbound chat message counter.
func CountChatMessage() {
	if ChatMessages != nil {
		ChatMessages.Inc()
	}
}

// CountChatReconnect increments the reconnect counter.
func CountChatReconnect() {
	if ChatReconnects != nil {
		ChatReconnects.Inc()
	}
}

// CountRoundClosed increments the rounds-closed counter for a reason.
func CountRoundClosed(reason string) {
	if RoundsClosed != nil {
		RoundsClosed.WithLabelValues(reason).Inc()
	}
}

// SetChatConnected sets the connected gauge to 1 if connected else 0.
func SetChatConnected(connected bool) {
	if ChatConnectedGauge != nil {
		if connected {
			ChatConnectedGauge.Set(1)
		} else {
			ChatConnectedGauge.Set(0)
		}
	}
}

// SetPlayerCount records the current scoreboard size.
func SetPlayerCount(n int) {
	if PlayerCountGauge != nil {
		PlayerCountGauge.Set(float64(n))
	}
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
