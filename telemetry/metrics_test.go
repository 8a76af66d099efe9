package telemetry

import (
	"context"
	"testing"
)

func TestInitIdempotent(t *testing.T) {
	Init()
	Init() // second call must not re-register

	if AnswersChecked == nil {
		t.Error("AnswersChecked not initialized")
	}
	if RoundsClosed == nil {
		t.Error("RoundsClosed not initialized")
	}
	if ChatConnectedGauge == nil {
		t.Error("ChatConnectedGauge not initialized")
	}
}

func TestHelpersAfterInit(t *testing.T) {
	Init()

	CountAnswerChecked()
	CountAnswerCorrect()
	CountChatMessage()
	CountChatReconnect()
	CountRoundClosed("quorum")
	CountRoundClosed("timeout")
	SetChatConnected(true)
	SetChatConnected(false)
	SetPlayerCount(12)
}

func TestCorrelation(t *testing.T) {
	ctx := context.Background()
	if got := GetCorrelation(ctx); got != "" {
		t.Errorf("GetCorrelation on empty ctx = %q, want empty", got)
	}
	ctx = WithCorrelation(ctx, "abc-123")
	if got := GetCorrelation(ctx); got != "abc-123" {
		t.Errorf("GetCorrelation = %q, want abc-123", got)
	}
	if LoggerWithCorr(ctx) == nil {
		t.Error("LoggerWithCorr returned nil")
	}
}
