package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dealpulse/ma-health-go/internal/config"
)

func TestRegimeNotifier_DisabledWithoutToken(t *testing.T) {
	n := NewRegimeNotifier(config.TelegramConfig{}, quietLogger())
	assert.False(t, n.Enabled())
	// disabled notifier is a no-op, never an error
	assert.NoError(t, n.NotifyRegime(context.Background(), RegimeContraction, "", "42.0", 38.5))
}

func TestRegimeNotifier_DisabledWithoutChatID(t *testing.T) {
	n := &RegimeNotifier{logger: quietLogger()}
	assert.False(t, n.Enabled())
}
