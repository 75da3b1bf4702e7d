package notify

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestLogNotifier_WritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	err := NewLogNotifier().Notify(context.Background(), "7", sampleMessage())
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), `"recipient":"7"`)
	assert.Contains(t, buf.String(), `"pickup_code":"PX-12345"`)
}

func TestLogNotifier_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewLogNotifier().Notify(ctx, "7", sampleMessage()), context.Canceled)
}
