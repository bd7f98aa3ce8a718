package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogMailerSend(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewLogMailer(zap.New(core))

	require.NoError(t, m.Send(context.Background(), "farmer@example.com", "Confirm", "link"))
	require.Error(t, m.Send(context.Background(), "", "Confirm", "link"))

	sent := m.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "farmer@example.com", sent[0].To)
	require.Equal(t, 1, logs.FilterMessage("mail sent").Len())
}
