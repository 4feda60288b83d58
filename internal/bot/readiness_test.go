package bot

import (
	"context"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadinessFollowsGatewayEvents(t *testing.T) {
	session, err := discordgo.New("Bot token")
	require.NoError(t, err)

	var r Readiness
	r.Attach(session)
	assert.ErrorIs(t, r.Probe(context.Background()), ErrGatewayNotReady)

	r.onReady(session, &discordgo.Ready{})
	assert.NoError(t, r.Probe(context.Background()))

	r.onDisconnect(session, &discordgo.Disconnect{})
	assert.ErrorIs(t, r.Probe(context.Background()), ErrGatewayNotReady)

	r.onResumed(session, &discordgo.Resumed{})
	assert.NoError(t, r.Probe(context.Background()))
}

func TestReadinessConcurrentProbe(t *testing.T) {
	var r Readiness
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.onReady(nil, &discordgo.Ready{})
			r.onDisconnect(nil, &discordgo.Disconnect{})
		}()
		go func() {
			defer wg.Done()
			_ = r.Probe(context.Background())
		}()
	}
	wg.Wait()
	assert.ErrorIs(t, r.Probe(context.Background()), ErrGatewayNotReady)
}
