package bot

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
)

// ErrGatewayNotReady is reported while the gateway has no live session.
var ErrGatewayNotReady = errors.New("gateway not ready")

// Readiness tracks the gateway connection from session events. Probe is
// safe to call from any goroutine.
type Readiness struct {
	ready atomic.Bool
}

// Attach registers the connection handlers on session.
func (r *Readiness) Attach(session *discordgo.Session) {
	session.AddHandler(r.onReady)
	session.AddHandler(r.onResumed)
	session.AddHandler(r.onDisconnect)
}

func (r *Readiness) onReady(*discordgo.Session, *discordgo.Ready)           { r.ready.Store(true) }
func (r *Readiness) onResumed(*discordgo.Session, *discordgo.Resumed)       { r.ready.Store(true) }
func (r *Readiness) onDisconnect(*discordgo.Session, *discordgo.Disconnect) { r.ready.Store(false) }

// Probe returns ErrGatewayNotReady until a Ready or Resumed event arrives.
func (r *Readiness) Probe(context.Context) error {
	if !r.ready.Load() {
		return ErrGatewayNotReady
	}
	return nil
}
