// Package relay mirrors public lobby traffic onto NATS subjects for
// overlays and other read-only consumers.
package relay

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/DoyleJ11/tier-auction/internal/lobby"
	"github.com/DoyleJ11/tier-auction/internal/types"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Publisher is the part of *nats.Conn the relay needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

func Connect(url string, log *zap.Logger) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("tier-auction"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error("NATS error", zap.Error(err))
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// Relay is a lobby sink. Publish runs on the lobby goroutine, so its fields
// need no locking.
type Relay struct {
	pub         Publisher
	prefix      string
	log         *zap.Logger
	lastVersion int
}

func New(pub Publisher, prefix string, log *zap.Logger) *Relay {
	return &Relay{pub: pub, prefix: prefix, log: log.Named("relay"), lastVersion: -1}
}

// Publish forwards public notices, results and snapshots whose version moved.
// Countdown refreshes are skipped.
func (r *Relay) Publish(m lobby.Message) {
	switch m.Type {
	case lobby.MsgNotice:
		if m.Notice == nil || m.Notice.Private {
			return
		}
	case lobby.MsgSnapshot:
		if m.Version <= r.lastVersion {
			return
		}
		r.lastVersion = m.Version
	}

	data, err := json.Marshal(types.FromLobby(m))
	if err != nil {
		r.log.Error("encode message", zap.Error(err))
		return
	}
	if err := r.pub.Publish(r.Subject(m.Type), data); err != nil {
		r.log.Warn("publish failed", zap.Error(err), zap.String("type", string(m.Type)))
	}
}

func (r *Relay) Subject(t lobby.MessageType) string {
	switch t {
	case lobby.MsgSnapshot:
		return r.prefix + ".snapshot"
	case lobby.MsgNotice:
		return r.prefix + ".notice"
	case lobby.MsgResults:
		return r.prefix + ".results"
	default:
		return r.prefix + "." + strings.ToLower(string(t))
	}
}
