package types

import (
	"github.com/DoyleJ11/tier-auction/internal/lobby"
	wire "github.com/DoyleJ11/tier-auction/pkg/types"
)

const (
	TypeWelcome = "Welcome"
	TypeError   = "Error"
)

// FromLobby converts a lobby message into its wire form.
func FromLobby(m lobby.Message) wire.ServerMessage {
	out := wire.ServerMessage{Type: string(m.Type), Version: m.Version, State: m.State}
	if m.Notice != nil {
		out.Notice = &wire.Notice{From: m.Notice.From, Text: m.Notice.Text, Private: m.Notice.Private}
	}
	return out
}
