// Package types holds the websocket wire protocol shared with clients.
package types

import (
	"github.com/DoyleJ11/tier-auction/internal/auth"
	"github.com/DoyleJ11/tier-auction/internal/engine"
)

// Client -> Server (text frames, JSON)
// PlaceBid (manager):
//   increment: number // one of 10, 50, 100
//
// StartOrResume (admin): {}
//   starts from ready or ended, resumes a paused lot
//
// ForceEndLot (admin): {}
//   settles the open lot now
//
// UpdateManager (admin):
//   manager_id: string
//   name?: string
//   coin?: number
//
// Chat:
//   text: string // at most 300 characters
type ClientMessage struct {
	Type      string  `json:"type"`
	Increment int     `json:"increment,omitempty"`
	ManagerID string  `json:"manager_id,omitempty"`
	Name      *string `json:"name,omitempty"`
	Coin      *int    `json:"coin,omitempty"`
	Text      string  `json:"text,omitempty"`
}

// Server -> Client
// Welcome:
//   who: { role: "manager" | "admin" | "viewer", manager_id?: string, name: string }
//
// StateSnapshot:
//   version: number
//   state: see snapshot.go
//
// Notice:
//   notice: { from: string, text: string, private?: boolean }
//
// Results (archive and relay only):
//   version: number
//   state: final snapshot
//
// Error:
//   error: "bad json" | "unknown type"
type ServerMessage struct {
	Type    string           `json:"type"`
	Version int              `json:"version,omitempty"`
	Who     *auth.Identity   `json:"who,omitempty"`
	State   *engine.Snapshot `json:"state,omitempty"`
	Notice  *Notice          `json:"notice,omitempty"`
	Error   string           `json:"error,omitempty"`
}

type Notice struct {
	From    string `json:"from"`
	Text    string `json:"text"`
	Private bool   `json:"private,omitempty"`
}
