package engine

import (
	"maps"
	"time"
)

type PlayerView struct {
	Tier   string    `json:"tier"`
	Name   string    `json:"name"`
	Status Status    `json:"status"`
	Price  int       `json:"price"`
	Owner  ManagerID `json:"owner,omitempty"`
}

type ManagerView struct {
	ID        ManagerID           `json:"id"`
	Name      string              `json:"name"`
	Coin      int                 `json:"coin"`
	Roster    map[string]Acquired `json:"roster"`
	Connected bool                `json:"connected"`
}

// Snapshot is a deep copy of the public state, safe to hand to other
// goroutines.
type Snapshot struct {
	Phase        Phase         `json:"phase"`
	Round        int           `json:"round"`
	Cursor       int           `json:"cursor"`
	Lot          *PlayerView   `json:"lot,omitempty"`
	CurrentPrice int           `json:"current_price"`
	Leader       ManagerID     `json:"leader,omitempty"`
	RemainingMS  int64         `json:"remaining_ms"`
	Managers     []ManagerView `json:"managers"`
	Players      []PlayerView  `json:"players"`
	Queue        []string      `json:"queue"`
}

func (s *State) Snapshot(now time.Time) Snapshot {
	snap := Snapshot{
		Phase:        s.Phase,
		Round:        s.Round,
		Cursor:       s.Cursor,
		CurrentPrice: s.Price,
		Leader:       s.Leader,
		Managers:     make([]ManagerView, 0, len(s.Managers)),
		Players:      make([]PlayerView, 0, len(s.Players)),
		Queue:        make([]string, 0, len(s.Queue)),
	}

	if s.Phase == PhasePaused || s.Phase == PhaseBidding {
		if lot, ok := s.CurrentLot(); ok {
			v := viewPlayer(lot)
			snap.Lot = &v
		}
		if left := s.Deadline.Sub(now); left > 0 {
			snap.RemainingMS = left.Milliseconds()
		}
	}

	for _, m := range s.Managers {
		snap.Managers = append(snap.Managers, ManagerView{
			ID:        m.ID,
			Name:      m.Name,
			Coin:      m.Coin,
			Roster:    maps.Clone(m.Roster),
			Connected: m.Connected,
		})
	}
	for _, p := range s.Players {
		snap.Players = append(snap.Players, viewPlayer(p))
	}
	for _, p := range s.Queue {
		snap.Queue = append(snap.Queue, p.Name)
	}
	return snap
}

func viewPlayer(p *Player) PlayerView {
	return PlayerView{Tier: p.Tier, Name: p.Name, Status: p.Status, Price: p.Price, Owner: p.Owner}
}
