package engine

import (
	"time"

	"github.com/DoyleJ11/tier-auction/internal/roster"
)

func buildCatalog(tiers []roster.Tier) []*Player {
	var players []*Player
	for _, t := range tiers {
		for _, name := range t.Players {
			players = append(players, &Player{Tier: t.Name, Name: name, Status: StatusPending})
		}
	}
	return players
}

// begin restarts the auction from configuration: a freshly shuffled catalog,
// starting balances and empty rosters.
func (s *State) begin(now time.Time) []Event {
	s.Players = buildCatalog(s.tiers)
	s.Shuffle(len(s.Players), func(i, j int) {
		s.Players[i], s.Players[j] = s.Players[j], s.Players[i]
	})
	s.Queue = append([]*Player(nil), s.Players...)
	s.Round = 1
	s.Cursor = 0
	s.Price = 0
	s.Leader = ""
	for _, m := range s.Managers {
		m.Coin = m.StartCoin
		m.Roster = map[string]Acquired{}
	}

	events := []Event{{Type: EvtAuctionStarted, Round: s.Round}}
	return append(events, s.afterAdvance(now)...)
}

func (s *State) advanceCursor() {
	if s.Cursor < len(s.Queue) {
		s.Cursor++
	}
}

// afterAdvance resolves forced lots at the cursor, then either announces the
// next lot or escalates: round 1 -> round 2 over unsold players -> final
// allocation.
func (s *State) afterAdvance(now time.Time) []Event {
	var events []Event
	for {
		for {
			ev, ok := s.autoClaim()
			if !ok {
				break
			}
			events = append(events, ev)
		}

		if s.Cursor < len(s.Queue) {
			return append(events, s.prepareLot(now))
		}

		if s.Round == 1 {
			if remainder := s.unsold(); len(remainder) > 0 {
				for _, p := range remainder {
					p.Status = StatusPending
				}
				s.Round = 2
				s.Queue = remainder
				s.Cursor = 0
				events = append(events, Event{Type: EvtRoundStarted, Round: s.Round})
				continue
			}
		}
		return append(events, s.finalize()...)
	}
}

func (s *State) prepareLot(now time.Time) Event {
	lot := s.Queue[s.Cursor]
	s.Phase = PhasePaused
	s.Price = 0
	s.Leader = ""
	s.Deadline = now.Add(s.Rules.Prelude)
	return Event{Type: EvtLotAnnounced, Round: s.Round, Tier: lot.Tier, Player: lot.Name}
}

func (s *State) unsold() []*Player {
	var out []*Player
	for _, p := range s.Players {
		if p.Status == StatusUnsold {
			out = append(out, p)
		}
	}
	return out
}

// CurrentLot returns the player at the cursor, if any.
func (s *State) CurrentLot() (*Player, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.Queue) {
		return nil, false
	}
	return s.Queue[s.Cursor], true
}
