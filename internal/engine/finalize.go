package engine

import "time"

// finalize gives every player still without an owner to the richest manager
// lacking that tier, or marks it permanently unsold. It ends the auction.
func (s *State) finalize() []Event {
	var events []Event
	for _, p := range s.Players {
		if p.Status.Owned() {
			continue
		}
		if m := s.richestWithoutTier(p.Tier); m != nil {
			s.assign(m, p, 0, true)
			p.Status = StatusForced
			events = append(events, Event{Type: EvtForcedAssigned, Round: s.Round, Tier: p.Tier, Player: p.Name, ManagerID: m.ID})
			continue
		}
		p.Status = StatusUnsoldFinal
		p.Price = 0
		p.Owner = ""
		events = append(events, Event{Type: EvtFinalUnsold, Round: s.Round, Tier: p.Tier, Player: p.Name})
	}

	s.Phase = PhaseEnded
	s.Cursor = len(s.Queue)
	s.Price = 0
	s.Leader = ""
	s.Deadline = time.Time{}
	return append(events, Event{Type: EvtAuctionEnded, Round: s.Round})
}

// richestWithoutTier breaks ties by manager order.
func (s *State) richestWithoutTier(tier string) *Manager {
	var best *Manager
	for _, m := range s.managersWithoutTier(tier) {
		if best == nil || m.Coin > best.Coin {
			best = m
		}
	}
	return best
}
