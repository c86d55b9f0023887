package engine

// autoClaim hands the lot at the cursor to the only manager still lacking its
// tier when it is also the last unresolved player of that tier in the queue.
// Running it again on a resolved state does nothing since the claimed player
// is behind the cursor.
func (s *State) autoClaim() (Event, bool) {
	lot, ok := s.CurrentLot()
	if !ok {
		return Event{}, false
	}
	if s.remainingInTier(lot.Tier) != 1 {
		return Event{}, false
	}
	free := s.managersWithoutTier(lot.Tier)
	if len(free) != 1 {
		return Event{}, false
	}

	m := free[0]
	s.assign(m, lot, 0, true)
	lot.Status = StatusForced
	s.advanceCursor()
	return Event{Type: EvtAutoClaimed, Round: s.Round, Tier: lot.Tier, Player: lot.Name, ManagerID: m.ID}, true
}

func (s *State) remainingInTier(tier string) int {
	n := 0
	for _, p := range s.Queue[s.Cursor:] {
		if p.Tier == tier {
			n++
		}
	}
	return n
}

func (s *State) managersWithoutTier(tier string) []*Manager {
	var out []*Manager
	for _, m := range s.Managers {
		if !m.HoldsTier(tier) {
			out = append(out, m)
		}
	}
	return out
}
