package engine

import "time"

func DefaultRules() Rules {
	return Rules{Prelude: 5 * time.Second, BidWindow: 15 * time.Second}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// Manager returns nil when id is unknown.
func (s *State) Manager(id ManagerID) *Manager {
	for _, m := range s.Managers {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (m *Manager) HoldsTier(tier string) bool {
	for _, a := range m.Roster {
		if a.Tier == tier {
			return true
		}
	}
	return false
}
