package engine

import (
	"fmt"
	"time"
)

// placeBid raises the standing price by increment on behalf of id. Every
// accepted bid restarts the bidding countdown.
func (s *State) placeBid(id ManagerID, increment int, now time.Time) ([]Event, error) {
	if s.Phase != PhaseBidding {
		return nil, fmt.Errorf("%w: bidding is not open", ErrOutOfPhase)
	}
	m := s.Manager(id)
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownManager, id)
	}
	lot, ok := s.CurrentLot()
	if !ok {
		return nil, ErrIndexExhausted
	}
	if m.HoldsTier(lot.Tier) {
		return nil, fmt.Errorf("%w: already holding a tier %s player", ErrTierConflict, lot.Tier)
	}
	if increment <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIncrement, increment)
	}
	// compared as a difference so huge increments cannot overflow
	if m.Coin-s.Price < increment {
		return nil, fmt.Errorf("%w: bid of %d exceeds balance of %d", ErrInsufficientFunds, s.Price+increment, m.Coin)
	}

	s.Price += increment
	s.Leader = id
	s.Deadline = now.Add(s.Rules.BidWindow)
	return []Event{{
		Type:      EvtBidAccepted,
		Round:     s.Round,
		Tier:      lot.Tier,
		Player:    lot.Name,
		ManagerID: id,
		Price:     s.Price,
	}}, nil
}

// settleLot closes the lot at the cursor: sold to the leader at the standing
// price, or unsold when nobody bid.
func (s *State) settleLot(now time.Time) ([]Event, error) {
	lot, ok := s.CurrentLot()
	if !ok {
		return nil, ErrIndexExhausted
	}

	var events []Event
	winner := s.Manager(s.Leader)
	if winner != nil && winner.Coin >= s.Price {
		winner.Coin -= s.Price
		s.assign(winner, lot, s.Price, false)
		lot.Status = StatusSold
		events = append(events, Event{
			Type:      EvtLotSold,
			Round:     s.Round,
			Tier:      lot.Tier,
			Player:    lot.Name,
			ManagerID: winner.ID,
			Price:     lot.Price,
		})
	} else {
		lot.Status = StatusUnsold
		lot.Price = 0
		lot.Owner = ""
		events = append(events, Event{Type: EvtLotUnsold, Round: s.Round, Tier: lot.Tier, Player: lot.Name})
	}

	s.Phase = PhasePaused
	s.Price = 0
	s.Leader = ""
	s.advanceCursor()
	return append(events, s.afterAdvance(now)...), nil
}

func (s *State) forceResume(now time.Time) ([]Event, error) {
	lot, ok := s.CurrentLot()
	if !ok {
		return nil, ErrIndexExhausted
	}
	s.Phase = PhaseBidding
	s.Deadline = now.Add(s.Rules.BidWindow)
	return []Event{{Type: EvtBiddingResumed, Round: s.Round, Tier: lot.Tier, Player: lot.Name}}, nil
}

func (s *State) assign(m *Manager, p *Player, price int, forced bool) {
	m.Roster[p.Name] = Acquired{
		Tier:   p.Tier,
		Name:   p.Name,
		Price:  price,
		Round:  s.Round,
		Forced: forced,
	}
	p.Price = price
	p.Owner = m.ID
}
