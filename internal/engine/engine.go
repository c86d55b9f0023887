package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/DoyleJ11/tier-auction/internal/roster"
	"golang.org/x/text/unicode/norm"
)

var ErrOutOfPhase = errors.New("out of phase")
var ErrUnknownManager = errors.New("unknown manager")
var ErrTierConflict = errors.New("tier already owned")
var ErrInsufficientFunds = errors.New("insufficient funds")
var ErrIndexExhausted = errors.New("draft queue exhausted")
var ErrInvalidIncrement = errors.New("invalid bid increment")
var ErrInvalidCoin = errors.New("invalid coin balance")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Phase string

const (
	PhaseReady   Phase = "ready"
	PhasePaused  Phase = "paused"
	PhaseBidding Phase = "bidding"
	PhaseEnded   Phase = "ended"
)

type Status string

const (
	StatusPending     Status = "pending"
	StatusSold        Status = "sold"
	StatusUnsold      Status = "unsold"
	StatusForced      Status = "forced"
	StatusUnsoldFinal Status = "unsold_final"
)

// Owned reports whether a player with this status belongs to a manager.
func (st Status) Owned() bool {
	switch st {
	case StatusSold, StatusForced:
		return true
	case StatusPending, StatusUnsold, StatusUnsoldFinal:
		return false
	default:
		panic(fmt.Sprintf("engine: unknown player status %q", string(st)))
	}
}

type ManagerID string

type Player struct {
	Tier   string
	Name   string
	Status Status
	Price  int
	Owner  ManagerID
}

// Acquired is one entry of a manager's roster.
type Acquired struct {
	Tier   string `json:"tier"`
	Name   string `json:"name"`
	Price  int    `json:"price"`
	Round  int    `json:"round"`
	Forced bool   `json:"forced"`
}

type Manager struct {
	ID        ManagerID
	Name      string
	Coin      int
	StartCoin int
	Roster    map[string]Acquired
	Connected bool
}

type Rules struct {
	Prelude   time.Duration // pause before a lot opens
	BidWindow time.Duration // countdown after opening and after every accepted bid
}

type State struct {
	Phase    Phase
	Round    int
	Players  []*Player // whole catalog, round-1 draft order
	Queue    []*Player // draft order of the active round
	Cursor   int
	Price    int
	Leader   ManagerID
	Deadline time.Time
	Managers []*Manager // stable order, used for tie-breaks
	Rules    Rules

	// Shuffle permutes the catalog on every restart.
	Shuffle func(n int, swap func(i, j int))

	tiers []roster.Tier
}

type CommandType string

const (
	CmdStartOrResume CommandType = "StartOrResume"
	CmdForceEndLot   CommandType = "ForceEndLot"
	CmdPlaceBid      CommandType = "PlaceBid"
	CmdUpdateManager CommandType = "UpdateManager"
	CmdTick          CommandType = "Tick"
)

type Command struct {
	Type      CommandType
	ManagerID ManagerID
	Increment int
	Name      *string
	Coin      *int
}

type EventType string

const (
	EvtAuctionStarted EventType = "AuctionStarted"
	EvtLotAnnounced   EventType = "LotAnnounced"
	EvtBiddingOpened  EventType = "BiddingOpened"
	EvtBiddingResumed EventType = "BiddingResumed"
	EvtBidAccepted    EventType = "BidAccepted"
	EvtLotSold        EventType = "LotSold"
	EvtLotUnsold      EventType = "LotUnsold"
	EvtAutoClaimed    EventType = "AutoClaimed"
	EvtRoundStarted   EventType = "RoundStarted"
	EvtForcedAssigned EventType = "ForcedAssigned"
	EvtFinalUnsold    EventType = "FinalUnsold"
	EvtAuctionEnded   EventType = "AuctionEnded"
	EvtManagerUpdated EventType = "ManagerUpdated"
)

type Event struct {
	Type      EventType
	Round     int
	Tier      string
	Player    string
	ManagerID ManagerID
	Price     int
}

func NewState(r roster.Roster, rules Rules) *State {
	s := &State{
		Phase:   PhaseReady,
		Round:   1,
		Rules:   rules,
		Shuffle: rand.Shuffle,
		tiers:   r.Tiers,
	}
	for _, seed := range r.Managers {
		s.Managers = append(s.Managers, &Manager{
			ID:        ManagerID(seed.ID),
			Name:      seed.Name,
			Coin:      seed.Coin,
			StartCoin: seed.Coin,
			Roster:    map[string]Acquired{},
		})
	}
	s.Players = buildCatalog(r.Tiers)
	s.Queue = s.Players
	return s
}

/*
	CmdStartOrResume (ready|ended) -> AuctionStarted -> [AutoClaimed...] -> LotAnnounced
	CmdStartOrResume (paused)      -> BiddingResumed
	CmdPlaceBid                    -> BidAccepted
	CmdForceEndLot / CmdTick       -> LotSold|LotUnsold -> [AutoClaimed...] -> LotAnnounced
	                                  or RoundStarted -> ... or [ForcedAssigned|FinalUnsold...] -> AuctionEnded
	CmdTick (paused, deadline)     -> BiddingOpened
*/

// Apply runs one command against s. A returned error means s was not
// modified.
func Apply(s *State, cmd Command, now time.Time) ([]Event, error) {
	switch cmd.Type {
	case CmdStartOrResume:
		switch s.Phase {
		case PhaseReady, PhaseEnded:
			return s.begin(now), nil
		case PhasePaused:
			return s.forceResume(now)
		case PhaseBidding:
			return nil, fmt.Errorf("%w: bidding is already open", ErrOutOfPhase)
		}
		return nil, fmt.Errorf("%w: %s", ErrOutOfPhase, s.Phase)

	case CmdForceEndLot:
		if s.Phase != PhaseBidding {
			return nil, fmt.Errorf("%w: no lot is open for bidding", ErrOutOfPhase)
		}
		return s.settleLot(now)

	case CmdPlaceBid:
		return s.placeBid(cmd.ManagerID, cmd.Increment, now)

	case CmdUpdateManager:
		return s.updateManager(cmd)

	case CmdTick:
		return s.tick(now)

	default:
		return nil, ErrUnsupportedCommand
	}
}

func (s *State) tick(now time.Time) ([]Event, error) {
	switch s.Phase {
	case PhaseBidding:
		if now.Before(s.Deadline) {
			return nil, nil
		}
		return s.settleLot(now)

	case PhasePaused:
		if now.Before(s.Deadline) {
			return nil, nil
		}
		lot, ok := s.CurrentLot()
		if !ok {
			return nil, ErrIndexExhausted
		}
		s.Phase = PhaseBidding
		s.Deadline = now.Add(s.Rules.BidWindow)
		return []Event{{Type: EvtBiddingOpened, Round: s.Round, Tier: lot.Tier, Player: lot.Name}}, nil

	case PhaseReady, PhaseEnded:
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrOutOfPhase, s.Phase)
}

func (s *State) updateManager(cmd Command) ([]Event, error) {
	m := s.Manager(cmd.ManagerID)
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownManager, cmd.ManagerID)
	}
	if cmd.Coin != nil && *cmd.Coin < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCoin, *cmd.Coin)
	}

	if cmd.Name != nil {
		if name := norm.NFC.String(strings.TrimSpace(*cmd.Name)); name != "" {
			m.Name = name
		}
	}
	if cmd.Coin != nil {
		m.Coin = *cmd.Coin
	}
	return []Event{{Type: EvtManagerUpdated, ManagerID: m.ID, Price: m.Coin}}, nil
}

// SetConnected records presence for a manager. It reports whether the flag
// changed.
func (s *State) SetConnected(id ManagerID, connected bool) bool {
	m := s.Manager(id)
	if m == nil || m.Connected == connected {
		return false
	}
	m.Connected = connected
	return true
}
