package lobby

import (
	"context"
	"errors"

	"github.com/DoyleJ11/tier-auction/internal/auth"
	"github.com/DoyleJ11/tier-auction/internal/engine"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

var ErrForbidden = errors.New("not allowed for your role")

type Msg interface{ isLobbyMsg() }

type FromClient struct {
	ClientID string
	Who      auth.Identity
	Cmd      engine.Command
}

func (FromClient) isLobbyMsg() {}

type Chat struct {
	ClientID string
	Who      auth.Identity
	Text     string
}

func (Chat) isLobbyMsg() {}

type Join struct {
	ClientID string
	Who      auth.Identity
	Outbox   chan Message // where this client wants to receive messages
}

func (Join) isLobbyMsg() {}

type Leave struct{ ClientID string }

func (Leave) isLobbyMsg() {}

// Tick is sent by the scheduler once per interval.
type Tick struct{}

func (Tick) isLobbyMsg() {}

type Shutdown struct{}

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type MessageType string

const (
	MsgSnapshot MessageType = "StateSnapshot"
	MsgNotice   MessageType = "Notice"
	MsgResults  MessageType = "Results" // sinks only, once per finished auction
)

type Notice struct {
	From    string
	Text    string
	Private bool
}

type Message struct {
	Type    MessageType
	Version int
	State   *engine.Snapshot
	Notice  *Notice
}

type View struct {
	Version    int
	NumClients int
	State      engine.Snapshot
}

// Sink receives every public message. Publish must not block.
type Sink interface {
	Publish(Message)
}

type Config struct {
	Clock  clockwork.Clock
	Logger *zap.Logger
	Sinks  []Sink
}

type client struct {
	who    auth.Identity
	outbox chan Message
}

// Lobby is the only owner of the auction state. Every mutation, whether
// from a client or from the scheduler, runs on its loop goroutine.
type Lobby struct {
	inbox    chan Msg
	state    *engine.State
	version  int
	clients  map[string]client
	presence map[engine.ManagerID]int
	// set when dropping a slow client disconnected a manager mid-broadcast
	presenceDirty bool
	clock    clockwork.Clock
	log      *zap.Logger
	sinks    []Sink
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewLobby(parent context.Context, initial *engine.State, cfg Config) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	l := &Lobby{
		inbox:    make(chan Msg, 64),
		state:    initial,
		clients:  make(map[string]client),
		presence: make(map[engine.ManagerID]int),
		clock:    cfg.Clock,
		log:      cfg.Logger,
		sinks:    cfg.Sinks,
		ctx:      ctx,
		cancel:   cancel,
	}

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			switch msg := m.(type) {
			case Join:
				l.clients[msg.ClientID] = client{who: msg.Who, outbox: msg.Outbox}
				if l.markPresent(msg.Who, 1) {
					l.version++
					l.broadcastSnapshot()
					break
				}
				snap := l.snapshot()
				l.sendTo(msg.ClientID, Message{Type: MsgSnapshot, Version: l.version, State: &snap})

			case Leave:
				c, ok := l.clients[msg.ClientID]
				if !ok {
					break
				}
				delete(l.clients, msg.ClientID)
				if l.markPresent(c.who, -1) {
					l.version++
					l.broadcastSnapshot()
				}

			case FromClient:
				l.handleCommand(msg)

			case Chat:
				l.handleChat(msg)

			case Tick:
				l.handleTick()

			case GetState:
				msg.Reply <- View{
					Version:    l.version,
					NumClients: len(l.clients),
					State:      l.snapshot(),
				}

			case Shutdown:
				l.shutdown()
				return
			}
			l.flushPresence()
		}
	}
}

func (l *Lobby) handleCommand(msg FromClient) {
	cmd, err := authorize(msg.Who, msg.Cmd)
	if err == nil {
		var events []engine.Event
		events, err = engine.Apply(l.state, cmd, l.clock.Now())
		if err == nil {
			l.log.Debug("command applied",
				zap.String("client_id", msg.ClientID),
				zap.String("command", string(cmd.Type)),
				zap.Int("events", len(events)))
			l.commit(events)
			return
		}
	}

	if errors.Is(err, engine.ErrIndexExhausted) {
		// a late duplicate of a command that already settled the last lot
		l.log.Debug("ignoring command on exhausted queue", zap.String("command", string(msg.Cmd.Type)))
		return
	}
	l.log.Debug("command rejected",
		zap.String("client_id", msg.ClientID),
		zap.String("role", string(msg.Who.Role)),
		zap.String("command", string(msg.Cmd.Type)),
		zap.Error(err))
	l.sendTo(msg.ClientID, Message{
		Type:    MsgNotice,
		Version: l.version,
		Notice:  &Notice{From: systemName, Text: rejectionText(err), Private: true},
	})
}

func (l *Lobby) handleTick() {
	events, err := engine.Apply(l.state, engine.Command{Type: engine.CmdTick}, l.clock.Now())
	if err != nil {
		l.log.Warn("tick failed", zap.Error(err))
	}
	if len(events) > 0 {
		l.commit(events)
		return
	}
	// countdown refresh, nothing changed
	l.broadcastSnapshot()
}

func (l *Lobby) handleChat(msg Chat) {
	text, ok := cleanChat(msg.Text)
	if !ok {
		return
	}
	from := msg.Who.Name
	if m := l.state.Manager(msg.Who.ManagerID); msg.Who.Role == auth.RoleManager && m != nil {
		from = m.Name
	}
	l.broadcast(Message{Type: MsgNotice, Version: l.version, Notice: &Notice{From: from, Text: text}})
}

// commit publishes the outcome of an accepted mutation: one notice per event,
// then the new snapshot.
func (l *Lobby) commit(events []engine.Event) {
	l.version++
	for _, ev := range events {
		l.logEvent(ev)
		if n, ok := describe(l.state, ev); ok {
			l.broadcast(Message{Type: MsgNotice, Version: l.version, Notice: &n})
		}
	}
	snap := l.broadcastSnapshot()

	if engine.ContainsEvent(events, engine.EvtAuctionEnded) {
		l.publish(Message{Type: MsgResults, Version: l.version, State: &snap})
	}
}

func (l *Lobby) logEvent(ev engine.Event) {
	switch ev.Type {
	case engine.EvtLotSold, engine.EvtLotUnsold, engine.EvtAutoClaimed,
		engine.EvtRoundStarted, engine.EvtForcedAssigned, engine.EvtFinalUnsold,
		engine.EvtAuctionStarted, engine.EvtAuctionEnded:
		l.log.Info("auction event",
			zap.String("event", string(ev.Type)),
			zap.Int("round", ev.Round),
			zap.String("tier", ev.Tier),
			zap.String("player", ev.Player),
			zap.String("manager_id", string(ev.ManagerID)),
			zap.Int("price", ev.Price))
	}
}

// markPresent adjusts the connection count of a manager and reports whether
// its connected flag flipped.
func (l *Lobby) markPresent(who auth.Identity, delta int) bool {
	if who.Role != auth.RoleManager {
		return false
	}
	n := l.presence[who.ManagerID] + delta
	if n <= 0 {
		delete(l.presence, who.ManagerID)
		return l.state.SetConnected(who.ManagerID, false)
	}
	l.presence[who.ManagerID] = n
	return l.state.SetConnected(who.ManagerID, true)
}

func (l *Lobby) snapshot() engine.Snapshot {
	return l.state.Snapshot(l.clock.Now())
}

func (l *Lobby) broadcastSnapshot() engine.Snapshot {
	snap := l.snapshot()
	l.broadcast(Message{Type: MsgSnapshot, Version: l.version, State: &snap})
	return snap
}

func (l *Lobby) shutdown() {
	for id, c := range l.clients {
		close(c.outbox) // Tell client no more messages
		delete(l.clients, id)
	}
	l.cancel()
}

func (l *Lobby) broadcast(m Message) {
	for id := range l.clients {
		l.sendTo(id, m)
	}
	l.publish(m)
}

func (l *Lobby) publish(m Message) {
	for _, s := range l.sinks {
		s.Publish(m)
	}
}

func (l *Lobby) sendTo(id string, m Message) {
	c, ok := l.clients[id]
	if !ok {
		return
	}
	select {
	case c.outbox <- m:
		//ok
	default:
		// Client is slow/full - drop them.
		l.log.Warn("dropping slow client", zap.String("client_id", id))
		close(c.outbox)
		delete(l.clients, id)
		if l.markPresent(c.who, -1) {
			l.presenceDirty = true
		}
	}
}

// flushPresence publishes presence changes caused by dropped clients once the
// current message is fully handled.
func (l *Lobby) flushPresence() {
	for l.presenceDirty {
		l.presenceDirty = false
		l.version++
		l.broadcastSnapshot()
	}
}

// Expose the inbox so the scheduler, tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Send delivers msg unless ctx ends or the lobby has shut down first.
func (l *Lobby) Send(ctx context.Context, msg Msg) bool {
	select {
	case l.inbox <- msg:
		return true
	case <-ctx.Done():
		return false
	case <-l.ctx.Done():
		return false
	}
}

func authorize(who auth.Identity, cmd engine.Command) (engine.Command, error) {
	switch cmd.Type {
	case engine.CmdPlaceBid:
		if who.Role != auth.RoleManager {
			return cmd, ErrForbidden
		}
		// bids always act for the manager bound to the connection
		cmd.ManagerID = who.ManagerID
	case engine.CmdStartOrResume, engine.CmdForceEndLot, engine.CmdUpdateManager:
		if who.Role != auth.RoleAdmin {
			return cmd, ErrForbidden
		}
	default:
		return cmd, engine.ErrUnsupportedCommand
	}
	return cmd, nil
}
