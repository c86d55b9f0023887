package lobby

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DoyleJ11/tier-auction/internal/auth"
	"github.com/DoyleJ11/tier-auction/internal/engine"
	"github.com/DoyleJ11/tier-auction/internal/roster"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var t0 = time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)

var (
	admin = auth.Identity{Role: auth.RoleAdmin, Name: "admin"}
	mgrX  = auth.Identity{Role: auth.RoleManager, ManagerID: "X", Name: "Xavier"}
	mgrY  = auth.Identity{Role: auth.RoleManager, ManagerID: "Y", Name: "Yuna"}
)

func testState() *engine.State {
	r := roster.Roster{
		AdminKey: "boss",
		Tiers:    []roster.Tier{{Name: "A", Players: []string{"a1", "a2", "a3"}}},
		Managers: []roster.ManagerSeed{
			{ID: "X", Key: "kx", Name: "Xavier", Coin: 1000},
			{ID: "Y", Key: "ky", Name: "Yuna", Coin: 1000},
			{ID: "Z", Key: "kz", Name: "Zed", Coin: 1000},
		},
	}
	s := engine.NewState(r, engine.DefaultRules())
	s.Shuffle = func(int, func(i, j int)) {}
	return s
}

type recordSink struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *recordSink) Publish(m Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
}

func (r *recordSink) ofType(t MessageType) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, m := range r.msgs {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

func newTestLobby(t *testing.T, sinks ...Sink) (*Lobby, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(t0)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	l := NewLobby(ctx, testState(), Config{Clock: clock, Logger: zap.NewNop(), Sinks: sinks})
	return l, clock
}

func join(l *Lobby, id string, who auth.Identity) chan Message {
	out := make(chan Message, 32)
	l.Inbox() <- Join{ClientID: id, Who: who, Outbox: out}
	return out
}

func send(l *Lobby, id string, who auth.Identity, cmd engine.Command) {
	l.Inbox() <- FromClient{ClientID: id, Who: who, Cmd: cmd}
}

// helper: receive one message with a timeout so tests never hang
func recv(t *testing.T, ch <-chan Message, within time.Duration) Message {
	t.Helper()
	select {
	case m, ok := <-ch:
		if !ok {
			t.Fatalf("client outbox closed unexpectedly")
		}
		return m
	case <-time.After(within):
		t.Fatalf("timed out waiting for message")
		return Message{} // unreachable
	}
}

// recvSnapshot skips notices up to the next snapshot and returns both.
func recvSnapshot(t *testing.T, ch <-chan Message, within time.Duration) (Message, []Notice) {
	t.Helper()
	var notices []Notice
	for {
		m := recv(t, ch, within)
		if m.Type == MsgSnapshot {
			return m, notices
		}
		require.NotNil(t, m.Notice)
		notices = append(notices, *m.Notice)
	}
}

func recvNothing(t *testing.T, ch <-chan Message, within time.Duration) {
	t.Helper()
	select {
	case m, ok := <-ch:
		if !ok {
			// channel closed → that's fine; no further messages possible
			return
		}
		t.Fatalf("expected no message within %v, but got: %+v", within, m)
	case <-time.After(within):
		// good: no message
	}
}

func getView(t *testing.T, l *Lobby) View {
	t.Helper()
	reply := make(chan View, 1)
	l.Inbox() <- GetState{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("timed out waiting for view")
		return View{} // unreachable
	}
}

func noticeTexts(ns []Notice) string {
	var b strings.Builder
	for _, n := range ns {
		b.WriteString(n.Text)
		b.WriteString("\n")
	}
	return b.String()
}

func TestLobby_Join_SendsCurrentSnapshot(t *testing.T) {
	l, _ := newTestLobby(t)

	out := join(l, "v1", auth.Viewer)
	first := recv(t, out, 100*time.Millisecond)

	require.Equal(t, MsgSnapshot, first.Type)
	assert.Equal(t, 0, first.Version)
	assert.Equal(t, engine.PhaseReady, first.State.Phase)
	assert.Len(t, first.State.Players, 3)
}

func TestLobby_ManagerPresence(t *testing.T) {
	l, _ := newTestLobby(t)
	watcher := join(l, "v1", auth.Viewer)
	recv(t, watcher, 100*time.Millisecond)

	x1 := join(l, "x1", mgrX)
	snap := recv(t, watcher, 100*time.Millisecond)
	assert.Equal(t, 1, snap.Version)
	assert.True(t, snap.State.Managers[0].Connected)
	recv(t, x1, 100*time.Millisecond)

	// a second tab for the same manager changes nothing for others
	x2 := join(l, "x2", mgrX)
	second := recv(t, x2, 100*time.Millisecond)
	assert.Equal(t, 1, second.Version)
	recvNothing(t, watcher, 50*time.Millisecond)

	l.Inbox() <- Leave{ClientID: "x1"}
	assert.True(t, getView(t, l).State.Managers[0].Connected)

	l.Inbox() <- Leave{ClientID: "x2"}
	snap = recv(t, watcher, 100*time.Millisecond)
	assert.Equal(t, 2, snap.Version)
	assert.False(t, snap.State.Managers[0].Connected)
}

func TestLobby_AdminStart_BroadcastsNoticesThenSnapshot(t *testing.T) {
	l, _ := newTestLobby(t)
	join(l, "adm", admin)
	watcher := join(l, "v1", auth.Viewer)
	recv(t, watcher, 100*time.Millisecond)

	send(l, "adm", admin, engine.Command{Type: engine.CmdStartOrResume})

	snap, notices := recvSnapshot(t, watcher, 100*time.Millisecond)
	assert.Equal(t, 1, snap.Version)
	assert.Equal(t, engine.PhasePaused, snap.State.Phase)
	require.NotNil(t, snap.State.Lot)
	assert.Equal(t, "a1", snap.State.Lot.Name)
	assert.Equal(t, int64(5000), snap.State.RemainingMS)

	require.Len(t, notices, 2)
	assert.Equal(t, "The auction has started.", notices[0].Text)
	assert.Contains(t, notices[1].Text, "a1 (tier A)")
	assert.False(t, notices[1].Private)
}

func TestLobby_RejectionIsPrivate(t *testing.T) {
	l, _ := newTestLobby(t)
	join(l, "adm", admin)
	x := join(l, "x1", mgrX)
	y := join(l, "y1", mgrY)
	send(l, "adm", admin, engine.Command{Type: engine.CmdStartOrResume})
	before := getView(t, l)
	for len(x) > 0 {
		<-x
	}
	for len(y) > 0 {
		<-y
	}

	send(l, "x1", mgrX, engine.Command{Type: engine.CmdPlaceBid, Increment: 10})

	m := recv(t, x, 100*time.Millisecond)
	require.Equal(t, MsgNotice, m.Type)
	assert.True(t, m.Notice.Private)
	assert.Contains(t, m.Notice.Text, "not possible right now")
	recvNothing(t, y, 50*time.Millisecond)
	assert.Equal(t, before.Version, getView(t, l).Version)
}

func TestLobby_RoleChecks(t *testing.T) {
	l, _ := newTestLobby(t)
	v := join(l, "v1", auth.Viewer)
	x := join(l, "x1", mgrX)
	recv(t, v, 100*time.Millisecond)
	recvSnapshot(t, x, 100*time.Millisecond)
	recvSnapshot(t, v, 100*time.Millisecond) // presence of X

	send(l, "v1", auth.Viewer, engine.Command{Type: engine.CmdStartOrResume})
	m := recv(t, v, 100*time.Millisecond)
	assert.Equal(t, "You are not allowed to do that.", m.Notice.Text)

	send(l, "x1", mgrX, engine.Command{Type: engine.CmdForceEndLot})
	m = recv(t, x, 100*time.Millisecond)
	assert.Equal(t, "You are not allowed to do that.", m.Notice.Text)

	send(l, "v1", auth.Viewer, engine.Command{Type: engine.CmdPlaceBid, ManagerID: "X", Increment: 10})
	m = recv(t, v, 100*time.Millisecond)
	assert.True(t, m.Notice.Private)

	send(l, "adm", admin, engine.Command{Type: engine.CmdTick})
	assert.Equal(t, engine.PhaseReady, getView(t, l).State.Phase)
}

func TestLobby_TickOpensBiddingAndSettles(t *testing.T) {
	l, clock := newTestLobby(t)
	join(l, "adm", admin)
	x := join(l, "x1", mgrX)
	recvSnapshot(t, x, 100*time.Millisecond)
	send(l, "adm", admin, engine.Command{Type: engine.CmdStartOrResume})
	recvSnapshot(t, x, 100*time.Millisecond)

	clock.Advance(5 * time.Second)
	l.Inbox() <- Tick{}
	snap, notices := recvSnapshot(t, x, 100*time.Millisecond)
	assert.Equal(t, engine.PhaseBidding, snap.State.Phase)
	assert.Contains(t, noticeTexts(notices), "Bidding is open for a1")

	// a manager cannot bid for somebody else
	send(l, "x1", mgrX, engine.Command{Type: engine.CmdPlaceBid, ManagerID: "Y", Increment: 30})
	snap, notices = recvSnapshot(t, x, 100*time.Millisecond)
	assert.Equal(t, 30, snap.State.CurrentPrice)
	assert.Equal(t, engine.ManagerID("X"), snap.State.Leader)
	require.Len(t, notices, 1)
	assert.Equal(t, "Xavier", notices[0].From)
	assert.Equal(t, "30 coins!", notices[0].Text)

	clock.Advance(15 * time.Second)
	l.Inbox() <- Tick{}
	snap, notices = recvSnapshot(t, x, 100*time.Millisecond)
	assert.Contains(t, noticeTexts(notices), "Xavier won a1 (tier A) for 30 coins.")
	assert.Equal(t, 970, snap.State.Managers[0].Coin)
	assert.Equal(t, engine.PhasePaused, snap.State.Phase)
	assert.Equal(t, "a2", snap.State.Lot.Name)
}

func TestLobby_TickWithoutChange_RefreshesCountdown(t *testing.T) {
	l, clock := newTestLobby(t)
	join(l, "adm", admin)
	v := join(l, "v1", auth.Viewer)
	recv(t, v, 100*time.Millisecond)
	send(l, "adm", admin, engine.Command{Type: engine.CmdStartOrResume})
	recvSnapshot(t, v, 100*time.Millisecond)

	clock.Advance(2 * time.Second)
	l.Inbox() <- Tick{}

	m := recv(t, v, 100*time.Millisecond)
	require.Equal(t, MsgSnapshot, m.Type)
	assert.Equal(t, 1, m.Version)
	assert.Equal(t, int64(3000), m.State.RemainingMS)
}

func TestLobby_DropSlowClient(t *testing.T) {
	l, _ := newTestLobby(t)
	join(l, "adm", admin)

	slow := make(chan Message, 1)
	l.Inbox() <- Join{ClientID: "slow", Who: auth.Viewer, Outbox: slow}

	send(l, "adm", admin, engine.Command{Type: engine.CmdStartOrResume})

	view := getView(t, l)
	if view.NumClients != 1 {
		t.Fatalf("expected slow client to be dropped; NumClients=%d", view.NumClients)
	}
}

func TestLobby_DropSlowManager_BroadcastsPresence(t *testing.T) {
	l, _ := newTestLobby(t)
	watcher := join(l, "v1", auth.Viewer)
	recv(t, watcher, 100*time.Millisecond)

	// Room for the presence snapshot of its own join, nothing more.
	slow := make(chan Message, 1)
	l.Inbox() <- Join{ClientID: "slow", Who: mgrX, Outbox: slow}
	joined, _ := recvSnapshot(t, watcher, 100*time.Millisecond)
	require.True(t, managerView(t, joined, "X").Connected)

	l.Inbox() <- Tick{}

	// The countdown snapshot still shows X, then the drop is announced.
	refresh, _ := recvSnapshot(t, watcher, 100*time.Millisecond)
	assert.Equal(t, joined.Version, refresh.Version)
	dropped, _ := recvSnapshot(t, watcher, 100*time.Millisecond)
	assert.Equal(t, joined.Version+1, dropped.Version)
	assert.False(t, managerView(t, dropped, "X").Connected)
	assert.Equal(t, 1, getView(t, l).NumClients)
}

func managerView(t *testing.T, m Message, id engine.ManagerID) engine.ManagerView {
	t.Helper()
	require.NotNil(t, m.State)
	for _, mv := range m.State.Managers {
		if mv.ID == id {
			return mv
		}
	}
	t.Fatalf("manager %s not in snapshot", id)
	return engine.ManagerView{}
}

func TestLobby_ResultsGoToSinks(t *testing.T) {
	sink := &recordSink{}
	l, _ := newTestLobby(t, sink)
	send(l, "adm", admin, engine.Command{Type: engine.CmdStartOrResume})

	// six lots over two rounds, all ended without bids
	for i := 0; i < 6; i++ {
		send(l, "adm", admin, engine.Command{Type: engine.CmdStartOrResume})
		send(l, "adm", admin, engine.Command{Type: engine.CmdForceEndLot})
	}
	view := getView(t, l)
	require.Equal(t, engine.PhaseEnded, view.State.Phase)

	results := sink.ofType(MsgResults)
	require.Len(t, results, 1)
	assert.Equal(t, engine.PhaseEnded, results[0].State.Phase)
	for _, p := range results[0].State.Players {
		assert.Equal(t, engine.StatusForced, p.Status)
	}
	assert.NotEmpty(t, sink.ofType(MsgNotice))
}

func TestLobby_ChatRelay(t *testing.T) {
	l, _ := newTestLobby(t)
	v := join(l, "v1", auth.Viewer)
	recv(t, v, 100*time.Millisecond)

	l.Inbox() <- Chat{ClientID: "x1", Who: mgrX, Text: "   "}
	l.Inbox() <- Chat{ClientID: "x1", Who: mgrX, Text: "  hello  "}

	m := recv(t, v, 100*time.Millisecond)
	require.Equal(t, MsgNotice, m.Type)
	assert.Equal(t, Notice{From: "Xavier", Text: "hello"}, *m.Notice)
}

func TestLobby_Shutdown_ClosesOutboxes(t *testing.T) {
	l, _ := newTestLobby(t)
	out := join(l, "v1", auth.Viewer)
	recv(t, out, 100*time.Millisecond)

	l.Inbox() <- Shutdown{}

	select {
	case _, ok := <-out:
		assert.False(t, ok)
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("outbox not closed on shutdown")
	}
}

func TestLobby_SendAfterShutdown_ReturnsFalse(t *testing.T) {
	l, _ := newTestLobby(t)
	require.True(t, l.Send(context.Background(), Shutdown{}))

	done := make(chan bool, 1)
	go func() {
		// Fill past the inbox buffer so a missing shutdown check would block.
		for i := 0; i < 100; i++ {
			if !l.Send(context.Background(), Tick{}) {
				done <- false
				return
			}
		}
		done <- true
	}()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatalf("Send blocked after shutdown")
	}
}

func TestCleanChat_CapsLength(t *testing.T) {
	text, ok := cleanChat(strings.Repeat("가", maxChatRunes+10))
	require.True(t, ok)
	assert.Equal(t, maxChatRunes, len([]rune(text)))
}
