package lobby

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/DoyleJ11/tier-auction/internal/engine"
)

const systemName = "system"

const maxChatRunes = 300

func describe(s *engine.State, ev engine.Event) (Notice, bool) {
	who := managerName(s, ev.ManagerID)
	lot := fmt.Sprintf("%s (tier %s)", ev.Player, ev.Tier)
	n := Notice{From: systemName}

	switch ev.Type {
	case engine.EvtAuctionStarted:
		n.Text = "The auction has started."
	case engine.EvtLotAnnounced:
		n.Text = fmt.Sprintf("[round %d] Up next: %s. Bidding opens shortly.", ev.Round, lot)
	case engine.EvtBiddingOpened:
		n.Text = fmt.Sprintf("Bidding is open for %s!", lot)
	case engine.EvtBiddingResumed:
		n.Text = fmt.Sprintf("The admin opened bidding for %s early.", lot)
	case engine.EvtBidAccepted:
		n.From = who
		n.Text = fmt.Sprintf("%d coins!", ev.Price)
	case engine.EvtLotSold:
		n.Text = fmt.Sprintf("%s won %s for %d coins.", who, lot, ev.Price)
	case engine.EvtLotUnsold:
		n.Text = fmt.Sprintf("%s went unsold.", lot)
	case engine.EvtAutoClaimed:
		n.Text = fmt.Sprintf("[auto-claim] %s is the last of tier %s and %s is the only team without one: assigned for free.", ev.Player, ev.Tier, who)
	case engine.EvtRoundStarted:
		n.Text = fmt.Sprintf("[round %d] Players unsold in round 1 go up again with the coins left.", ev.Round)
	case engine.EvtForcedAssigned:
		n.Text = fmt.Sprintf("[auto-assign] %s receives %s.", who, lot)
	case engine.EvtFinalUnsold:
		n.Text = fmt.Sprintf("%s stays undrafted.", lot)
	case engine.EvtAuctionEnded:
		n.Text = "Both rounds and all automatic assignments are done. The auction is over."
	case engine.EvtManagerUpdated:
		n.Text = fmt.Sprintf("The admin updated manager %s.", who)
	default:
		return Notice{}, false
	}
	return n, true
}

func managerName(s *engine.State, id engine.ManagerID) string {
	if m := s.Manager(id); m != nil {
		return m.Name
	}
	return string(id)
}

func rejectionText(err error) string {
	switch {
	case errors.Is(err, ErrForbidden):
		return "You are not allowed to do that."
	case errors.Is(err, engine.ErrOutOfPhase):
		return "That is not possible right now: " + err.Error()
	case errors.Is(err, engine.ErrTierConflict), errors.Is(err, engine.ErrInsufficientFunds):
		return "You cannot bid: " + err.Error()
	default:
		return "Request rejected: " + err.Error()
	}
}

func cleanChat(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	if utf8.RuneCountInString(text) > maxChatRunes {
		text = string([]rune(text)[:maxChatRunes])
	}
	return text, true
}
