package archive

import (
	"time"

	"github.com/DoyleJ11/tier-auction/internal/engine"
	"github.com/google/uuid"
)

// Run is one finished auction.
type Run struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Version    int       `gorm:"not null"`
	Round      int       `gorm:"not null"`
	FinishedAt time.Time `gorm:"type:timestamp with time zone;not null"`
	Results    []Result  `gorm:"foreignKey:RunID"`
}

// Result is the final outcome of one player in a run.
type Result struct {
	ID          uint      `gorm:"primaryKey"`
	RunID       uuid.UUID `gorm:"type:uuid;index;not null"`
	Tier        string    `gorm:"type:varchar(64);not null"`
	Player      string    `gorm:"type:varchar(255);not null"`
	Status      string    `gorm:"type:varchar(32);not null"`
	Price       int       `gorm:"not null;default:0"`
	ManagerID   *string   `gorm:"type:varchar(64)"`
	ManagerName string    `gorm:"type:varchar(255)"`
	Round       int       `gorm:"not null;default:0"`
	Forced      bool      `gorm:"not null;default:false"`
}

func toRun(id uuid.UUID, version int, snap engine.Snapshot, finishedAt time.Time) Run {
	managers := make(map[engine.ManagerID]engine.ManagerView, len(snap.Managers))
	for _, m := range snap.Managers {
		managers[m.ID] = m
	}

	run := Run{
		ID:         id,
		Version:    version,
		Round:      snap.Round,
		FinishedAt: finishedAt,
		Results:    make([]Result, 0, len(snap.Players)),
	}
	for _, p := range snap.Players {
		res := Result{
			RunID:  id,
			Tier:   p.Tier,
			Player: p.Name,
			Status: string(p.Status),
			Price:  p.Price,
		}
		if m, ok := managers[p.Owner]; ok {
			owner := string(m.ID)
			res.ManagerID = &owner
			res.ManagerName = m.Name
			if acq, ok := m.Roster[p.Name]; ok {
				res.Round = acq.Round
				res.Forced = acq.Forced
			}
		}
		run.Results = append(run.Results, res)
	}
	return run
}
