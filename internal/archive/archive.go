// Package archive stores the results of finished auctions in Postgres.
package archive

import (
	"context"
	"fmt"

	"github.com/DoyleJ11/tier-auction/internal/lobby"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const queueSize = 8

func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&Run{}, &Result{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Archive is a lobby sink. Publish only queues; Run does the writes so the
// lobby loop never waits on the database.
type Archive struct {
	db    *gorm.DB
	queue chan lobby.Message
	clock clockwork.Clock
	log   *zap.Logger
}

func New(db *gorm.DB, clock clockwork.Clock, log *zap.Logger) *Archive {
	return &Archive{
		db:    db,
		queue: make(chan lobby.Message, queueSize),
		clock: clock,
		log:   log.Named("archive"),
	}
}

func (a *Archive) Publish(m lobby.Message) {
	if m.Type != lobby.MsgResults || m.State == nil {
		return
	}
	select {
	case a.queue <- m:
	default:
		a.log.Warn("results dropped, queue full", zap.Int("version", m.Version))
	}
}

func (a *Archive) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case m := <-a.queue:
			run := toRun(uuid.New(), m.Version, *m.State, a.clock.Now())
			if err := a.save(ctx, &run); err != nil {
				a.log.Error("save results", zap.Error(err), zap.Int("version", m.Version))
				continue
			}
			a.log.Info("results archived", zap.String("run_id", run.ID.String()), zap.Int("players", len(run.Results)))
		}
	}
}

func (a *Archive) save(ctx context.Context, run *Run) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(run).Error
	})
}
