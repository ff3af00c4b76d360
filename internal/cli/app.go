package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/BrandonDHaskell/tagbook/internal/config"
	"github.com/BrandonDHaskell/tagbook/internal/db"
	"github.com/BrandonDHaskell/tagbook/internal/platform/logger"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/events"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/service"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/store"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/store/memory"
	sqlitestore "github.com/BrandonDHaskell/tagbook/internal/tagbook/store/sqlite"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

// reservationStore is a schedule store the seed command can write to.
type reservationStore interface {
	store.ScheduleStore
	AddReservation(ctx context.Context, r types.Reservation) error
}

// app is the wired dependency graph shared by every command.
type app struct {
	cfg config.Config
	log *logger.Logger

	sqlDB  *sql.DB
	writer *db.Worker

	schedule   reservationStore
	identities *service.IdentityRegistry
	settings   *service.SettingsCache
	audit      *service.AuditLog
	readers    *service.ReaderRegistry
	tagging    *service.TaggingService

	closers []func()
}

func newApp(ctx context.Context, cfg config.Config, log *logger.Logger) (*app, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	policy := service.Policy{
		Location:                loc,
		PendingTTL:              cfg.PendingTTL,
		PresentPoints:           cfg.PresentPoints,
		ReducedAttendancePoints: cfg.ReducedAttendancePoints,
		TransportAllowance:      cfg.TransportAllowance,
	}

	a := &app{cfg: cfg, log: log}

	var (
		identityStore store.IdentityStore
		settingsStore store.SettingsStore
		readerStore   store.ReaderStore
		tagLogStore   store.TagLogStore
	)
	switch cfg.Store {
	case "memory":
		log.Warn("using in-memory storage; data is lost on exit")
		a.schedule = memory.NewScheduleStore()
		identityStore = memory.NewIdentityStore()
		settingsStore = memory.NewSettingsStore()
		readerStore = memory.NewReaderStore()
		tagLogStore = memory.NewTagLogStore()
	default:
		a.sqlDB, err = db.Open(ctx, db.Config{Path: cfg.DBPath})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = a.sqlDB.Close() })
		if err := db.SeedDefaults(ctx, a.sqlDB, types.DefaultCheckoutThreshold, types.DefaultMaxReTags); err != nil {
			a.Close()
			return nil, err
		}
		a.writer = db.NewWorker(a.sqlDB)
		a.closers = append(a.closers, a.writer.Close)

		a.schedule = sqlitestore.NewScheduleStore(a.sqlDB, a.writer)
		identityStore = sqlitestore.NewIdentityStore(a.sqlDB, a.writer)
		settingsStore = sqlitestore.NewSettingsStore(a.sqlDB, a.writer)
		readerStore = sqlitestore.NewReaderStore(a.sqlDB, a.writer)
		tagLogStore = sqlitestore.NewTagLogStore(a.sqlDB, a.writer)
	}

	a.identities = service.NewIdentityRegistry(identityStore, tagLogStore)
	a.settings = service.NewSettingsCache(settingsStore, cfg.SettingsRefresh)
	a.audit = service.NewAuditLog(tagLogStore, policy)
	a.readers = service.NewReaderRegistry(readerStore)
	a.tagging = service.NewTaggingService(service.Deps{
		Identities: a.identities,
		Schedule:   service.NewScheduleLookup(a.schedule, loc),
		Settings:   a.settings,
		Audit:      a.audit,
		Readers:    a.readers,
		Publisher:  a.publisher(ctx),
		Logger:     log,
		Policy:     policy,
	})
	return a, nil
}

// publisher picks Redis when configured and reachable, else the log.
func (a *app) publisher(ctx context.Context) events.Publisher {
	if a.cfg.RedisAddr == "" {
		return events.NewLogPublisher(a.log)
	}
	rp, err := events.NewRedisPublisher(ctx, events.RedisConfig{
		Addr:    a.cfg.RedisAddr,
		Channel: a.cfg.RedisChannel,
	}, a.log)
	if err != nil {
		a.log.Warn("redis unavailable; publishing events to log", "addr", a.cfg.RedisAddr, "err", err)
		return events.NewLogPublisher(a.log)
	}
	a.closers = append(a.closers, func() { _ = rp.Close() })
	return rp
}

// ping reports storage health; nil for memory storage.
func (a *app) ping() func(ctx context.Context) error {
	if a.sqlDB == nil {
		return nil
	}
	return a.sqlDB.PingContext
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func newLogger(cfg config.Config) (*logger.Logger, error) {
	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return log, nil
}
