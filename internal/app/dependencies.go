package app

import (
	"context"
	"time"

	"github.com/prodige/prodige/internal/auth"
	"github.com/prodige/prodige/internal/config"
	"github.com/prodige/prodige/internal/database"
	"github.com/prodige/prodige/internal/event_bus"
	"github.com/prodige/prodige/internal/metrics"
	"github.com/prodige/prodige/internal/storage"
	"github.com/prodige/prodige/internal/utils"
	"github.com/prodige/prodige/pkg/event"
	"github.com/prodige/prodige/pkg/user"
	log "github.com/sirupsen/logrus"
)

// StorageMode is the backend decision made once at startup. There is no
// automatic failback: the process keeps its mode until restart.
type StorageMode string

const (
	ModeDatabase StorageMode = "database"
	ModeFile     StorageMode = "file"
	ModeDegraded StorageMode = "degraded"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Mode   StorageMode
	Clock  utils.Clock
	Bus    *event_bus.Bus
	Tokens *auth.Tokens

	UserStore   user.Store
	UserService *user.Service
	UserHandler *user.Handler

	EventStore   event.Store
	EventService *event.Service
	EventHandler *event.Handler
}

// BuildDependencies selects the storage backend and wires all services and
// handlers. Preference order: Postgres; file storage in the first writable
// candidate directory; degraded (no storage, routes answer 503).
func BuildDependencies(cfg config.Application) *Dependencies {
	deps := &Dependencies{
		Clock: utils.SystemClock{},
		Bus:   event_bus.New(),
	}

	ttl, err := time.ParseDuration(cfg.Auth.TokenTTL)
	if err != nil {
		log.Warnf("invalid auth.tokenttl %q, using 168h: %v", cfg.Auth.TokenTTL, err)
		ttl = 168 * time.Hour
	}
	deps.Tokens = auth.NewTokens(cfg.Auth.Secret, ttl)

	deps.Mode = deps.initStorage(cfg)
	for _, mode := range []StorageMode{ModeDatabase, ModeFile, ModeDegraded} {
		value := 0.0
		if mode == deps.Mode {
			value = 1.0
		}
		metrics.StorageMode.WithLabelValues(string(mode)).Set(value)
	}

	if deps.Mode != ModeDegraded {
		deps.UserService = user.NewService(deps.UserStore, deps.Tokens)
		deps.UserHandler = user.NewHandler(deps.UserService)

		deps.EventService = event.NewService(deps.EventStore, deps.Bus)
		deps.EventHandler = event.NewHandler(deps.EventService)

		subscribeMetrics(deps.Bus)
	}

	return deps
}

func (d *Dependencies) initStorage(cfg config.Application) StorageMode {
	db, err := database.Connect(cfg.Database)
	if err == nil {
		if mErr := database.Migrate(db); mErr != nil {
			log.Errorf("database migration failed, falling back to file storage: %v", mErr)
			_ = db.Close()
		} else {
			d.EventStore = event.NewSQLStore(db, d.Clock)
			d.UserStore = user.NewSQLStore(db, d.Clock)
			return ModeDatabase
		}
	} else {
		log.Warnf("database unreachable, falling back to file storage: %v", err)
	}

	dir, err := storage.ResolveDataDir(dataDirCandidates(cfg))
	if err != nil {
		log.Errorf("no writable data directory, running degraded: %v", err)
		return ModeDegraded
	}
	log.Infof("Using file storage in %s", dir)

	eventStore, err := event.NewFileStore(dir, d.Clock)
	if err != nil {
		log.Errorf("failed to initialize event file storage, running degraded: %v", err)
		return ModeDegraded
	}
	userStore, err := user.NewFileStore(dir, d.Clock)
	if err != nil {
		log.Errorf("failed to initialize user file storage, running degraded: %v", err)
		return ModeDegraded
	}

	d.EventStore = eventStore
	d.UserStore = userStore
	return ModeFile
}

func dataDirCandidates(cfg config.Application) []string {
	return []string{cfg.Storage.Dir, "./data", "/tmp/prodige-data"}
}

// subscribeMetrics counts every calendar change and leaves an audit line.
func subscribeMetrics(bus *event_bus.Bus) {
	count := func(op string) func(context.Context, event_bus.CalendarEventChange) error {
		return func(_ context.Context, change event_bus.CalendarEventChange) error {
			metrics.EventMutations.WithLabelValues(op).Inc()
			log.Debugf("calendar event %s %s by %s", change.ID, op, change.Actor)
			return nil
		}
	}
	event_bus.SubscribeTyped(bus, event_bus.CalendarEventCreated, count("create"))
	event_bus.SubscribeTyped(bus, event_bus.CalendarEventUpdated, count("update"))
	event_bus.SubscribeTyped(bus, event_bus.CalendarEventDeleted, count("delete"))
}
