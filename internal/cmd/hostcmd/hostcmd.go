// Package hostcmd parses host command flags and composes the authoritative
// session process: engine, resume storage, and the sync transport.
package hostcmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"github.com/hwidjaja/tabletally/internal/failover"
	"github.com/hwidjaja/tabletally/internal/game/domain"
	"github.com/hwidjaja/tabletally/internal/game/engine"
	entrypoint "github.com/hwidjaja/tabletally/internal/platform/cmd"
	"github.com/hwidjaja/tabletally/internal/storage"
	"github.com/hwidjaja/tabletally/internal/storage/sqlite"
	hostserver "github.com/hwidjaja/tabletally/internal/transport/host"
)

// Config holds host command configuration.
type Config struct {
	HTTPAddr      string `env:"TABLETALLY_HOST_HTTP_ADDR" envDefault:":8090"`
	AdvertiseAddr string `env:"TABLETALLY_ADVERTISE_ADDR"`
	DataPath      string `env:"TABLETALLY_DATA_PATH"      envDefault:"tabletally.db"`
	HostName      string `env:"TABLETALLY_HOST_NAME"      envDefault:"Host"`
	Resume        bool   `env:"TABLETALLY_RESUME"         envDefault:"false"`
	MinLevel      int    `env:"TABLETALLY_MIN_LEVEL"      envDefault:"1"`
	MaxLevel      int    `env:"TABLETALLY_MAX_LEVEL"      envDefault:"10"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "sync HTTP listen address")
	fs.StringVar(&cfg.AdvertiseAddr, "advertise-addr", cfg.AdvertiseAddr, "address other participants should dial; defaults to the listen address")
	fs.StringVar(&cfg.DataPath, "data-path", cfg.DataPath, "SQLite path for session resume; blank disables persistence")
	fs.StringVar(&cfg.HostName, "name", cfg.HostName, "display name of the hosting participant")
	fs.BoolVar(&cfg.Resume, "resume", cfg.Resume, "resume the most recently persisted session instead of creating one")
	fs.IntVar(&cfg.MinLevel, "min-level", cfg.MinLevel, "lowest participant level")
	fs.IntVar(&cfg.MaxLevel, "max-level", cfg.MaxLevel, "level that signals a win")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the host process and serves until ctx is canceled.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceHost, func(ctx context.Context) error {
		var store storage.ResumeStore
		if cfg.DataPath != "" {
			sqliteStore, err := sqlite.Open(cfg.DataPath)
			if err != nil {
				return fmt.Errorf("open resume store: %w", err)
			}
			defer func() {
				_ = sqliteStore.Close()
			}()
			store = sqliteStore
		}

		eng := engine.New(engine.Config{
			Levels: domain.LevelBounds{Min: cfg.MinLevel, Max: cfg.MaxLevel},
		})
		session, err := startSession(ctx, eng, store, cfg)
		if err != nil {
			return err
		}

		log.Printf("hosting session %s, join code %s", session.ID, session.JoinCode)

		srv := hostserver.New(eng, store)

		// On a deliberate shutdown, point the remaining mirrors at the
		// elected successor before the listener goes away.
		serveCtx, cancel := context.WithCancel(context.Background())
		defer cancel()
		stop := context.AfterFunc(ctx, func() {
			announceSuccessor(srv, eng)
			cancel()
		})
		defer stop()

		if err := srv.Run(serveCtx, cfg.HTTPAddr); err != nil {
			return fmt.Errorf("serve sync: %w", err)
		}
		return nil
	})
}

// announceSuccessor broadcasts a handover notice to connected mirrors so
// they can reconnect to the elected successor instead of timing out against
// a dead listener. Survivors that miss the notice still converge through
// their own election.
func announceSuccessor(srv *hostserver.Server, eng *engine.Engine) {
	if !eng.Loaded() {
		return
	}
	state := eng.Snapshot()
	successorID, ok := failover.Successor(state, state.HostID)
	if !ok {
		return
	}
	addr := state.Participants[successorID].NetworkHint
	if addr == "" {
		return
	}
	log.Printf("shutting down, announcing successor %s at %s", successorID, addr)
	srv.AnnounceHandover(successorID, state.Epoch+1, addr)
}

func startSession(ctx context.Context, eng *engine.Engine, store storage.ResumeStore, cfg Config) (domain.Session, error) {
	advertiseAddr := cfg.AdvertiseAddr
	if advertiseAddr == "" {
		advertiseAddr = cfg.HTTPAddr
	}

	if cfg.Resume {
		if store == nil {
			return domain.Session{}, errors.New("resume requires a data path")
		}
		session, err := store.Latest(ctx)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return domain.Session{}, errors.New("no persisted session to resume")
			}
			return domain.Session{}, fmt.Errorf("load persisted session: %w", err)
		}
		eng.LoadSession(session)
		log.Printf("resumed session %s at seq %d", session.ID, session.Seq)
		return session, nil
	}

	session, err := eng.CreateSession(domain.ParticipantMeta{
		Name:        cfg.HostName,
		NetworkHint: advertiseAddr,
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	if store != nil {
		if err := store.Save(ctx, session); err != nil {
			log.Printf("failed to persist new session: %v", err)
		}
	}
	return session, nil
}
