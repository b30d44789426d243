// Package clientcmd parses client command flags and composes the mirror
// process: a replicated engine behind the sync client, with deterministic
// promotion to host when the current host is lost.
package clientcmd

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/hwidjaja/tabletally/internal/failover"
	"github.com/hwidjaja/tabletally/internal/game/domain"
	"github.com/hwidjaja/tabletally/internal/game/engine"
	entrypoint "github.com/hwidjaja/tabletally/internal/platform/cmd"
	"github.com/hwidjaja/tabletally/internal/storage"
	"github.com/hwidjaja/tabletally/internal/storage/sqlite"
	"github.com/hwidjaja/tabletally/internal/transport/client"
	hostserver "github.com/hwidjaja/tabletally/internal/transport/host"
)

// Config holds client command configuration.
type Config struct {
	HostAddr      string `env:"TABLETALLY_HOST_ADDR"        envDefault:"localhost:8090"`
	JoinCode      string `env:"TABLETALLY_JOIN_CODE"`
	Name          string `env:"TABLETALLY_NAME"             envDefault:"Player"`
	ParticipantID string `env:"TABLETALLY_PARTICIPANT_ID"`
	HTTPAddr      string `env:"TABLETALLY_CLIENT_HTTP_ADDR" envDefault:":8091"`
	AdvertiseAddr string `env:"TABLETALLY_ADVERTISE_ADDR"`
	DataPath      string `env:"TABLETALLY_DATA_PATH"`

	ReconnectBaseDelay   time.Duration `env:"TABLETALLY_RECONNECT_BASE_DELAY"`
	ReconnectMaxAttempts int           `env:"TABLETALLY_RECONNECT_MAX_ATTEMPTS"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HostAddr, "host-addr", cfg.HostAddr, "address of the session host")
	fs.StringVar(&cfg.JoinCode, "join-code", cfg.JoinCode, "join code for the session")
	fs.StringVar(&cfg.Name, "name", cfg.Name, "display name for this participant")
	fs.StringVar(&cfg.ParticipantID, "participant-id", cfg.ParticipantID, "existing participant id to reclaim after a restart")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "listen address used if this participant is promoted to host")
	fs.StringVar(&cfg.AdvertiseAddr, "advertise-addr", cfg.AdvertiseAddr, "address other participants should dial on promotion; defaults to the listen address")
	fs.StringVar(&cfg.DataPath, "data-path", cfg.DataPath, "SQLite path used for persistence after promotion; blank disables it")
	fs.DurationVar(&cfg.ReconnectBaseDelay, "reconnect-base-delay", cfg.ReconnectBaseDelay, "first reconnect delay, grows linearly per attempt; zero uses the default")
	fs.IntVar(&cfg.ReconnectMaxAttempts, "reconnect-max-attempts", cfg.ReconnectMaxAttempts, "reconnect attempts before declaring the host lost; zero uses the default")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run mirrors the session until ctx is canceled. If the host disappears and
// the deterministic election picks this participant, the process flips into
// hosting with the adopted state.
func Run(ctx context.Context, cfg Config) error {
	if cfg.JoinCode == "" {
		return fmt.Errorf("join code is required")
	}

	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceClient, func(ctx context.Context) error {
		advertiseAddr := cfg.AdvertiseAddr
		if advertiseAddr == "" {
			advertiseAddr = cfg.HTTPAddr
		}

		var (
			mu       sync.Mutex
			promoted *failover.Decision
		)

		var c *client.Client
		c = client.New(client.Config{
			Addr:          cfg.HostAddr,
			JoinCode:      domain.NormalizeJoinCode(cfg.JoinCode),
			ParticipantID: cfg.ParticipantID,
			Meta: domain.ParticipantMeta{
				Name:        cfg.Name,
				NetworkHint: advertiseAddr,
			},
			ReconnectBaseDelay:   cfg.ReconnectBaseDelay,
			ReconnectMaxAttempts: cfg.ReconnectMaxAttempts,
			OnState: func(state domain.Session) {
				log.Printf("seq %d, %d participants, turn %s", state.Seq, len(state.Participants), state.TurnParticipantID)
			},
			OnStatus: func(status client.Status) {
				log.Printf("connection status: %s", status)
			},
			OnHostLost: func(state domain.Session) (string, bool) {
				decision := failover.Decide(state, c.ParticipantID())
				switch decision.Action {
				case failover.ActionFollow:
					log.Printf("host lost, following successor %s at %s", decision.SuccessorID, decision.Addr)
					return decision.Addr, true
				case failover.ActionPromote:
					log.Printf("host lost, promoting to host at epoch %d", decision.Adopted.Epoch)
					mu.Lock()
					promoted = &decision
					mu.Unlock()
					return "", false
				default:
					log.Printf("host lost and no successor is reachable")
					return "", false
				}
			},
		})

		runErr := c.Run(ctx)

		mu.Lock()
		decision := promoted
		mu.Unlock()
		if decision == nil {
			return runErr
		}
		return serveAsHost(ctx, cfg, *decision)
	})
}

// serveAsHost stands up the authoritative transport with the adopted state.
func serveAsHost(ctx context.Context, cfg Config, decision failover.Decision) error {
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
		if err := store.Save(ctx, decision.Adopted); err != nil {
			log.Printf("failed to persist adopted session: %v", err)
		}
	}

	eng := engine.New(engine.Config{})
	eng.LoadSession(decision.Adopted)

	log.Printf("hosting session %s at epoch %d, join code %s",
		decision.Adopted.ID, decision.Adopted.Epoch, decision.Adopted.JoinCode)

	if err := hostserver.New(eng, store).Run(ctx, cfg.HTTPAddr); err != nil {
		return fmt.Errorf("serve sync after promotion: %w", err)
	}
	return nil
}
