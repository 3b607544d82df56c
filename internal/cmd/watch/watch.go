// Package watch parses watch command flags and runs the live session
// watcher, which follows one session over the sync client and journals
// everything it receives.
package watch

import (
	"context"
	"flag"
	"fmt"
	"log"
	stdsync "sync"

	entrypoint "github.com/huverse/AstraLinks-sub001/internal/platform/cmd"
	"github.com/huverse/AstraLinks-sub001/internal/session"
	"github.com/huverse/AstraLinks-sub001/internal/session/reduce"
	"github.com/huverse/AstraLinks-sub001/internal/storage/sqlite"
	agentsync "github.com/huverse/AstraLinks-sub001/internal/sync"
	"github.com/huverse/AstraLinks-sub001/internal/token"
)

// Config holds watch command configuration.
type Config struct {
	SessionID string `env:"ASTRALINKS_WATCH_SESSION"`
	DBPath    string `env:"ASTRALINKS_WATCH_DB_PATH" envDefault:"data/journal.db"`
	TokenEnv  string `env:"ASTRALINKS_WATCH_TOKEN_ENV" envDefault:"ASTRALINKS_TOKEN"`
	Sync      agentsync.Config
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.SessionID, "session", cfg.SessionID, "The session id to watch")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The journal SQLite database path")
	fs.StringVar(&cfg.TokenEnv, "token-env", cfg.TokenEnv, "The environment variable holding the bearer token")
	fs.StringVar(&cfg.Sync.URL, "url", cfg.Sync.URL, "The simulation server websocket URL")
	fs.DurationVar(&cfg.Sync.CoalesceWindow, "coalesce-window", cfg.Sync.CoalesceWindow, "Event batch coalescing window")
	fs.IntVar(&cfg.Sync.MaxReconnectAttempts, "reconnect-attempts", cfg.Sync.MaxReconnectAttempts, "Reconnect attempts before giving up")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run connects, joins the configured session, and journals it until the
// session ends or the context is cancelled.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceWatch, func(ctx context.Context) error {
		if cfg.SessionID == "" {
			return fmt.Errorf("session id is required")
		}

		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer store.Close()

		recorder := agentsync.NewRecorder(store, log.Default())
		defer recorder.Close()

		client := agentsync.NewClient(cfg.Sync, token.FromEnv(cfg.TokenEnv), log.Default())
		defer client.Disconnect()
		client.Attach(recorder)

		ended := make(chan string, 1)
		view := newSessionView(cfg.SessionID)
		client.Attach(agentsync.ObserverFuncs{
			OnConnectionState: func(state agentsync.ConnState, attempt int) {
				if attempt > 0 {
					log.Printf("watch: %s (attempt %d)", state, attempt)
					return
				}
				log.Printf("watch: %s", state)
			},
			OnEvents:   view.apply,
			OnSnapshot: view.snapshot,
			OnError:    func(err error) { log.Printf("watch: %v", err) },
			OnSessionEnded: func(sessionID, reason string) {
				if sessionID != cfg.SessionID {
					return
				}
				select {
				case ended <- reason:
				default:
				}
			},
		})

		if err := client.Connect(ctx); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		if ack := client.Join(ctx, cfg.SessionID); !ack.Success {
			return fmt.Errorf("join session %s: %s", cfg.SessionID, ack.Error)
		}
		log.Printf("watch: journaling session %s to %s", cfg.SessionID, cfg.DBPath)

		select {
		case <-ctx.Done():
			return nil
		case reason := <-ended:
			log.Printf("watch: session %s ended: %s", cfg.SessionID, reason)
			return nil
		}
	})
}

// sessionView folds incoming batches into a state it can narrate. Callbacks
// arrive from different client goroutines, so it locks.
type sessionView struct {
	mu    stdsync.Mutex
	state session.Session
}

func newSessionView(sessionID string) *sessionView {
	return &sessionView{state: session.Session{ID: sessionID}}
}

func (v *sessionView) apply(events []session.WorldEvent) {
	v.mu.Lock()
	defer v.mu.Unlock()
	before := v.state.CurrentRound
	for _, evt := range events {
		v.state = reduce.Apply(v.state, evt)
	}
	if v.state.CurrentRound != before {
		log.Printf("watch: round %d started", v.state.CurrentRound)
	}
	for _, agent := range v.state.Agents {
		if agent.Status == session.AgentSpeaking {
			log.Printf("watch: %s speaking (turn %d)", agent.ID, agent.SpeakCount)
		}
	}
}

func (v *sessionView) snapshot(snap session.StateSnapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = reduce.ApplySnapshot(v.state, snap)
	log.Printf("watch: resynced session %s at tick %d", snap.SessionID, snap.Tick)
}
