// Package replay parses replay command flags and plays a journaled session
// back through the reducer at a configurable speed.
package replay

import (
	"context"
	"flag"
	"fmt"
	"log"
	stdsync "sync"

	apperrors "github.com/huverse/AstraLinks-sub001/internal/errors"
	entrypoint "github.com/huverse/AstraLinks-sub001/internal/platform/cmd"
	"github.com/huverse/AstraLinks-sub001/internal/replay"
	"github.com/huverse/AstraLinks-sub001/internal/session"
	"github.com/huverse/AstraLinks-sub001/internal/storage/sqlite"
)

// Config holds replay command configuration.
type Config struct {
	SessionID string  `env:"ASTRALINKS_REPLAY_SESSION"`
	DBPath    string  `env:"ASTRALINKS_REPLAY_DB_PATH" envDefault:"data/journal.db"`
	Speed     float64 `env:"ASTRALINKS_REPLAY_SPEED" envDefault:"1"`
	List      bool
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.SessionID, "session", cfg.SessionID, "The journaled session id to replay")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The journal SQLite database path")
	fs.Float64Var(&cfg.Speed, "speed", cfg.Speed, "Playback speed multiplier (0.5, 1, 1.5, 2 or 4)")
	fs.BoolVar(&cfg.List, "list", cfg.List, "List journaled sessions and exit")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run replays one journaled session to the log, or lists what the journal
// holds.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceReplay, func(ctx context.Context) error {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer store.Close()

		if cfg.List {
			ids, err := store.ListSessionIDs(ctx)
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}
			if len(ids) == 0 {
				log.Printf("replay: journal %s holds no sessions", cfg.DBPath)
				return nil
			}
			for _, id := range ids {
				log.Printf("replay: session %s", id)
			}
			return nil
		}

		if cfg.SessionID == "" {
			return fmt.Errorf("session id is required")
		}
		events, err := store.ListEvents(ctx, cfg.SessionID)
		if err != nil {
			return fmt.Errorf("load journal for %s: %w", cfg.SessionID, err)
		}
		if len(events) == 0 {
			return apperrors.New(apperrors.CodeReplayEmptyLog,
				fmt.Sprintf("session %s has no journaled events", cfg.SessionID))
		}

		var once stdsync.Once
		done := make(chan struct{})
		last := len(events) - 1
		ctrl := replay.New(events, replay.WithStepFunc(func(state session.Session, index int) {
			narrate(state, events[index])
			if index == last {
				once.Do(func() { close(done) })
			}
		}))
		if err := ctrl.SetSpeed(cfg.Speed); err != nil {
			return err
		}

		log.Printf("replay: session %s, %d events over %s at %gx",
			cfg.SessionID, len(events), ctrl.Total(), ctrl.Speed())
		ctrl.Play()
		select {
		case <-ctx.Done():
			ctrl.Pause()
			log.Printf("replay: stopped at event %d/%d (%.0f%%)", ctrl.Index()+1, len(events), ctrl.Progress())
			return nil
		case <-done:
		}

		final := ctrl.State()
		log.Printf("replay: finished, round %d, status %s", final.CurrentRound, final.Status)
		for _, agent := range final.Agents {
			log.Printf("replay: agent %s spoke %d times", agent.ID, agent.SpeakCount)
		}
		return nil
	})
}

func narrate(state session.Session, evt session.WorldEvent) {
	switch evt.Type {
	case session.EventRoundStart:
		log.Printf("replay: round %d", state.CurrentRound)
	case session.EventAgentSpeaking, session.EventAgentSpeak:
		log.Printf("replay: %s speaking", evt.Speaker())
	case session.EventAgentThinking:
		log.Printf("replay: %s thinking", evt.Speaker())
	case session.EventAgentDone, session.EventTurnEnd:
		log.Printf("replay: floor open")
	default:
		log.Printf("replay: %s", evt.Type)
	}
}
