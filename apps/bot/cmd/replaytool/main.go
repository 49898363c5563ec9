// Command replaytool replays a recorded tick stream through the decoder,
// the state model and the rule brain, offline. The tape comes from a JSON
// file or straight from a ledger session.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"nerts-lite/apps/bot/internal/config"
	"nerts-lite/apps/bot/internal/ledger"
	"nerts-lite/replay"
)

func main() {
	var (
		tapePath   = flag.String("tape", "", "tape JSON file, - for stdin")
		sessionID  = flag.String("session", "", "ledger session id to replay instead of a file")
		ledgerMode = flag.String("ledger-mode", ledger.ModeSQLite, "ledger backend for -session")
		ledgerDSN  = flag.String("ledger-dsn", os.Getenv("LEDGER_DATABASE_DSN"), "postgres DSN for -session")
		ledgerPath = flag.String("ledger-path", "", "sqlite file for -session")
		seed       = flag.Int64("seed", 0, "override the tape seed")
		dumpTape   = flag.String("dump-tape", "", "write the loaded tape to this file")
		asJSON     = flag.Bool("json", false, "print the result as JSON")
		logLevel   = flag.String("log-level", "warn", "log level")
	)
	flag.Parse()

	logger, err := config.NewLogger(*logLevel, true)
	if err != nil {
		log.Fatalf("[Replay] Failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	tape, err := loadTape(*tapePath, *sessionID, ledger.Options{Mode: *ledgerMode, DSN: *ledgerDSN, LocalPath: *ledgerPath}, logger)
	if err != nil {
		logger.Fatal("load tape", zap.Error(err))
	}
	if *seed != 0 {
		tape.Seed = *seed
	}
	if *dumpTape != "" {
		if err := writeTapeFile(*dumpTape, tape); err != nil {
			logger.Fatal("write tape", zap.Error(err))
		}
	}

	res, runErr := replay.Run(tape, nil)
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(map[string]any{"result": res, "error": runErr})
	} else {
		printResult(os.Stdout, res)
	}
	if runErr != nil {
		logger.Error("replay failed", zap.Error(runErr))
		os.Exit(1)
	}
}

func loadTape(path, sessionID string, opts ledger.Options, logger *zap.Logger) (*replay.Tape, error) {
	switch {
	case sessionID != "":
		svc, mode, err := ledger.NewService(opts, logger)
		if err != nil {
			return nil, err
		}
		defer svc.Close()
		logger.Info("loading session", zap.String("session", sessionID), zap.String("ledger_mode", mode))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return ledger.LoadTape(ctx, svc, sessionID)
	case path == "-":
		return replay.ReadTape(os.Stdin)
	case path != "":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return replay.ReadTape(f)
	default:
		return nil, fmt.Errorf("one of -tape or -session is required")
	}
}

func writeTapeFile(path string, tape *replay.Tape) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := replay.WriteTape(f, tape); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printResult(w io.Writer, res *replay.Result) {
	if res == nil {
		return
	}
	for _, s := range res.Steps {
		if s.Skipped != "" {
			fmt.Fprintf(w, "%6d  skipped %s\n", s.Seq, s.Skipped)
			continue
		}
		line := fmt.Sprintf("%6d  %-6s active=%d center=%d", s.Seq, s.Phase, s.Active, s.Occupied)
		if s.Decision != nil {
			line += fmt.Sprintf("  %s (%s)", s.Decision.Kind, s.Decision.Reason)
			for _, t := range s.Decision.Targets {
				line += fmt.Sprintf(" ->(%d,%d)", t[0], t[1])
			}
		}
		fmt.Fprintln(w, line)
	}
}
