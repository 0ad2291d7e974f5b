// Command checkin applies decoded QR strings from stdin to a roster.
//
// Each input line is one batch (one camera frame); tokens within a line are
// separated by spaces or tabs. Pipe a decoder into it, for example:
//
//	zbarcam --raw | checkin -roster guests.csv
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rpggio/gatekeeper/internal/app"
	"github.com/rpggio/gatekeeper/internal/config"
	"github.com/rpggio/gatekeeper/internal/domain/ledger"
	"github.com/rpggio/gatekeeper/internal/domain/pipeline"
	"golang.org/x/sync/errgroup"
)

// gate is the part of the check-in service the feed drives.
type gate interface {
	Run(ctx context.Context, batches <-chan []string, emit func([]pipeline.Result, error)) error
	Count() ledger.Count
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	rosterPath := flag.String("roster", cfg.Roster.Path, "roster CSV to load and update")
	flag.Parse()
	if *rosterPath == "" {
		fmt.Fprintln(os.Stderr, "a roster is required: pass -roster or set GATEKEEPER_ROSTER_PATH")
		os.Exit(2)
	}
	cfg.Roster.Path = *rosterPath

	logger, closeLog, err := app.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		// A second signal kills the process; closing stdin unblocks the reader.
		stop()
		os.Stdin.Close()
	}()

	g, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer g.Close()

	count := g.Checkin.Count()
	logger.Info("gate open", "roster", cfg.Roster.Path, "checked_in", count.Consumed, "total", count.Total)

	if err := feed(ctx, os.Stdin, os.Stdout, g.Checkin, logger); err != nil {
		logger.Error("feed stopped", "error", err)
		os.Exit(1)
	}
}

// feed reads batches from r, applies them and writes one line per result
// to w. It returns nil when r is exhausted or ctx is canceled.
func feed(ctx context.Context, r io.Reader, w io.Writer, svc gate, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	eg, ctx := errgroup.WithContext(ctx)

	batches := make(chan []string)

	eg.Go(func() error {
		defer close(batches)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			batch := strings.Fields(scanner.Text())
			if len(batch) == 0 {
				continue
			}
			select {
			case batches <- batch:
			case <-ctx.Done():
				return nil
			}
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			return fmt.Errorf("reading decoder output: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		// Stop the reader once the pipeline is done.
		defer cancel()
		err := svc.Run(ctx, batches, func(results []pipeline.Result, err error) {
			count := svc.Count()
			for _, res := range results {
				name := ""
				if res.Participant != nil {
					name = res.Participant.Name()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\n", res.Outcome, res.Token, name, count.Consumed, count.Total)
			}
			if err != nil && !errors.Is(err, ledger.ErrNotFound) {
				logger.Warn("batch not fully persisted", "error", err)
			}
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	return eg.Wait()
}
