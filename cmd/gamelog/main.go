// Command gamelog runs one ingestion step and exits.
//
//	gamelog add --date 2024-06-15 --home BOS --away NYY
//	gamelog enrich [--force]
//	gamelog statcast [--game 745123] [--force | --missing-win-exp]
//	gamelog export [--dir web/public]
//	gamelog integrity [--strict]
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gamelog/ingestion/internal/app"
	"gamelog/ingestion/internal/config"
	"gamelog/ingestion/internal/logger"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

// globalOptions apply to every command
type globalOptions struct {
	Verbose bool `short:"v" long:"verbose" description:"Log at debug level"`
}

var opts globalOptions

func newParser() *flags.Parser {
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.ShortDescription = "Attended game log ingestion"

	parser.AddCommand("add", "Record an attended game",
		"Inserts an attended game by date and matchup. An existing game is left as is.",
		&addCommand{})
	parser.AddCommand("enrich", "Resolve MLB game ids and final scores",
		"Looks up attended games missing an MLB id or score in the StatsAPI schedule.",
		&enrichCommand{})
	parser.AddCommand("statcast", "Fetch and store Statcast events",
		"Fetches pitch-level events for attended games that have none stored yet.",
		&statcastCommand{})
	parser.AddCommand("export", "Write JSON datasets",
		"Writes game list, heartbeat, drama index, WPA leader, sparkline, home run and barrel map files.",
		&exportCommand{})
	parser.AddCommand("integrity", "Check stored data",
		"Reports corrupted duplicate groups, out-of-range WPA and unmatched games.",
		&integrityCommand{})

	return parser
}

func main() {
	parser := newParser()

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) {
			if flagsErr.Type == flags.ErrHelp {
				fmt.Fprintln(os.Stdout, flagsErr.Message)
				os.Exit(0)
			}
			fmt.Fprintln(os.Stderr, flagsErr.Message)
			os.Exit(2)
		}
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// withApp loads configuration, applies adjust when non-nil, builds the
// application and runs fn with a context cancelled on SIGINT or SIGTERM
func withApp(adjust func(cfg *config.Config), fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if adjust != nil {
		adjust(cfg)
	}

	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	logger.Setup(cfg.AppEnv, level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}
