// browse is the terminal front end: the news and visualization grids with
// live search, the gallery carousel and the detail view, over the same
// data sources as the HTTP api.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/DeafMist/vizdesk/internal/config"
	"github.com/DeafMist/vizdesk/internal/dedupe"
	"github.com/DeafMist/vizdesk/internal/elasticsearch"
	"github.com/DeafMist/vizdesk/internal/gallery"
	"github.com/DeafMist/vizdesk/internal/logger"
	"github.com/DeafMist/vizdesk/internal/platform"
	"github.com/DeafMist/vizdesk/internal/source"
	"github.com/DeafMist/vizdesk/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadBrowser()
	if err != nil {
		return err
	}

	flagSet := pflag.NewFlagSet("browse", pflag.ContinueOnError)
	flagSet.StringVar(&cfg.DataSource, "data", cfg.DataSource, "dataset source: a file path, an http(s) URL or es:<index>")
	flagSet.StringVar(&cfg.FallbackSource, "fallback", cfg.FallbackSource, "source of visualizations when the dataset has none")
	flagSet.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "append log records to this file")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	// The screen belongs to the program; logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file %s: %w", cfg.LogFile, err)
		}
		defer f.Close()
		logOut = f
	}
	log := logger.NewTo("browse", logOut)

	var snap source.Snapshotter
	if usesIndex(cfg.DataSource) || usesIndex(cfg.FallbackSource) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		backoff := elasticsearch.Backoff{Attempts: 3, Initial: time.Second, Max: 5 * time.Second}
		client, err := elasticsearch.Connect(ctx, cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log, backoff)
		if err != nil {
			return err
		}
		snap = client
	}
	primary, err := source.Parse(cfg.DataSource, snap)
	if err != nil {
		return fmt.Errorf("data source: %w", err)
	}
	fallback, err := source.Parse(cfg.FallbackSource, snap)
	if err != nil {
		return fmt.Errorf("fallback source: %w", err)
	}

	// OSC 52 goes straight to the terminal, around the program's renderer.
	var clipboard io.Writer
	if tty, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0); err == nil {
		defer tty.Close()
		clipboard = tty
	}

	prefetcher := gallery.NewHTTPPrefetcher(nil, dedupe.NewCache(256, cfg.PrefetchTTL), log)
	defer prefetcher.Close()

	model := tui.New(tui.Options{
		Primary:    primary,
		Fallback:   fallback,
		Content:    cfg.Content,
		Terminal:   platform.NewTerminal(clipboard, nil),
		Prefetcher: prefetcher,
		Logger:     log,
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = program.Run()
	return err
}

func usesIndex(location string) bool {
	return strings.HasPrefix(strings.TrimSpace(location), "es:")
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `browse - terminal browser for news and visualizations.

Settings come from the environment (DATA_SOURCE, VIZ_FALLBACK_SOURCE,
CONTENT_CONFIG, ...); flags override them.

Usage:
  browse [flags]

Keys:
  j/k      move between cards        /      search
  enter    details                   tab    grids / gallery
  h/l      previous / next slide     1-6    featured slot
  [ ]      scroll the strip          s b w  share / bookmark / download
  esc      back                      q      quit

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
