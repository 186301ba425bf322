// Command viva runs a voice viva examination in the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	orchestration "github.com/koscakluka/viva-core/core"
	"github.com/koscakluka/viva-core/core/backend"
	"github.com/koscakluka/viva-core/core/live"
	"github.com/koscakluka/viva-core/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "viva:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	parseFlags(cfg, os.Args[1:])
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.ValidateStudent(); err != nil {
		return err
	}

	api := backend.NewClient(cfg.BackendURL, backend.WithTokenProvider(backend.StaticToken(cfg.BackendToken)))
	if err := checkBackend(context.Background(), api); err != nil {
		return err
	}

	devices, err := openDevices(cfg.AudioBackend)
	if err != nil {
		return err
	}
	defer devices.Close()

	session := orchestration.NewSession(api, devices.input, devices.output,
		orchestration.WithLiveClientFactory(orchestration.NewLiveClientFactory(live.WithTransport(transportFor(cfg.Transport)))),
		orchestration.WithTurnDebounce(cfg.TurnDebounce),
		orchestration.WithFrameDuration(cfg.FrameSize),
	)
	defer session.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed, unsubscribe := newSnapshotFeed(session.Store())
	defer unsubscribe()

	params := orchestration.StartParams{
		StudentName:    cfg.StudentName,
		Topic:          cfg.Topic,
		ClassLevel:     cfg.ClassLevel,
		VoiceName:      cfg.VoiceName,
		EnableThinking: cfg.EnableThinking,
		ThinkingBudget: cfg.ThinkingBudget,
	}
	m := newModel(session, feed, func() error { return session.Start(ctx, params) }, cfg.StudentName, cfg.Topic)

	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("failed to run terminal UI: %w", err)
	}

	if result := final.(model).snapshot.Conclusion; result != nil {
		fmt.Println(renderConclusion(*result, 80))
	}
	return nil
}

// parseFlags overrides the environment configuration with command line
// flags.
func parseFlags(cfg *config.Config, args []string) {
	flags := flag.NewFlagSet("viva", flag.ExitOnError)
	flags.StringVar(&cfg.StudentName, "name", cfg.StudentName, "student name")
	flags.StringVar(&cfg.Topic, "topic", cfg.Topic, "examination topic")
	flags.IntVar(&cfg.ClassLevel, "class", cfg.ClassLevel, "class level (1-12)")
	flags.StringVar(&cfg.VoiceName, "voice", cfg.VoiceName, "examiner voice")
	flags.BoolVar(&cfg.EnableThinking, "thinking", cfg.EnableThinking, "let the examiner think before answering")
	flags.IntVar(&cfg.ThinkingBudget, "thinking-budget", cfg.ThinkingBudget, "thinking token budget (0-8192)")
	_ = flags.Parse(args)
}
