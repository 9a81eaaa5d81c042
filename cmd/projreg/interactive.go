package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/projreg/internal/tui"
)

// runInteractive opens the registry and runs the prompt until the user quits.
// The prompt owns the terminal, so logs only go to the configured file.
func runInteractive(cmd *cobra.Command, opts *globalOptions) (err error) {
	ctx := cmd.Context()

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, nil, true)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		_ = logger.Close()
		return err
	}
	defer a.close(ctx, &err)

	p := tea.NewProgram(tui.New(ctx, a.svc),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	return nil
}
