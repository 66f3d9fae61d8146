package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"wordxl/internal/config"
	"wordxl/internal/history"
	"wordxl/internal/intake"
	"wordxl/internal/logging"
	"wordxl/internal/notifications"
	"wordxl/internal/preflight"
	"wordxl/internal/runlock"
	"wordxl/internal/session"
	"wordxl/internal/tui"
)

const (
	uiAuto  = "auto"
	uiTUI   = "tui"
	uiPlain = "plain"
	uiJSON  = "json"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var drops []string
	var ui string
	var noHistory bool

	cmd := &cobra.Command{
		Use:   "convert [paths...]",
		Short: "Convert Word documents into one workbook",
		Long: fmt.Sprintf(`Stage Word documents and convert them in one session.

Positional paths behave like the file picker: folders are walked
recursively. --drop paths behave like a drag-and-drop: folders are ignored.
Only %s files are staged; everything else is skipped.`, strings.Join(intake.Extensions(), ", ")),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := resolveUIMode(ui, cmd)
			if err != nil {
				return err
			}
			return runConvert(cmd, ctx, convertOptions{
				picks:     args,
				drops:     drops,
				mode:      mode,
				noHistory: noHistory,
			})
		},
	}

	cmd.Flags().StringArrayVar(&drops, "drop", nil, "Add a dropped path (directories are ignored); repeatable")
	cmd.Flags().StringVar(&ui, "ui", uiAuto, "Progress display: auto, tui, plain, or json")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record the session in history")
	return cmd
}

type convertOptions struct {
	picks     []string
	drops     []string
	mode      string
	noHistory bool
}

func resolveUIMode(value string, cmd *cobra.Command) (string, error) {
	switch mode := strings.ToLower(strings.TrimSpace(value)); mode {
	case uiTUI, uiPlain, uiJSON:
		return mode, nil
	case "", uiAuto:
		if isTerminal(cmd.OutOrStdout()) && isTerminal(os.Stdin) {
			return uiTUI, nil
		}
		return uiPlain, nil
	default:
		return "", fmt.Errorf("invalid --ui value %q (want auto, tui, plain, or json)", value)
	}
}

func runConvert(cmd *cobra.Command, ctx *commandContext, opts convertOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if check := preflight.CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir); !check.Passed {
		return fmt.Errorf("output directory unusable: %s", check.Detail)
	}

	lock, err := runlock.Acquire(cfg.LockPath())
	if err != nil {
		return err
	}
	defer lock.Release()

	if opts.mode == uiTUI {
		if err := ctx.useFileLogger(); err != nil {
			return err
		}
	}
	logger := ctx.loggerValue()

	client, err := ctx.convertClient()
	if err != nil {
		return err
	}
	ctrl := session.New(client,
		session.WithPollInterval(cfg.PollInterval()),
		session.WithLogger(logging.NewComponentLogger(logger, "session")),
	)

	if _, err := ctrl.Pick(opts.picks...); err != nil {
		return err
	}
	if _, err := ctrl.Drop(opts.drops...); err != nil {
		return err
	}
	if ctrl.Snapshot().Summary.Total == 0 {
		return fmt.Errorf("no documents to convert (accepted extensions: %s)", strings.Join(intake.Extensions(), ", "))
	}

	runCtx := cmd.Context()
	if runCtx == nil {
		runCtx = context.Background()
	}
	started := time.Now()

	var final session.Snapshot
	switch opts.mode {
	case uiTUI:
		final, err = runTUI(runCtx, cmd, ctrl)
	default:
		final, err = runStreaming(runCtx, cmd, ctrl, opts.mode)
	}
	if err != nil && !final.Phase.Terminal() && !final.Phase.Active() {
		return err
	}

	if !opts.noHistory {
		recordHistory(ctx, logger, final, started)
	}
	notifyFinished(cfg, logger, final, started)

	out := cmd.OutOrStdout()
	switch {
	case final.Phase == session.PhaseComplete && final.Result != nil:
		if opts.mode != uiJSON {
			fmt.Fprintf(out, "Converted %d file(s) to %s\n", final.Summary.Succeeded, final.Result.DownloadPath())
		}
		return nil
	case final.Phase == session.PhaseFailed:
		return fmt.Errorf("conversion failed: %s", final.Error)
	default:
		return context.Canceled
	}
}

// runStreaming drives the session with a plain or JSON renderer and blocks
// until the task ends.
func runStreaming(ctx context.Context, cmd *cobra.Command, ctrl *session.Controller, mode string) (session.Snapshot, error) {
	out := cmd.OutOrStdout()
	var renderer sessionRenderer
	if mode == uiJSON {
		renderer = newJSONRenderer(out)
	} else {
		renderer = newPlainRenderer(out, isTerminal(out))
	}
	ctrl.Observe(renderer.observe)

	task, err := ctrl.Begin(ctx)
	if err != nil {
		return ctrl.Snapshot(), err
	}
	waitErr := task.Wait()
	final := ctrl.Snapshot()
	renderer.finish(final)
	return final, waitErr
}

// runTUI hands the terminal to the interactive view. Quitting while the
// session is still active cancels it.
func runTUI(ctx context.Context, cmd *cobra.Command, ctrl *session.Controller) (session.Snapshot, error) {
	p := tui.NewProgram(ctx, ctrl,
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
		tea.WithAltScreen(),
	)
	model, runErr := p.Run()

	final := ctrl.Snapshot()
	if final.Phase.Active() {
		task := ctrl.Task()
		ctrl.Reset()
		if task != nil {
			_ = task.Wait()
		}
	} else if task := ctrl.Task(); task != nil {
		_ = task.Wait()
		final = ctrl.Snapshot()
	}

	if m, ok := model.(tui.Model); ok && m.Err() != nil {
		return final, m.Err()
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return final, runErr
	}
	return final, nil
}

func recordHistory(ctx *commandContext, logger *slog.Logger, final session.Snapshot, started time.Time) {
	if final.Phase == session.PhaseIdle && final.JobID == "" && len(final.Files) == 0 {
		return
	}
	entry := history.FromSnapshot(final, started, time.Now())
	err := ctx.withHistory(func(store *history.Store) error {
		_, err := store.Record(context.Background(), entry)
		return err
	})
	if err != nil {
		logging.WarnWithContext(logger, "failed to record session history", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "session missing from wordxl history"),
		)
	}
}

// notifyFinished publishes the outcome when an ntfy topic is configured.
// The command's own context may already be cancelled, so the publish gets a
// fresh one bounded by the client timeout.
func notifyFinished(cfg *config.Config, logger *slog.Logger, final session.Snapshot, started time.Time) {
	if final.Phase == session.PhaseIdle && len(final.Files) == 0 {
		return
	}
	svc := notifications.NewService(cfg)
	if err := svc.NotifySessionFinished(context.Background(), final, time.Since(started)); err != nil {
		logging.WarnWithContext(logger, "failed to send session notification", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.String(logging.FieldImpact, "no push notification for this session"),
		)
	}
}
