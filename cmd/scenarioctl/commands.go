package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/codeready-toolchain/dialogreplay/pkg/client"
	"github.com/codeready-toolchain/dialogreplay/pkg/models"
	"github.com/codeready-toolchain/dialogreplay/pkg/services"
)

// errScenariosFailed makes the process exit non-zero when a waited-for replay failed.
var errScenariosFailed = errors.New("some scenarios failed")

type options struct {
	server     string
	timeout    time.Duration
	outputJSON bool
	out        io.Writer

	newClient func(client.Config) apiClient
}

// apiClient is the subset of the HTTP client the commands use.
type apiClient interface {
	RecordingStatus(ctx context.Context) (*services.RecordingStatus, error)
	StartRecording(ctx context.Context, userID string) error
	StopRecording(ctx context.Context) (*models.Scenario, error)
	SaveScenario(ctx context.Context, name string, sc *models.Scenario) error
	ListScenarios(ctx context.Context) (*models.ScenarioList, error)
	RunScenario(ctx context.Context, name string) error
	RunAll(ctx context.Context) (int, error)
	BuildScenario(ctx context.Context, name string, eventIDs []string) (*models.Scenario, error)
	DeleteScenario(ctx context.Context, name string) error
	DeleteAllScenarios(ctx context.Context) (int, error)
}

func rootCmd() *cobra.Command {
	return newRootCmd(&options{
		out: os.Stdout,
		newClient: func(cfg client.Config) apiClient {
			return client.New(cfg)
		},
	})
}

func newRootCmd(opts *options) *cobra.Command {
	defaults, err := client.LoadConfigFromEnv()
	if err != nil {
		defaults = client.Config{BaseURL: "http://localhost:8080", Timeout: 30 * time.Second}
	}

	cmd := &cobra.Command{
		Use:   "scenarioctl",
		Short: "Record, build and replay dialog scenarios",
		Long: `Record, build and replay dialog scenarios against a dialogreplay server.

Examples:
  scenarioctl record start user-42         # Start recording a user's conversation
  scenarioctl record stop --save greeting  # Stop and save it as "greeting"
  scenarioctl build opening_hours e1 e2    # Build a scenario from logged events
  scenarioctl run-all --wait               # Replay everything, fail on mismatch
  scenarioctl list --json                  # Scenarios with their last status
`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.server, "server", defaults.BaseURL, "dialogreplay server URL (env DIALOGREPLAY_URL)")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", defaults.Timeout, "Per-request timeout (env DIALOGREPLAY_TIMEOUT)")
	cmd.PersistentFlags().BoolVar(&opts.outputJSON, "json", false, "Output results as JSON")

	cmd.AddCommand(
		listCmd(opts),
		runCmd(opts),
		runAllCmd(opts),
		buildCmd(opts),
		deleteCmd(opts),
		deleteAllCmd(opts),
		recordCmd(opts),
		statusCmd(opts),
	)
	return cmd
}

func (o *options) client() apiClient {
	return o.newClient(client.Config{BaseURL: o.server, Timeout: o.timeout})
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func listCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scenarios with their latest replay status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			list, err := opts.client().ListScenarios(ctx)
			if err != nil {
				return err
			}
			if opts.outputJSON {
				return opts.printJSON(list)
			}
			opts.printScenarios(list)
			return nil
		},
	}
}

func runCmd(opts *options) *cobra.Command {
	var wait waitFlags
	cmd := &cobra.Command{
		Use:   "run NAME",
		Short: "Replay one scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			c := opts.client()
			if err := c.RunScenario(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "Started %s\n", args[0])
			if !wait.enabled {
				return nil
			}
			return opts.waitForRuns(ctx, c, wait, args[0])
		},
	}
	wait.register(cmd)
	return cmd
}

func runAllCmd(opts *options) *cobra.Command {
	var wait waitFlags
	cmd := &cobra.Command{
		Use:   "run-all",
		Short: "Replay every stored scenario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			c := opts.client()
			started, err := c.RunAll(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "Started %d scenarios\n", started)
			if !wait.enabled {
				return nil
			}
			return opts.waitForRuns(ctx, c, wait)
		},
	}
	wait.register(cmd)
	return cmd
}

func buildCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "build NAME EVENT_ID...",
		Short: "Build a scenario from logged incoming events",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			sc, err := opts.client().BuildScenario(ctx, args[0], args[1:])
			if err != nil {
				return err
			}
			if opts.outputJSON {
				return opts.printJSON(sc)
			}
			fmt.Fprintf(opts.out, "Built %s with %d steps\n", sc.Name, len(sc.Steps))
			return nil
		},
	}
}

func deleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete one scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			if err := opts.client().DeleteScenario(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "Deleted %s\n", args[0])
			return nil
		},
	}
}

func deleteAllCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-all",
		Short: "Delete every stored scenario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			n, err := opts.client().DeleteAllScenarios(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "Deleted %d scenarios\n", n)
			return nil
		},
	}
}

func recordCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a live conversation as a scenario",
	}

	start := &cobra.Command{
		Use:   "start USER_ID",
		Short: "Start recording the conversation of a chat user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			if err := opts.client().StartRecording(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(opts.out, "Recording %s\n", args[0])
			return nil
		},
	}

	var saveAs string
	stop := &cobra.Command{
		Use:   "stop",
		Short: "Stop recording and print or save the scenario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			c := opts.client()
			sc, err := c.StopRecording(ctx)
			if err != nil {
				return err
			}
			if sc == nil {
				fmt.Fprintln(opts.out, "Nothing recorded yet, recording continues")
				return nil
			}
			if saveAs != "" {
				if err := c.SaveScenario(ctx, saveAs, sc); err != nil {
					return fmt.Errorf("recording stopped but not saved: %w", err)
				}
				fmt.Fprintf(opts.out, "Saved %s with %d steps\n", saveAs, len(sc.Steps))
				return nil
			}
			return opts.printJSON(sc)
		},
	}
	stop.Flags().StringVar(&saveAs, "save", "", "Save the recorded scenario under this name")

	cmd.AddCommand(start, stop)
	return cmd
}

func statusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a recording or a replay is in progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := commandContext(cmd)
			defer cancel()

			status, err := opts.client().RecordingStatus(ctx)
			if err != nil {
				return err
			}
			if opts.outputJSON {
				return opts.printJSON(status)
			}
			fmt.Fprintf(opts.out, "recording: %t\nrunning:   %t\n", status.Recording, status.Running)
			return nil
		},
	}
}

type waitFlags struct {
	enabled  bool
	interval time.Duration
	limit    time.Duration
}

func (w *waitFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&w.enabled, "wait", false, "Wait for the replay to finish and fail on any mismatch")
	cmd.Flags().DurationVar(&w.interval, "poll-interval", time.Second, "How often to poll while waiting")
	cmd.Flags().DurationVar(&w.limit, "wait-timeout", 5*time.Minute, "Give up waiting after this long")
}

// waitForRuns polls the listing until no replay is running, then reports the
// outcome of names, or of every scenario when names is empty.
func (o *options) waitForRuns(ctx context.Context, c apiClient, wait waitFlags, names ...string) error {
	ctx, cancel := context.WithTimeout(ctx, wait.limit)
	defer cancel()

	ticker := time.NewTicker(wait.interval)
	defer ticker.Stop()

	for {
		list, err := c.ListScenarios(ctx)
		if err != nil {
			return err
		}
		if !list.Running {
			return o.report(list, names)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for replay: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (o *options) report(list *models.ScenarioList, names []string) error {
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}

	selected := &models.ScenarioList{QnaPreviews: list.QnaPreviews}
	failed := false
	for _, item := range list.Scenarios {
		if len(wanted) > 0 && !wanted[item.Name] {
			continue
		}
		selected.Scenarios = append(selected.Scenarios, item)
		if item.Status != models.RunStatusPass && item.Status != "" {
			failed = true
		}
	}

	if o.outputJSON {
		if err := o.printJSON(selected); err != nil {
			return err
		}
	} else {
		o.printScenarios(selected)
	}
	if failed {
		return errScenariosFailed
	}
	return nil
}

func (o *options) printScenarios(list *models.ScenarioList) {
	w := tabwriter.NewWriter(o.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTEPS\tSTATUS\tCOMPLETED\tREASON")
	for _, item := range list.Scenarios {
		status := string(item.Status)
		if status == "" {
			status = "-"
		}
		reason := ""
		if item.Mismatch != nil {
			reason = item.Mismatch.Reason
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%s\n", item.Name, len(item.Steps), status, item.CompletedSteps, reason)
	}
	_ = w.Flush()
}

func (o *options) printJSON(v any) error {
	enc := json.NewEncoder(o.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
