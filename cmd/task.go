package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hdntran/meetscribe-cli/client"
	"github.com/hdntran/meetscribe-cli/config"
)

// Task command flags.
var (
	taskListLimit  int
	taskListStatus string
)

// TaskCommandDeps holds the dependencies for task commands.
type TaskCommandDeps struct {
	LoadConfig func() (*config.CLIConfig, error)
	NewClient  ClientFactory
}

// DefaultTaskDeps returns the default dependencies for production use.
func DefaultTaskDeps() *TaskCommandDeps {
	return &TaskCommandDeps{
		LoadConfig: config.LoadConfig,
		NewClient:  client.FromConfig,
	}
}

// NewTaskCommand creates the task command group.
func NewTaskCommand(deps *TaskCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultTaskDeps()
	}

	cmd := &cobra.Command{
		Use:   "task",
		Short: "Inspect transcription tasks",
		Long: `Inspect and manage server-side transcription tasks.

A task moves through queued -> processing -> completed or failed. Completed
tasks carry the full transcription result.

Examples:
  meetscribe task list
  meetscribe task list --status completed --limit 20
  meetscribe task show 4f1c...
  meetscribe task wait 4f1c...
  meetscribe task delete 4f1c...`,
	}

	cmd.AddCommand(newTaskShowCommand(deps))
	cmd.AddCommand(newTaskListCommand(deps))
	cmd.AddCommand(newTaskWaitCommand(deps))
	cmd.AddCommand(newTaskDeleteCommand(deps))

	return cmd
}

func newTaskShowCommand(deps *TaskCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task's status and result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, api, err := taskClient(deps)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
			defer cancel()

			task, err := api.GetTask(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cfg.OutputFormat != config.OutputFormatText {
				return printStructured(out, cfg.OutputFormat, task)
			}

			printTask(out, task)
			if task.Status == client.TaskStatusCompleted && task.Result != nil {
				fmt.Fprintln(out)
				printResult(out, task.Result)
			}
			return nil
		},
	}
}

func newTaskListCommand(deps *TaskCommandDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, api, err := taskClient(deps)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
			defer cancel()

			tasks, err := api.ListTasks(ctx, taskListLimit, taskListStatus)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cfg.OutputFormat != config.OutputFormatText {
				return printStructured(out, cfg.OutputFormat, tasks)
			}

			if len(tasks) == 0 {
				fmt.Fprintln(out, "No tasks found.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTATUS\tFILE\tCREATED")
			for _, task := range tasks {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					task.ID, statusLabel(task.Status), task.FileName, task.CreatedAt)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&taskListLimit, "limit", 10, "Maximum number of tasks")
	cmd.Flags().StringVar(&taskListStatus, "status", "", "Filter by status (queued, processing, completed, failed)")

	return cmd
}

func newTaskWaitCommand(deps *TaskCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "wait <task-id>",
		Short: "Wait for a task to finish",
		Long: `Poll a task until it completes or fails, then print the result.

Polling uses the configured interval (default 2s) and stops on ^C.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, api, err := taskClient(deps)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
			defer cancel()

			task, err := waitAndReport(ctx, cmd, api, args[0], cfg.PollInterval)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if cfg.OutputFormat != config.OutputFormatText {
				return printStructured(out, cfg.OutputFormat, task)
			}

			fmt.Fprintln(out)
			printResult(out, task.Result)
			return nil
		},
	}
}

func newTaskDeleteCommand(deps *TaskCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task record from the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, api, err := taskClient(deps)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
			defer cancel()

			if err := api.DeleteTask(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", args[0])
			return nil
		},
	}
}

// taskClient loads config and builds the API client for task commands.
func taskClient(deps *TaskCommandDeps) (*config.CLIConfig, *client.Client, error) {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}
	api, err := deps.NewClient(cfg, newLogger(cfg))
	if err != nil {
		return nil, nil, err
	}
	return cfg, api, nil
}
