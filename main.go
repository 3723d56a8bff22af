// Package main provides the meetscribe CLI entry point.
// meetscribe is the command-line interface for the meeting transcription server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hdntran/meetscribe-cli/cmd"
	"github.com/hdntran/meetscribe-cli/config"
	"github.com/hdntran/meetscribe-cli/pkg/buildinfo"
)

// Persistent flag values, merged into cfg before any command runs.
var (
	serverURL    string
	timeout      time.Duration
	pollInterval time.Duration
	outputFormat string
	debug        bool
	insecure     bool

	cfg *config.CLIConfig
)

var rootCmd = &cobra.Command{
	Use:   "meetscribe",
	Short: "Meeting recording and transcription CLI",
	Long: `meetscribe is the command-line interface for the meeting transcription server.

It records or uploads audio, tracks asynchronous transcription tasks, manages
meetings and their calendar, and exports transcripts as text, subtitles, or JSON.

Typical workflows:
  Transcribe a file:  meetscribe transcribe standup.wav
  Record and transcribe:  meetscribe record --duration 30m
  Meeting lifecycle:  meetscribe meeting create ...  →  meetscribe meeting record <id>
                      →  meetscribe meeting transcription <id>
  Summaries:          meetscribe summarize --task <id>
  Past transcripts:   meetscribe history list  →  meetscribe history export <id> --format srt
  Check the server:   meetscribe status

All commands support --output json for machine-readable output. Run
'meetscribe <command> --help' for subcommands, flags, and examples.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// version, help, and completion run without configuration.
		if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		var err error
		cfg, err = config.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		// Flags beat the config file.
		if serverURL != "" {
			cfg.ServerURL = serverURL
		}
		if timeout != 0 {
			cfg.Timeout = timeout
		}
		if pollInterval != 0 {
			cfg.PollInterval = pollInterval
		}
		if outputFormat != "" {
			format := config.OutputFormat(outputFormat)
			if !format.IsValid() {
				return fmt.Errorf("invalid output format: %s (must be text, json, or yaml)", outputFormat)
			}
			cfg.OutputFormat = format
		}
		if debug {
			cfg.Debug = true
		}
		if insecure {
			cfg.Insecure = true
		}

		return nil
	},
}

// activeConfig returns the flag-merged configuration loaded by the root
// command, falling back to a fresh load when a command runs outside it.
func activeConfig() (*config.CLIConfig, error) {
	if cfg != nil {
		return cfg, nil
	}
	return config.LoadConfig()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build time of the meetscribe CLI.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := buildinfo.Get()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "meetscribe version %s\n", info.Version)
		fmt.Fprintf(out, "  commit:     %s\n", info.Commit)
		fmt.Fprintf(out, "  built:      %s\n", info.BuildTime)
		fmt.Fprintf(out, "  go version: %s\n", info.GoVersion)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long:  `View and modify the meetscribe CLI configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the current CLI configuration values.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		current, err := activeConfig()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}

		configPath, _ := config.ConfigPath()

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Current configuration:")
		fmt.Fprintf(out, "  Config file:   %s\n", configPath)
		fmt.Fprintf(out, "  Server URL:    %s\n", current.ServerURL)
		fmt.Fprintf(out, "  Timeout:       %s\n", current.Timeout)
		fmt.Fprintf(out, "  Poll interval: %s\n", current.PollInterval)
		fmt.Fprintf(out, "  Output format: %s\n", current.OutputFormat)
		fmt.Fprintf(out, "  Model size:    %s\n", current.ModelSize)
		fmt.Fprintf(out, "  Language:      %s\n", valueOrDefault(current.Language, "(auto-detect)"))
		fmt.Fprintf(out, "  History path:  %s\n", valueOrDefault(current.HistoryPath, "(default)"))
		fmt.Fprintf(out, "  Debug:         %t\n", current.Debug)
		fmt.Fprintf(out, "  Insecure:      %t\n", current.Insecure)

		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file",
	Long:  `Write a configuration file with default values unless one already exists.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, err := config.ConfigPath()
		if err != nil {
			return fmt.Errorf("getting config path: %w", err)
		}

		out := cmd.OutOrStdout()

		// Never clobber an existing file.
		if _, err := os.Stat(configPath); err == nil {
			fmt.Fprintf(out, "Configuration file already exists: %s\n", configPath)
			fmt.Fprintln(out, "Use 'meetscribe config show' to view current settings.")
			return nil
		}

		defaultCfg := config.DefaultConfig()
		if err := config.SaveConfig(defaultCfg); err != nil {
			return fmt.Errorf("saving configuration: %w", err)
		}

		fmt.Fprintf(out, "Created configuration file: %s\n", configPath)
		fmt.Fprintln(out, "\nDefault settings:")
		fmt.Fprintf(out, "  Server URL:    %s\n", defaultCfg.ServerURL)
		fmt.Fprintf(out, "  Timeout:       %s\n", defaultCfg.Timeout)
		fmt.Fprintf(out, "  Output format: %s\n", defaultCfg.OutputFormat)

		return nil
	},
}

// configSetCmd writes a single key back to the config file.
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the config file.

Available keys:
  server_url     - Transcription server base URL
  timeout        - Request timeout (e.g., 30s, 10m)
  poll_interval  - Delay between task status checks (e.g., 2s)
  output_format  - Default output format (text, json, yaml)
  model_size     - Default transcription model size
  language       - Default language code (empty for auto-detect)
  history_path   - Local history database path (supports ~)
  debug          - Enable debug mode (true/false)
  insecure       - Disable TLS verification (true/false)

Examples:
  meetscribe config set server_url http://transcribe.internal:8000
  meetscribe config set timeout 20m
  meetscribe config set output_format json
  meetscribe config set model_size medium`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConfigSet(cmd, args[0], args[1])
	},
}

func runConfigSet(cmd *cobra.Command, key, value string) error {
	currentCfg, err := config.LoadConfig()
	if err != nil {
		// No config file yet; start from defaults.
		currentCfg = config.DefaultConfig()
	}

	switch key {
	case "server_url":
		currentCfg.ServerURL = value
	case "timeout":
		duration, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid timeout value: %w", err)
		}
		currentCfg.Timeout = duration
	case "poll_interval":
		duration, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid poll_interval value: %w", err)
		}
		currentCfg.PollInterval = duration
	case "output_format":
		format := config.OutputFormat(value)
		if !format.IsValid() {
			return fmt.Errorf("invalid output format: %s (must be text, json, or yaml)", value)
		}
		currentCfg.OutputFormat = format
	case "model_size":
		currentCfg.ModelSize = value
	case "language":
		currentCfg.Language = value
	case "history_path":
		expanded, err := config.ExpandPath(value)
		if err != nil {
			return fmt.Errorf("invalid history path: %w", err)
		}
		// The unexpanded value (with ~) goes to the file; show what it means.
		currentCfg.HistoryPath = value
		fmt.Fprintf(cmd.OutOrStdout(), "  (expands to: %s)\n", expanded)
	case "debug":
		b, err := parseBoolValue(value)
		if err != nil {
			return fmt.Errorf("invalid debug value: %s (must be true or false)", value)
		}
		currentCfg.Debug = b
	case "insecure":
		b, err := parseBoolValue(value)
		if err != nil {
			return fmt.Errorf("invalid insecure value: %s (must be true or false)", value)
		}
		currentCfg.Insecure = b
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	if err := config.SaveConfig(currentCfg); err != nil {
		return fmt.Errorf("saving configuration: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
	return nil
}

func parseBoolValue(value string) (bool, error) {
	switch value {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %s", value)
}

// completionCmd emits a completion script for the requested shell.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for meetscribe.

To load completions:

Bash:
  $ source <(meetscribe completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ meetscribe completion bash > /etc/bash_completion.d/meetscribe
  # macOS:
  $ meetscribe completion bash > $(brew --prefix)/etc/bash_completion.d/meetscribe

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ meetscribe completion zsh > "${fpath[1]}/_meetscribe"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ meetscribe completion fish | source

  # To load completions for each session, execute once:
  $ meetscribe completion fish > ~/.config/fish/completions/meetscribe.fish

PowerShell:
  PS> meetscribe completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> meetscribe completion powershell > meetscribe.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		}
		return nil
	},
}

// valueOrDefault returns the value if non-empty, otherwise the default.
func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func init() {
	// Global flags.
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "transcription server base URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "request timeout (e.g., 30s, 10m)")
	rootCmd.PersistentFlags().DurationVar(&pollInterval, "poll-interval", 0, "delay between task status checks")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "output", "", "output format: text, json, yaml")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&insecure, "insecure", false, "disable TLS verification")

	// Add command groups for organized help output.
	rootCmd.AddGroup(
		&cobra.Group{ID: "transcription", Title: "Transcription:"},
		&cobra.Group{ID: "meetings", Title: "Meetings:"},
		&cobra.Group{ID: "ops", Title: "Operations:"},
		&cobra.Group{ID: "setup", Title: "Setup:"},
	)

	// Transcription
	transcribeDeps := cmd.DefaultTranscribeDeps()
	transcribeDeps.LoadConfig = activeConfig
	transcribeCmd := cmd.NewTranscribeCommand(transcribeDeps)
	transcribeCmd.GroupID = "transcription"
	rootCmd.AddCommand(transcribeCmd)

	recordDeps := cmd.DefaultRecordDeps()
	recordDeps.LoadConfig = activeConfig
	recordCmd := cmd.NewRecordCommand(recordDeps)
	recordCmd.GroupID = "transcription"
	rootCmd.AddCommand(recordCmd)

	taskDeps := cmd.DefaultTaskDeps()
	taskDeps.LoadConfig = activeConfig
	taskCmd := cmd.NewTaskCommand(taskDeps)
	taskCmd.GroupID = "transcription"
	rootCmd.AddCommand(taskCmd)

	summarizeDeps := cmd.DefaultSummarizeDeps()
	summarizeDeps.LoadConfig = activeConfig
	summarizeCmd := cmd.NewSummarizeCommand(summarizeDeps)
	summarizeCmd.GroupID = "transcription"
	rootCmd.AddCommand(summarizeCmd)

	historyDeps := cmd.DefaultHistoryDeps()
	historyDeps.LoadConfig = activeConfig
	historyCmd := cmd.NewHistoryCommand(historyDeps)
	historyCmd.GroupID = "transcription"
	rootCmd.AddCommand(historyCmd)

	// Meetings
	meetingDeps := cmd.DefaultMeetingDeps()
	meetingDeps.LoadConfig = activeConfig
	meetingCmd := cmd.NewMeetingCommand(meetingDeps)
	meetingCmd.GroupID = "meetings"
	rootCmd.AddCommand(meetingCmd)

	calendarDeps := cmd.DefaultCalendarDeps()
	calendarDeps.LoadConfig = activeConfig
	calendarCmd := cmd.NewCalendarCommand(calendarDeps)
	calendarCmd.GroupID = "meetings"
	rootCmd.AddCommand(calendarCmd)

	// Operations
	statusDeps := cmd.DefaultStatusDeps()
	statusDeps.LoadConfig = activeConfig
	statusCmd := cmd.NewStatusCommand(statusDeps)
	statusCmd.GroupID = "ops"
	rootCmd.AddCommand(statusCmd)

	// Setup
	configCmd.GroupID = "setup"
	rootCmd.AddCommand(configCmd)

	cmd.AuthCmd.GroupID = "setup"
	rootCmd.AddCommand(cmd.AuthCmd)

	completionCmd.GroupID = "setup"
	rootCmd.AddCommand(completionCmd)

	versionCmd.GroupID = "setup"
	rootCmd.AddCommand(versionCmd)

	// Config subcommands.
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
}

func main() {
	// Cancel the command context on the first interrupt so recordings stop
	// cleanly and watch loops exit; a second interrupt kills the process.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
