// Package main provides the CLI entrypoint for tuicalc.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/verte-zerg/tuicalc/internal/client"
	"github.com/verte-zerg/tuicalc/internal/config"
	"github.com/verte-zerg/tuicalc/internal/datefmt"
	"github.com/verte-zerg/tuicalc/internal/logging"
	"github.com/verte-zerg/tuicalc/internal/model"
	"github.com/verte-zerg/tuicalc/internal/tui"
)

const (
	defaultServerURL  = "http://localhost:8089/calculator"
	defaultTimeoutSec = 30
)

var (
	serverURL  string
	timeoutSec int
	debugLog   bool

	histOps       string
	histFrom      string
	histTo        string
	histSortBy    string
	histSortOrder string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "tuicalc",
		Short:         "TUI calculator client",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.NoArgs,
		RunE:          runTUICmd,
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL, "calculator server base URL")
	rootCmd.PersistentFlags().IntVar(&timeoutSec, "timeout", defaultTimeoutSec, "request timeout in seconds")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "log request details")

	rootCmd.AddCommand(newEvalCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

// newClient resolves flags against the config file and builds the HTTP
// client plus the shared file logger.
func newClient(cmd *cobra.Command) (*client.Client, *zap.Logger, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "server", &serverURL, fileCfg.Server.BaseURL)
	applyIntConfig(cmd, "timeout", &timeoutSec, fileCfg.Server.TimeoutSeconds)

	if strings.TrimSpace(serverURL) == "" {
		return nil, nil, fmt.Errorf("--server must not be empty")
	}
	if timeoutSec <= 0 {
		return nil, nil, fmt.Errorf("--timeout must be > 0")
	}

	logger := logging.New(config.DefaultLogPath(), debugLog)
	svc := client.New(serverURL, time.Duration(timeoutSec)*time.Second, logger)
	return svc, logger, nil
}

func runTUICmd(cmd *cobra.Command, _ []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("stdout is not a terminal; use the eval and history subcommands for scripting")
	}
	svc, logger, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	program := tea.NewProgram(tui.NewModel(svc, logger), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func newEvalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "eval <expression>",
		Short: "Evaluate an expression and print the stored result",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runEvalCmd,
	}
}

func runEvalCmd(cmd *cobra.Command, args []string) error {
	svc, logger, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx := context.Background()
	expression := strings.TrimSpace(strings.Join(args, " "))
	if expression == "" {
		return fmt.Errorf("expression must not be empty")
	}
	if _, err := svc.Evaluate(ctx, expression); err != nil {
		return err
	}
	latest, err := svc.FetchLatestCalculation(ctx)
	if err != nil {
		return err
	}
	if len(latest.History) == 0 {
		return fmt.Errorf("server stored no calculation")
	}
	rec := latest.History[0]
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s = %s\n", rec.Expression, model.FormatNumber(rec.Result))
	for _, step := range latest.Steps {
		fmt.Fprintf(out, "  %s %s %s = %s\n",
			model.FormatNumber(step.A), step.Operator, model.FormatNumber(step.B), model.FormatNumber(step.Result))
	}
	fmt.Fprintln(out, datefmt.Normalize(rec.Date))
	return nil
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print calculation history",
		Args:  cobra.NoArgs,
		RunE:  runHistoryCmd,
	}
	cmd.Flags().StringVar(&histOps, "ops", "", "operation filter, comma separated (sum,sub,mul,div)")
	cmd.Flags().StringVar(&histFrom, "from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&histTo, "to", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&histSortBy, "sort-by", "", "sort field (date or result)")
	cmd.Flags().StringVar(&histSortOrder, "sort-order", "", "sort direction (asc or desc)")
	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	filter, err := buildHistoryFilter()
	if err != nil {
		return err
	}
	svc, logger, err := newClient(cmd)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	records, err := svc.FetchHistory(context.Background(), filter)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No calculations found.")
		return nil
	}
	for _, rec := range records {
		fmt.Fprintf(out, "%s\t%s = %s\t%s\n",
			rec.CalculationID, rec.Expression, model.FormatNumber(rec.Result), datefmt.Normalize(rec.Date))
	}
	return nil
}

func buildHistoryFilter() (model.HistoryFilter, error) {
	ops, err := model.ParseOperations(histOps)
	if err != nil {
		return model.HistoryFilter{}, err
	}
	from, err := parseDateFlag("from", histFrom)
	if err != nil {
		return model.HistoryFilter{}, err
	}
	to, err := parseDateFlag("to", histTo)
	if err != nil {
		return model.HistoryFilter{}, err
	}
	sortBy, err := model.ParseSortBy(histSortBy)
	if err != nil {
		return model.HistoryFilter{}, err
	}
	sortOrder, err := model.ParseSortOrder(histSortOrder)
	if err != nil {
		return model.HistoryFilter{}, err
	}
	return model.HistoryFilter{
		OperationTypes: ops,
		StartDate:      from,
		EndDate:        to,
		SortBy:         sortBy,
		SortOrder:      sortOrder,
	}, nil
}

func parseDateFlag(name, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s value: %w", name, err)
	}
	return &parsed, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# tuicalc configuration
# Uncomment a value to enable it. CLI flags override config values.

[server]
# base-url = %q
# timeout-seconds = %d
`,
		defaultServerURL,
		defaultTimeoutSec,
	)
}
