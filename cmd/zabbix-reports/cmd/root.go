// Package cmd contains the CLI commands for zabbix-reports.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/akmatori/zabbix-reports/internal/config"
	"github.com/akmatori/zabbix-reports/internal/database"
	"github.com/akmatori/zabbix-reports/internal/reports"
	"github.com/akmatori/zabbix-reports/internal/settings"
	"github.com/akmatori/zabbix-reports/internal/triggers"
	"github.com/akmatori/zabbix-reports/internal/zabbix"
)

// app holds what every command needs, built once per invocation
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	store   *settings.Store
	verbose bool
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "zabbix-reports",
		Short: "Export Zabbix triggers to spreadsheets",
		Long: `zabbix-reports logs into a Zabbix server, fetches triggers filtered by
group, host and date range, and writes them to an .xlsx file with problem
rows highlighted in red.

Form values are remembered between runs in a local settings file.

Examples:
  # Export the problem triggers of one host changed in January
  zabbix-reports export triggers --host web-01 --errors-only \
    --start-date 2024-01-01 --end-date 2024-01-31

  # Fill the form field by field
  zabbix-reports export triggers --interactive

  # Look up user email addresses
  zabbix-reports emails fetch --user-ids 1,2,3`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newExportCmd(a),
		newEmailsCmd(a),
		newSettingsCmd(a),
		newHistoryCmd(a),
		newInspectCmd(a),
	)
	return root
}

// Execute runs the command line and prints a returned error
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		printError(root.ErrOrStderr(), err)
		return err
	}
	return nil
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	a.cfg = cfg
	a.stdin = cmd.InOrStdin()
	a.stdout = cmd.OutOrStdout()
	a.stderr = cmd.ErrOrStderr()

	a.logger = log.New(io.Discard, "", 0)
	if a.verbose {
		a.logger = log.New(a.stderr, "", log.LstdFlags)
	}

	a.store = settings.NewStore(cfg.SettingsPath, settings.NewSealer(cfg.SettingsPassphrase), a.logger)
	return nil
}

// openHistory connects to the history database and migrates it
func (a *app) openHistory() (*gorm.DB, error) {
	level := logger.Silent
	if a.verbose {
		level = logger.Warn
	}
	db, err := database.Connect(a.cfg.HistoryDatabaseURL, level, a.logger)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		database.Close(db)
		return nil, err
	}
	return db, nil
}

func (a *app) client() *zabbix.Client {
	return zabbix.NewClient(a.cfg.ZabbixConfig(), a.logger)
}

func printInfo(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "Information: "+format+"\n", args...)
}

func printWarning(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "Warning: "+format+"\n", args...)
}

// printError renders err for the operator
func printError(w io.Writer, err error) {
	var (
		verr *reports.ValidationError
		aerr *zabbix.AuthError
		ferr *triggers.FormatError
	)

	switch {
	case errors.As(err, &verr):
		fmt.Fprintf(w, "Warning: %s\n", verr.Message)
	case errors.As(err, &aerr):
		fmt.Fprintf(w, "Error: Error logging in: %v\n", aerr.Err)
	case errors.As(err, &ferr):
		fmt.Fprintf(w, "Error: Invalid date format. Please use YYYY-MM-DD (%s).\n", ferr.Error())
	default:
		fmt.Fprintf(w, "Error: %v\n", err)
	}
}
