package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/akmatori/zabbix-reports/internal/database"
	"github.com/akmatori/zabbix-reports/internal/notify"
	"github.com/akmatori/zabbix-reports/internal/reports"
	"github.com/akmatori/zabbix-reports/internal/utils"
)

func newExportCmd(a *app) *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export triggers to an .xlsx file",
		Long: `Fetch triggers from Zabbix and write them to a spreadsheet.

Unset flags default to the values of the previous successful run. A due date
takes precedence over the start and end dates: every trigger changed up to
the end of the due day is exported.

Report kinds:
  triggers  Description, Last Change, Priority, Value, Hosts
  emails    Trigger ID, Description, Value, User Email`,
	}

	exportCmd.AddCommand(
		newExportKindCmd(a, reports.KindTriggers, "Export triggers with priority and hosts"),
		newExportKindCmd(a, reports.KindEmails, "Export triggers with the email of their assigned user"),
	)
	return exportCmd
}

func newExportKindCmd(a *app, kind reports.Kind, short string) *cobra.Command {
	f := &form{}

	c := &cobra.Command{
		Use:   string(kind),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.store.Load()
			if err != nil {
				return err
			}
			f.fill(cmd, rec)

			if f.Interactive {
				if err := newPrompter(a.stdin, a.stdout).promptAll(f); err != nil {
					return err
				}
			}

			return a.runExport(cmd.Context(), f.request(kind))
		},
	}

	f.bind(c)
	c.Flags().StringVarP(&f.Output, "output", "o", "", "output file, overwritten if it exists (default: generated name)")
	return c
}

// service wires the pipeline. History is optional, a broken database only
// costs the ledger entry.
func (a *app) service() (*reports.Service, func()) {
	opts := reports.Options{
		Settings: a.store,
		Location: a.cfg.Location,
		Logger:   a.logger,
	}
	if a.verbose {
		opts.Observer = func(p reports.Phase) {
			fmt.Fprintf(a.stderr, "... %s\n", p)
		}
	}

	cleanup := func() {}
	if db, err := a.openHistory(); err != nil {
		printWarning(a.stderr, "export history disabled: %v", err)
	} else {
		opts.History = database.NewHistory(db)
		cleanup = func() { database.Close(db) }
	}

	if n := notify.NewSlackNotifier(notify.Config{
		BotToken: a.cfg.SlackBotToken,
		Channel:  a.cfg.SlackChannel,
		ProxyURL: a.cfg.ProxyURL,
	}, a.logger); n != nil {
		opts.Notifier = n
	}

	return reports.NewService(a.client(), opts), cleanup
}

func (a *app) runExport(ctx context.Context, req reports.Request) error {
	svc, cleanup := a.service()
	defer cleanup()

	result, err := svc.Export(ctx, req)
	if err != nil {
		return err
	}

	printResult(a.stdout, result)
	return nil
}

func printResult(w io.Writer, r *reports.Result) {
	for _, warn := range r.Warnings {
		if warn.Kind == reports.WarningNoTriggers {
			continue
		}
		printWarning(w, "%s", warn.Message)
	}

	if r.OutputPath == "" {
		printInfo(w, "No triggers found matching the criteria.")
		return
	}
	printInfo(w, "Data saved to Excel file %s (%s, %s highlighted, %s).",
		r.OutputPath,
		utils.Plural(r.Exported, "row"),
		utils.FormatNumber(r.Problems),
		utils.FormatDuration(r.Duration),
	)
}
