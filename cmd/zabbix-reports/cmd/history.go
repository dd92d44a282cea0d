package cmd

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/akmatori/zabbix-reports/internal/database"
	"github.com/akmatori/zabbix-reports/internal/utils"
)

func newHistoryCmd(a *app) *cobra.Command {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Past export runs",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent export runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openHistory()
			if err != nil {
				return err
			}
			defer database.Close(db)

			runs, err := database.NewHistory(db).ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				printInfo(a.stdout, "No exports recorded yet.")
				return nil
			}
			printRuns(a.stdout, runs, a.cfg.Location)
			return nil
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", database.DefaultHistoryLimit, "number of runs to show")

	showCmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one export run in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openHistory()
			if err != nil {
				return err
			}
			defer database.Close(db)

			run, err := database.NewHistory(db).GetRun(cmd.Context(), strings.TrimSpace(args[0]))
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("no export run with id %s", args[0])
			}
			if err != nil {
				return err
			}
			printRun(a.stdout, run, a.cfg.Location)
			return nil
		},
	}

	historyCmd.AddCommand(listCmd, showCmd)
	return historyCmd
}

func printRuns(w io.Writer, runs []database.ExportRun, loc *time.Location) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tKIND\tSTATUS\tROWS\tPROBLEMS\tSERVER\tFILE")
	for _, r := range runs {
		file := r.OutputPath
		if r.Status == database.RunStatusFailed {
			file = r.Error
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			r.UUID, r.StartedAt.In(loc).Format("2006-01-02 15:04:05"),
			r.Kind, r.Status, r.Exported, r.Problems, r.Server, file)
	}
	tw.Flush()
}

func printRun(w io.Writer, r *database.ExportRun, loc *time.Location) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Run:\t%s\n", r.UUID)
	fmt.Fprintf(tw, "Kind:\t%s\n", r.Kind)
	fmt.Fprintf(tw, "Status:\t%s\n", r.Status)
	fmt.Fprintf(tw, "Server:\t%s\n", r.Server)
	fmt.Fprintf(tw, "User:\t%s\n", r.User)
	fmt.Fprintf(tw, "Started:\t%s\n", r.StartedAt.In(loc).Format("2006-01-02 15:04:05"))
	fmt.Fprintf(tw, "Duration:\t%s\n", utils.FormatDuration(time.Duration(r.DurationMs)*time.Millisecond))
	fmt.Fprintf(tw, "Fetched:\t%d\n", r.Fetched)
	fmt.Fprintf(tw, "Exported:\t%d (%d highlighted)\n", r.Exported, r.Problems)
	fmt.Fprintf(tw, "Skipped:\t%d\n", r.Skipped)
	fmt.Fprintf(tw, "Warnings:\t%d\n", r.Warnings)
	if r.OutputPath != "" {
		fmt.Fprintf(tw, "File:\t%s\n", r.OutputPath)
	}
	if r.Error != "" {
		fmt.Fprintf(tw, "Error:\t%s\n", r.Error)
	}

	keys := make([]string, 0, len(r.Criteria))
	for k := range r.Criteria {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(tw, "  %s:\t%v\n", k, r.Criteria[k])
	}
	tw.Flush()
}
