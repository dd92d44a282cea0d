package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/akmatori/zabbix-reports/internal/export"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.xlsx>",
		Short: "Print the rows of an exported spreadsheet",
		Long: `Print every row of the first sheet. Rows with a red fill are marked
with "!".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := export.ReadSpreadsheet(args[0])
			if err != nil {
				return err
			}
			printSnapshot(a.stdout, snap)
			return nil
		},
	}
}

func printSnapshot(w io.Writer, snap *export.Snapshot) {
	fmt.Fprintf(w, "Sheet: %s\n", snap.Sheet)
	for i, row := range snap.Rows {
		marker := " "
		if snap.Highlighted[i+1] {
			marker = "!"
		}
		fmt.Fprintf(w, "%s %s\n", marker, strings.Join(row, " | "))
	}
	printInfo(w, "%d data rows, %d highlighted.", max(len(snap.Rows)-1, 0), len(snap.Highlighted))
}
