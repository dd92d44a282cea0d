package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/akmatori/zabbix-reports/internal/reports"
)

func newEmailsCmd(a *app) *cobra.Command {
	emailsCmd := &cobra.Command{
		Use:   "emails",
		Short: "User email lookups",
	}

	f := &form{}
	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Print the email address of each user id",
		Long: `Look up users by id and print their email addresses.

Example:
  zabbix-reports emails fetch --user-ids 1,2,3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.store.Load()
			if err != nil {
				return err
			}
			f.fill(cmd, rec)

			if f.Interactive {
				p := newPrompter(a.stdin, a.stdout)
				if err := p.promptAll(f, "server", "user", "password", "user-ids", "fetch-all-attributes"); err != nil {
					return err
				}
			}

			svc, cleanup := a.service()
			defer cleanup()

			lookup, err := svc.FetchEmails(cmd.Context(), f.request(reports.KindEmails))
			if err != nil {
				return err
			}
			printLookup(a.stdout, lookup)
			return nil
		},
	}
	f.bind(fetchCmd)

	emailsCmd.AddCommand(fetchCmd)
	return emailsCmd
}

func printLookup(w io.Writer, lookup *reports.EmailLookup) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USER ID\tUSERNAME\tEMAIL")
	for _, u := range lookup.Users {
		email := u.Email
		if email == "" {
			email = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", u.ID, u.Username, email)
	}
	tw.Flush()

	for _, warn := range lookup.Warnings {
		printWarning(w, "%s", warn.Message)
	}
}
