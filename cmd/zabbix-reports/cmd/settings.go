package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/akmatori/zabbix-reports/internal/settings"
)

func newSettingsCmd(a *app) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or import the remembered form values",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the stored settings, password masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.store.Load()
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(rec.Masked())
			if err != nil {
				return fmt.Errorf("failed to encode settings: %w", err)
			}
			fmt.Fprintf(a.stdout, "# %s\n%s", a.store.Path(), out)
			return nil
		},
	}

	var dryRun bool
	importCmd := &cobra.Command{
		Use:   "import <legacy-file>",
		Short: "Import a settings file of the older text or JSON format",
		Long: `Import settings written by the older tools.

Two formats are detected automatically:
  text  Key=Value lines with URL, User, Password, Group, Host, Start Date, End Date
  JSON  an object with server, user, password, group_id, server_name, due_date,
        start_date, end_date, errors_only, user_ids, fetch_all_attributes

The current settings file is replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := settings.ImportLegacy(args[0])
			if err != nil {
				return err
			}
			if dryRun {
				out, err := yaml.Marshal(rec.Masked())
				if err != nil {
					return err
				}
				fmt.Fprint(a.stdout, string(out))
				return nil
			}
			if err := a.store.Save(rec); err != nil {
				return err
			}
			printInfo(a.stdout, "Imported %s into %s.", args[0], a.store.Path())
			return nil
		},
	}
	importCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the converted settings without saving")

	settingsCmd.AddCommand(showCmd, importCmd)
	return settingsCmd
}
