package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/git-pkgs/changelogging"
	"github.com/git-pkgs/changelogging/internal/report"
)

func addInputFlags(cmd *cobra.Command) {
	cmd.Flags().String("input", "input.json", "package.json handed to the scanner")
	cmd.Flags().String("scan-command", "", "Scanner command line, {input} is replaced by --input")
}

func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().String("output", "data.json", "Path of the JSON report")
	cmd.Flags().Int("concurrency", 8, "Registry lookups kept in flight")
	cmd.Flags().String("registry", "", "npm registry base URL")
	cmd.Flags().Bool("github-only", false, "Rewrite every repository URL onto github.com")
}

func addUpdatesFlag(cmd *cobra.Command) {
	cmd.Flags().String("updates", "updates.txt", "Path of the grouped scanner report")
}

func newScanCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run the update scanner and store its grouped report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return changelogging.Scan(cmd.Context(), a.cfg)
		},
	}
	addInputFlags(cmd)
	addUpdatesFlag(cmd)
	return cmd
}

func newReportCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Enrich an existing scanner report and write the JSON dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := changelogging.Generate(cmd.Context(), a.cfg)
			return err
		},
	}
	addUpdatesFlag(cmd)
	addReportFlags(cmd)
	return cmd
}

func newRunCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scan, then build the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := changelogging.Scan(cmd.Context(), a.cfg); err != nil {
				return err
			}
			_, err := changelogging.Generate(cmd.Context(), a.cfg)
			return err
		},
	}
	addInputFlags(cmd)
	addUpdatesFlag(cmd)
	addReportFlags(cmd)
	return cmd
}

func newParseCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Print the categories and packages of a scanner report without registry lookups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := os.ReadFile(a.cfg.UpdatesPath)
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("%w: %s", changelogging.ErrInputMissing, a.cfg.UpdatesPath)
				}
				return err
			}

			r, err := changelogging.Parse(a.cfg, string(raw))
			if err != nil {
				return err
			}
			data, err := report.Marshal(r)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	addUpdatesFlag(cmd)
	return cmd
}
