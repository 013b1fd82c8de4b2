// Package cmd implements the changelogging command line.
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/git-pkgs/changelogging"
)

// Version is set at build time.
var Version = "dev"

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"input":        "input_path",
	"updates":      "updates_path",
	"output":       "output_path",
	"concurrency":  "concurrency",
	"registry":     "registry_url",
	"github-only":  "github_only",
	"scan-command": "scan_command",
}

// app carries the state shared by the commands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	verbose bool
	cfg     *changelogging.Config
}

// load binds the flags of cmd, reads the configuration and sets up logging.
func (a *app) load(cmd *cobra.Command) error {
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok && bindErr == nil {
			bindErr = a.v.BindPFlag(key, f)
		}
	})
	if bindErr != nil {
		return bindErr
	}

	cfg, err := changelogging.LoadConfig(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	cfg.ConfigureLogging(a.verbose)
	a.cfg = cfg
	return nil
}

// newRootCommand builds a fresh command tree.
func newRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "changelogging",
		Short: "Report outdated npm dependencies with their source repositories",
		Long: `changelogging runs npm-check-updates in grouped mode, parses its report and
looks up the source repository of every outdated package in the npm registry.
The result is written as JSON for the changelog viewer.

Examples:
   changelogging run                      # scan input.json and write data.json
   changelogging scan --input package.json
   changelogging report --concurrency 4   # enrich an existing updates.txt
   changelogging parse                    # print the parsed report, no network`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "Path to config file (default: ./.changelogging.yaml)")
	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newScanCommand(a),
		newReportCommand(a),
		newRunCommand(a),
		newParseCommand(a),
	)
	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return execute(ctx, newRootCommand(), os.Args[1:])
}

func execute(ctx context.Context, root *cobra.Command, args []string) int {
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)

	switch {
	case err == nil:
	case errors.Is(err, changelogging.ErrNoUpdates):
		logger.Info("No updates found, all dependencies are up to date")
	default:
		logger.Errorf("Error executing 'changelogging': %s", err)
	}
	return ExitCode(err)
}
