// Package scanner runs the external dependency update scanner and captures
// its grouped report.
package scanner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/moby/sys/atomicwriter"
	logger "github.com/sirupsen/logrus"
)

// DefaultCommand asks npm-check-updates for its grouped report.
const DefaultCommand = "npx --yes npm-check-updates --format group --packageFile {input}"

// InputPlaceholder is replaced by Options.InputPath in every argument.
const InputPlaceholder = "{input}"

// ErrEmptyCommand is returned when the command line has no program.
var ErrEmptyCommand = errors.New("scan command is empty")

// Options describes one scanner invocation.
type Options struct {
	Command     string // shell-quoted command line
	InputPath   string // manifest handed to the scanner
	UpdatesPath string // where stdout is stored
	Dir         string // working directory, empty for the current one
}

// Args splits the command line and substitutes the input placeholder.
func (o Options) Args() ([]string, error) {
	command := o.Command
	if command == "" {
		command = DefaultCommand
	}

	args, err := shellquote.Split(command)
	if err != nil {
		return nil, fmt.Errorf("parsing scan command: %w", err)
	}
	if len(args) == 0 {
		return nil, ErrEmptyCommand
	}
	for i, arg := range args {
		args[i] = strings.ReplaceAll(arg, InputPlaceholder, o.InputPath)
	}
	return args, nil
}

// Run executes the scanner and writes its standard output to UpdatesPath.
// The previous file is left untouched when the scanner fails.
func Run(ctx context.Context, opts Options) error {
	args, err := opts.Args()
	if err != nil {
		return err
	}
	if strings.Contains(opts.Command, InputPlaceholder) || opts.Command == "" {
		if _, err := os.Stat(opts.InputPath); err != nil {
			return fmt.Errorf("scanner input: %w", err)
		}
	}

	logger.WithField("command", shellquote.Join(args...)).Info("Running update scanner")

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = opts.Dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("scan command failed: %w\nOutput:\n%s", err, strings.TrimSpace(stderr.String()))
	}
	if stderr.Len() > 0 {
		logger.Debugf("Scanner stderr:\n%s", stderr.String())
	}

	if err := os.MkdirAll(filepath.Dir(opts.UpdatesPath), 0o755); err != nil {
		return fmt.Errorf("creating updates directory: %w", err)
	}
	if err := atomicwriter.WriteFile(opts.UpdatesPath, stdout.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", opts.UpdatesPath, err)
	}

	logger.Infof("Wrote scanner report to %s (%d bytes)", opts.UpdatesPath, stdout.Len())
	return nil
}
