// Package report persists a core.Report as a JSON artifact.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/moby/sys/atomicwriter"

	"github.com/git-pkgs/changelogging/internal/core"
)

const filePerm = 0o644

// Marshal renders r as JSON indented with two spaces and terminated by a
// newline. A nil report renders as an empty array.
func Marshal(r core.Report) ([]byte, error) {
	out := make(core.Report, len(r))
	for i, c := range r {
		if c.Items == nil {
			c.Items = []core.EnrichedPackage{}
		}
		out[i] = c
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	return append(data, '\n'), nil
}

// Write replaces the file at path with the rendered report. The file is
// written to a temporary file in the same directory and renamed into place,
// so readers see either the old or the new report.
func Write(r core.Report, path string) error {
	data, err := Marshal(r)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := atomicwriter.WriteFile(path, data, filePerm); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
