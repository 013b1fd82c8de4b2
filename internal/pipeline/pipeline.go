// Package pipeline sequences parsing, enrichment and serialization of an
// update report.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	logger "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/git-pkgs/changelogging/internal/core"
	"github.com/git-pkgs/changelogging/internal/parser"
	"github.com/git-pkgs/changelogging/internal/report"
)

// DefaultConcurrency is the number of registry lookups kept in flight.
const DefaultConcurrency = 8

// Enricher resolves the repository of a single package. Implementations
// must return exactly one record per call and absorb their own failures.
type Enricher interface {
	Enrich(ctx context.Context, pkg core.PackageUpdate) core.EnrichedPackage
}

// EnricherFunc adapts a function to the Enricher interface.
type EnricherFunc func(ctx context.Context, pkg core.PackageUpdate) core.EnrichedPackage

func (f EnricherFunc) Enrich(ctx context.Context, pkg core.PackageUpdate) core.EnrichedPackage {
	return f(ctx, pkg)
}

// Options holds the paths and limits of a run.
type Options struct {
	Concurrency int
	UpdatesPath string
	OutputPath  string
}

// Pipeline parses a scanner report and enriches every package it lists,
// keeping the report's category and package order.
type Pipeline struct {
	opts     Options
	parser   *parser.Parser
	enricher Enricher
}

// New returns a pipeline. A nil parser selects parser.New(nil) and a
// concurrency below 1 selects DefaultConcurrency. The enricher is required;
// New panics when it is nil.
func New(opts Options, p *parser.Parser, e Enricher) *Pipeline {
	if e == nil {
		panic("pipeline: nil Enricher")
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	if p == nil {
		p = parser.New(nil)
	}
	return &Pipeline{opts: opts, parser: p, enricher: e}
}

// Run parses raw and enriches every package. Parse failures are returned as
// is; enrichment failures are already folded into the records. Categories
// and items keep the order of raw regardless of completion order.
func (p *Pipeline) Run(ctx context.Context, raw string) (core.Report, error) {
	batches, err := p.parser.Parse(raw)
	if err != nil {
		return nil, err
	}

	results := make(core.Report, len(batches))
	for b, batch := range batches {
		results[b] = core.CategoryReport{
			Category: batch.Category,
			Items:    make([]core.EnrichedPackage, len(batch.Packages)),
		}
	}

	var g errgroup.Group
	g.SetLimit(p.opts.Concurrency)
	for b, batch := range batches {
		for i, pkg := range batch.Packages {
			g.Go(func() error {
				results[b].Items[i] = p.enricher.Enrich(ctx, pkg)
				return nil
			})
		}
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Execute reads the scanner output at UpdatesPath, runs the pipeline and
// writes the report to OutputPath.
func (p *Pipeline) Execute(ctx context.Context) (core.Report, error) {
	data, err := os.ReadFile(p.opts.UpdatesPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", core.ErrInputMissing, p.opts.UpdatesPath)
		}
		return nil, fmt.Errorf("reading %s: %w", p.opts.UpdatesPath, err)
	}

	start := time.Now()
	r, err := p.Run(ctx, string(data))
	if err != nil {
		return nil, err
	}

	if err := report.Write(r, p.opts.OutputPath); err != nil {
		return nil, err
	}

	logger.WithFields(logger.Fields{
		"categories": len(r),
		"packages":   r.PackageCount(),
		"resolved":   r.ResolvedCount(),
		"elapsed":    time.Since(start).Round(time.Millisecond),
	}).Infof("Wrote %s", p.opts.OutputPath)
	return r, nil
}
