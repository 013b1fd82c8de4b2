// Package changelogging turns the grouped report of npm-check-updates into a
// JSON dataset of outdated packages and their source repositories.
//
// Basic usage:
//
//	cfg, err := changelogging.LoadConfig(viper.New(), "")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := changelogging.Scan(ctx, cfg); err != nil {
//		log.Fatal(err)
//	}
//	report, err := changelogging.Generate(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(report.PackageCount(), "outdated packages")
//
// Generate reads the scanner output at cfg.UpdatesPath, looks up every
// package in the registry with bounded concurrency and writes the report to
// cfg.OutputPath. Registry failures only affect the package concerned, which
// is reported with Exists set to false.
package changelogging

import (
	"context"
	"strings"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/git-pkgs/changelogging/client"
	"github.com/git-pkgs/changelogging/fetch"
	"github.com/git-pkgs/changelogging/internal/config"
	"github.com/git-pkgs/changelogging/internal/core"
	"github.com/git-pkgs/changelogging/internal/npm"
	"github.com/git-pkgs/changelogging/internal/parser"
	"github.com/git-pkgs/changelogging/internal/pipeline"
	"github.com/git-pkgs/changelogging/internal/report"
	"github.com/git-pkgs/changelogging/internal/scanner"
)

// Re-export types from internal/core
type (
	Kind            = core.Kind
	Category        = core.Category
	PackageUpdate   = core.PackageUpdate
	RepositoryInfo  = core.RepositoryInfo
	EnrichedPackage = core.EnrichedPackage
	CategoryReport  = core.CategoryReport
	Report          = core.Report

	// LineError describes a scanner line that was skipped.
	LineError = core.LineError
	// BatchError describes a category block that could not be parsed.
	BatchError = core.BatchError
)

// Config is the validated run configuration.
type Config = config.Config

const (
	KindPackage    = core.KindPackage
	KindRepository = core.KindRepository
)

// Re-export errors
var (
	ErrNoUpdates       = core.ErrNoUpdates
	ErrMalformedReport = core.ErrMalformedReport
	ErrInputMissing    = core.ErrInputMissing
	ErrInvalidConfig   = config.ErrInvalid
)

// LoadConfig reads defaults, the config file, .env and the environment into
// v. See config.Load.
func LoadConfig(v *viper.Viper, cfgFile string) (*Config, error) {
	return config.Load(v, cfgFile)
}

// Parse splits raw scanner output into categories without touching the
// network. Every item has Exists set to false.
func Parse(cfg *Config, raw string) (Report, error) {
	p := newParser(cfg)
	batches, err := p.Parse(raw)
	if err != nil {
		return nil, err
	}

	r := make(Report, len(batches))
	for i, b := range batches {
		items := make([]EnrichedPackage, len(b.Packages))
		for j, pkg := range b.Packages {
			items[j] = core.Missing(pkg)
		}
		r[i] = CategoryReport{Category: b.Category, Items: items}
	}
	return r, nil
}

// Generate runs the pipeline described by cfg and writes the report.
func Generate(ctx context.Context, cfg *Config) (Report, error) {
	urls := urlsFor(cfg)
	f := fetch.NewFetcher(
		fetch.WithMaxRetries(cfg.MaxRetries),
		fetch.WithBaseDelay(cfg.RetryDelay()),
		fetch.WithAuthFunc(registryAuth(urls, cfg.RegistryToken)),
	)
	defer f.Close()

	breaker := fetch.NewCircuitBreakerFetcher(f, cfg.BreakerThreshold)
	registry := npm.New(breaker, urls, cfg.RequestTimeout())

	p := pipeline.New(pipeline.Options{
		Concurrency: cfg.Concurrency,
		UpdatesPath: cfg.UpdatesPath,
		OutputPath:  cfg.OutputPath,
	}, newParser(cfg), registry)

	r, err := p.Execute(ctx)
	for host, state := range breaker.BreakerStates() {
		logger.WithField("registry", host).Debugf("Circuit breaker %s", state)
	}
	return r, err
}

// Scan runs the configured scan command against cfg.InputPath and stores its
// output at cfg.UpdatesPath.
func Scan(ctx context.Context, cfg *Config) error {
	return scanner.Run(ctx, scanner.Options{
		Command:     cfg.ScanCommand,
		InputPath:   cfg.InputPath,
		UpdatesPath: cfg.UpdatesPath,
	})
}

// WriteReport writes r to path as indented JSON, replacing the file
// atomically.
func WriteReport(r Report, path string) error {
	return report.Write(r, path)
}

func urlsFor(cfg *Config) *client.NPMURLs {
	return client.NewNPMURLs(cfg.RegistryURL, cfg.GitHubOnly)
}

// registryAuth sends token as a bearer token to the configured registry only.
func registryAuth(urls *client.NPMURLs, token string) func(string) (string, string) {
	prefix := urls.BaseURL() + "/"
	return func(u string) (string, string) {
		if token == "" || !strings.HasPrefix(u, prefix) {
			return "", ""
		}
		return "Authorization", "Bearer " + token
	}
}

func newParser(cfg *Config) *parser.Parser {
	p := parser.New(urlsFor(cfg))
	p.LeadingBlocks = cfg.LeadingBlocks
	p.TrailingBlocks = cfg.TrailingBlocks
	return p
}
