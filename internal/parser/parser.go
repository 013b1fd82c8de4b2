// Package parser turns the grouped text report of npm-check-updates into
// category batches and package records.
//
// The report is a sequence of blank-line separated blocks. The first block is
// the scanner preamble and the last one its footer; every block in between is
// a category header followed by one line per outdated package:
//
//	Checking /app/package.json
//	[====================] 3/3 100%
//
//	Major   Potentially breaking API changes
//	 left-pad  ^1.0.0  →  ^2.0.0
//
//	Run ncu --format group -u to upgrade package.json
//
// Boundary blocks are dropped by position, not by content. A scanner whose
// output has a different number of preamble or footer blocks needs
// LeadingBlocks and TrailingBlocks adjusted, otherwise its first category or
// its footer is misread; the header check turns most such mistakes into
// ErrMalformedReport instead of silently wrong data.
package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/git-pkgs/purl"
	logger "github.com/sirupsen/logrus"

	"github.com/git-pkgs/changelogging/client"
	"github.com/git-pkgs/changelogging/internal/core"
)

const (
	// DefaultLeadingBlocks is the number of preamble blocks npm-check-updates
	// prints before the first category.
	DefaultLeadingBlocks = 1
	// DefaultTrailingBlocks is the number of footer blocks after the last
	// category.
	DefaultTrailingBlocks = 1

	blockSeparator = "\n\n"
	lineColumns    = 4
	rangePrefixes  = "^~=<>"
)

var (
	// A header is the category name followed by a capitalised description.
	// The name ends at the first whitespace run followed by a capital, so
	// "Major version zero   Anything may change" names "Major version zero".
	headerPattern = regexp.MustCompile(`^(\S.*?)\s+([A-Z].*)$`)
	// Words after the first are lower case and separated by single spaces.
	categoryNamePattern = regexp.MustCompile(`^[A-Z][A-Za-z-]*( [a-z][A-Za-z-]*)*$`)
)

// RawBatch is one block of the report between the boundary blocks.
type RawBatch struct {
	Index int // position of the block in the whole report
	Text  string
}

// Batch is a parsed category block.
type Batch struct {
	Category core.Category
	Packages []core.PackageUpdate
	Skipped  []*core.LineError
}

// Parser splits and parses scanner reports.
type Parser struct {
	LeadingBlocks  int
	TrailingBlocks int
	urls           client.URLBuilder
}

// New returns a parser using the default boundary block counts. Registry
// links are built with urls.
func New(urls client.URLBuilder) *Parser {
	if urls == nil {
		urls = client.NewNPMURLs("", false)
	}
	return &Parser{
		LeadingBlocks:  DefaultLeadingBlocks,
		TrailingBlocks: DefaultTrailingBlocks,
		urls:           urls,
	}
}

// Parse splits raw and parses every batch, preserving order.
func (p *Parser) Parse(raw string) ([]Batch, error) {
	raws, err := p.Split(raw)
	if err != nil {
		return nil, err
	}

	batches := make([]Batch, 0, len(raws))
	for _, rb := range raws {
		b, err := p.ParseBatch(rb)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, nil
}

// Split returns the category blocks of raw. It returns core.ErrNoUpdates
// when nothing is left after the boundary blocks are dropped.
func (p *Parser) Split(raw string) ([]RawBatch, error) {
	if p.LeadingBlocks < 0 || p.TrailingBlocks < 0 {
		return nil, errors.New("boundary block counts must not be negative")
	}

	text := ansi.Strip(strings.ReplaceAll(raw, "\r\n", "\n"))
	blocks := strings.Split(text, blockSeparator)
	if p.LeadingBlocks+p.TrailingBlocks >= len(blocks) {
		return nil, core.ErrNoUpdates
	}

	var batches []RawBatch
	for i := p.LeadingBlocks; i < len(blocks)-p.TrailingBlocks; i++ {
		if strings.TrimSpace(blocks[i]) == "" {
			continue
		}
		batches = append(batches, RawBatch{Index: i, Text: blocks[i]})
	}
	if len(batches) == 0 {
		return nil, core.ErrNoUpdates
	}
	return batches, nil
}

// ParseBatch parses a category block. Lines that do not have the package
// line shape are reported in Batch.Skipped and do not fail the batch.
func (p *Parser) ParseBatch(rb RawBatch) (Batch, error) {
	lines := strings.Split(strings.Trim(rb.Text, "\n"), "\n")
	header := strings.TrimSpace(lines[0])

	category, err := ParseHeader(header)
	if err != nil {
		return Batch{}, &core.BatchError{Index: rb.Index, Header: header, Reason: err.Error()}
	}

	batch := Batch{
		Category: category,
		Packages: make([]core.PackageUpdate, 0, len(lines)-1),
	}
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		pkg, lineErr := p.parseLine(category.Name, line)
		if lineErr != nil {
			logger.WithField("category", category.Name).Warn(lineErr.Error())
			batch.Skipped = append(batch.Skipped, lineErr)
			continue
		}
		batch.Packages = append(batch.Packages, pkg)
	}

	if len(batch.Packages) == 0 && len(batch.Skipped) == 0 {
		return Batch{}, &core.BatchError{Index: rb.Index, Header: header, Reason: "no package lines"}
	}
	return batch, nil
}

// ParseHeader splits a header line into the category name and description.
func ParseHeader(header string) (core.Category, error) {
	if header == "" {
		return core.Category{}, errors.New("empty header line")
	}

	name, description := header, ""
	if m := headerPattern.FindStringSubmatch(header); m != nil {
		name, description = m[1], strings.TrimSpace(m[2])
	}
	if !categoryNamePattern.MatchString(name) {
		return core.Category{}, fmt.Errorf("%q is not a category name", name)
	}
	return core.Category{Name: name, Description: description}, nil
}

func (p *Parser) parseLine(category, line string) (core.PackageUpdate, *core.LineError) {
	fail := func(reason string) (core.PackageUpdate, *core.LineError) {
		return core.PackageUpdate{}, &core.LineError{
			Category: category,
			Line:     strings.TrimSpace(line),
			Reason:   reason,
		}
	}

	fields := strings.Fields(line)
	if len(fields) != lineColumns {
		return fail(fmt.Sprintf("expected %d columns, found %d", lineColumns, len(fields)))
	}

	name := fields[0]
	current := NormalizeVersion(fields[1])
	latest := NormalizeVersion(fields[3])
	if current == "" || latest == "" {
		return fail("empty version")
	}
	if _, err := purl.Parse(p.urls.PURL(name, latest)); err != nil {
		return fail(fmt.Sprintf("invalid package name: %v", err))
	}

	return core.PackageUpdate{
		Name:           name,
		CurrentVersion: current,
		LatestVersion:  latest,
		RegistryLink:   p.urls.Registry(name),
	}, nil
}

// NormalizeVersion strips the range operator prefix (^, ~, >=, ...) from v.
// The rest of the range is kept as is.
func NormalizeVersion(v string) string {
	return strings.TrimLeft(v, rangePrefixes)
}
