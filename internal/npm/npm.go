// Package npm resolves the source repository of npm packages from registry
// metadata.
package npm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/git-pkgs/changelogging/client"
	"github.com/git-pkgs/changelogging/fetch"
	"github.com/git-pkgs/changelogging/internal/core"
)

// DefaultRequestTimeout bounds a single registry lookup.
const DefaultRequestTimeout = 10 * time.Second

// Registry looks up package documents on an npm registry and turns their
// repository field into owner and repository coordinates.
type Registry struct {
	fetcher fetch.FetcherInterface
	urls    client.URLBuilder
	timeout time.Duration
}

// New returns a registry client. A nil urls selects the public registry and
// a non-positive timeout selects DefaultRequestTimeout.
func New(f fetch.FetcherInterface, urls client.URLBuilder, timeout time.Duration) *Registry {
	if urls == nil {
		urls = client.NewNPMURLs("", false)
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Registry{
		fetcher: f,
		urls:    urls,
		timeout: timeout,
	}
}

type packageResponse struct {
	Name       string                 `json:"name"`
	Repository json.RawMessage        `json:"repository"`
	DistTags   map[string]string      `json:"dist-tags"`
	Versions   map[string]versionInfo `json:"versions"`
}

type versionInfo struct {
	Repository json.RawMessage `json:"repository"`
}

// Enrich looks up the repository of pkg. Every failure is logged and turned
// into a record with Exists set to false, so exactly one record comes back
// for every input.
func (r *Registry) Enrich(ctx context.Context, pkg core.PackageUpdate) (enriched core.EnrichedPackage) {
	log := logger.WithField("package", pkg.Name)

	defer func() {
		if p := recover(); p != nil {
			log.Errorf("Repository lookup panicked: %v", p)
			enriched = core.Missing(pkg)
		}
	}()

	info, err := r.FetchRepository(ctx, pkg)
	if err == nil {
		log.WithField("repository", info.URL).Debug("Resolved repository")
		return core.Resolved(pkg, info)
	}

	var statusErr *fetch.StatusError
	switch {
	case errors.As(err, &statusErr):
		log.Errorf("Registry lookup failed with status %d, reason: %s", statusErr.StatusCode, statusErr.Reason())
	case errors.Is(err, ErrNoRepository):
		log.Warn("Package does not declare a public repository")
	default:
		log.Errorf("Failed to resolve repository: %v", err)
	}
	return core.Missing(pkg)
}

// FetchRepository fetches the registry document at pkg.RegistryLink and
// normalises its repository field.
func (r *Registry) FetchRepository(ctx context.Context, pkg core.PackageUpdate) (core.RepositoryInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	doc, err := r.fetcher.Fetch(ctx, pkg.RegistryLink)
	if err != nil {
		return core.RepositoryInfo{}, err
	}
	defer func() { _ = doc.Body.Close() }()

	var resp packageResponse
	if err := json.NewDecoder(doc.Body).Decode(&resp); err != nil {
		return core.RepositoryInfo{}, fmt.Errorf("decoding registry response: %w", err)
	}

	field, err := decodeRepository(repositoryOf(resp))
	if err != nil {
		return core.RepositoryInfo{}, err
	}
	ref, err := field.normalize()
	if err != nil {
		return core.RepositoryInfo{}, err
	}

	info := core.RepositoryInfo{
		Owner: ref.owner,
		Repo:  ref.repo,
		URL:   r.urls.Repository(ref.host, ref.owner, ref.repo),
		Kind:  field.kind(),
	}
	if !info.Valid() {
		return core.RepositoryInfo{}, fmt.Errorf("%w: incomplete repository info", ErrMalformedRepository)
	}
	return info, nil
}

// repositoryOf prefers the top-level field and falls back to the one of the
// latest version.
func repositoryOf(resp packageResponse) json.RawMessage {
	if len(resp.Repository) > 0 && string(resp.Repository) != "null" {
		return resp.Repository
	}
	if latest, ok := resp.DistTags["latest"]; ok {
		return resp.Versions[latest].Repository
	}
	return nil
}
