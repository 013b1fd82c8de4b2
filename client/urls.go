// Package client builds the URLs attached to report items.
package client

import (
	"fmt"
	"strings"
)

const (
	// DefaultRegistryURL is the public npm registry.
	DefaultRegistryURL = "https://registry.npmjs.org"
	// DefaultHost is assumed for repository references that carry no host.
	DefaultHost = "github.com"
)

// URLBuilder constructs URLs for a registry.
type URLBuilder interface {
	Registry(name string) string
	PURL(name, version string) string
	Repository(host, owner, repo string) string
}

// NPMURLs is the URLBuilder for npm-compatible registries.
type NPMURLs struct {
	baseURL    string
	githubOnly bool
}

// NewNPMURLs returns a builder for the registry at baseURL. An empty baseURL
// selects DefaultRegistryURL. With githubOnly set, every repository URL is
// rewritten onto DefaultHost regardless of where it is hosted.
func NewNPMURLs(baseURL string, githubOnly bool) *NPMURLs {
	if baseURL == "" {
		baseURL = DefaultRegistryURL
	}
	return &NPMURLs{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		githubOnly: githubOnly,
	}
}

// BaseURL returns the registry root without a trailing slash.
func (u *NPMURLs) BaseURL() string {
	return u.baseURL
}

// Registry returns the metadata document URL for a package. Scoped names
// keep their slash; the npm registry accepts both forms.
func (u *NPMURLs) Registry(name string) string {
	return fmt.Sprintf("%s/%s", u.baseURL, name)
}

// PURL returns the package URL, e.g. pkg:npm/@babel/core@7.24.0.
func (u *NPMURLs) PURL(name, version string) string {
	namespace := ""
	pkgName := name
	if strings.HasPrefix(name, "@") && strings.Contains(name, "/") {
		parts := strings.SplitN(name, "/", 2)
		namespace = parts[0]
		pkgName = parts[1]
	}

	base := "pkg:npm/" + pkgName
	if namespace != "" {
		base = fmt.Sprintf("pkg:npm/%s/%s", namespace, pkgName)
	}
	if version != "" {
		return base + "@" + version
	}
	return base
}

// Repository returns the canonical browse URL of a repository.
func (u *NPMURLs) Repository(host, owner, repo string) string {
	if host == "" || u.githubOnly {
		host = DefaultHost
	}
	return fmt.Sprintf("https://%s/%s/%s", host, owner, repo)
}
