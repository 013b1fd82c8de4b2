package npm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/git-pkgs/changelogging/internal/core"
)

var (
	// ErrNoRepository is returned when the metadata declares no repository.
	ErrNoRepository = errors.New("package does not declare a repository")
	// ErrMalformedRepository is returned when the repository field cannot be
	// turned into an owner and a repository name.
	ErrMalformedRepository = errors.New("malformed repository field")
)

// shorthandHosts maps npm repository shorthand prefixes to hosts.
var shorthandHosts = map[string]string{
	"github":    "github.com",
	"gitlab":    "gitlab.com",
	"bitbucket": "bitbucket.org",
}

// repositoryField is one accepted shape of the package.json "repository"
// field.
type repositoryField interface {
	kind() core.Kind
	normalize() (repositoryRef, error)
}

// repositoryRef is a repository location. An empty host means the reference
// did not name one.
type repositoryRef struct {
	host  string
	owner string
	repo  string
}

// shorthandRepository is the string form: "owner/repo", "github:owner/repo"
// or a bare URL.
type shorthandRepository string

func (s shorthandRepository) kind() core.Kind {
	return core.KindPackage
}

func (s shorthandRepository) normalize() (repositoryRef, error) {
	return parseReference(string(s))
}

// objectRepository is the object form: {"type": "git", "url": "...",
// "directory": "packages/x"}.
type objectRepository struct {
	Type      string  `json:"type"`
	URL       string  `json:"url"`
	Directory *string `json:"directory"`
}

func (o objectRepository) kind() core.Kind {
	if o.Directory != nil {
		return core.KindPackage
	}
	return core.KindRepository
}

func (o objectRepository) normalize() (repositoryRef, error) {
	if strings.TrimSpace(o.URL) == "" {
		return repositoryRef{}, fmt.Errorf("%w: object has no url", ErrMalformedRepository)
	}
	return parseReference(o.URL)
}

// decodeRepository picks the variant for a raw "repository" value. A list
// is reduced to its first entry, which must be an object.
func decodeRepository(raw json.RawMessage) (repositoryField, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrNoRepository
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRepository, err)
		}
		if strings.TrimSpace(s) == "" {
			return nil, ErrNoRepository
		}
		return shorthandRepository(s), nil
	case '{':
		var o objectRepository
		if err := json.Unmarshal(trimmed, &o); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRepository, err)
		}
		return o, nil
	case '[':
		// Old packages list several repositories; the first one wins.
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRepository, err)
		}
		if len(list) == 0 {
			return nil, ErrNoRepository
		}
		first := bytes.TrimSpace(list[0])
		if len(first) == 0 || first[0] != '{' {
			return nil, fmt.Errorf("%w: repository list entry %.40s is not an object", ErrMalformedRepository, first)
		}
		return decodeRepository(first)
	}
	return nil, fmt.Errorf("%w: unexpected value %.40s", ErrMalformedRepository, trimmed)
}

// parseReference accepts URLs (git+https://host/o/r.git, git://, ssh://),
// scp-like addresses (git@host:o/r.git), host prefixed shorthands
// (github:o/r) and bare paths (o/r, github.com/o/r).
func parseReference(ref string) (repositoryRef, error) {
	v := strings.TrimPrefix(strings.TrimSpace(ref), "git+")

	if strings.Contains(v, "://") {
		u, err := url.Parse(v)
		if err != nil {
			return repositoryRef{}, fmt.Errorf("%w: %v", ErrMalformedRepository, err)
		}
		return splitOwnerRepo(u.Hostname(), u.Path)
	}

	v, _, _ = strings.Cut(v, "#")

	if prefix, rest, ok := strings.Cut(v, ":"); ok {
		if host, known := shorthandHosts[prefix]; known {
			return splitOwnerRepo(host, rest)
		}
		// scp-like syntax: [user@]host:path
		host := prefix
		if i := strings.LastIndex(host, "@"); i >= 0 {
			host = host[i+1:]
		}
		if host == "" || strings.Contains(host, "/") {
			return repositoryRef{}, fmt.Errorf("%w: %q", ErrMalformedRepository, ref)
		}
		return splitOwnerRepo(host, rest)
	}

	if first, rest, ok := strings.Cut(v, "/"); ok && strings.Contains(first, ".") && strings.Contains(rest, "/") {
		return splitOwnerRepo(first, rest)
	}
	return splitOwnerRepo("", v)
}

// splitOwnerRepo takes the last two segments of path as owner and repo.
func splitOwnerRepo(host, path string) (repositoryRef, error) {
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) < 2 {
		return repositoryRef{}, fmt.Errorf("%w: %q has no owner/repo path", ErrMalformedRepository, path)
	}

	owner := segments[len(segments)-2]
	repo := strings.TrimSuffix(segments[len(segments)-1], ".git")
	if owner == "" || repo == "" {
		return repositoryRef{}, fmt.Errorf("%w: %q has no owner/repo path", ErrMalformedRepository, path)
	}
	return repositoryRef{host: host, owner: owner, repo: repo}, nil
}
