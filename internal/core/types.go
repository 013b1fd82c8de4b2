// Package core provides the shared report types and error taxonomy.
package core

// Kind classifies where a package's source lives.
type Kind string

const (
	// KindPackage is a package inside a larger repository (a monorepo
	// subdirectory or an npm shorthand reference).
	KindPackage Kind = "package"
	// KindRepository is a package that owns its repository.
	KindRepository Kind = "repository"
)

// Category is a group header from the scanner output, e.g. "Major" with the
// description "Potentially breaking API changes".
type Category struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// PackageUpdate is one outdated dependency as reported by the scanner.
type PackageUpdate struct {
	Name           string `json:"name"`
	CurrentVersion string `json:"currentVersion"`
	LatestVersion  string `json:"latestVersion"`
	RegistryLink   string `json:"registryLink"`
}

// RepositoryInfo describes the upstream source repository of a package.
type RepositoryInfo struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	URL   string `json:"url"`
	Kind  Kind   `json:"kind"`
}

// Valid reports whether every field is populated.
func (r RepositoryInfo) Valid() bool {
	return r.Owner != "" && r.Repo != "" && r.URL != "" && r.Kind != ""
}

// EnrichedPackage is a PackageUpdate with the registry lookup result merged
// in. Repository is nil unless Exists is true.
type EnrichedPackage struct {
	PackageUpdate
	Exists bool `json:"exists"`
	*RepositoryInfo
}

// Missing returns the record for a package whose repository could not be
// resolved.
func Missing(pkg PackageUpdate) EnrichedPackage {
	return EnrichedPackage{PackageUpdate: pkg}
}

// Resolved returns the record for a package with a known repository.
func Resolved(pkg PackageUpdate, info RepositoryInfo) EnrichedPackage {
	return EnrichedPackage{PackageUpdate: pkg, Exists: true, RepositoryInfo: &info}
}

// CategoryReport holds the enriched items of one category in input order.
type CategoryReport struct {
	Category Category          `json:"category"`
	Items    []EnrichedPackage `json:"items"`
}

// Report is the ordered list of categories, in the order the scanner printed
// them.
type Report []CategoryReport

// PackageCount returns the number of items across all categories.
func (r Report) PackageCount() int {
	n := 0
	for _, c := range r {
		n += len(c.Items)
	}
	return n
}

// ResolvedCount returns the number of items whose repository was found.
func (r Report) ResolvedCount() int {
	n := 0
	for _, c := range r {
		for _, item := range c.Items {
			if item.Exists {
				n++
			}
		}
	}
	return n
}
