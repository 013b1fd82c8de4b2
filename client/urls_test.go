package client

import (
	"testing"

	"github.com/git-pkgs/purl"
)

func TestNPMURLs(t *testing.T) {
	urls := NewNPMURLs("", false)
	mirror := NewNPMURLs("https://npm.example.com/", true)

	tests := []struct {
		name     string
		fn       func() string
		expected string
	}{
		{"registry", func() string { return urls.Registry("lodash") }, "https://registry.npmjs.org/lodash"},
		{"scoped registry", func() string { return urls.Registry("@babel/core") }, "https://registry.npmjs.org/@babel/core"},
		{"mirror registry", func() string { return mirror.Registry("lodash") }, "https://npm.example.com/lodash"},
		{"purl", func() string { return urls.PURL("lodash", "4.17.21") }, "pkg:npm/lodash@4.17.21"},
		{"scoped purl", func() string { return urls.PURL("@babel/core", "7.24.0") }, "pkg:npm/@babel/core@7.24.0"},
		{"unversioned purl", func() string { return urls.PURL("lodash", "") }, "pkg:npm/lodash"},
		{"repository", func() string { return urls.Repository("gitlab.com", "foo", "bar") }, "https://gitlab.com/foo/bar"},
		{"repository without host", func() string { return urls.Repository("", "foo", "bar") }, "https://github.com/foo/bar"},
		{"github only repository", func() string { return mirror.Repository("gitlab.com", "foo", "bar") }, "https://github.com/foo/bar"},
		{"base url", mirror.BaseURL, "https://npm.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fn()
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestPURLParses(t *testing.T) {
	urls := NewNPMURLs("", false)

	for _, name := range []string{"lodash", "@babel/core", "@types/node", "left-pad"} {
		t.Run(name, func(t *testing.T) {
			p, err := purl.Parse(urls.PURL(name, "1.0.0"))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if p.Version != "1.0.0" {
				t.Errorf("Version = %q, want %q", p.Version, "1.0.0")
			}
		})
	}
}
