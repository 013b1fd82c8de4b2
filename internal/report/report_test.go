package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git-pkgs/changelogging/internal/core"
)

func sampleReport() core.Report {
	leftPad := core.PackageUpdate{
		Name:           "left-pad",
		CurrentVersion: "1.0.0",
		LatestVersion:  "2.0.0",
		RegistryLink:   "https://registry.npmjs.org/left-pad",
	}
	rightPad := core.PackageUpdate{
		Name:           "right-pad",
		CurrentVersion: "1.1.0",
		LatestVersion:  "1.2.0",
		RegistryLink:   "https://registry.npmjs.org/right-pad",
	}

	return core.Report{
		{
			Category: core.Category{Name: "Major", Description: "Breaking changes"},
			Items: []core.EnrichedPackage{
				core.Resolved(leftPad, core.RepositoryInfo{
					Owner: "foo",
					Repo:  "left-pad",
					URL:   "https://github.com/foo/left-pad",
					Kind:  core.KindRepository,
				}),
				core.Missing(rightPad),
			},
		},
	}
}

func TestMarshal(t *testing.T) {
	// given
	r := sampleReport()

	// when
	data, err := Marshal(r)

	// then
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "}\n]\n"))
	assert.Contains(t, string(data), "\n  {\n    \"category\": {\n      \"name\": \"Major\",")
	assert.JSONEq(t, `[
		{
			"category": {"name": "Major", "description": "Breaking changes"},
			"items": [
				{
					"name": "left-pad",
					"currentVersion": "1.0.0",
					"latestVersion": "2.0.0",
					"registryLink": "https://registry.npmjs.org/left-pad",
					"exists": true,
					"owner": "foo",
					"repo": "left-pad",
					"url": "https://github.com/foo/left-pad",
					"kind": "repository"
				},
				{
					"name": "right-pad",
					"currentVersion": "1.1.0",
					"latestVersion": "1.2.0",
					"registryLink": "https://registry.npmjs.org/right-pad",
					"exists": false
				}
			]
		}
	]`, string(data))
}

func TestMarshalKeyOrder(t *testing.T) {
	data, err := Marshal(sampleReport())
	require.NoError(t, err)

	keys := []string{`"name"`, `"currentVersion"`, `"latestVersion"`, `"registryLink"`, `"exists"`, `"owner"`, `"repo"`, `"url"`, `"kind"`}
	item := string(data)[strings.Index(string(data), `"items"`):]
	last := -1
	for _, k := range keys {
		idx := strings.Index(item, k)
		require.GreaterOrEqual(t, idx, 0, "missing key %s", k)
		assert.Greater(t, idx, last, "key %s out of order", k)
		last = idx
	}
}

func TestMarshalEmptyItems(t *testing.T) {
	r := core.Report{{Category: core.Category{Name: "Patch"}}}

	data, err := Marshal(r)

	require.NoError(t, err)
	assert.Contains(t, string(data), `"items": []`)
	assert.Nil(t, r[0].Items)

	data, err = Marshal(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestWrite(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "nested", "out", "data.json")

	// when
	err := Write(sampleReport(), path)

	// then
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got core.Report
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)
	require.Len(t, got[0].Items, 2)
	assert.Equal(t, "foo", got[0].Items[0].Owner)
	assert.Nil(t, got[0].Items[1].RepositoryInfo)
}

func TestWriteOverwrites(t *testing.T) {
	// given
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 8192)), 0o644))

	// when
	err := Write(core.Report{}, path)

	// then
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
