package changelogging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git-pkgs/changelogging/client"
)

const grouped = `Checking /app/package.json
[====================] 4/4 100%

Patch   Backwards-compatible bug fixes
 lodash  ^4.17.20  →  ^4.17.21

Minor   Backwards-compatible features
 @babel/core  ^7.23.0  →  ^7.24.0
 left-pad      ^1.0.0  →  ^1.3.0

Major   Potentially breaking API changes
 gone  ^1.0.0  →  ^2.0.0

Run ncu --format group -u to upgrade package.json
`

func testConfig(t *testing.T, registryURL string) *Config {
	t.Helper()
	t.Chdir(t.TempDir())

	v := viper.New()
	v.Set("registry_url", registryURL)
	v.Set("max_retries", 0)
	cfg, err := LoadConfig(v, "")
	require.NoError(t, err)
	return cfg
}

func TestGenerate(t *testing.T) {
	// given
	var authHeaders []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeaders = append(authHeaders, r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/lodash":
			_, _ = w.Write([]byte(`{"repository":{"type":"git","url":"git+https://github.com/lodash/lodash.git"}}`))
		case "/@babel/core":
			_, _ = w.Write([]byte(`{"repository":{"type":"git","url":"https://github.com/babel/babel.git","directory":"packages/babel-core"}}`))
		case "/left-pad":
			_, _ = w.Write([]byte(`{"repository":"stevemao/left-pad"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	cfg.Concurrency = 1
	cfg.RegistryToken = "s3cret"
	require.NoError(t, os.WriteFile(cfg.UpdatesPath, []byte(grouped), 0o644))

	// when
	r, err := Generate(context.Background(), cfg)

	// then
	require.NoError(t, err)
	require.Len(t, r, 3)
	assert.Equal(t, Category{Name: "Minor", Description: "Backwards-compatible features"}, r[1].Category)

	require.Len(t, r[1].Items, 2)
	babel := r[1].Items[0]
	require.True(t, babel.Exists)
	assert.Equal(t, "@babel/core", babel.Name)
	assert.Equal(t, "7.24.0", babel.LatestVersion)
	assert.Equal(t, KindPackage, babel.Kind)
	assert.Equal(t, "https://github.com/babel/babel", babel.URL)

	assert.Equal(t, KindPackage, r[1].Items[1].Kind)
	assert.Equal(t, KindRepository, r[0].Items[0].Kind)
	assert.False(t, r[2].Items[0].Exists)
	assert.Equal(t, 3, r.ResolvedCount())

	assert.FileExists(t, cfg.OutputPath)
	for _, h := range authHeaders {
		assert.Equal(t, "Bearer s3cret", h)
	}
}

func TestGenerateErrors(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")

	_, err := Generate(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrInputMissing)

	require.NoError(t, os.WriteFile(cfg.UpdatesPath, []byte("All dependencies match the latest package versions :)\n"), 0o644))
	_, err = Generate(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrNoUpdates)
}

func TestParse(t *testing.T) {
	cfg := testConfig(t, client.DefaultRegistryURL)

	r, err := Parse(cfg, grouped)

	require.NoError(t, err)
	require.Len(t, r, 3)
	assert.Equal(t, 4, r.PackageCount())
	assert.Equal(t, 0, r.ResolvedCount())
	assert.Equal(t, "https://registry.npmjs.org/@babel/core", r[1].Items[0].RegistryLink)
}

func TestParseBoundaryBlocks(t *testing.T) {
	cfg := testConfig(t, client.DefaultRegistryURL)
	cfg.LeadingBlocks = 0
	cfg.TrailingBlocks = 0

	_, err := Parse(cfg, grouped)

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 0, batchErr.Index)
	assert.ErrorIs(t, err, ErrMalformedReport)
}

func TestRegistryAuth(t *testing.T) {
	urls := client.NewNPMURLs("https://npm.example.com/", false)

	auth := registryAuth(urls, "tok")
	name, value := auth("https://npm.example.com/left-pad")
	assert.Equal(t, "Authorization", name)
	assert.Equal(t, "Bearer tok", value)

	name, value = auth("https://npm.example.com.evil.test/left-pad")
	assert.Empty(t, name+value)

	name, value = registryAuth(urls, "")("https://npm.example.com/left-pad")
	assert.Empty(t, name+value)
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")

	require.NoError(t, WriteReport(Report{}, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(string(data)))
}
