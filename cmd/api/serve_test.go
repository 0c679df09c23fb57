package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docviewer/docs"
	"docviewer/internal/config"
)

func configWithStore(backend, root string) *config.AppConfig {
	return &config.AppConfig{Store: config.StoreConfig{Backend: backend, Root: root}}
}

func TestNewDocumentStore(t *testing.T) {
	dir := t.TempDir()

	t.Run("filesystem", func(t *testing.T) {
		cfg := configWithStore("fs", dir)
		store, err := newDocumentStore(cfg)
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := newDocumentStore(configWithStore("ftp", dir))
		assert.Error(t, err)
	})

	t.Run("minio without endpoint", func(t *testing.T) {
		_, err := newDocumentStore(configWithStore("minio", dir))
		assert.Error(t, err)
	})
}

func TestRegisterSwagger_HostFixedAtStartup(t *testing.T) {
	app := fiber.New()
	registerSwagger(app, &config.AppConfig{AppHost: "docs.example:8888"})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil)
			req.Host = "attacker.example"
			req.Header.Set("X-Forwarded-Proto", "https")
			resp, err := app.Test(req)
			if assert.NoError(t, err) {
				assert.Equal(t, http.StatusOK, resp.StatusCode)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, "docs.example:8888", docs.SwaggerInfo.Host)
	assert.Empty(t, docs.SwaggerInfo.Schemes)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var doc struct {
		Host string `json:"host"`
	}
	require.NoError(t, json.Unmarshal(b, &doc))
	assert.Equal(t, "docs.example:8888", doc.Host)
}

func TestRootCommandRunsServe(t *testing.T) {
	cmd, args, err := rootCmd.Find([]string{})
	require.NoError(t, err)
	assert.Empty(t, args)
	assert.Same(t, rootCmd, cmd)
	assert.NotNil(t, rootCmd.RunE)
	assert.True(t, rootCmd.Runnable())
}
