package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	t.Run("missing file keeps defaults", func(t *testing.T) {
		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		want := Config{FeedURL: "http://localhost:8081", InteractionURL: "http://localhost:8082", DataDir: dir}
		if diff := cmp.Diff(want, cfg); diff != "" {
			t.Errorf("LoadConfig() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("file then env", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("feed_url: https://feed.lyt.dev\ninteraction_url: https://api.lyt.dev\nverbose: true\n"), 0o600))
		t.Setenv("LYT_INTERACTION_URL", "http://127.0.0.1:9000")

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		want := Config{FeedURL: "https://feed.lyt.dev", InteractionURL: "http://127.0.0.1:9000", DataDir: dir, Verbose: true}
		if diff := cmp.Diff(want, cfg); diff != "" {
			t.Errorf("LoadConfig() mismatch (-want +got):\n%s", diff)
		}
		require.Equal(t, filepath.Join(dir, "session.json"), cfg.sessionPath())
	})

	t.Run("invalid yaml", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("feed_url: [unclosed\n"), 0o600))
		_, err := LoadConfig(path)
		require.Error(t, err)
	})
}
