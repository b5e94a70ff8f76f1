package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMustLoad(t *testing.T) {
	t.Run("Given a config file, When it is loaded, Then all fields are populated", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yml")
		contents := "log-level: debug\nhttp-port: \"7070\"\nsocket-port: \"7071\"\nallowed-origins:\n  - https://example.com\n"
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

		conf := MustLoad(path)

		require.Equal(t, "debug", conf.LogLevel)
		require.Equal(t, "7070", conf.HTTPPort)
		require.Equal(t, "7071", conf.SocketPort)
		require.Equal(t, []string{"https://example.com"}, conf.AllowedOrigins)
	})

	t.Run("Given an empty config file, When it is loaded, Then defaults apply", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yml")
		require.NoError(t, os.WriteFile(path, []byte("{}\n"), 0o600))

		conf := MustLoad(path)

		require.Equal(t, "info", conf.LogLevel)
		require.Equal(t, "9090", conf.HTTPPort)
		require.Equal(t, "8080", conf.SocketPort)
		require.Empty(t, conf.AllowedOrigins)
	})

	t.Run("Given a missing config file, When it is loaded, Then it panics", func(t *testing.T) {
		require.Panics(t, func() {
			MustLoad(filepath.Join(t.TempDir(), "nope.yml"))
		})
	})
}
