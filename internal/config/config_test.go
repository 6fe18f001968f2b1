package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wagiedev/vim-channel-go/internal/errors"
	"github.com/wagiedev/vim-channel-go/internal/indexer"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "vimchannel.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want File
	}{
		{
			name: "empty keeps defaults",
			body: "",
			want: DefaultFile(),
		},
		{
			name: "all keys",
			body: `
listen = "0.0.0.0:9000"
log_level = "debug"
request_timeout = "2s"
modulus = 65536
`,
			want: File{
				Listen:         "0.0.0.0:9000",
				LogLevel:       slog.LevelDebug,
				RequestTimeout: 2 * time.Second,
				Modulus:        65536,
			},
		},
		{
			name: "blank listen keeps default",
			body: `listen = "  "`,
			want: DefaultFile(),
		},
		{
			name: "zero timeout disables it",
			body: `request_timeout = "0s"`,
			want: File{Listen: DefaultListen, LogLevel: slog.LevelInfo},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := Load(writeConfig(t, tc.body))
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "bad level", body: `log_level = "loud"`, want: "log_level"},
		{name: "bad timeout", body: `request_timeout = "soon"`, want: "request_timeout"},
		{name: "negative timeout", body: `request_timeout = "-1s"`, want: "negative"},
		{name: "negative modulus", body: `modulus = -2`, want: "modulus"},
		{name: "modulus one", body: `modulus = 1`, want: "modulus"},
		{name: "unknown key", body: `listne = "x"`, want: "unknown key"},
		{name: "not toml", body: `listen = `, want: "load config"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := Load(writeConfig(t, tc.body))
			require.ErrorContains(t, err, tc.want)
		})
	}

	_, err := Load(writeConfig(t, `modulus = 1`))
	require.ErrorIs(t, err, errors.ErrInvalidModulus)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}

func TestGetRequestTimeout(t *testing.T) {
	t.Setenv(RequestTimeoutEnv, "")

	var nilOpts *Options
	require.Zero(t, nilOpts.GetRequestTimeout())
	require.Zero(t, Default().GetRequestTimeout())

	opts := &Options{RequestTimeout: time.Second}
	require.Equal(t, time.Second, opts.GetRequestTimeout())

	t.Setenv(RequestTimeoutEnv, "7")
	require.Equal(t, 7*time.Second, Default().GetRequestTimeout())
	require.Equal(t, time.Second, opts.GetRequestTimeout())

	t.Setenv(RequestTimeoutEnv, "nope")
	require.Zero(t, Default().GetRequestTimeout())
}

func TestNewIndexer(t *testing.T) {
	t.Parallel()

	idx, err := Default().NewIndexer()
	require.NoError(t, err)
	require.Zero(t, idx.Modulus())

	idx, err = (&Options{Modulus: 3}).NewIndexer()
	require.NoError(t, err)
	require.Equal(t, uint64(3), idx.Modulus())

	_, err = (&Options{Modulus: 1}).NewIndexer()
	require.ErrorIs(t, err, errors.ErrInvalidModulus)

	shared := indexer.NewUnbounded()
	got, err := (&Options{Indexer: shared, Modulus: 1}).NewIndexer()
	require.NoError(t, err)
	require.Same(t, shared, got)
}
