package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamscout/internal/helixtest"
	"streamscout/pkg/helix"
	"streamscout/pkg/ui"
)

// newTestEnv points configuration at a fake Twitch and isolates HOME
func newTestEnv(t *testing.T, secret string) (*helixtest.Server, string) {
	t.Helper()

	srv := helixtest.NewServer()
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	t.Setenv("TWITCH_CLIENT_ID", helixtest.ClientID)
	t.Setenv("TWITCH_CLIENT_SECRET", secret)
	t.Setenv("STREAMSCOUT_API_BASE_URL", srv.APIBaseURL())
	t.Setenv("STREAMSCOUT_AUTH_URL", srv.TokenURL())

	cfgPath := filepath.Join(dir, "streamscout.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
retry:
  max_retries: 2
  base_delay: 1ms
  max_jitter: 0s
  seed: 7
logging:
  level: error
`), 0o600))

	prev := ui.Output
	ui.Output = &bytes.Buffer{}
	t.Cleanup(func() { ui.Output = prev })

	return srv, cfgPath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSearchCommandEndToEnd(t *testing.T) {
	srv, cfgPath := newTestEnv(t, helixtest.ClientSecret)

	srv.AddGames(helix.Game{ID: "509658", Name: "Just Chatting"})
	srv.AddStreams(
		helix.Stream{UserID: "1", UserLogin: "alpha", UserName: "Alpha", GameID: "509658", GameName: "Just Chatting", ViewerCount: 120, Language: "de"},
		helix.Stream{UserID: "2", UserLogin: "beta", UserName: "Beta", GameID: "509658", GameName: "Just Chatting", ViewerCount: 10, Language: "de"},
		helix.Stream{UserID: "3", UserLogin: "gamma", UserName: "Gamma", GameID: "509658", GameName: "Just Chatting", ViewerCount: 300, Language: "de"},
		helix.Stream{UserID: "4", UserLogin: "delta", UserName: "Delta", GameID: "509658", GameName: "Just Chatting", ViewerCount: 200, Language: "en"},
	)
	srv.AddChannels(
		helix.Channel{ID: "1", BroadcasterLogin: "alpha", DisplayName: "Alpha", BroadcasterLanguage: "de", GameName: "Just Chatting", IsLive: true},
		helix.Channel{ID: "5", BroadcasterLogin: "epsilon", DisplayName: "Epsilon", BroadcasterLanguage: "de", GameName: "Just Chatting"},
		helix.Channel{ID: "6", BroadcasterLogin: "zeta", DisplayName: "Zeta", BroadcasterLanguage: "en", GameName: "Just Chatting"},
	)
	srv.AddUsers(
		helix.User{ID: "1", Login: "alpha", DisplayName: "Alpha", BroadcasterType: "partner", Description: "Business: alpha@mail.de | twitter.com/alpha_tv"},
		helix.User{ID: "3", Login: "gamma", DisplayName: "Gamma"},
		helix.User{ID: "5", Login: "epsilon", DisplayName: "Epsilon", Description: "instagram.com/eps"},
	)
	srv.ThrottleNext(1)

	outPath := filepath.Join(t.TempDir(), "nested", "creators.csv")
	_, err := execute(t, "search", "--no-logo", "--config", cfgPath,
		"-g", "Just Chatting", "-m", "50", "-l", "de", "-n", "10", "-o", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("\uFEFF")), "csv starts with a BOM")

	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(data), "\uFEFF"))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	header := rows[0]
	col := func(row []string, name string) string {
		for i, h := range header {
			if h == name {
				return row[i]
			}
		}
		t.Fatalf("missing column %s", name)
		return ""
	}

	assert.Equal(t, "alpha", col(rows[1], "username"))
	assert.Equal(t, "true", col(rows[1], "is_live"))
	assert.Equal(t, "120", col(rows[1], "viewer_count"))
	assert.Equal(t, "alpha@mail.de", col(rows[1], "email"))
	assert.Equal(t, "https://twitter.com/alpha_tv", col(rows[1], "twitter"))
	assert.Equal(t, "partner", col(rows[1], "broadcaster_type"))

	assert.Equal(t, "gamma", col(rows[2], "username"))

	assert.Equal(t, "epsilon", col(rows[3], "username"))
	assert.Equal(t, "false", col(rows[3], "is_live"))
	assert.Empty(t, col(rows[3], "viewer_count"))
	assert.Equal(t, "https://instagram.com/eps", col(rows[3], "instagram"))

	assert.Equal(t, 1, srv.ThrottledCount())
	assert.Equal(t, 1, srv.TokenRequests())
	assert.Equal(t, 1, srv.PathCount(helix.UsersPath))
}

func TestAuthCommandRejectedCredentials(t *testing.T) {
	_, cfgPath := newTestEnv(t, "wrong-secret")

	_, err := execute(t, "auth", "--no-logo", "--config", cfgPath)
	require.Error(t, err)
	assert.Equal(t, exitAuth, exitCode(err))
}

func TestGamesCommand(t *testing.T) {
	srv, cfgPath := newTestEnv(t, helixtest.ClientSecret)
	srv.AddGames(
		helix.Game{ID: "509658", Name: "Just Chatting"},
		helix.Game{ID: "27471", Name: "Minecraft"},
	)

	out, err := execute(t, "games", "--no-logo", "--config", cfgPath, "chat")
	require.NoError(t, err)
	assert.Contains(t, out, "Just Chatting")
	assert.Contains(t, out, "509658")
	assert.NotContains(t, out, "Minecraft")
}

func TestSearchCommandWithoutResultsWritesNothing(t *testing.T) {
	srv, cfgPath := newTestEnv(t, helixtest.ClientSecret)
	srv.AddGames(helix.Game{ID: "509658", Name: "Just Chatting"})
	srv.AddStreams(helix.Stream{UserID: "1", UserLogin: "alpha", GameID: "509658", ViewerCount: 3, Language: "de"})

	outPath := filepath.Join(t.TempDir(), "creators.csv")
	_, err := execute(t, "search", "--no-logo", "--config", cfgPath,
		"-g", "Just Chatting", "-m", "50", "-l", "de", "--live-only", "-o", outPath)
	require.NoError(t, err)

	assert.NoFileExists(t, outPath)
	assert.Contains(t, ui.Output.(*bytes.Buffer).String(), "No creators found matching criteria")
	assert.Zero(t, srv.PathCount(helix.UsersPath), "nothing to enrich")
}
