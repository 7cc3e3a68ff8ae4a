package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"readsy_backend/pkg/authclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reply(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"code": status, "message": "", "data": data})
}

func newFakeAPI() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]string{"accessToken": "acc", "refreshToken": "ref"})
	})
	mux.HandleFunc("/api/v1/leaderboard", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]interface{}{
			"season": "2026-10",
			"source": "live",
			"entries": []map[string]interface{}{
				{"userId": 1, "username": "alice", "score": 900, "rank": 1},
				{"userId": 2, "username": "bob", "score": 450, "rank": 2},
			},
		})
	})
	mux.HandleFunc("/api/v1/gamification/progress", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer acc" {
			reply(w, http.StatusUnauthorized, nil)
			return
		}
		reply(w, http.StatusOK, map[string]interface{}{
			"level": 5, "maxLevel": 10, "progress": 0.5, "xpToNextLevel": 306,
		})
	})
	mux.HandleFunc("/api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusUnauthorized, nil)
	})
	mux.HandleFunc("/api/v1/shop/inventory", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusNotFound, nil)
	})
	return httptest.NewServer(mux)
}

func run(t *testing.T, cfg Config, stdin string, args ...string) (string, error) {
	t.Helper()
	out, _, err := runWithStderr(t, cfg, stdin, args...)
	return out, err
}

func runWithStderr(t *testing.T, cfg Config, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewReadsyCtlCommand(cfg, IOStreams{In: strings.NewReader(stdin), Out: &out, ErrOut: &errOut})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestLoginStoresTokensAndProgressUsesThem(t *testing.T) {
	srv := newFakeAPI()
	defer srv.Close()
	cfg := Config{APIURL: srv.URL, TokenFile: filepath.Join(t.TempDir(), "tokens.json")}

	out, err := run(t, cfg, "secret123\n", "login", "--email", "reader@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "logged in as reader@example.com")

	pair, err := authclient.NewFileStore(cfg.TokenFile).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acc", pair.AccessToken)

	out, err = run(t, cfg, "", "progress")
	require.NoError(t, err)
	assert.Contains(t, out, "level 5, 50% to level 6 (306 xp to go)")
}

func TestLeaderboardTable(t *testing.T) {
	srv := newFakeAPI()
	defer srv.Close()
	cfg := Config{APIURL: srv.URL, TokenFile: filepath.Join(t.TempDir(), "tokens.json")}

	out, err := run(t, cfg, "", "leaderboard", "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "season 2026-10 (live)")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "900")
}

func TestProgressWithoutLoginIsSessionExpired(t *testing.T) {
	srv := newFakeAPI()
	defer srv.Close()
	cfg := Config{APIURL: srv.URL, TokenFile: filepath.Join(t.TempDir(), "tokens.json")}

	_, err := run(t, cfg, "", "progress")
	require.Error(t, err)
	assert.True(t, isSessionExpired(err))
}

func TestRefreshFailureClearsLogin(t *testing.T) {
	srv := newFakeAPI()
	defer srv.Close()
	cfg := Config{APIURL: srv.URL, TokenFile: filepath.Join(t.TempDir(), "tokens.json")}
	store := authclient.NewFileStore(cfg.TokenFile)
	require.NoError(t, store.Save(context.Background(), authclient.TokenPair{AccessToken: "stale", RefreshToken: "ref-old"}))

	_, stderr, err := runWithStderr(t, cfg, "", "progress")
	require.Error(t, err)
	assert.True(t, isSessionExpired(err))
	assert.Contains(t, stderr, "token refresh failed, removed saved login from "+cfg.TokenFile)

	pair, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pair.RefreshToken)
}

func TestShopInventoryEmpty(t *testing.T) {
	srv := newFakeAPI()
	defer srv.Close()
	cfg := Config{APIURL: srv.URL, TokenFile: filepath.Join(t.TempDir(), "tokens.json")}

	out, err := run(t, cfg, "", "shop", "inventory")
	require.NoError(t, err)
	assert.Contains(t, out, "inventory is empty")
}

func TestCheckinValidatesFlags(t *testing.T) {
	cfg := Config{APIURL: "http://127.0.0.1:0", TokenFile: filepath.Join(t.TempDir(), "tokens.json")}
	_, err := run(t, cfg, "", "checkin", "--book", "1")
	assert.EqualError(t, err, "--pages or --minutes is required")
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("READSY_API_URL", "https://api.readsy.test")
	t.Setenv("READSY_TOKEN_FILE", "/tmp/readsy-tokens.json")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://api.readsy.test", cfg.APIURL)
	assert.Equal(t, "/tmp/readsy-tokens.json", cfg.TokenFile)
}
