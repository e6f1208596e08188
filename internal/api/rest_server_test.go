package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/blockverse/internal/auth"
	"github.com/annel0/blockverse/internal/player"
	"github.com/annel0/blockverse/internal/server"
)

type stubSim struct {
	players map[uint64]*player.Player
	heights map[[2]int]int
}

func (s *stubSim) Players() []player.Snapshot {
	out := make([]player.Snapshot, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, p.Snapshot())
	}
	return out
}

func (s *stubSim) Player(id uint64) (*player.Player, bool) {
	p, ok := s.players[id]
	return p, ok
}

func (s *stubSim) Stats() server.Stats {
	return server.Stats{Ticks: 100, Players: len(s.players), LoadedChunks: 27}
}

func (s *stubSim) HeightAt(x, z int) (int, bool) {
	h, ok := s.heights[[2]int{x, z}]
	return h, ok
}

func (s *stubSim) Seed() int64 { return 99 }

func newTestServer(t *testing.T) (*RestServer, *stubSim, *auth.TokenIssuer) {
	t.Helper()
	tokens, err := auth.NewTokenIssuer("", time.Hour)
	require.NoError(t, err)

	p := player.New(1, "alice", mgl64.Vec3{1, 11, 2})
	sim := &stubSim{
		players: map[uint64]*player.Player{1: p},
		heights: map[[2]int]int{{0, 0}: 10},
	}
	rs := NewRestServer(Config{
		Simulation: sim,
		Registry:   auth.NewPlayerRegistry(),
		Tokens:     tokens,
	})
	return rs, sim, tokens
}

func doRequest(rs *RestServer, method, path string, body []byte, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	rs.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	rs, _, _ := newTestServer(t)
	w := doRequest(rs, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestSessionIssuesValidToken(t *testing.T) {
	rs, _, tokens := newTestServer(t)

	w := doRequest(rs, http.MethodPost, "/api/session", []byte(`{"name":"Alice"}`), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool            `json:"success"`
		Data    SessionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, uint64(1), resp.Data.PlayerID)

	claims, err := tokens.Validate(resp.Data.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), claims.PlayerID)

	// то же имя в другом регистре получает тот же ID
	w = doRequest(rs, http.MethodPost, "/api/session", []byte(`{"name":"alice"}`), nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, uint64(1), resp.Data.PlayerID)
}

func TestSessionRejectsBadBody(t *testing.T) {
	rs, _, _ := newTestServer(t)
	w := doRequest(rs, http.MethodPost, "/api/session", []byte(`{}`), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPlayersAndStatus(t *testing.T) {
	rs, _, _ := newTestServer(t)

	w := doRequest(rs, http.MethodGet, "/api/players", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].([]interface{})
	require.Len(t, data, 1)
	first := data[0].(map[string]interface{})
	assert.Equal(t, []interface{}{1.0, 11.0, 2.0}, first["position"])

	w = doRequest(rs, http.MethodGet, "/api/status", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, 99.0, status["seed"])
	sim := status["simulation"].(map[string]interface{})
	assert.Equal(t, 100.0, sim["ticks"])
	assert.Equal(t, 27.0, sim["loaded_chunks"])
}

func TestHeight(t *testing.T) {
	rs, _, _ := newTestServer(t)

	w := doRequest(rs, http.MethodGet, "/api/world/height?x=0&z=0", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10.0, decode(t, w)["data"].(map[string]interface{})["height"])

	w = doRequest(rs, http.MethodGet, "/api/world/height?x=500&z=0", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(rs, http.MethodGet, "/api/world/height?x=a", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMeRequiresToken(t *testing.T) {
	rs, _, tokens := newTestServer(t)

	w := doRequest(rs, http.MethodGet, "/api/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(rs, http.MethodGet, "/api/me", nil, http.Header{"Authorization": {"Bearer junk"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := tokens.Issue(1, "alice")
	require.NoError(t, err)
	w = doRequest(rs, http.MethodGet, "/api/me", nil, http.Header{"Authorization": {"Bearer " + token}})
	require.Equal(t, http.StatusOK, w.Code)

	other, err := tokens.Issue(5, "bob")
	require.NoError(t, err)
	w = doRequest(rs, http.MethodGet, "/api/me", nil, http.Header{"Authorization": {"Bearer " + other}})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMetricsEndpointServed(t *testing.T) {
	rs, _, _ := newTestServer(t)
	doRequest(rs, http.MethodGet, "/health", nil, nil)

	w := doRequest(rs, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "blockverse_api_http_request_duration_seconds")
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "5с", formatUptime(5*time.Second))
	assert.Equal(t, "2м 3с", formatUptime(2*time.Minute+3*time.Second))
	assert.Equal(t, "1д 1ч 0м 0с", formatUptime(25*time.Hour))
}
