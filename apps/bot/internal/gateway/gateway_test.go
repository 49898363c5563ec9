package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/protobuf/encoding/protowire"

	"nerts-lite/apps/bot/internal/auth"
	"nerts-lite/apps/bot/internal/codec"
	"nerts-lite/apps/bot/internal/ledger"
	"nerts-lite/nerts"
)

type fixedSource struct {
	view codec.View
}

func (f *fixedSource) View() codec.View { return f.view }

func newServer(t *testing.T, passwordHash string) (*Gateway, *httptest.Server, *ledger.SQLiteService) {
	t.Helper()
	led, err := ledger.NewSQLiteService(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = led.Close() })

	gate, err := auth.NewPasswordGate(passwordHash, time.Hour)
	require.NoError(t, err)

	src := &fixedSource{view: codec.Snapshot(nerts.NewGameState(1001), 3, nil)}
	g := New(src, nil)
	srv := httptest.NewServer(g.Routes(auth.NewHTTPHandler(gate), led))
	t.Cleanup(func() {
		g.Close()
		srv.Close()
	})
	return g, srv, led
}

func getJSON(t *testing.T, url string, dst any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if dst != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
	}
	return resp.StatusCode
}

func frameSeq(t *testing.T, frame []byte) uint64 {
	t.Helper()
	num, typ, n := protowire.ConsumeTag(frame)
	require.Greater(t, n, 0)
	require.Equal(t, protowire.Number(1), num)
	require.Equal(t, protowire.VarintType, typ)
	v, m := protowire.ConsumeVarint(frame[n:])
	require.Greater(t, m, 0)
	return v
}

func TestHealthAndState(t *testing.T) {
	_, srv, _ := newServer(t, "")

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var view codec.View
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/state", &view))
	assert.Equal(t, uint64(3), view.Seq)
	assert.Equal(t, "lobby", view.Phase)
	assert.Equal(t, uint64(1001), view.SelfID)
}

func TestSessionEndpoints(t *testing.T) {
	_, srv, led := newServer(t, "")
	ctx := context.Background()
	id, err := led.StartSession(ctx, ledger.Session{SelfID: 1001, ServerID: 2002, Seed: 5, Brain: "rule"})
	require.NoError(t, err)
	led.AppendTick(id, ledger.TickItem{Seq: 1, Peer: 2002, Phase: "lobby", PayloadB64: "AA=="})
	led.AppendDecision(id, ledger.DecisionItem{Seq: 1, Kind: "wait_players", Reason: "no players"})

	var list struct {
		Items []ledger.Session `json:"items"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/sessions", &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, id, list.Items[0].SessionID)
	assert.Equal(t, uint64(2002), list.Items[0].ServerID)

	var ticks struct {
		Ticks []ledger.TickItem `json:"ticks"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/sessions/"+id+"/ticks", &ticks))
	require.Len(t, ticks.Ticks, 1)
	assert.Equal(t, "AA==", ticks.Ticks[0].PayloadB64)

	var decisions struct {
		Decisions []ledger.DecisionItem `json:"decisions"`
	}
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/sessions/"+id+"/decisions", &decisions))
	require.Len(t, decisions.Decisions, 1)
	assert.Equal(t, "wait_players", decisions.Decisions[0].Kind)

	var tape map[string]any
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/sessions/"+id+"/tape", &tape))
	assert.EqualValues(t, 1, tape["tape_version"])

	var errResp errorResponse
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/sessions/nope", &errResp))
	assert.Equal(t, "session not found", errResp.Error)
}

func TestWebSocketReceivesCurrentAndPublished(t *testing.T) {
	g, srv, _ := newServer(t, "")

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))

	typ, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, typ)
	assert.Equal(t, uint64(3), frameSeq(t, msg))

	require.Eventually(t, func() bool { return g.Count() == 1 }, 2*time.Second, 5*time.Millisecond)
	g.Publish(codec.Snapshot(nerts.NewGameState(1001), 9, &codec.DecisionView{Kind: "draw"}))

	_, msg, err = conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, uint64(9), frameSeq(t, msg))

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return g.Count() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestPasswordGateProtectsRoutes(t *testing.T) {
	raw, err := bcrypt.GenerateFromPassword([]byte("spectate"), bcrypt.MinCost)
	require.NoError(t, err)
	_, srv, _ := newServer(t, string(raw))

	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/health", nil))
	assert.Equal(t, http.StatusUnauthorized, getJSON(t, srv.URL+"/state", nil))
	assert.Equal(t, http.StatusUnauthorized, getJSON(t, srv.URL+"/api/sessions", nil))

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	loginResp, err := http.Post(srv.URL+"/api/auth/login", "application/json", strings.NewReader(`{"password":"spectate"}`))
	require.NoError(t, err)
	defer loginResp.Body.Close()
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	var login struct {
		SessionToken string `json:"session_token"`
	}
	require.NoError(t, json.NewDecoder(loginResp.Body).Decode(&login))

	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/state?token="+login.SessionToken, nil))
}

func TestParseLimit(t *testing.T) {
	assert.Equal(t, 20, parseLimit(""))
	assert.Equal(t, 20, parseLimit("-3"))
	assert.Equal(t, 7, parseLimit("7"))
	assert.Equal(t, 100, parseLimit("1000"))
}
