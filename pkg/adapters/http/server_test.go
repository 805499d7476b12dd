package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/autopilot"
	"github.com/aretw0/autopilot/internal/testutils"
	apihttp "github.com/aretw0/autopilot/pkg/adapters/http"
	"github.com/aretw0/autopilot/pkg/adapters/simulated"
	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/aretw0/autopilot/pkg/dsl"
	"github.com/aretw0/autopilot/pkg/observability"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	ap      *autopilot.Autopilot
	act     *simulated.Actuator
	handler http.Handler
}

func newHarness(t *testing.T, sleep func(context.Context, time.Duration) error) *harness {
	t.Helper()

	b := dsl.New("u1").Name("Login").Order(1).Boundary(0, 0, 800, 600)
	b.Add("click").Click(100, 100).Go("pause")
	b.Add("pause").Wait(5)
	u1, err := b.Build()
	require.NoError(t, err)

	b = dsl.New("u2").Order(2)
	b.Add("type").Type("hello")
	u2, err := b.Build()
	require.NoError(t, err)

	act := simulated.NewActuator()
	metrics := observability.NewMetrics()
	ap, err := autopilot.New("",
		autopilot.WithUnits(testutils.Units(t, u1, u2)),
		autopilot.WithActuator(act),
		autopilot.WithSleep(sleep),
		autopilot.WithLifecycleHooks(metrics.Hooks()),
	)
	require.NoError(t, err)
	t.Cleanup(ap.Wait)

	return &harness{
		ap:      ap,
		act:     act,
		handler: apihttp.NewHandler(ap, apihttp.WithVersion("1.2.3"), apihttp.WithMetrics(metrics.Handler()), apihttp.WithPollInterval(5*time.Millisecond)),
	}
}

func (h *harness) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestSpec_EveryPathIsRouted(t *testing.T) {
	doc, err := apihttp.LoadSpec(context.Background())
	require.NoError(t, err)

	srv := apihttp.NewServer(nil, apihttp.WithMetrics(http.NotFoundHandler()))
	routed := make(map[string]bool)
	err = chi.Walk(srv.Routes(), func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routed[method+" "+route] = true
		return nil
	})
	require.NoError(t, err)

	for path, item := range doc.Paths.Map() {
		for method := range item.Operations() {
			assert.True(t, routed[method+" "+path], "%s %s is documented but not routed", method, path)
		}
	}
}

func TestServer_HealthAndInfo(t *testing.T) {
	h := newHarness(t, testutils.NoSleep)

	w := h.do(t, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	info := decode[map[string]string](t, h.do(t, "GET", "/info", ""))
	assert.Equal(t, "1.2.3", info["version"])
	assert.Equal(t, "1.0.0", info["api_version"])

	w = h.do(t, "GET", "/openapi.yaml", "")
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")

	w = h.do(t, "OPTIONS", "/drawings/u1/execute", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_Drawings(t *testing.T) {
	h := newHarness(t, testutils.NoSleep)

	list := decode[struct {
		Drawings []apihttp.DrawingSummary `json:"drawings"`
	}](t, h.do(t, "GET", "/drawings", ""))
	require.Len(t, list.Drawings, 2)
	assert.Equal(t, apihttp.DrawingSummary{ID: "u1", Name: "Login", Order: 1, Nodes: 2}, list.Drawings[0])
	assert.Equal(t, "u2", list.Drawings[1].Name)

	u := decode[domain.Unit](t, h.do(t, "GET", "/drawings/u1", ""))
	assert.Len(t, u.Nodes, 2)

	w := h.do(t, "GET", "/drawings/u1/boundary", "")
	assert.JSONEq(t, `{"boundary":{"x":0,"y":0,"width":800,"height":600}}`, w.Body.String())
	w = h.do(t, "GET", "/drawings/u2/boundary", "")
	assert.JSONEq(t, `{"boundary":null}`, w.Body.String())

	w = h.do(t, "GET", "/drawings/u1/graph", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "click --> pause")

	w = h.do(t, "GET", "/drawings/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "unit not found")
}

func TestServer_ExecuteDrawing(t *testing.T) {
	h := newHarness(t, testutils.NoSleep)

	w := h.do(t, "POST", "/drawings/u1/execute", `{"loop":false,"speed":1.0}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	st := decode[domain.ExecutionState](t, w)
	assert.Equal(t, "u1", st.UnitID)
	assert.True(t, st.IsRunning)

	h.ap.Wait()

	st = decode[domain.ExecutionState](t, h.do(t, "GET", "/drawings/u1/status", ""))
	assert.Equal(t, domain.StatusCompleted, st.Status)
	assert.Equal(t, 100, st.Progress)
	assert.Equal(t, []string{"move(100,100)", "click(left)"}, h.act.Ops())

	all := decode[struct {
		Statuses []domain.ExecutionState `json:"statuses"`
	}](t, h.do(t, "GET", "/drawings/status", ""))
	require.Len(t, all.Statuses, 2)
	assert.Equal(t, domain.StatusIdle, all.Statuses[1].Status)

	w = h.do(t, "GET", "/metrics", "")
	assert.Contains(t, w.Body.String(), `autopilot_runs_finished_total{status="completed",unit_id="u1"} 1`)
}

func TestServer_ExecuteErrors(t *testing.T) {
	gate := testutils.NewGate(5 * time.Second)
	h := newHarness(t, gate.Sleep)
	t.Cleanup(gate.Release)

	tests := []struct {
		name   string
		target string
		body   string
		code   int
	}{
		{"Unknown unit", "/drawings/nope/execute", "", http.StatusNotFound},
		{"Zero speed in query", "/drawings/u1/execute?speed=0", "", http.StatusBadRequest},
		{"Negative speed in body", "/drawings/u1/execute", `{"speed":-2}`, http.StatusBadRequest},
		{"Malformed speed", "/drawings/u1/execute?speed=fast", "", http.StatusBadRequest},
		{"Malformed body", "/drawings/u1/execute", `{"loop":`, http.StatusBadRequest},
		{"Malformed loop", "/drawings/execute-all?loop=maybe", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := h.do(t, "POST", tt.target, tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
			assert.NotEmpty(t, decode[map[string]string](t, w)["error"])
		})
	}

	// Query parameters override the body.
	w := h.do(t, "POST", "/drawings/u1/execute?speed=2", `{"speed":-1}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	gate.WaitEntered(t)

	w = h.do(t, "POST", "/drawings/u1/execute", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(t, "POST", "/drawings/execute-all", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(t, "GET", "/drawings/u1/graph", "")
	assert.Contains(t, w.Body.String(), "class pause current;")

	w = h.do(t, "DELETE", "/drawings/u1/execute", "")
	require.Equal(t, http.StatusOK, w.Code)
	st := decode[domain.ExecutionState](t, w)
	assert.True(t, st.ShouldStop)

	gate.Release()
	h.ap.Wait()
	st = decode[domain.ExecutionState](t, h.do(t, "GET", "/drawings/u1/status", ""))
	assert.Equal(t, domain.StatusStopped, st.Status)
}

func TestServer_ExecuteAll(t *testing.T) {
	h := newHarness(t, testutils.NoSleep)

	ms := decode[domain.MasterState](t, h.do(t, "GET", "/drawings/execute-all/status", ""))
	assert.Equal(t, domain.StatusIdle, ms.Status)

	w := h.do(t, "POST", "/drawings/execute-all?loop=false&speed=1.5", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ms = decode[domain.MasterState](t, w)
	assert.Equal(t, 2, ms.TotalUnits)

	h.ap.Wait()

	ms = decode[domain.MasterState](t, h.do(t, "GET", "/drawings/execute-all/status", ""))
	assert.Equal(t, domain.StatusCompleted, ms.Status)
	assert.Equal(t, 2, ms.UnitsCompleted)
	assert.Equal(t, []string{"move(100,100)", "click(left)", "type(hello)"}, h.act.Ops())

	w = h.do(t, "DELETE", "/drawings/execute-all", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_SubscribeDrawingEvents(t *testing.T) {
	h := newHarness(t, testutils.NoSleep)

	_, err := h.ap.StartUnit(context.Background(), "u1", false, 1)
	require.NoError(t, err)
	h.ap.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest("GET", "/drawings/u1/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	h.handler.ServeHTTP(w, req)

	body := w.Body.String()
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, body, "event: ping\ndata: connected")
	assert.Contains(t, body, `"status":"completed"`)
	assert.Equal(t, 1, strings.Count(body, "data: {"), "an unchanged state sends no further diffs")

	w = h.do(t, "GET", "/drawings/nope/events", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
