package mcp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/aretw0/autopilot"
	"github.com/aretw0/autopilot/internal/testutils"
	"github.com/aretw0/autopilot/pkg/adapters/mcp"
	"github.com/aretw0/autopilot/pkg/adapters/simulated"
	"github.com/aretw0/autopilot/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type toolResult struct {
	IsError bool `json:"isError"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StructuredContent json.RawMessage `json:"structuredContent"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func newServer(t *testing.T) (*mcp.Server, *autopilot.Autopilot, *simulated.Actuator) {
	t.Helper()
	act := simulated.NewActuator()
	repo := testutils.Units(t,
		domain.Unit{ID: "b", Order: 2, Nodes: testutils.Chain(domain.ActionWait, "w")},
		domain.Unit{ID: "a", Name: "Alpha", Order: 1, Nodes: []domain.Node{
			{ID: "c", Kind: domain.ActionClick, Params: map[string]any{"x": 5, "y": 6}},
		}},
	)
	ap, err := autopilot.New("", autopilot.WithUnits(repo), autopilot.WithActuator(act), autopilot.WithSleep(testutils.NoSleep))
	require.NoError(t, err)
	t.Cleanup(ap.Wait)
	return mcp.NewServer(ap, "test", nil), ap, act
}

func call(t *testing.T, s *mcp.Server, tool string, args map[string]any) toolResult {
	t.Helper()
	params, err := json.Marshal(map[string]any{"name": tool, "arguments": args})
	require.NoError(t, err)
	raw := fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":%s}`, params)

	resp := s.MCPServer().HandleMessage(context.Background(), json.RawMessage(raw))
	encoded, err := json.Marshal(resp)
	require.NoError(t, err)

	var rpc rpcResponse
	require.NoError(t, json.Unmarshal(encoded, &rpc))
	require.Nil(t, rpc.Error, string(encoded))

	var res toolResult
	require.NoError(t, json.Unmarshal(rpc.Result, &res))
	return res
}

func TestServer_ListUnits(t *testing.T) {
	s, _, _ := newServer(t)

	res := call(t, s, "list_units", nil)
	require.False(t, res.IsError)

	var list mcp.UnitList
	require.NoError(t, json.Unmarshal(res.StructuredContent, &list))
	assert.Equal(t, []mcp.UnitSummary{
		{ID: "a", Name: "Alpha", Order: 1, Nodes: 1},
		{ID: "b", Name: "b", Order: 2, Nodes: 1},
	}, list.Units)
}

func TestServer_StartAndStatus(t *testing.T) {
	s, ap, act := newServer(t)

	res := call(t, s, "start_unit", map[string]any{"unit_id": "a"})
	require.False(t, res.IsError, res.Content)
	var st domain.ExecutionState
	require.NoError(t, json.Unmarshal(res.StructuredContent, &st))
	assert.True(t, st.IsRunning)

	ap.Wait()

	res = call(t, s, "unit_status", map[string]any{"unit_id": "a"})
	require.NoError(t, json.Unmarshal(res.StructuredContent, &st))
	assert.Equal(t, domain.StatusCompleted, st.Status)
	assert.Equal(t, []string{"move(5,6)", "click(left)"}, act.Ops())

	res = call(t, s, "stop_unit", map[string]any{"unit_id": "a"})
	assert.False(t, res.IsError)
}

func TestServer_Errors(t *testing.T) {
	s, _, _ := newServer(t)

	tests := []struct {
		name string
		tool string
		args map[string]any
		want string
	}{
		{"Unknown unit", "start_unit", map[string]any{"unit_id": "zzz"}, "unit not found"},
		{"Invalid speed", "start_unit", map[string]any{"unit_id": "a", "speed": 0}, "speed must be greater than zero"},
		{"Status of unknown unit", "unit_status", map[string]any{"unit_id": "zzz"}, "unit not found"},
		{"Graph without id", "get_graph", nil, "unit_id"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := call(t, s, tt.tool, tt.args)
			assert.True(t, res.IsError)
			require.NotEmpty(t, res.Content)
			assert.Contains(t, res.Content[0].Text, tt.want)
		})
	}
}

func TestServer_RunAll(t *testing.T) {
	s, ap, act := newServer(t)

	res := call(t, s, "start_all", map[string]any{"speed": 2.0})
	require.False(t, res.IsError, res.Content)
	ap.Wait()

	res = call(t, s, "all_status", nil)
	var ms domain.MasterState
	require.NoError(t, json.Unmarshal(res.StructuredContent, &ms))
	assert.Equal(t, domain.StatusCompleted, ms.Status)
	assert.Equal(t, 2, ms.UnitsCompleted)
	assert.Equal(t, []string{"move(5,6)", "click(left)"}, act.Ops())

	res = call(t, s, "stop_all", nil)
	assert.False(t, res.IsError)
}

func TestServer_GetGraph(t *testing.T) {
	s, _, _ := newServer(t)

	res := call(t, s, "get_graph", map[string]any{"unit_id": "a"})
	require.False(t, res.IsError)
	require.NotEmpty(t, res.Content)
	assert.Contains(t, res.Content[0].Text, `c(("c <br/> click"))`)
}
