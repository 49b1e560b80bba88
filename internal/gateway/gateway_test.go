package gateway

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danmuck/wirectl/internal/protocol/message"
	"github.com/danmuck/wirectl/internal/protocol/schema"
	"github.com/danmuck/wirectl/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

const testSchema = `
10:
  Ping: null
  Pong: [u8]
40:
  Goto: {x: i8, mode: [fast, slow]}
  Path: ["[i16; 2]"]
`

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	reg := message.NewRegistry()
	require.NoError(t, schema.RegisterSource(reg, []byte(testSchema), message.Append))
	return Appear(reg, Options{Node: "wirectl-test", Addr: ":0", Metrics: true})
}

func doJSON(t *testing.T, g *Gateway, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	g.HTTPRouter().ServeHTTP(rr, req)

	var out map[string]any
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	}
	return rr, out
}

func TestHealthAndMetrics(t *testing.T) {
	g := newTestGateway(t)
	rr, body := doJSON(t, g, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, float64(4), body["messages"])
	require.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr, _ = doJSON(t, g, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "wirectl_registry_messages")
}

func TestMetricsRouteDisabled(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	g := Appear(message.NewRegistry(), Options{Node: "wirectl-nometrics"})
	rr, _ := doJSON(t, g, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListAndDescribeMessages(t *testing.T) {
	g := newTestGateway(t)
	rr, body := doJSON(t, g, http.MethodGet, "/messages", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 4)
	first := msgs[0].(map[string]any)
	require.Equal(t, "Ping", first["name"])
	require.Equal(t, "none", first["kind"])

	rr, body = doJSON(t, g, http.MethodGet, "/messages/Goto", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, float64(40), body["id"])
	require.Equal(t, float64(3), body["size"])
	params := body["params"].([]any)
	require.Equal(t, map[string]any{"name": "mode", "type": "[fast, slow]"}, params[1])

	rr, body = doJSON(t, g, http.MethodGet, "/messages/41", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "Path", body["name"])
	require.Equal(t, []any{map[string]any{"type": "[i16; 2]"}}, body["params"])

	rr, body = doJSON(t, g, http.MethodGet, "/messages/Nope", nil)
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, "not_found", body["kind"])
}

func TestEncodeDecodeJSON(t *testing.T) {
	g := newTestGateway(t)

	rr, body := doJSON(t, g, http.MethodPost, "/encode", map[string]any{"message": "Pong", "args": []any{5}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, "0b05", body["hex"])
	require.Equal(t, "<Frame 'Pong' 5>", body["frame"])

	rr, body = doJSON(t, g, http.MethodPost, "/encode", map[string]any{"message": "Goto", "args": map[string]any{"mode": "slow", "x": -1}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, "28ff01", body["hex"])

	rr, body = doJSON(t, g, http.MethodPost, "/encode", map[string]any{"message": "10"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, "0a", body["hex"])

	rr, body = doJSON(t, g, http.MethodPost, "/decode", map[string]any{"hex": "29 01 00 ff ff"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, "Path", body["message"])
	require.Equal(t, []any{[]any{float64(1), float64(-1)}}, body["args"])
}

func TestEncodeDecodeErrors(t *testing.T) {
	g := newTestGateway(t)
	cases := []struct {
		path string
		body any
		code int
		kind string
	}{
		{"/encode", map[string]any{"message": "Pong", "args": []any{300}}, http.StatusUnprocessableEntity, "encoding"},
		{"/encode", map[string]any{"message": "Pong", "args": []any{1, 2}}, http.StatusUnprocessableEntity, "shape_mismatch"},
		{"/encode", map[string]any{"message": "Goto", "args": map[string]any{"mode": "warp", "x": 1}}, http.StatusUnprocessableEntity, "invalid_choice"},
		{"/encode", map[string]any{"message": "Missing"}, http.StatusNotFound, "not_found"},
		{"/encode", map[string]any{"args": []any{1}}, http.StatusBadRequest, "bad_request"},
		{"/encode", map[string]any{"message": "Pong", "args": 5}, http.StatusBadRequest, "bad_request"},
		{"/decode", map[string]any{"hex": "0b0500"}, http.StatusUnprocessableEntity, "trailing_data"},
		{"/decode", map[string]any{"hex": "63"}, http.StatusUnprocessableEntity, "unknown_message_id"},
		{"/decode", map[string]any{"hex": ""}, http.StatusUnprocessableEntity, "empty_buffer"},
		{"/decode", map[string]any{"hex": "0b"}, http.StatusUnprocessableEntity, "truncated"},
		{"/decode", map[string]any{"hex": "2805"}, http.StatusUnprocessableEntity, "truncated"},
		{"/decode", map[string]any{"hex": "280003"}, http.StatusUnprocessableEntity, "invalid_choice"},
		{"/decode", map[string]any{"hex": "zz"}, http.StatusBadRequest, "bad_request"},
	}
	for _, tc := range cases {
		rr, body := doJSON(t, g, http.MethodPost, tc.path, tc.body)
		require.Equal(t, tc.code, rr.Code, "%s %v: %s", tc.path, tc.body, rr.Body.String())
		require.Equal(t, tc.kind, body["kind"], "%s %v", tc.path, tc.body)
	}
}

func TestMsgpackNegotiation(t *testing.T) {
	g := newTestGateway(t)
	payload, err := msgpack.Marshal(map[string]any{"data": []byte{11, 7}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/decode", bytes.NewReader(payload))
	req.Header.Set("Content-Type", mimeMsgpack)
	req.Header.Set("Accept", mimeMsgpack)
	rr := httptest.NewRecorder()
	g.HTTPRouter().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, mimeMsgpack, rr.Header().Get("Content-Type"))

	var out FrameResponse
	require.NoError(t, msgpack.Unmarshal(rr.Body.Bytes(), &out))
	require.Equal(t, uint8(11), out.ID)
	require.Equal(t, "Pong", out.Message)
	require.Equal(t, "0b07", out.Hex)

	payload, err = msgpack.Marshal(map[string]any{"message": "Goto", "args": map[string]any{"x": int8(3), "mode": "fast"}})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost, "/encode", bytes.NewReader(payload))
	req.Header.Set("Content-Type", mimeMsgpack)
	rr = httptest.NewRecorder()
	g.HTTPRouter().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Contains(t, rr.Body.String(), `"hex":"280300"`)
}

func TestDecodeNonFiniteFloats(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	reg := message.NewRegistry()
	require.NoError(t, schema.RegisterSource(reg, []byte("10:\n  F: [f32]\n  Rates: {rates: \"[f32; 2]\"}\n"), message.Append))
	g := Appear(reg, Options{Node: "wirectl-floats"})

	rr, body := doJSON(t, g, http.MethodPost, "/decode", map[string]any{"hex": "0a0000c07f"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, "F", body["message"])
	require.Equal(t, []any{"NaN"}, body["args"])
	require.Equal(t, "0a0000c07f", body["hex"])

	rr, body = doJSON(t, g, http.MethodPost, "/decode", map[string]any{"hex": "0b0000807f000080ff"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.Equal(t, map[string]any{"rates": []any{"+Inf", "-Inf"}}, body["args"])

	payload, err := msgpack.Marshal(map[string]any{"hex": "0a0000c07f"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/decode", bytes.NewReader(payload))
	req.Header.Set("Content-Type", mimeMsgpack)
	req.Header.Set("Accept", mimeMsgpack)
	rr = httptest.NewRecorder()
	g.HTTPRouter().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	var out struct {
		Args []float32 `msgpack:"args"`
	}
	require.NoError(t, msgpack.Unmarshal(rr.Body.Bytes(), &out))
	require.Len(t, out.Args, 1)
	require.True(t, math.IsNaN(float64(out.Args[0])))
}

func TestRespondReportsMarshalFailure(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	rr := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rr)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	respond(c, http.StatusOK, gin.H{"value": math.Inf(1)})
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.Equal(t, "encoding", out["kind"])
	require.NotEmpty(t, out["error"])
}

func TestParseHex(t *testing.T) {
	b, err := ParseHex("0x0b:05")
	require.NoError(t, err)
	require.Equal(t, []byte{11, 5}, b)
	_, err = ParseHex("abc")
	require.Error(t, err)
}

func TestDecodeStream(t *testing.T) {
	g := newTestGateway(t)
	req := httptest.NewRequest(http.MethodPost, "/decode/stream", bytes.NewReader([]byte{10, 11, 9, 40, 2, 1}))
	req.Header.Set("Content-Type", "application/octet-stream")
	rr := httptest.NewRecorder()
	g.HTTPRouter().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body struct {
		Frames []FrameResponse `json:"frames"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Frames, 3)
	require.Equal(t, "Ping", body.Frames[0].Message)
	require.Equal(t, "0b09", body.Frames[1].Hex)
	require.Equal(t, "<Frame 'Goto' x=2, mode=slow>", body.Frames[2].Frame)

	req = httptest.NewRequest(http.MethodPost, "/decode/stream", bytes.NewReader([]byte{10, 99}))
	rr = httptest.NewRecorder()
	g.HTTPRouter().ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var partial map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &partial))
	require.Equal(t, "unknown_message_id", partial["kind"])
	require.Len(t, partial["frames"], 1)
}
