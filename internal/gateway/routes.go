package gateway

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danmuck/wirectl/internal/observability"
	"github.com/danmuck/wirectl/internal/protocol"
	"github.com/danmuck/wirectl/internal/protocol/message"
	"github.com/danmuck/wirectl/internal/protocol/stream"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const maxStreamBytes = 1 << 20

type ParamInfo struct {
	Name string `json:"name,omitempty" msgpack:"name,omitempty"`
	Type string `json:"type" msgpack:"type"`
}

type MessageInfo struct {
	ID     uint8       `json:"id" msgpack:"id"`
	Name   string      `json:"name" msgpack:"name"`
	Kind   string      `json:"kind" msgpack:"kind"`
	Size   int         `json:"size" msgpack:"size"`
	Params []ParamInfo `json:"params" msgpack:"params"`
}

type encodeRequest struct {
	Message string `json:"message" msgpack:"message"`
	// Args is null for messages without parameters, a list for positional
	// parameters and an object for named parameters.
	Args any `json:"args" msgpack:"args"`
}

type decodeRequest struct {
	Hex  string `json:"hex" msgpack:"hex"`
	Data []byte `json:"data" msgpack:"data"`
}

type FrameResponse struct {
	ID      uint8  `json:"id" msgpack:"id"`
	Message string `json:"message" msgpack:"message"`
	Args    any    `json:"args" msgpack:"args"`
	Hex     string `json:"hex" msgpack:"hex"`
	Frame   string `json:"frame" msgpack:"frame"`
}

// MarshalJSON spells non-finite float arguments as strings. Msgpack output
// keeps the native floats.
func (r FrameResponse) MarshalJSON() ([]byte, error) {
	type plain FrameResponse
	out := plain(r)
	out.Args = jsonValue(r.Args)
	return json.Marshal(out)
}

func (g *Gateway) RegisterRoutes() {
	g.router.GET("/health", func(c *gin.Context) {
		respond(c, http.StatusOK, gin.H{
			"status":   "ok",
			"uptime":   time.Since(g.Appeared).String(),
			"node":     g.Node,
			"messages": g.registry.Len(),
		})
	})

	if g.metrics {
		g.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	g.router.GET("/messages", func(c *gin.Context) {
		decls := g.registry.Declarations()
		infos := make([]MessageInfo, 0, len(decls))
		for _, decl := range decls {
			infos = append(infos, Describe(decl))
		}
		respond(c, http.StatusOK, gin.H{"messages": infos})
	})

	g.router.GET("/messages/:key", func(c *gin.Context) {
		decl, err := Lookup(g.registry, c.Param("key"))
		if err != nil {
			g.fail(c, err)
			return
		}
		respond(c, http.StatusOK, Describe(decl))
	})

	g.router.POST("/encode", func(c *gin.Context) {
		var req encodeRequest
		if err := bind(c, &req); err != nil {
			g.fail(c, err)
			return
		}
		frame, err := g.encode(req)
		if err != nil {
			observability.RecordCodec(g.Node, observability.OpEncode, "", 0, err)
			g.fail(c, err)
			return
		}
		respond(c, http.StatusOK, frame)
	})

	g.router.POST("/decode", func(c *gin.Context) {
		var req decodeRequest
		if err := bind(c, &req); err != nil {
			g.fail(c, err)
			return
		}
		data := req.Data
		if req.Hex != "" {
			var err error
			if data, err = ParseHex(req.Hex); err != nil {
				g.fail(c, err)
				return
			}
		}
		frame, err := g.registry.Decode(data)
		observability.RecordCodec(g.Node, observability.OpDecode, frameName(frame), len(data), err)
		if err != nil {
			g.fail(c, err)
			return
		}
		respond(c, http.StatusOK, frameResponse(frame, data))
	})

	// Raw back-to-back frames in the request body.
	g.router.POST("/decode/stream", g.decodeStream)
}

func (g *Gateway) decodeStream(c *gin.Context) {
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxStreamBytes+1))
	if err != nil {
		g.fail(c, errors.Wrap(errBadRequest, err.Error()))
		return
	}
	if len(data) > maxStreamBytes {
		g.fail(c, errors.Wrapf(errBadRequest, "stream larger than %d bytes", maxStreamBytes))
		return
	}
	frames, err := stream.ReadAll(bytes.NewReader(data), g.registry, stream.DefaultLimits())
	out := make([]FrameResponse, 0, len(frames))
	for _, frame := range frames {
		encoded, _ := frame.Encode()
		observability.RecordCodec(g.Node, observability.OpDecode, frame.Declaration().Name(), len(encoded), nil)
		out = append(out, frameResponse(frame, encoded))
	}
	if err != nil {
		observability.RecordCodec(g.Node, observability.OpDecode, "", 0, err)
		kind := protocol.ErrorKind(err)
		respond(c, StatusFor(err), gin.H{"frames": out, "error": err.Error(), "kind": kind})
		_ = c.Error(err)
		return
	}
	respond(c, http.StatusOK, gin.H{"frames": out})
}

// Lookup resolves a decimal message id or a message name.
func Lookup(reg *message.Registry, key string) (*message.Declaration, error) {
	if id, err := strconv.ParseUint(key, 10, 8); err == nil {
		return reg.LookupID(uint8(id))
	}
	return reg.LookupName(key)
}

func (g *Gateway) encode(req encodeRequest) (FrameResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return FrameResponse{}, errors.Wrap(errBadRequest, "message is required")
	}
	decl, err := Lookup(g.registry, req.Message)
	if err != nil {
		return FrameResponse{}, err
	}
	args, err := ArgsFrom(req.Args)
	if err != nil {
		return FrameResponse{}, err
	}
	frame, err := message.NewFrame(decl, args)
	if err != nil {
		return FrameResponse{}, err
	}
	data, err := frame.Encode()
	if err != nil {
		return FrameResponse{}, err
	}
	observability.RecordCodec(g.Node, observability.OpEncode, decl.Name(), len(data), nil)
	return frameResponse(frame, data), nil
}

func (g *Gateway) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	_ = c.Error(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("node", g.Node).Msg("gateway request failed")
	}
	kind := protocol.ErrorKind(err)
	if errors.Is(err, errBadRequest) {
		kind = "bad_request"
	}
	respond(c, status, gin.H{
		"error": err.Error(),
		"kind":  kind,
	})
}

// StatusFor maps codec errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, protocol.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, protocol.ErrShapeMismatch),
		errors.Is(err, protocol.ErrEncoding),
		errors.Is(err, protocol.ErrInvalidChoice),
		errors.Is(err, protocol.ErrEmptyBuffer),
		errors.Is(err, protocol.ErrUnknownMessageID),
		errors.Is(err, protocol.ErrTrailingData),
		errors.Is(err, protocol.ErrTruncated):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Describe renders a declaration with its types in schema grammar.
func Describe(decl *message.Declaration) MessageInfo {
	info := MessageInfo{
		ID:     decl.ID(),
		Name:   decl.Name(),
		Kind:   decl.Kind().String(),
		Size:   decl.Size(),
		Params: []ParamInfo{},
	}
	switch p := decl.Params().(type) {
	case message.PositionalParams:
		for _, typ := range p {
			info.Params = append(info.Params, ParamInfo{Type: typ.String()})
		}
	case message.NamedParams:
		for _, param := range p {
			info.Params = append(info.Params, ParamInfo{Name: param.Name, Type: param.Type.String()})
		}
	}
	return info
}

// ArgsFrom converts generic request values into frame arguments.
func ArgsFrom(v any) (message.Args, error) {
	switch a := v.(type) {
	case nil:
		return message.NoArgs{}, nil
	case []any:
		return message.PositionalArgs(a), nil
	case map[string]any:
		return message.NamedArgs(a), nil
	default:
		return nil, errors.Wrapf(errBadRequest, "args must be null, a list or an object, got %T", v)
	}
}

// ParseHex accepts hex with optional spaces or colons between bytes.
func ParseHex(s string) ([]byte, error) {
	clean := strings.NewReplacer(" ", "", ":", "", "\n", "", "\t", "").Replace(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, errors.Wrap(errBadRequest, err.Error())
	}
	return data, nil
}

func frameResponse(frame *message.Frame, data []byte) FrameResponse {
	values := frame.Values()
	return FrameResponse{
		ID:      frame.Declaration().ID(),
		Message: frame.Declaration().Name(),
		Args:    values["args"],
		Hex:     hex.EncodeToString(data),
		Frame:   frame.String(),
	}
}

func frameName(frame *message.Frame) string {
	if frame == nil {
		return ""
	}
	return frame.Declaration().Name()
}
