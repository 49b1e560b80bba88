package gateway

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	mimeMsgpack = "application/msgpack"
	mimeJSON    = "application/json; charset=utf-8"
)

var errBadRequest = errors.New("gateway: bad request")

func wantsMsgpack(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), mimeMsgpack)
}

// respond writes body as msgpack when the client accepts it, JSON otherwise.
// The body is marshalled before any header is written so a marshal failure
// still reaches the client as a 500.
func respond(c *gin.Context, status int, body any) {
	if wantsMsgpack(c) {
		b, err := msgpack.Marshal(body)
		if err != nil {
			renderError(c, err)
			return
		}
		c.Data(status, mimeMsgpack, b)
		return
	}
	b, err := json.Marshal(body)
	if err != nil {
		renderError(c, err)
		return
	}
	c.Data(status, mimeJSON, b)
}

func renderError(c *gin.Context, err error) {
	log.Error().Err(err).Str("path", c.FullPath()).Msg("gateway: render response")
	b, _ := json.Marshal(gin.H{"error": err.Error(), "kind": "encoding"})
	c.Data(http.StatusInternalServerError, mimeJSON, b)
}

// jsonValue replaces non-finite floats, which JSON cannot carry, with the
// strings "NaN", "+Inf" and "-Inf".
func jsonValue(v any) any {
	switch v := v.(type) {
	case float32:
		return jsonFloat(float64(v), v)
	case float64:
		return jsonFloat(v, v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = jsonValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = jsonValue(item)
		}
		return out
	default:
		return v
	}
}

func jsonFloat(f float64, orig any) any {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "+Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	default:
		return orig
	}
}

// bind decodes a JSON or msgpack request body, chosen by Content-Type.
func bind(c *gin.Context, out any) error {
	if c.ContentType() != mimeMsgpack {
		if err := c.ShouldBindJSON(out); err != nil {
			return errors.Wrap(errBadRequest, err.Error())
		}
		return nil
	}
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return errors.Wrap(errBadRequest, err.Error())
	}
	if err := msgpack.Unmarshal(data, out); err != nil {
		return errors.Wrap(errBadRequest, err.Error())
	}
	return nil
}
