package server

import (
	"encoding/json"

	"github.com/valyala/fasthttp"
)

// StatusError is the status field of error responses.
const StatusError = "error"

type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// writeJSON encodes data without HTML escaping so message text is returned
// verbatim.
func writeJSON(ctx *fasthttp.RequestCtx, status int, data interface{}) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json; charset=utf-8")
	enc := json.NewEncoder(ctx)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}

// writeJSONError writes {"status":"error","error":message}.
func writeJSONError(ctx *fasthttp.RequestCtx, status int, message string) {
	writeJSON(ctx, status, errorResponse{Status: StatusError, Error: message})
}
