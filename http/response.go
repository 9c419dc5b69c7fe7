package http

import (
	"encoding/json"
	"net/http"
)

// ── Response ─────────────────────────────────────────────────────────────────

// Response wraps http.ResponseWriter with JSON envelope helpers.
type Response struct {
	w http.ResponseWriter
}

// NewResponse wraps a ResponseWriter.
func NewResponse(w http.ResponseWriter) *Response {
	return &Response{w: w}
}

// ── JSON responses ────────────────────────────────────────────────────────────

// JSON sends a JSON response.
//
//	res.JSON(http.StatusOK, map[string]any{"message": "ok"})
func (res *Response) JSON(status int, data any) {
	res.w.Header().Set("Content-Type", "application/json")
	res.w.WriteHeader(status)
	_ = json.NewEncoder(res.w).Encode(data)
}

// Success sends 200 JSON: {"data": v}
func (res *Response) Success(v any) {
	res.JSON(http.StatusOK, envelope{"data": v})
}

// Collection sends 200 JSON with a count next to the items:
// {"data": items, "meta": {"count": n}}
//
//	res.Collection(views, len(views))
func (res *Response) Collection(items any, count int) {
	res.JSON(http.StatusOK, envelope{
		"data": items,
		"meta": envelope{"count": count},
	})
}

// NoContent sends 204 with no body.
func (res *Response) NoContent() {
	res.w.WriteHeader(http.StatusNoContent)
}

// Error sends a JSON error response: {"message": message}
//
//	res.Error(http.StatusConflict, "still depended on")
func (res *Response) Error(status int, message string) {
	res.JSON(status, envelope{"message": message})
}

// ErrorWith sends a JSON error response carrying extra fields next to the
// message. A "message" entry in fields is overwritten.
func (res *Response) ErrorWith(status int, message string, fields map[string]any) {
	body := make(envelope, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["message"] = message
	res.JSON(status, body)
}

// NotFound sends 404.
func (res *Response) NotFound(message ...string) {
	msg := first(message, "Not found.")
	res.JSON(http.StatusNotFound, envelope{"message": msg})
}

// ServerError sends 500.
func (res *Response) ServerError(message ...string) {
	msg := first(message, "Server Error.")
	res.JSON(http.StatusInternalServerError, envelope{"message": msg})
}

// ── Helpers ──────────────────────────────────────────────────────────────────

type envelope map[string]any

func first(ss []string, fallback string) string {
	if len(ss) > 0 && ss[0] != "" {
		return ss[0]
	}
	return fallback
}
