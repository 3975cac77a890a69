// internal/web/response.go
//
// Response: status, headers, and body, built up by the dispatcher and
// middleware and written once at the end of the request.

package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
)

// ServerName is sent in the Server header.
const ServerName = "adminkit"

// Envelope is the JSON shape of every API response.
type Envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

// Response is the in-progress reply.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// NewResponse returns a 200 with the default JSON and CORS headers.
func NewResponse() *Response {
	h := http.Header{}
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Server", ServerName)
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,PATCH,OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type,X-CSRF-Token,Authorization")
	return &Response{Status: http.StatusOK, Header: h}
}

// SetCookie appends a Set-Cookie header.
func (r *Response) SetCookie(c *http.Cookie) {
	if v := c.String(); v != "" {
		r.Header.Add("Set-Cookie", v)
	}
}

// JSON encodes v as the body without HTML escaping.
func (r *Response) JSON(status int, v any) *Response {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		buf.Reset()
		buf.WriteString(`{"code":500,"msg":"Internal server error"}`)
		status = http.StatusInternalServerError
	}
	r.Status = status
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	r.Body = bytes.TrimRight(buf.Bytes(), "\n")
	return r
}

// Reply writes an Envelope whose code doubles as the HTTP status.
func (r *Response) Reply(code int, msg string, data any) *Response {
	return r.JSON(code, Envelope{Code: code, Msg: msg, Data: data})
}

// IsJSON reports whether the body is declared as JSON.
func (r *Response) IsJSON() bool {
	ct := r.Header.Get("Content-Type")
	return len(ct) >= 16 && ct[:16] == "application/json"
}

// WriteTo flushes the response.
func (r *Response) WriteTo(w http.ResponseWriter) error {
	for k, vs := range r.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(r.Body)))
	w.WriteHeader(r.Status)
	_, err := w.Write(r.Body)
	return err
}
