package nio

import (
	"io"
	"net/http"
	"strconv"
	"sync"
)

// HttpEntity is the minimal shape this core needs from a request or response
// body. Construction of concrete entities (chunked, fixed-length, streaming)
// belongs to the request-processing pipeline, which is out of scope (§1); the
// core only needs to know whether an entity exists, how big it declares
// itself, and how to write/read it.
type HttpEntity interface {
	// ContentLength reports the declared length, or -1 if unknown (chunked).
	ContentLength() int64

	// WriteTo streams the entity's bytes into w. Used by the request-body
	// worker task (§4.3 "Worker: request-body task").
	WriteTo(w io.Writer) error
}

// ReaderEntity adapts an io.Reader-backed entity so the response-handling
// worker can install the shared input buffer as its content source (§4.3
// response_received, "wrap the response entity so its content source is the
// shared input buffer").
type ReaderEntity struct {
	Length int64
	Source io.Reader
}

func (e *ReaderEntity) ContentLength() int64 { return e.Length }

func (e *ReaderEntity) WriteTo(w io.Writer) error {
	_, err := io.Copy(w, e.Source)
	return err
}

// HttpRequest is the in-flight request record held by ConnectionState.
// Headers and method are those net/http already models; the entity (if any)
// is produced by the caller, never by this core (§1).
type HttpRequest struct {
	Method         string
	Target         string
	Proto          string
	Header         http.Header
	Entity         HttpEntity
	ExpectContinue bool
}

// EnclosesEntity reports whether this request carries a body, per §4.3
// request_ready ("If the request encloses an entity").
func (r *HttpRequest) EnclosesEntity() bool {
	return r != nil && r.Entity != nil
}

// HttpResponse is the in-flight response record held by ConnectionState.
type HttpResponse struct {
	StatusCode int
	Proto      string
	Header     http.Header
	Entity     HttpEntity
}

// IsInformational reports whether this is a 1xx interim response, per §4.3
// response_received.
func (r *HttpResponse) IsInformational() bool {
	return r != nil && r.StatusCode >= 100 && r.StatusCode < 200
}

// Is100Continue reports whether this is specifically the 100-Continue
// interim response named in §4.3 response_received and §4.4.
func (r *HttpResponse) Is100Continue() bool {
	return r != nil && r.StatusCode == http.StatusContinue
}

// ContentLengthOrUnknown reads the Content-Length header off a response,
// returning -1 if absent or malformed (chunked/unknown length).
func (r *HttpResponse) ContentLengthOrUnknown() int64 {
	if r == nil || r.Header == nil {
		return -1
	}
	v := r.Header.Get("Content-Length")
	if v == "" {
		return -1
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

// CanHaveBody implements the §4.3 "Can-have-body rule for a response":
// false if the paired request used HEAD, if status is 204 or 304, or if
// status < 200; true otherwise.
func CanHaveBody(req *HttpRequest, resp *HttpResponse) bool {
	if resp == nil {
		return false
	}
	if req != nil && req.Method == http.MethodHead {
		return false
	}
	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusNotModified:
		return false
	}
	return resp.StatusCode >= 200
}

// HttpContext carries the per-exchange context attributes the core sets,
// per §6 "Context attributes set by the core": http.connection,
// http.target_host, http.request, http.response, and the private conn.state.
//
// §5 shares one context between the I/O thread (every event handler reads
// it via stateOf) and worker goroutines (HandleResponse, and a kept-alive
// exchange's renewed SubmitRequest call writing AttrRequest back in); a bare
// map would race the way the teacher's own cross-thread fields never do
// unguarded, so access is serialized by mu, mirroring smux's streamLock.
type HttpContext struct {
	mu    sync.RWMutex
	attrs map[string]interface{}
}

// NewHttpContext returns an empty context ready for InitializeContext.
func NewHttpContext() *HttpContext {
	return &HttpContext{attrs: make(map[string]interface{})}
}

func (c *HttpContext) Set(key string, value interface{}) {
	c.mu.Lock()
	c.attrs[key] = value
	c.mu.Unlock()
}

func (c *HttpContext) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.attrs[key]
	return v, ok
}

// Context attribute keys set by the core (§6).
const (
	AttrConnection = "http.connection"
	AttrTargetHost = "http.target_host"
	AttrRequest    = "http.request"
	AttrResponse   = "http.response"
	attrConnState  = "conn.state" // private: only the core reads this
)
