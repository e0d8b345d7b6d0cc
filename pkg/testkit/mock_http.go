package testkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	platterhttp "github.com/shashiranjanraj/platter/pkg/http"
)

// MockTransport is an http.RoundTripper that answers from a route table
// keyed on method and path, and records every call it sees.
//
//	mt := testkit.NewMockTransport("/api")
//	mt.On("GET", "/orders/pending").Reply(200, []map[string]any{{"orderid": 1}})
//	defer mt.Install()()
type MockTransport struct {
	mu     sync.Mutex
	prefix string
	routes []*Route
	calls  []Call
}

// Route is one canned answer. The latest matching route wins, so a test can
// override a default registered earlier.
type Route struct {
	method string
	path   string
	status int
	body   []byte
	fn     func(*http.Request) (int, interface{})
	err    error
}

// Call is a recorded request.
type Call struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// NewMockTransport matches paths after stripping prefix (e.g. "/api").
func NewMockTransport(prefix string) *MockTransport {
	return &MockTransport{prefix: prefix}
}

// Install swaps the shared platter HTTP client transport and returns the
// restore func.
func (mt *MockTransport) Install() func() {
	platterhttp.DefaultClient.Transport = mt
	return platterhttp.ResetTransport
}

// On registers a route. Reply, ReplyFunc or Fail completes it.
func (mt *MockTransport) On(method, path string) *Route {
	r := &Route{method: method, path: path, status: http.StatusOK}
	mt.mu.Lock()
	mt.routes = append(mt.routes, r)
	mt.mu.Unlock()
	return r
}

// Reply answers with status and body; body is JSON-encoded unless it is a
// string or []byte.
func (r *Route) Reply(status int, body interface{}) *Route {
	r.status = status
	r.body = encode(body)
	return r
}

// ReplyFunc computes the answer per request.
func (r *Route) ReplyFunc(fn func(*http.Request) (int, interface{})) *Route {
	r.fn = fn
	return r
}

// Fail makes the transport return err, simulating a network failure.
func (r *Route) Fail(err error) *Route {
	r.err = err
	return r
}

func (mt *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		_ = req.Body.Close()
	}
	path := req.URL.Path
	if len(mt.prefix) > 0 && len(path) >= len(mt.prefix) && path[:len(mt.prefix)] == mt.prefix {
		path = path[len(mt.prefix):]
	}

	mt.mu.Lock()
	mt.calls = append(mt.calls, Call{Method: req.Method, Path: path, Header: req.Header.Clone(), Body: body})
	var match *Route
	for i := len(mt.routes) - 1; i >= 0; i-- {
		if mt.routes[i].method == req.Method && mt.routes[i].path == path {
			match = mt.routes[i]
			break
		}
	}
	mt.mu.Unlock()

	if match == nil {
		return respond(req, http.StatusNotFound, []byte(fmt.Sprintf(`{"message":"no mock for %s %s"}`, req.Method, path))), nil
	}
	if match.err != nil {
		return nil, match.err
	}
	if match.fn != nil {
		req.Body = io.NopCloser(bytes.NewReader(body))
		status, out := match.fn(req)
		return respond(req, status, encode(out)), nil
	}
	return respond(req, match.status, match.body), nil
}

// Calls returns how many times method+path was requested.
func (mt *MockTransport) Calls(method, path string) int {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	n := 0
	for _, c := range mt.calls {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

// Last returns the most recent call to method+path.
func (mt *MockTransport) Last(method, path string) (Call, bool) {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	for i := len(mt.calls) - 1; i >= 0; i-- {
		if mt.calls[i].Method == method && mt.calls[i].Path == path {
			return mt.calls[i], true
		}
	}
	return Call{}, false
}

// History returns every recorded call in order.
func (mt *MockTransport) History() []Call {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return append([]Call(nil), mt.calls...)
}

func encode(v interface{}) []byte {
	switch b := v.(type) {
	case nil:
		return nil
	case []byte:
		return b
	case string:
		return []byte(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			panic(fmt.Sprintf("testkit: encode mock body: %v", err))
		}
		return raw
	}
}

func respond(req *http.Request, status int, body []byte) *http.Response {
	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Request:    req,
	}
}
