// Package testkit holds the shared test helpers: a route-table HTTP mock
// for the platter client and a few testify-based assertions over it.
package testkit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertCalled checks that method+path was requested exactly n times.
func AssertCalled(t *testing.T, mt *MockTransport, method, path string, n int) {
	t.Helper()
	assert.Equal(t, n, mt.Calls(method, path), "calls to %s %s", method, path)
}

// DecodeLast unmarshals the body of the most recent call to method+path.
func DecodeLast(t *testing.T, mt *MockTransport, method, path string, dest interface{}) {
	t.Helper()
	call, ok := mt.Last(method, path)
	require.True(t, ok, "no call to %s %s", method, path)
	require.NoError(t, json.Unmarshal(call.Body, dest), "body of %s %s: %s", method, path, call.Body)
}

// AssertJSONBody compares the most recent request body to expected after
// normalising both through JSON, so key order and whitespace never matter.
func AssertJSONBody(t *testing.T, mt *MockTransport, method, path, expected string) {
	t.Helper()
	var want, got interface{}
	require.NoError(t, json.Unmarshal([]byte(expected), &want), "expected body is not valid JSON")
	DecodeLast(t, mt, method, path, &got)
	assert.Equal(t, want, got, "request body of %s %s", method, path)
}

// AssertBearer checks the Authorization header on the last call.
func AssertBearer(t *testing.T, mt *MockTransport, method, path, token string) {
	t.Helper()
	call, ok := mt.Last(method, path)
	require.True(t, ok, "no call to %s %s", method, path)
	assert.Equal(t, "Bearer "+token, call.Header.Get("Authorization"))
}
