package graphql_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gql "github.com/graphql-go/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/platter/pkg/graphql"
)

func schema(t *testing.T) gql.Schema {
	s, err := graphql.NewSchema(gql.NewObject(gql.ObjectConfig{
		Name: "Query",
		Fields: gql.Fields{
			"ping": &gql.Field{Type: gql.String, Resolve: func(gql.ResolveParams) (interface{}, error) {
				return "pong", nil
			}},
		},
	}))
	require.NoError(t, err)
	return s
}

func TestHandlerPost(t *testing.T) {
	rec := httptest.NewRecorder()
	graphql.Handler(schema(t))(rec, httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ ping }"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"ping":"pong"}}`, rec.Body.String())
}

func TestHandlerGetAndErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	graphql.Handler(schema(t))(rec, httptest.NewRequest(http.MethodGet, "/graphql?query=%7B+ping+%7D", nil))
	assert.JSONEq(t, `{"data":{"ping":"pong"}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	graphql.Handler(schema(t))(rec, httptest.NewRequest(http.MethodGet, "/graphql", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	graphql.Handler(schema(t))(rec, httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ nope }"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"errors"`)
}
