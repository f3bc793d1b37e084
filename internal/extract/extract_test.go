package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routeforge/routeforge/internal/analyzer"
)

func load(t *testing.T, dir string) *analyzer.Program {
	t.Helper()
	prog, err := analyzer.Load(context.Background(), dir, nil)
	require.NoError(t, err)
	return prog
}

func TestExtractDiscoversRoutesInDeclarationOrder(t *testing.T) {
	res := Extract(load(t, "testdata/demo"))

	require.Empty(t, res.Errors)
	require.Empty(t, res.Conflicts)
	require.Len(t, res.Routes, 5)

	got := make([][2]string, 0, len(res.Routes))
	for _, r := range res.Routes {
		got = append(got, [2]string{r.Method, r.Path})
	}
	assert.Equal(t, [][2]string{
		{"GET", "/users/{id}"},
		{"GET", "/users"},
		{"POST", "/users"},
		{"DELETE", "/users/{id}"},
		{"GET", "/healthz"},
	}, got)

	first := res.Routes[0]
	assert.Equal(t, "GetUser", first.Handler.FuncName)
	assert.Equal(t, "example.com/demo/handlers", first.Handler.PkgPath)
	assert.True(t, first.Handler.Exported())
	require.NotNil(t, first.RequestType)
	require.NotNil(t, first.ResponseType)

	del := res.Routes[3]
	assert.Nil(t, del.ResponseType, "error-only result has no response schema")

	health := res.Routes[4]
	assert.Nil(t, health.RequestType, "context-only handler has no request schema")
	require.NotNil(t, health.ResponseType)
}

func TestExtractReportsDuplicateRoutes(t *testing.T) {
	res := Extract(load(t, "testdata/conflict"))

	require.Len(t, res.Conflicts, 1)
	c := res.Conflicts[0]
	assert.Equal(t, "GET", c.Method)
	assert.Equal(t, "/items/{id}", c.Path)
	assert.NotEmpty(t, c.First)
	assert.NotEmpty(t, c.Second)
	assert.NotEqual(t, c.First, c.Second, "conflict must name both declaration sites")

	// First declaration wins the surviving route set.
	require.Len(t, res.Routes, 1)
	assert.Equal(t, "GetItem", res.Routes[0].Handler.FuncName)
}

func TestExtractPartialFailure(t *testing.T) {
	res := Extract(load(t, "testdata/broken"))

	// One resolvable route survives three broken declarations.
	require.Len(t, res.Routes, 1)
	assert.Equal(t, "Ping", res.Routes[0].Handler.FuncName)

	require.Len(t, res.Errors, 3)

	var resolution *ResolutionError
	var directives int
	for _, err := range res.Errors {
		switch e := err.(type) {
		case *ResolutionError:
			resolution = e
		case *DirectiveError:
			directives++
		}
	}
	require.NotNil(t, resolution, "unresolvable parameter type must be a ResolutionError")
	assert.Contains(t, resolution.Handler, "Broken")
	assert.Equal(t, 2, directives)
}

func TestPathParams(t *testing.T) {
	assert.Equal(t, []string{"id"}, PathParams("/users/{id}"))
	assert.Equal(t, []string{"a", "b"}, PathParams("/x/{a}/y/{b}"))
	assert.Nil(t, PathParams("/plain"))
}
