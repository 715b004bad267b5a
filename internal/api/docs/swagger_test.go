package docs

import (
	"go/format"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSwagger(t *testing.T) {
	doc, err := NewSwagger().ToJson()
	require.NoError(t, err)

	for _, path := range []string{"/start-enrollment", "/enroll-frame", "/complete", "/cancel-enrollment", "/sessions/{id}", "/ws"} {
		assert.Contains(t, string(doc), `"`+path+`"`)
	}
}

func TestSwaggerSourceIsFormatted(t *testing.T) {
	src, err := os.ReadFile("swagger.go")
	require.NoError(t, err)

	formatted, err := format.Source(src)
	require.NoError(t, err)
	assert.Equal(t, string(formatted), string(src))
}
