package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userSchema = `{
  "schema": {
    "type": "object",
    "required": ["id"],
    "properties": {
      "id": {"type": "string"},
      "age": {"type": "integer"}
    }
  }
}`

const treeSchema = `{
  "schema": {"$ref": "#/components/schemas/TreeNode"},
  "components": {
    "TreeNode": {
      "type": "object",
      "required": ["value"],
      "properties": {
        "value": {"type": "string"},
        "parent": {"$ref": "#/components/schemas/TreeNode"}
      }
    }
  }
}`

func TestValidateAcceptsMatchingPayload(t *testing.T) {
	v, err := Compile([]byte(userSchema))
	require.NoError(t, err)

	assert.NoError(t, v.Validate(map[string]any{"id": "u1"}))
	assert.NoError(t, v.Validate(map[string]any{"id": "u1", "age": float64(30)}))
}

func TestValidateRejectsWithStructuredError(t *testing.T) {
	v, err := Compile([]byte(userSchema))
	require.NoError(t, err)

	err = v.Validate(map[string]any{"id": "u1", "age": "thirty"})
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "/age", verr.Path)
	assert.Equal(t, "integer", verr.Expected)
	assert.Equal(t, "thirty", verr.Actual)

	err = v.Validate(map[string]any{"age": float64(3)})
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Reason)
}

func TestCompileLinksReferenceCycles(t *testing.T) {
	v, err := Compile([]byte(treeSchema))
	require.NoError(t, err)

	ok := map[string]any{
		"value": "root",
		"parent": map[string]any{
			"value": "child",
		},
	}
	assert.NoError(t, v.Validate(ok))

	bad := map[string]any{
		"value":  "root",
		"parent": map[string]any{},
	}
	assert.Error(t, v.Validate(bad), "nested node missing required value")
}

func TestCompileLinksAdditionalProperties(t *testing.T) {
	const countersSchema = `{
	  "schema": {
	    "type": "object",
	    "additionalProperties": {"$ref": "#/components/schemas/Count"}
	  },
	  "components": {
	    "Count": {"type": "integer"}
	  }
	}`
	v, err := Compile([]byte(countersSchema))
	require.NoError(t, err)

	assert.NoError(t, v.Validate(map[string]any{"hits": float64(3)}))
	assert.Error(t, v.Validate(map[string]any{"hits": "three"}))
}

func TestCompileRejectsUnknownReference(t *testing.T) {
	_, err := Compile([]byte(`{"schema": {"$ref": "#/components/schemas/Nope"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nope")
}

func TestCompileRejectsGarbage(t *testing.T) {
	_, err := Compile([]byte(`{`))
	assert.Error(t, err)

	_, err = Compile([]byte(`{}`))
	assert.Error(t, err, "missing root schema")
}

func TestValidatorIsReentrant(t *testing.T) {
	v, err := Compile([]byte(userSchema))
	require.NoError(t, err)

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				_ = v.Validate(map[string]any{"id": "u1"})
				_ = v.Validate(map[string]any{"age": "bad"})
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
