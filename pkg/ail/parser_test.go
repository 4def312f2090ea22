package ail

import (
	"strings"
	"testing"

	aerrors "github.com/ailrun/ail/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SimpleExecute(t *testing.T) {
	c, err := Parse(`(EXECUTE [shell] ["echo hello"])`)
	require.NoError(t, err)
	assert.Equal(t, OpExecute, c.Operation)
	require.Len(t, c.Args, 2)

	entity, ok := c.Args[0].(*Entity)
	require.True(t, ok)
	assert.Equal(t, "shell", entity.Name)

	args, ok := c.Args[1].([]Value)
	require.True(t, ok)
	require.Len(t, args, 1)
	assert.Equal(t, "echo hello", args[0])

	assert.NotEmpty(t, c.ID)
	assert.Empty(t, c.ParentID)
}

func TestParse_NestedCognitionsGetParentIDs(t *testing.T) {
	c, err := Parse(`(TRY (EXECUTE [flaky] []) ON-FAIL (EXECUTE [kv] ["recovered"]))`)
	require.NoError(t, err)
	require.Len(t, c.Args, 3)

	attempt, ok := c.Args[0].(*Cognition)
	require.True(t, ok)
	assert.Equal(t, c.ID, attempt.ParentID)

	_, ok = c.Args[1].(OnFailMarker)
	require.True(t, ok)

	recovery, ok := c.Args[2].(*Cognition)
	require.True(t, ok)
	assert.Equal(t, c.ID, recovery.ParentID)
}

func TestParse_EntityWithPayload(t *testing.T) {
	c, err := Parse(`(LET [x:42] (EXECUTE [shell] []))`)
	require.NoError(t, err)
	entity, ok := c.Args[0].(*Entity)
	require.True(t, ok)
	assert.Equal(t, "x", entity.Name)
	assert.Equal(t, 42.0, entity.Payload)
}

func TestParse_LetBindingList(t *testing.T) {
	c, err := Parse(`(LET ((x (EXECUTE [kv] ["42"]))) (EXECUTE [kv] [x]))`)
	require.NoError(t, err)
	assert.Equal(t, OpLet, c.Operation)
	require.Len(t, c.Args, 2)

	bindings, ok := c.Args[0].([]Value)
	require.True(t, ok)
	require.Len(t, bindings, 1)

	binding, ok := bindings[0].(*Entity)
	require.True(t, ok)
	assert.Equal(t, "x", binding.Name)

	cog, ok := binding.Payload.(*Cognition)
	require.True(t, ok)
	assert.Equal(t, OpExecute, cog.Operation)

	body, ok := c.Args[1].(*Cognition)
	require.True(t, ok)
	assert.Equal(t, OpExecute, body.Operation)
}

func TestParse_LetBindingListMultipleBindingsInOrder(t *testing.T) {
	c, err := Parse(`(LET ((x (EXECUTE [kv] ["1"])) (y (EXECUTE [kv] ["2"]))) (EXECUTE [kv] [y]))`)
	require.NoError(t, err)

	bindings := c.Args[0].([]Value)
	require.Len(t, bindings, 2)
	assert.Equal(t, "x", bindings[0].(*Entity).Name)
	assert.Equal(t, "y", bindings[1].(*Entity).Name)
}

func TestParse_LetEmptyBindingList(t *testing.T) {
	c, err := Parse(`(LET () (EXECUTE [kv] ["1"]))`)
	require.NoError(t, err)
	bindings := c.Args[0].([]Value)
	assert.Empty(t, bindings)
}

func TestParse_MetadataPromotedToCognition(t *testing.T) {
	c, err := Parse(`(QUERY {"intent":"standard","limit":5})`)
	require.NoError(t, err)
	require.NotNil(t, c.Metadata)
	assert.Equal(t, "standard", c.Metadata["intent"])
	assert.Equal(t, 5.0, c.Metadata["limit"])
}

func TestParse_ArrayDistinguishedFromEntity(t *testing.T) {
	c, err := Parse(`(EXECUTE [shell] [1,2,3])`)
	require.NoError(t, err)
	arr, ok := c.Args[1].([]Value)
	require.True(t, ok)
	assert.Equal(t, []Value{1.0, 2.0, 3.0}, arr)
}

func TestParse_EmptyArray(t *testing.T) {
	c, err := Parse(`(EXECUTE [shell] [])`)
	require.NoError(t, err)
	arr, ok := c.Args[1].([]Value)
	require.True(t, ok)
	assert.Empty(t, arr)
}

func TestParse_DepthBoundary(t *testing.T) {
	// Exactly 10 levels of nesting parses under the default max_depth.
	depth10 := `(LET [a] (LET [a] (LET [a] (LET [a] (LET [a] ` +
		`(LET [a] (LET [a] (LET [a] (LET [a] (LET [a] []))))))))))`
	_, err := ParseWithLimits(depth10, Limits{MaxDepth: 10, MaxTokens: 1000})
	require.NoError(t, err)

	depth11 := `(LET [a] ` + depth10 + `)`
	_, err = ParseWithLimits(depth11, Limits{MaxDepth: 10, MaxTokens: 1000})
	require.Error(t, err)
	aerr, ok := aerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, aerrors.KindSecurity, aerr.Kind)
}

func TestParse_TrailingInputRejected(t *testing.T) {
	_, err := Parse(`(EXECUTE [shell] []) (EXECUTE [shell] [])`)
	require.Error(t, err)
}

func TestParse_UnterminatedCognition(t *testing.T) {
	_, err := Parse(`(EXECUTE [shell] []`)
	require.Error(t, err)
}

func TestParse_OnFailOutsideTryIsStillParsed(t *testing.T) {
	// The parser accepts the bare ON-FAIL token wherever a value may
	// appear; rejecting it outside TRY is the validator's job.
	c, err := Parse(`(LET [a] ON-FAIL)`)
	require.NoError(t, err)
	_, ok := c.Args[1].(OnFailMarker)
	assert.True(t, ok)
}

func TestParse_BareOperationOtherThanOnFailRejected(t *testing.T) {
	_, err := Parse(`(LET [a] QUERY)`)
	require.Error(t, err)
}

func TestParse_EmptyInput(t *testing.T) {
	_, err := Parse("")
	require.Error(t, err)
}

func TestParse_TotalOverWellFormedInput(t *testing.T) {
	inputs := []string{
		`(QUERY {"intent":"standard"})`,
		`(EXECUTE [shell] ["ls"])`,
		`(PLAN {"mode":"explore"})`,
		`(COMMUNICATE [peer] "hi")`,
		`(LET [x:1] (EXECUTE [shell] []))`,
		`(TRY (EXECUTE [a] []) ON-FAIL (EXECUTE [b] []))`,
		`(AWAIT [task] 5000)`,
		`(SANDBOXED-EXECUTE [shell] [] {"memory_limit_mb":64})`,
		`(CLARIFY "what do you mean?")`,
		`(EVENT [name] {"on":"startup"})`,
	}
	for _, in := range inputs {
		_, err := Parse(in)
		assert.NoErrorf(t, err, "input: %s", in)
	}
}

func TestParse_StringsRoundTripThroughLexer(t *testing.T) {
	c, err := Parse(`(CLARIFY "multi\nline \"quoted\"")`)
	require.NoError(t, err)
	assert.True(t, strings.Contains(c.Args[0].(string), "\n"))
}
