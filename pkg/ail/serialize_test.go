package ail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerialize_Basic(t *testing.T) {
	c, err := Parse(`(EXECUTE [shell] ["echo hello"])`)
	require.NoError(t, err)
	assert.Equal(t, `(EXECUTE [shell] ["echo hello"])`, Serialize(c))
}

func TestSerialize_MetadataKeysSorted(t *testing.T) {
	c, err := Parse(`(QUERY {"limit":5,"intent":"standard"})`)
	require.NoError(t, err)
	assert.Equal(t, `(QUERY {"intent":"standard","limit":5})`, Serialize(c))
}

func TestSerialize_IdempotentReparse(t *testing.T) {
	inputs := []string{
		`(EXECUTE [shell] ["echo hello"])`,
		`(TRY (EXECUTE [flaky] []) ON-FAIL (EXECUTE [kv] ["recovered"]))`,
		`(QUERY {"intent":"standard","limit":5})`,
		`(LET [x:42] (EXECUTE [shell] []))`,
		`(LET ((x (EXECUTE [kv] ["42"]))) (EXECUTE [kv] [x]))`,
		`(SANDBOXED-EXECUTE [shell] [] {"memory_limit_mb":64,"network_access":false})`,
	}
	for _, in := range inputs {
		c1, err := Parse(in)
		require.NoError(t, err)
		text1 := Serialize(c1)

		c2, err := Parse(text1)
		require.NoError(t, err)
		text2 := Serialize(c2)

		assert.Equalf(t, text1, text2, "input: %s", in)
		assert.NotEqual(t, c1.ID, c2.ID, "re-parsing must mint fresh IDs")
	}
}

func TestSerialize_LetBindingList(t *testing.T) {
	c, err := Parse(`(LET ((x (EXECUTE [kv] ["42"]))) (EXECUTE [kv] [x]))`)
	require.NoError(t, err)
	assert.Equal(t, `(LET ((x (EXECUTE [kv] ["42"]))) (EXECUTE [kv] [x]))`, Serialize(c))
}

func TestSerialize_LetBindingListMultipleBindings(t *testing.T) {
	c, err := Parse(`(LET ((x (EXECUTE [a] [])) (y (EXECUTE [b] []))) (EXECUTE [c] [[x],[y]]))`)
	require.NoError(t, err)
	assert.Equal(t, `(LET ((x (EXECUTE [a] [])) (y (EXECUTE [b] []))) (EXECUTE [c] [[x],[y]]))`, Serialize(c))
}

func TestSerialize_Entities(t *testing.T) {
	c, err := Parse(`(LET [bare] (LET [x:1] []))`)
	require.NoError(t, err)
	assert.Equal(t, `(LET [bare] (LET [x:1] []))`, Serialize(c))
}

func TestSerialize_NullAndBooleans(t *testing.T) {
	c, err := Parse(`(EXECUTE [t] [true,false,null])`)
	require.NoError(t, err)
	assert.Equal(t, `(EXECUTE [t] [true,false,null])`, Serialize(c))
}
