package validator

import (
	"testing"

	"github.com/ailrun/ail/pkg/ail"
	aerrors "github.com/ailrun/ail/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *ail.Cognition {
	t.Helper()
	c, err := ail.Parse(src)
	require.NoError(t, err)
	return c
}

func TestValidate_Query(t *testing.T) {
	assert.NoError(t, Validate(parse(t, `(QUERY {"intent":"find logs","mode":"standard"})`)))
	assert.Error(t, Validate(parse(t, `(QUERY {"mode":"standard"})`)))
	assert.Error(t, Validate(parse(t, `(QUERY {"intent":"x","mode":"bogus"})`)))
	assert.Error(t, Validate(parse(t, `(QUERY {"intent":"x"} {"intent":"y"})`)))
}

func TestValidate_Execute(t *testing.T) {
	assert.NoError(t, Validate(parse(t, `(EXECUTE [shell] ["ls"])`)))
	assert.Error(t, Validate(parse(t, `(EXECUTE ["ls"])`)))
	assert.Error(t, Validate(parse(t, `(EXECUTE [shell] ["ls"] ["extra"])`)))
}

func TestValidate_Plan(t *testing.T) {
	assert.NoError(t, Validate(parse(t, `(PLAN {"goal":"do it"} (EXECUTE [a] []))`)))
	assert.Error(t, Validate(parse(t, `(PLAN {"goal":"do it"})`)))
	assert.Error(t, Validate(parse(t, `(PLAN {} (EXECUTE [a] []))`)))
}

func TestValidate_Communicate(t *testing.T) {
	assert.NoError(t, Validate(parse(t, `(COMMUNICATE [peer] (EXECUTE [a] []))`)))
	assert.Error(t, Validate(parse(t, `(COMMUNICATE [peer] "hi")`)))
}

func TestValidate_Let(t *testing.T) {
	assert.NoError(t, Validate(parse(t, `(LET ((x (EXECUTE [a] []))) (EXECUTE [b] []))`)))
	assert.Error(t, Validate(parse(t, `(LET ((x (EXECUTE [a] [])) (x (EXECUTE [c] []))) (EXECUTE [b] []))`)))
	assert.Error(t, Validate(parse(t, `(LET ((x 1)) (EXECUTE [b] []))`)))
}

func TestValidate_Try(t *testing.T) {
	assert.NoError(t, Validate(parse(t, `(TRY (EXECUTE [a] []) ON-FAIL (EXECUTE [b] []))`)))
	assert.Error(t, Validate(parse(t, `(TRY (EXECUTE [a] []) (EXECUTE [b] []))`)))
}

func TestValidate_OnFailStandaloneRejected(t *testing.T) {
	err := Validate(parse(t, `(ON-FAIL (EXECUTE [a] []))`))
	require.Error(t, err)
	aerr, ok := aerrors.As(err)
	require.True(t, ok)
	assert.Equal(t, aerrors.KindValidation, aerr.Kind)
}

func TestValidate_Await(t *testing.T) {
	assert.NoError(t, Validate(parse(t, `(AWAIT (EXECUTE [a] []))`)))
	assert.NoError(t, Validate(parse(t, `(AWAIT (EXECUTE [a] []) {"timeout_ms":5000})`)))
	assert.Error(t, Validate(parse(t, `(AWAIT (EXECUTE [a] []) {"timeout_ms":"soon"})`)))
}

func TestValidate_SandboxedExecute(t *testing.T) {
	assert.NoError(t, Validate(parse(t, `(SANDBOXED-EXECUTE [shell] ["ls"])`)))
	assert.NoError(t, Validate(parse(t, `(SANDBOXED-EXECUTE [shell] ["ls"] {"policy":{"memory_limit_mb":64}})`)))
	assert.Error(t, Validate(parse(t, `(SANDBOXED-EXECUTE [shell] ["ls"] {"policy":"strict"})`)))
}

func TestValidate_Clarify(t *testing.T) {
	assert.NoError(t, Validate(parse(t, `(CLARIFY {"ambiguous_intent":"x","clarification_prompt":"which one?"})`)))
	assert.Error(t, Validate(parse(t, `(CLARIFY {"ambiguous_intent":"x"})`)))
}

func TestValidate_Event(t *testing.T) {
	assert.NoError(t, Validate(parse(t, `(EVENT {"name":"startup","trigger":"boot","handler":(EXECUTE [a] [])})`)))
	assert.Error(t, Validate(parse(t, `(EVENT {"name":"startup","trigger":"boot"})`)))
}

func TestValidate_NestedViolationPropagates(t *testing.T) {
	err := Validate(parse(t, `(PLAN {"goal":"g"} (EXECUTE ["bad"]))`))
	require.Error(t, err)
}
