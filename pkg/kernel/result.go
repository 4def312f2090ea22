package kernel

import (
	"time"

	"github.com/ailrun/ail/pkg/ail"
	aerrors "github.com/ailrun/ail/pkg/errors"
)

// CognitionResult is what a top-level Execute call returns (spec.md
// §3). Value's shape depends on the root cognition's operation.
type CognitionResult struct {
	Success         bool
	Value           ail.Value
	Error           *aerrors.Error
	ExecutionTimeMS int64
	CausalityChain  []CausalityNode
	Metadata        map[string]interface{}
}

func successResult(value ail.Value, started time.Time, chain *CausalityChain) CognitionResult {
	return CognitionResult{
		Success:         true,
		Value:           value,
		ExecutionTimeMS: time.Since(started).Milliseconds(),
		CausalityChain:  chain.Nodes(),
	}
}

func failureResult(err error, started time.Time, chain *CausalityChain) CognitionResult {
	aerr, ok := aerrors.As(err)
	if !ok {
		aerr = aerrors.Wrap(aerrors.KindInternal, "unclassified failure", err)
	}
	return CognitionResult{
		Success:         false,
		Error:           aerr,
		ExecutionTimeMS: time.Since(started).Milliseconds(),
		CausalityChain:  chain.Nodes(),
	}
}
