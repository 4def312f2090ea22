package kernel

import "time"

// CausalityNode is one entry of an append-only causality chain
// (spec.md §3): one per evaluated cognition within a single execute
// call. DriveInfluences is reserved by the spec and always empty.
type CausalityNode struct {
	CognitionID     string
	Operation       string
	StartedAt       time.Time
	FinishedAt      time.Time
	Success         bool
	ParentID        string
	DriveInfluences []string
}

// CausalityChain is the ordered record of nodes produced by one
// execute call, pushed to in parent-before-child evaluation order.
type CausalityChain struct {
	nodes []CausalityNode
}

// push appends a new in-progress node and returns its index for the
// matching finish call.
func (c *CausalityChain) push(cognitionID, operation, parentID string) int {
	c.nodes = append(c.nodes, CausalityNode{
		CognitionID: cognitionID,
		Operation:   operation,
		ParentID:    parentID,
		StartedAt:   time.Now(),
	})
	return len(c.nodes) - 1
}

// finish records the outcome of the node pushed at idx.
func (c *CausalityChain) finish(idx int, success bool) {
	c.nodes[idx].FinishedAt = time.Now()
	c.nodes[idx].Success = success
}

// Nodes returns the chain's nodes in evaluation order.
func (c *CausalityChain) Nodes() []CausalityNode {
	return c.nodes
}

func (c *CausalityChain) Len() int {
	return len(c.nodes)
}
