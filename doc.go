// Package ail provides a sandboxed runtime for the Agent Instruction
// Language: a small S-expression language AI agents use to describe
// intent ("find X", "run tool T", "do P then Q, recover on failure")
// rather than imperative steps.
//
// The runtime is a pipeline: a lexer and parser turn AIL text into a
// typed Cognition tree (pkg/ail), a validator checks its shape
// (pkg/validator), and a kernel evaluator (pkg/kernel) reduces the
// tree against a tool registry (pkg/tool), a query planner
// (pkg/planner), and an external memory store (pkg/memory), producing
// a CognitionResult and a durable, append-only cognition log
// (pkg/cognitionlog).
//
// # Quick Start
//
//	k := kernel.New(kernel.Config{ /* ... */ })
//	result := k.Execute(ctx, `(EXECUTE [shell] ["echo hello"])`, "agent-1", kernel.Options{})
package ail
