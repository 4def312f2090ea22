package observability

const (
	AttrCognitionID        = "cognition.id"
	AttrCognitionParentID  = "cognition.parent_id"
	AttrCognitionOperation = "cognition.operation"
	AttrCognitionAgentID   = "cognition.agent_id"
	AttrToolName           = "tool.name"
	AttrErrorType          = "error.type"
	AttrPolicyViolation    = "sandbox.policy_violation"

	SpanCognitionExecute = "kernel.execute"
	SpanToolInvoke       = "kernel.tool_invoke"
	SpanSandboxEnforce   = "kernel.sandbox_enforce"
	SpanCognitionLog     = "kernel.cognition_log_append"

	DefaultServiceName  = "ail"
	DefaultSamplingRate = 1.0
	DefaultOTLPEndpoint = "localhost:4317"
	DefaultMetricsPath  = "/metrics"
)
