package types

// SelectionSource records how an AgentSelection was produced.
type SelectionSource string

const (
	SourceOracle   SelectionSource = "oracle"   // oracle choice accepted as is
	SourceOverride SelectionSource = "override" // anti-repetition override
	SourceFallback SelectionSource = "fallback" // deterministic fallback after a failed decision
)

// AgentSelection is the outcome of speaker selection. AgentID always
// references an agent of the roster the selection was computed for.
type AgentSelection struct {
	AgentID   string          `json:"agent_id"`
	Reasoning string          `json:"reasoning"`
	Source    SelectionSource `json:"source"`
}

// TerminationDecision tells the chat loop whether to pause the conversation.
type TerminationDecision struct {
	ShouldTerminate bool   `json:"should_terminate"`
	Reason          string `json:"reason"`
	// Fallback is set when the decision is the conservative default
	// produced after the oracle could not be consulted.
	Fallback bool `json:"fallback,omitempty"`
}
