package conversation

import "fmt"

// TurnState is the phase of the chat loop.
type TurnState string

const (
	StateAwaitingSelection TurnState = "AWAITING_SELECTION"
	StateAgentSpeaking     TurnState = "AGENT_SPEAKING"
	StateTerminationCheck  TurnState = "TERMINATION_CHECK"
	StatePaused            TurnState = "PAUSED"
)

// TurnEvent drives a TurnState transition.
type TurnEvent string

const (
	EventAgentSelected TurnEvent = "agent_selected" // 选出了发言人
	EventNoSelection   TurnEvent = "no_selection"   // 名册为空
	EventReplyAppended TurnEvent = "reply_appended" // 发言已追加
	EventContinue      TurnEvent = "continue"
	EventTerminate     TurnEvent = "terminate"
	EventUserMessage   TurnEvent = "user_message" // 新的用户消息
)

var transitions = map[TurnState]map[TurnEvent]TurnState{
	StateAwaitingSelection: {
		EventAgentSelected: StateAgentSpeaking,
		EventNoSelection:   StatePaused,
	},
	StateAgentSpeaking: {
		EventReplyAppended: StateTerminationCheck,
	},
	StateTerminationCheck: {
		EventContinue:  StateAwaitingSelection,
		EventTerminate: StatePaused,
	},
	StatePaused: {
		EventUserMessage: StateAwaitingSelection,
	},
}

// Next returns the state reached from s on ev.
func (s TurnState) Next(ev TurnEvent) (TurnState, error) {
	if to, ok := transitions[s][ev]; ok {
		return to, nil
	}
	return s, fmt.Errorf("invalid transition from %s on %s", s, ev)
}
