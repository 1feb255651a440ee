package conversation

import (
	"fmt"
	"strings"

	"github.com/BaSui01/turnkeeper/types"
)

const selectionSystemPrompt = "You coordinate a group chat between several AI agents and one human user. " +
	"Your only job is to decide which agent should speak next. " +
	"Prefer the agent whose expertise fits the latest message and keep the discussion varied."

const terminationSystemPrompt = "You monitor a group chat between several AI agents and one human user. " +
	"Decide whether the agents should stop and wait for the user. " +
	"Pause only when the discussion reached a natural conclusion, the agents are waiting for user input, " +
	"or they are going in circles. When unsure, keep the conversation going."

// buildSelectionPrompt 构造选人提示词；recent 非空时附加反重复指令
func buildSelectionPrompt(agents []types.Agent, transcript string, recent []string) string {
	var sb strings.Builder
	sb.WriteString("Available agents:\n")
	for _, a := range agents {
		fmt.Fprintf(&sb, "- id: %s | name: %s", a.ID, a.Name)
		if a.Characteristics != "" {
			fmt.Fprintf(&sb, " | characteristics: %s", a.Characteristics)
		}
		sb.WriteByte('\n')
	}

	sb.WriteString("\nConversation so far:\n")
	if transcript == "" {
		sb.WriteString("(no messages yet)")
	} else {
		sb.WriteString(transcript)
	}
	sb.WriteString("\n\n")

	if len(recent) > 0 {
		fmt.Fprintf(&sb, "IMPORTANT: the most recent speakers were %s. "+
			"You MUST choose a different agent so that the same voices do not keep repeating.\n\n",
			strings.Join(recent, ", "))
	}

	sb.WriteString("Answer with the id of the agent that should speak next (agent_id) " +
		"and a one-sentence explanation (reasoning).")
	return sb.String()
}

func buildTerminationPrompt(transcript string) string {
	var sb strings.Builder
	sb.WriteString("Most recent messages:\n")
	if transcript == "" {
		sb.WriteString("(no messages yet)")
	} else {
		sb.WriteString(transcript)
	}
	sb.WriteString("\n\nShould the agents pause now and wait for the user? " +
		"Answer with should_terminate (true or false) and a short reason.")
	return sb.String()
}
