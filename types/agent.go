package types

// Agent is a participant of a group conversation. The core only reads agents;
// the roster is owned by the agent registry.
type Agent struct {
	ID              string `json:"id" yaml:"id"`
	Name            string `json:"name" yaml:"name"`
	Characteristics string `json:"characteristics,omitempty" yaml:"characteristics,omitempty"`
}

// AgentIDs returns the ids of agents in roster order.
func AgentIDs(agents []Agent) []string {
	ids := make([]string, 0, len(agents))
	for _, a := range agents {
		ids = append(ids, a.ID)
	}
	return ids
}
