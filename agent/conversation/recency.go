package conversation

import "github.com/BaSui01/turnkeeper/types"

// DefaultRecencyWindow 反重复窗口大小
const DefaultRecencyWindow = 3

// LastSpeakers returns up to window distinct agent speakers of messages, most
// recent first. User messages and messages without a speaker are skipped.
func LastSpeakers(messages []types.Message, window int) []string {
	if window <= 0 || len(messages) == 0 {
		return []string{}
	}
	out := make([]string, 0, window)
	for i := len(messages) - 1; i >= 0 && len(out) < window; i-- {
		speaker := messages[i].Speaker
		if speaker == "" || speaker == types.SpeakerUser || contains(out, speaker) {
			continue
		}
		out = append(out, speaker)
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// firstNotIn returns the first roster agent whose id is not in excluded.
func firstNotIn(agents []types.Agent, excluded []string) (types.Agent, bool) {
	for _, a := range agents {
		if !contains(excluded, a.ID) {
			return a, true
		}
	}
	return types.Agent{}, false
}
