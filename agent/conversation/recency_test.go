package conversation

import (
	"testing"

	"github.com/BaSui01/turnkeeper/testutil/fixtures"
	"github.com/BaSui01/turnkeeper/types"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestLastSpeakers(t *testing.T) {
	tests := []struct {
		name     string
		speakers []string
		window   int
		want     []string
	}{
		{"empty", nil, 3, []string{}},
		{"zero window", []string{"A", "B"}, 0, []string{}},
		{"negative window", []string{"A"}, -1, []string{}},
		{"single", []string{"A"}, 3, []string{"A"}},
		{"most recent first", []string{"A", "B", "C"}, 3, []string{"C", "B", "A"}},
		{"distinct only", []string{"A", "B", "A", "A"}, 3, []string{"A", "B"}},
		{"window caps", []string{"A", "B", "C", "D"}, 3, []string{"D", "C", "B"}},
		{"user skipped", []string{"A", "B", "user"}, 3, []string{"B", "A"}},
		{"only user", []string{"user", "user"}, 3, []string{}},
		{"skips empty speaker", []string{"A", "", "B"}, 3, []string{"B", "A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LastSpeakers(fixtures.Messages(tt.speakers...), tt.window)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProperty_LastSpeakersWindow(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)
	ids := []string{"A", "B", "C", "D", "E", types.SpeakerUser}
	speakerGen := gen.IntRange(0, len(ids)-1).Map(func(i int) string { return ids[i] })

	properties.Property("distinct agents, bounded, most recent first", prop.ForAll(
		func(speakers []string, window int) bool {
			msgs := fixtures.Messages(speakers...)
			got := LastSpeakers(msgs, window)

			if len(got) > window {
				t.Logf("len %d exceeds window %d", len(got), window)
				return false
			}
			seen := map[string]bool{}
			for _, s := range got {
				if seen[s] {
					t.Logf("duplicate speaker %s", s)
					return false
				}
				seen[s] = true
			}
			agents := make([]string, 0, len(speakers))
			for _, s := range speakers {
				if s != types.SpeakerUser {
					agents = append(agents, s)
				}
			}
			if len(agents) > 0 && window > 0 && got[0] != agents[len(agents)-1] {
				t.Logf("first %s is not the latest agent speaker", got[0])
				return false
			}

			// 按最近一次发言的位置严格递减
			lastIdx := func(id string) int {
				for i := len(speakers) - 1; i >= 0; i-- {
					if speakers[i] == id {
						return i
					}
				}
				return -1
			}
			for i := 1; i < len(got); i++ {
				if lastIdx(got[i]) >= lastIdx(got[i-1]) {
					return false
				}
			}

			distinct := map[string]bool{}
			for _, s := range agents {
				distinct[s] = true
			}
			want := window
			if len(distinct) < want {
				want = len(distinct)
			}
			return len(got) == want
		},
		gen.SliceOf(speakerGen),
		gen.IntRange(0, 5),
	))

	properties.TestingRun(t)
}
