package orchestrator

import (
	"fmt"
	"strings"

	"github.com/pbulbule13/vinegar/pkg/agent"
)

// merge folds agent results, already in routing priority order, into a
// single response. Degraded results (confidence 0), empty responses,
// and duplicate texts are skipped; when nothing survives, the first
// degraded message stands so the user still gets an answer.
func merge(results []agent.Result) Response {
	valid := results[:0:0]
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		if r.Confidence > 0 && r.Content != "" && !seen[r.Content] {
			seen[r.Content] = true
			valid = append(valid, r)
		}
	}
	if len(valid) == 0 {
		first := results[0]
		return Response{Text: first.Content, AgentType: string(first.Agent)}
	}
	if len(valid) == 1 {
		only := valid[0]
		return Response{
			Text:      only.Content,
			AgentType: string(only.Agent),
			Actions:   only.Actions,
		}
	}

	sections := make([]string, 0, len(valid))
	tags := make([]string, 0, len(valid))
	var actions []agent.Action
	for _, r := range valid {
		sections = append(sections, fmt.Sprintf("[%s]\n%s", strings.ToUpper(string(r.Agent)), r.Content))
		tags = append(tags, string(r.Agent))
		actions = append(actions, r.Actions...)
	}
	return Response{
		Text:      strings.Join(sections, "\n\n"),
		AgentType: strings.Join(tags, "+"),
		Actions:   actions,
	}
}
