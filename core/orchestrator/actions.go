package orchestrator

import (
	"github.com/brightpath/assistant/core/answer"
	"github.com/brightpath/assistant/core/retrieval"
)

// derivedActions turns retrieved records into follow-up actions. Only
// records that map to a navigable resource produce an action, and each
// resource appears once.
func derivedActions(results []retrieval.SearchResult) []answer.Action {
	var actions []answer.Action
	seen := make(map[string]bool)

	for _, res := range results {
		md := res.Record.Metadata
		if md.Slug == "" || seen[md.Slug] {
			continue
		}

		var action answer.Action
		switch md.Kind {
		case retrieval.KindCourse, retrieval.KindChapter:
			action = answer.Action{
				Type:  answer.ActionViewCourse,
				Label: md.Title,
				URL:   "/courses/" + md.Slug,
			}
		case retrieval.KindQuiz, retrieval.KindQuestion:
			action = answer.Action{
				Type:  answer.ActionViewQuiz,
				Label: md.Title,
				URL:   "/quizzes/" + md.Slug,
			}
		default:
			continue
		}

		seen[md.Slug] = true
		actions = append(actions, action)
	}
	return actions
}
