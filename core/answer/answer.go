package answer

import "github.com/brightpath/assistant/core/intent"

// ActionType names a suggested follow-up the client can render as a
// button or link.
type ActionType string

const (
	ActionViewCourse    ActionType = "view_course"
	ActionViewQuiz      ActionType = "view_quiz"
	ActionCreateCourse  ActionType = "create_course"
	ActionCreateQuiz    ActionType = "create_quiz"
	ActionUpgrade       ActionType = "upgrade"
	ActionSignIn        ActionType = "sign_in"
	ActionBrowseCourses ActionType = "browse_courses"
	ActionBrowseQuizzes ActionType = "browse_quizzes"
	ActionGoToDashboard ActionType = "go_to_dashboard"
)

// Action is a single suggested follow-up.
type Action struct {
	Type     ActionType        `json:"type"`
	Label    string            `json:"label"`
	URL      string            `json:"url,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Response is the assistant's reply to one user message.
type Response struct {
	Content    string        `json:"content"`
	Actions    []Action      `json:"actions,omitempty"`
	TokensUsed int           `json:"tokensUsed"`
	Cached     bool          `json:"cached"`
	Intent     intent.Intent `json:"intent,omitempty"`
}

// Clone returns a deep copy, so cached responses can be handed out
// without sharing mutable state.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	out := &Response{
		Content:    r.Content,
		TokensUsed: r.TokensUsed,
		Cached:     r.Cached,
		Intent:     r.Intent,
	}
	if len(r.Actions) > 0 {
		out.Actions = make([]Action, len(r.Actions))
		for i, a := range r.Actions {
			out.Actions[i] = a
			if len(a.Metadata) > 0 {
				md := make(map[string]string, len(a.Metadata))
				for k, v := range a.Metadata {
					md[k] = v
				}
				out.Actions[i].Metadata = md
			}
		}
	}
	return out
}
