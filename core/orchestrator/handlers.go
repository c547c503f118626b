package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/brightpath/assistant/core/answer"
	"github.com/brightpath/assistant/core/catalog"
	"github.com/brightpath/assistant/core/intent"
	"github.com/brightpath/assistant/core/providers"
	"github.com/brightpath/assistant/core/retrieval"
)

// offTopicMessage is returned verbatim for greetings and off-topic
// requests.
const offTopicMessage = "I'm here to help you learn! I can point you to courses and quizzes, " +
	"explain programming concepts, or help you create your own study material. What would you like to explore?"

// apologyMessage is returned when answer generation fails.
const apologyMessage = "Sorry, I wasn't able to put together an answer just now. " +
	"Please try again in a moment, or head to your dashboard to keep learning."

// offTopicResponse is a pure branch: no retrieval, no generation.
func offTopicResponse() *answer.Response {
	return &answer.Response{
		Content: offTopicMessage,
		Actions: []answer.Action{
			{Type: answer.ActionBrowseCourses, Label: "Browse courses", URL: "/courses"},
			{Type: answer.ActionBrowseQuizzes, Label: "Browse quizzes", URL: "/quizzes"},
		},
		TokensUsed: 0,
	}
}

func apologyResponse() *answer.Response {
	return &answer.Response{
		Content: apologyMessage,
		Actions: []answer.Action{
			{Type: answer.ActionGoToDashboard, Label: "Go to dashboard", URL: "/dashboard"},
		},
		TokensUsed: 0,
	}
}

// handleNavigateCourses answers course-navigation intents from the
// catalog directly. This path is deterministic and never calls the
// completion service.
func (o *Orchestrator) handleNavigateCourses(ctx context.Context, userID string, result intent.Result) *answer.Response {
	includeSubscriber := o.isSubscriber(ctx, userID)

	var courses []catalog.CourseSummary
	if o.catalog != nil {
		var err error
		courses, err = o.catalog.SearchCourses(ctx, result.Entities.Topics, includeSubscriber, o.config.TopK)
		if err != nil {
			o.logger.Warn("course search failed", "error", err)
			courses = nil
		}
	}

	if len(courses) == 0 {
		return &answer.Response{
			Content: noMatchesMessage("courses", result.Entities.Topics),
			Actions: []answer.Action{
				{Type: answer.ActionBrowseCourses, Label: "Browse all courses", URL: "/courses"},
			},
			TokensUsed: 0,
		}
	}

	var sb strings.Builder
	sb.WriteString("Here's what I found:\n")
	actions := make([]answer.Action, 0, len(courses))
	for i, c := range courses {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, c.Title)
		actions = append(actions, answer.Action{
			Type:     answer.ActionViewCourse,
			Label:    c.Title,
			URL:      "/courses/" + c.Slug,
			Metadata: map[string]string{"courseId": c.ID},
		})
	}

	return &answer.Response{
		Content:    sb.String(),
		Actions:    actions,
		TokensUsed: 0,
	}
}

// handleNavigateQuizzes is the quiz counterpart of course navigation.
func (o *Orchestrator) handleNavigateQuizzes(ctx context.Context, userID string, result intent.Result) *answer.Response {
	includeSubscriber := o.isSubscriber(ctx, userID)

	var quizzes []catalog.QuizSummary
	if o.catalog != nil {
		var err error
		quizzes, err = o.catalog.SearchQuizzes(ctx, result.Entities.Topics, includeSubscriber, o.config.TopK)
		if err != nil {
			o.logger.Warn("quiz search failed", "error", err)
			quizzes = nil
		}
	}

	if len(quizzes) == 0 {
		return &answer.Response{
			Content: noMatchesMessage("quizzes", result.Entities.Topics),
			Actions: []answer.Action{
				{Type: answer.ActionBrowseQuizzes, Label: "Browse all quizzes", URL: "/quizzes"},
			},
			TokensUsed: 0,
		}
	}

	var sb strings.Builder
	sb.WriteString("Here's what I found:\n")
	actions := make([]answer.Action, 0, len(quizzes))
	for i, q := range quizzes {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, q.Title)
		actions = append(actions, answer.Action{
			Type:     answer.ActionViewQuiz,
			Label:    q.Title,
			URL:      "/quizzes/" + q.Slug,
			Metadata: map[string]string{"quizId": q.ID},
		})
	}

	return &answer.Response{
		Content:    sb.String(),
		Actions:    actions,
		TokensUsed: 0,
	}
}

// handleCreate checks authentication and quota before offering a
// creation call-to-action. Denials come back as actionable responses,
// never as errors.
func (o *Orchestrator) handleCreate(ctx context.Context, userID string, kind catalog.ResourceKind, result intent.Result, user *intent.UserContext) *answer.Response {
	authenticated := user != nil && user.Authenticated
	if !authenticated || userID == "" {
		return &answer.Response{
			Content: "You'll need to sign in before creating your own content.",
			Actions: []answer.Action{
				{Type: answer.ActionSignIn, Label: "Sign in", URL: "/login"},
			},
			TokensUsed: 0,
		}
	}

	allowed := false
	if o.entitlements != nil {
		var err error
		allowed, err = o.entitlements.CanCreate(ctx, userID, kind)
		if err != nil {
			o.logger.Warn("entitlement check failed", "error", err, "kind", kind)
			allowed = false
		}
	}

	if !allowed {
		return &answer.Response{
			Content: fmt.Sprintf("Creating a %s is a subscriber feature. Upgrade to unlock it.", kind),
			Actions: []answer.Action{
				{Type: answer.ActionUpgrade, Label: "Upgrade", URL: "/pricing"},
			},
			TokensUsed: 0,
		}
	}

	return creationResponse(kind, result.Entities)
}

func creationResponse(kind catalog.ResourceKind, ents intent.Entities) *answer.Response {
	metadata := map[string]string{}
	if len(ents.Topics) > 0 {
		metadata["topic"] = ents.Topics[0]
	}
	if ents.Difficulty != "" {
		metadata["difficulty"] = string(ents.Difficulty)
	}
	if ents.Quantity > 0 {
		metadata["quantity"] = fmt.Sprintf("%d", ents.Quantity)
	}

	if kind == catalog.ResourceCourse {
		return &answer.Response{
			Content: "Great, let's build your course. I've started a draft with what you told me.",
			Actions: []answer.Action{
				{Type: answer.ActionCreateCourse, Label: "Create course", URL: "/courses/new", Metadata: metadata},
			},
			TokensUsed: 0,
		}
	}
	return &answer.Response{
		Content: "Great, let's build your quiz. I've started a draft with what you told me.",
		Actions: []answer.Action{
			{Type: answer.ActionCreateQuiz, Label: "Create quiz", URL: "/quizzes/new", Metadata: metadata},
		},
		TokensUsed: 0,
	}
}

// handleOpenEnded grounds an answer in retrieved material and recent
// history, then calls the completion service under a bounded timeout.
func (o *Orchestrator) handleOpenEnded(ctx context.Context, userID, sessionID, message string, result intent.Result) *answer.Response {
	var results []retrieval.SearchResult
	if o.store != nil {
		results = o.store.Search(ctx, message, retrieval.SearchOptions{
			TopK:      o.config.TopK,
			Threshold: o.config.SimilarityThreshold,
		})
	}

	history := o.memory.GetMessages(sessionKey(userID, sessionID), o.config.MaxHistoryTurns)
	messages := historyToMessages(history)
	messages = append(messages, providers.Message{Role: providers.RoleUser, Content: message})

	prompt := buildGroundingPrompt(results)

	cctx, cancel := context.WithTimeout(ctx, o.config.CompletionTimeout)
	defer cancel()

	completion, err := o.completer.Complete(cctx, prompt, messages, providers.CompletionOptions{
		MaxTokens:   o.config.MaxAnswerTokens,
		Temperature: o.config.Temperature,
	})
	if err != nil {
		o.logger.Warn("answer generation failed", "error", err, "intent", result.Intent)
		return apologyResponse()
	}

	return &answer.Response{
		Content:    completion.Text,
		Actions:    derivedActions(results),
		TokensUsed: completion.TokensUsed,
	}
}

func noMatchesMessage(what string, topics []string) string {
	if len(topics) == 0 {
		return fmt.Sprintf("I couldn't find any %s matching that. Try browsing the full list.", what)
	}
	return fmt.Sprintf("I couldn't find any %s about %s. Try browsing the full list.",
		what, strings.Join(topics, ", "))
}

func (o *Orchestrator) isSubscriber(ctx context.Context, userID string) bool {
	if o.entitlements == nil || userID == "" {
		return false
	}
	tier, err := o.entitlements.Tier(ctx, userID)
	if err != nil {
		o.logger.Warn("tier lookup failed", "error", err)
		return false
	}
	return tier == catalog.TierSubscriber
}
