package catalog

import (
	"context"
	"strings"
	"sync"
)

// Visibility restricts who may view a catalog item.
type Visibility string

const (
	VisibilityPublic     Visibility = "public"
	VisibilitySubscriber Visibility = "subscriber"
)

// CourseSummary is the catalog view of a course.
type CourseSummary struct {
	ID         string
	Title      string
	Slug       string
	Topics     []string
	Visibility Visibility
}

// QuizSummary is the catalog view of a quiz.
type QuizSummary struct {
	ID         string
	Title      string
	Slug       string
	Topics     []string
	Difficulty string
	Visibility Visibility
}

// Repository looks up catalog items by topic.
type Repository interface {
	SearchCourses(ctx context.Context, topics []string, includeSubscriber bool, limit int) ([]CourseSummary, error)
	SearchQuizzes(ctx context.Context, topics []string, includeSubscriber bool, limit int) ([]QuizSummary, error)
}

// ResourceKind names a creatable resource for entitlement checks.
type ResourceKind string

const (
	ResourceCourse ResourceKind = "course"
	ResourceQuiz   ResourceKind = "quiz"
)

// Tier is a user's subscription level.
type Tier string

const (
	TierFree       Tier = "free"
	TierSubscriber Tier = "subscriber"
)

// Entitlements answers authorization questions about a user.
type Entitlements interface {
	CanCreate(ctx context.Context, userID string, kind ResourceKind) (bool, error)
	Tier(ctx context.Context, userID string) (Tier, error)
}

// =========================================================================
// In-memory implementations
// =========================================================================

// MemoryRepository is a Repository backed by in-memory slices. It serves
// local development and tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	courses []CourseSummary
	quizzes []QuizSummary
}

// NewMemoryRepository creates an empty in-memory catalog.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// AddCourses appends courses to the catalog.
func (r *MemoryRepository) AddCourses(courses ...CourseSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.courses = append(r.courses, courses...)
}

// AddQuizzes appends quizzes to the catalog.
func (r *MemoryRepository) AddQuizzes(quizzes ...QuizSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quizzes = append(r.quizzes, quizzes...)
}

func (r *MemoryRepository) SearchCourses(_ context.Context, topics []string, includeSubscriber bool, limit int) ([]CourseSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []CourseSummary
	for _, c := range r.courses {
		if c.Visibility == VisibilitySubscriber && !includeSubscriber {
			continue
		}
		if !matchesTopics(c.Title, c.Topics, topics) {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryRepository) SearchQuizzes(_ context.Context, topics []string, includeSubscriber bool, limit int) ([]QuizSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []QuizSummary
	for _, q := range r.quizzes {
		if q.Visibility == VisibilitySubscriber && !includeSubscriber {
			continue
		}
		if !matchesTopics(q.Title, q.Topics, topics) {
			continue
		}
		out = append(out, q)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// matchesTopics reports whether an item matches any requested topic.
// An empty topic list matches everything.
func matchesTopics(title string, itemTopics, requested []string) bool {
	if len(requested) == 0 {
		return true
	}
	lowerTitle := strings.ToLower(title)
	for _, want := range requested {
		want = strings.ToLower(want)
		if strings.Contains(lowerTitle, want) {
			return true
		}
		for _, have := range itemTopics {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

// StaticEntitlements is an Entitlements implementation with fixed
// per-user tiers. Unknown users are free tier.
type StaticEntitlements struct {
	mu    sync.RWMutex
	tiers map[string]Tier
}

// NewStaticEntitlements creates an entitlements table.
func NewStaticEntitlements() *StaticEntitlements {
	return &StaticEntitlements{tiers: make(map[string]Tier)}
}

// SetTier records a user's subscription tier.
func (e *StaticEntitlements) SetTier(userID string, tier Tier) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tiers[userID] = tier
}

func (e *StaticEntitlements) Tier(_ context.Context, userID string) (Tier, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if t, ok := e.tiers[userID]; ok {
		return t, nil
	}
	return TierFree, nil
}

// CanCreate reports whether a user may create the given resource kind.
// Quiz creation is open to any signed-in user; course creation requires
// a subscription.
func (e *StaticEntitlements) CanCreate(ctx context.Context, userID string, kind ResourceKind) (bool, error) {
	if userID == "" {
		return false, nil
	}
	if kind == ResourceQuiz {
		return true, nil
	}
	tier, err := e.Tier(ctx, userID)
	if err != nil {
		return false, err
	}
	return tier == TierSubscriber, nil
}
