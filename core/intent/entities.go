package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Topic dictionaries cover programming languages and tech domains the
// catalog actually carries. Multi-word phrases are matched before single
// words so "machine learning" does not surface as "machine".
var topicPhrases = []string{
	"machine learning",
	"data science",
	"deep learning",
	"web development",
	"software engineering",
	"operating systems",
	"computer science",
	"data structures",
	"system design",
	"unit testing",
	"version control",
	"object oriented programming",
	"functional programming",
	"neural networks",
	"cloud computing",
	"cyber security",
}

var topicWords = []string{
	"python", "javascript", "typescript", "java", "golang", "rust",
	"ruby", "php", "swift", "kotlin", "scala", "haskell", "perl",
	"html", "css", "sql", "nosql", "react", "vue", "angular", "svelte",
	"node", "nodejs", "django", "flask", "fastapi", "spring", "rails",
	"docker", "kubernetes", "terraform", "ansible", "aws", "azure", "gcp",
	"git", "linux", "bash", "devops", "graphql", "redis", "postgresql",
	"mysql", "mongodb", "kafka", "elasticsearch", "algorithms",
	"databases", "networking", "concurrency", "microservices", "api",
	"frontend", "backend", "fullstack", "testing", "security",
	"pandas", "numpy", "tensorflow", "pytorch", "flutter", "android", "ios",
}

// aliases normalize spelling variants onto canonical topic names.
var topicAliases = map[string]string{
	"go":       "golang",
	"js":       "javascript",
	"ts":       "typescript",
	"c++":      "cpp",
	"c#":       "csharp",
	"node.js":  "nodejs",
	"postgres": "postgresql",
	"k8s":      "kubernetes",
	"ml":       "machine learning",
}

var quizTypeKeywords = map[string]string{
	"multiple choice":   "multiple_choice",
	"multiple-choice":   "multiple_choice",
	"true false":        "true_false",
	"true/false":        "true_false",
	"true or false":     "true_false",
	"fill in the blank": "fill_blank",
	"fill-in-the-blank": "fill_blank",
	"coding challenge":  "coding",
	"coding exercise":   "coding",
	"code challenge":    "coding",
	"flashcard":         "flashcard",
	"flashcards":        "flashcard",
	"open ended":        "open_ended",
	"open-ended":        "open_ended",
	"short answer":      "short_answer",
}

var difficultySynonyms = map[string]Difficulty{
	"easy":         DifficultyEasy,
	"beginner":     DifficultyEasy,
	"basic":        DifficultyEasy,
	"simple":       DifficultyEasy,
	"introductory": DifficultyEasy,
	"intro":        DifficultyEasy,
	"starter":      DifficultyEasy,
	"novice":       DifficultyEasy,
	"medium":       DifficultyMedium,
	"intermediate": DifficultyMedium,
	"moderate":     DifficultyMedium,
	"mid-level":    DifficultyMedium,
	"hard":         DifficultyHard,
	"difficult":    DifficultyHard,
	"advanced":     DifficultyHard,
	"expert":       DifficultyHard,
	"challenging":  DifficultyHard,
	"tough":        DifficultyHard,
}

var quantityPattern = regexp.MustCompile(`\b(\d{1,3})\s*(questions?|quizzes?|problems?|exercises?|items?|flashcards?|courses?|chapters?)\b`)

var wordBoundaryCache = buildWordPatterns(topicWords)

func buildWordPatterns(words []string) map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(words))
	for _, w := range words {
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(w) + `\b`)
		if err != nil {
			continue
		}
		patterns[w] = re
	}
	return patterns
}

// ExtractEntities pulls topics, quiz types, difficulty, and quantity out
// of a free-text message. It runs before any intent stage so entities are
// attached regardless of which stage decides the intent.
func ExtractEntities(message string) Entities {
	lower := strings.ToLower(message)

	return Entities{
		Topics:     extractTopics(lower),
		QuizTypes:  extractQuizTypes(lower),
		Difficulty: extractDifficulty(lower),
		Quantity:   extractQuantity(lower),
	}
}

func extractTopics(lower string) []string {
	var topics []string
	seen := make(map[string]bool)

	add := func(topic string) {
		if !seen[topic] {
			seen[topic] = true
			topics = append(topics, topic)
		}
	}

	for _, phrase := range topicPhrases {
		if strings.Contains(lower, phrase) {
			add(phrase)
		}
	}

	for _, word := range topicWords {
		if re, ok := wordBoundaryCache[word]; ok && re.MatchString(lower) {
			add(word)
		}
	}

	for alias, canonical := range topicAliases {
		if containsToken(lower, alias) {
			add(canonical)
		}
	}

	return topics
}

// containsToken checks for an alias as a standalone token. Aliases like
// "go" and "c++" need token matching rather than \b word boundaries,
// which mishandle punctuation characters.
func containsToken(lower, alias string) bool {
	for _, tok := range strings.Fields(lower) {
		tok = strings.Trim(tok, ".,!?;:'\"()")
		if tok == alias {
			return true
		}
	}
	return false
}

func extractQuizTypes(lower string) []string {
	var types []string
	seen := make(map[string]bool)
	for keyword, normalized := range quizTypeKeywords {
		if strings.Contains(lower, keyword) && !seen[normalized] {
			seen[normalized] = true
			types = append(types, normalized)
		}
	}
	return types
}

func extractDifficulty(lower string) Difficulty {
	for _, tok := range strings.Fields(lower) {
		tok = strings.Trim(tok, ".,!?;:'\"()")
		if d, ok := difficultySynonyms[tok]; ok {
			return d
		}
	}
	return ""
}

func extractQuantity(lower string) int {
	m := quantityPattern.FindStringSubmatch(lower)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
