package usecase

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/unicompass/unicompass/internal/domain"
	"github.com/unicompass/unicompass/pkg/textx"
)

// topUniversities caps the number of candidates surfaced to the student
// and to the prompt.
const topUniversities = 7

const defaultRecommendationPrompt = `System Role: You are an expert, empathetic, and encouraging student counsellor. Your goal is to help a 12th-grade student feel confident and excited about their future.

User Profile:
{{profile}}

Retrieved University Data:
Here are the top universities from our database that match the student's core preferences:
{{universities}}

Task:
Write a personalized and encouraging note to the student.
1. Start with a warm greeting.
2. Analyze their profile and acknowledge their strengths.
3. Based ONLY on the provided university data, recommend these universities.
4. For each university, explain WHY it's a great fit for THIS student, directly referencing their priorities and the university's key features.
5. Avoid content not in provided data.
6. Conclude with an optimistic and empowering statement about their bright future.`

const defaultChatPrompt = `System Role: You are an expert, empathetic, and encouraging student counsellor. Your goal is to help a 12th-grade student navigate their university options and answer their questions.

{{context}}

Conversation History:
{{history}}

Current User Question:
{{message}}

Task:
Respond helpfully to the student's question. Be factual, supportive, and encouraging. Only reference universities that were mentioned in the provided context.`

// PromptUniversity is the trimmed university projection interpolated
// into prompts. Only whitelisted fields ever reach the model.
type PromptUniversity struct {
	Name                string
	Location            string
	PlacementPercentage float64
	AverageSalary       float64
	AnnualFee           float64
	Ranking             int
	KeyFeatures         []string
	PriorityMatches     []string
}

// ChatTurn is one prior exchange included in a chat prompt.
type ChatTurn struct {
	Message string `json:"message"`
	Reply   string `json:"reply"`
}

// ChatContext carries the recommendation snapshot a chat turn refers to.
type ChatContext struct {
	RecommendedUniversities []domain.RecommendedUniversity `json:"recommendedUniversities,omitempty"`
}

// PromptLibrary resolves versioned prompt templates. Templates live as
// {version}.txt files under Dir; a missing or unreadable file falls back
// to the compiled-in default so prompt delivery can never fail a request.
type PromptLibrary struct {
	Dir              string
	RecommendVersion string
	ChatVersion      string
}

func (l *PromptLibrary) load(version string) string {
	if l.Dir != "" {
		if b, err := os.ReadFile(filepath.Join(l.Dir, version+".txt")); err == nil {
			return string(b)
		}
	}
	if strings.Contains(version, "recommendation") {
		return defaultRecommendationPrompt
	}
	return defaultChatPrompt
}

// SanitizeUniversitiesForPrompt projects scored candidates into the
// prompt shape, rounding fees to the nearest thousand.
func SanitizeUniversitiesForPrompt(candidates []domain.ScoredCandidate, limit int) []PromptUniversity {
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]PromptUniversity, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, PromptUniversity{
			Name:                c.Name,
			Location:            fmt.Sprintf("%s, %s", c.Location.City, c.Location.State),
			PlacementPercentage: c.Benchmarks.PlacementPercentage,
			AverageSalary:       c.Benchmarks.AverageSalary,
			AnnualFee:           math.Round(c.AverageAnnualFee()/1000) * 1000,
			Ranking:             c.Benchmarks.Ranking,
			KeyFeatures:         c.KeyFeatures,
			PriorityMatches:     c.Debug.PriorityMatches,
		})
	}
	return out
}

// BuildRecommendationPrompt interpolates the student profile and the
// shortlisted universities into the recommendation template. All
// user-supplied strings pass through sanitization first.
func (l *PromptLibrary) BuildRecommendationPrompt(profile domain.Profile, universities []PromptUniversity) string {
	template := l.load(l.RecommendVersion)

	grade := "N/A"
	if profile.Academics.Grade12Score != nil {
		grade = formatNumber(*profile.Academics.Grade12Score)
	}
	profileSection := fmt.Sprintf(`
- Academics: { "grade12Score": %s, "board": "%s" }
- Interests: { "fieldOfStudy": "%s", "courses": [%s] }
- Preferences: { "locations": [%s], "budget": %s, "priorities": [%s] }
`,
		grade,
		orNA(profile.Academics.Board),
		orNA(profile.Interests.FieldOfStudy),
		quoteAll(profile.Interests.Courses),
		quoteAll(profile.Preferences.Locations),
		numberOrNA(profile.Preferences.Budget),
		quoteAll(profile.Preferences.Priorities),
	)

	var universitiesSection string
	if len(universities) == 0 {
		universitiesSection = "No matching universities found based on current filters."
	} else {
		var b strings.Builder
		for i, u := range universities {
			fmt.Fprintf(&b, "\n%d. **%s**: { \"placementPercentage\": %s, \"averageSalary\": %s, \"annualFee\": %s, \"keyFeatures\": [%s], \"ranking\": \"%s\" }\n",
				i+1,
				u.Name,
				numberOrNA(u.PlacementPercentage),
				numberOrNA(u.AverageSalary),
				formatNumber(u.AnnualFee),
				quoteAll(u.KeyFeatures),
				intOrNA(u.Ranking),
			)
		}
		universitiesSection = b.String()
	}

	out := strings.Replace(template, "{{profile}}", profileSection, 1)
	return strings.Replace(out, "{{universities}}", universitiesSection, 1)
}

// BuildChatPrompt interpolates context, recent history and the current
// question into the chat template. Only the last three turns of history
// are included to bound prompt size.
func (l *PromptLibrary) BuildChatPrompt(message string, context ChatContext, history []ChatTurn) string {
	template := l.load(l.ChatVersion)

	var contextSection string
	if len(context.RecommendedUniversities) > 0 {
		var b strings.Builder
		b.WriteString("\nRecommended Universities:\n")
		for i, u := range context.RecommendedUniversities {
			features := u.KeyFeatures
			if len(features) > 3 {
				features = features[:3]
			}
			fmt.Fprintf(&b, "\n%d. **%s**: Located in %s, ranked %d. Known for %s.\n",
				i+1, u.Name, u.Location, u.Ranking, strings.Join(features, ", "))
		}
		contextSection = b.String()
	}

	if len(history) > 3 {
		history = history[len(history)-3:]
	}
	var hb strings.Builder
	for _, turn := range history {
		fmt.Fprintf(&hb, "\nUser: %s\nAI: %s\n",
			textx.SanitizePromptInput(turn.Message),
			textx.SanitizePromptInput(turn.Reply))
	}

	out := strings.Replace(template, "{{context}}", contextSection, 1)
	out = strings.Replace(out, "{{history}}", hb.String(), 1)
	return strings.Replace(out, "{{message}}", textx.SanitizePromptInput(message), 1)
}

var boldNameRe = regexp.MustCompile(`\*\*([^*]+)\*\*`)

// FilterUnknownUniversityNames strips bold-marked university names that
// are not in the allowed shortlist. The model must never surface a
// university the pipeline did not recommend.
func FilterUnknownUniversityNames(note string, allowed []string) string {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		allowedSet[name] = struct{}{}
	}
	return boldNameRe.ReplaceAllStringFunc(note, func(match string) string {
		name := strings.TrimSpace(strings.Trim(match, "*"))
		if _, ok := allowedSet[name]; ok {
			return match
		}
		return ""
	})
}

func quoteAll(items []string) string {
	quoted := make([]string, 0, len(items))
	for _, item := range items {
		quoted = append(quoted, strconv.Quote(textx.SanitizePromptInput(item)))
	}
	return strings.Join(quoted, ", ")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func numberOrNA(f float64) string {
	if f == 0 {
		return "N/A"
	}
	return formatNumber(f)
}

func intOrNA(n int) string {
	if n == 0 {
		return "N/A"
	}
	return strconv.Itoa(n)
}

// formatNumber prints a float without a trailing ".0" for whole values.
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
