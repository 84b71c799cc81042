// Package stub implements a deterministic local text generator used as
// the mock provider and as the fallback when the real provider fails.
package stub

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/unicompass/unicompass/internal/adapter/ai/tokencount"
	"github.com/unicompass/unicompass/internal/domain"
)

// Client derives plausible counsellor output from the prompt alone, so
// local development and tests never need network access.
type Client struct{}

// New constructs a stub client.
func New() *Client { return &Client{} }

var (
	boldNameRe   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	nameRe       = regexp.MustCompile(`(?i)name:\s*"([^"]+)"`)
	fieldRe      = regexp.MustCompile(`(?i)fieldOfStudy":\s*"([^"]+)"`)
	prioritiesRe = regexp.MustCompile(`(?i)priorities":\s*\[(.*?)\]`)
	questionRe   = regexp.MustCompile(`(?i)Current User Question:\s*([^\n]+)`)
	quotedRe     = regexp.MustCompile(`"([^"]+)"`)
)

// Generate routes chat-shaped prompts to the chat mock and everything
// else to the counsellor-note mock. Temperature and token budget are
// accepted for interface compatibility but ignored.
func (c *Client) Generate(_ domain.Context, prompt string, _ int, _ float64) (domain.Generation, error) {
	if questionRe.MatchString(prompt) {
		return c.chatResponse(prompt), nil
	}
	return c.counsellorNote(prompt), nil
}

func (c *Client) counsellorNote(prompt string) domain.Generation {
	studentName := "student"
	if m := nameRe.FindStringSubmatch(prompt); m != nil {
		studentName = m[1]
	}
	fieldOfStudy := "your chosen field"
	if m := fieldRe.FindStringSubmatch(prompt); m != nil {
		fieldOfStudy = m[1]
	}
	priorities := []string{"placements", "faculty", "campus life"}
	if m := prioritiesRe.FindStringSubmatch(prompt); m != nil {
		if items := quotedRe.FindAllStringSubmatch(m[1], -1); len(items) > 0 {
			priorities = priorities[:0]
			for _, item := range items {
				priorities = append(priorities, item[1])
			}
		}
	}
	universities := extractBoldNames(prompt, 3)

	first := "placements"
	if len(priorities) > 0 {
		first = priorities[0]
	}
	second := "faculty"
	if len(priorities) > 1 {
		second = priorities[1]
	}

	var b strings.Builder
	b.WriteString("Dear " + studentName + ",\n\n")
	b.WriteString("I'm thrilled to help you explore your options for higher education in " + fieldOfStudy + ". Based on your academic achievements and interests, you're well-positioned for success!\n\n")
	b.WriteString("Based on your priorities (" + strings.Join(priorities, ", ") + "), I've identified these universities that align perfectly with your goals:\n\n")
	for i, uni := range universities {
		b.WriteString(strconv.Itoa(i+1) + ". **" + uni + "** - This institution stands out for its excellent " + first + " and " + second + ". Their " + fieldOfStudy + " program is highly regarded and matches your academic profile.\n\n")
	}
	b.WriteString("Remember, each of these universities offers unique opportunities that align with your interests. I encourage you to explore their websites and reach out to current students to get a better feel for campus life.\n\n")
	b.WriteString("Stay confident—your preparation positions you strongly for success wherever you choose to go!")

	text := b.String()
	return domain.Generation{
		Text: text,
		Meta: domain.ModelMeta{
			Provider:  "mock",
			Model:     "mock-model",
			TokensIn:  tokencount.Estimate(prompt),
			TokensOut: 500,
			LatencyMs: 150,
		},
	}
}

func (c *Client) chatResponse(prompt string) domain.Generation {
	question := ""
	if m := questionRe.FindStringSubmatch(prompt); m != nil {
		question = strings.ToLower(m[1])
	}
	universities := extractBoldNames(prompt, 3)
	lead := "the recommended universities"
	if len(universities) > 0 {
		lead = universities[0]
	}

	var reply string
	switch {
	case strings.Contains(question, "placement") || strings.Contains(question, "job"):
		reply = "Regarding placements, " + lead + " has an excellent placement record with top companies regularly recruiting from campus. The placement percentage is typically above 90% with competitive starting salaries."
	case strings.Contains(question, "fee") || strings.Contains(question, "cost") || strings.Contains(question, "afford"):
		reply = "Regarding tuition fees, " + lead + " offers various financial aid options including scholarships based on merit and need. I'd recommend checking their financial aid office website for the most current information about eligibility criteria."
	case strings.Contains(question, "hostel") || strings.Contains(question, "accommodation") || strings.Contains(question, "campus"):
		reply = "Most students at " + lead + " stay in on-campus hostels, especially in their first year. The accommodations are generally well-maintained with options for different budgets. Campus life is vibrant with numerous clubs and activities to participate in."
	default:
		reply = "That's a good question! Based on the universities I recommended, " + strings.Join(universities, ", ") + ", I would suggest exploring their official websites for the most accurate and up-to-date information. Is there a specific aspect about these universities you'd like to know more about?"
	}

	return domain.Generation{
		Text: reply,
		Meta: domain.ModelMeta{
			Provider:  "mock",
			Model:     "mock-model",
			TokensIn:  tokencount.Estimate(prompt),
			TokensOut: tokencount.Estimate(reply),
			LatencyMs: 100,
		},
	}
}

func extractBoldNames(prompt string, limit int) []string {
	matches := boldNameRe.FindAllStringSubmatch(prompt, -1)
	out := make([]string, 0, limit)
	for _, m := range matches {
		out = append(out, m[1])
		if len(out) == limit {
			break
		}
	}
	return out
}
