package usecase_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unicompass/unicompass/internal/domain"
	"github.com/unicompass/unicompass/internal/usecase"
)

func promptLib() *usecase.PromptLibrary {
	return &usecase.PromptLibrary{
		RecommendVersion: "recommendation.v1",
		ChatVersion:      "chat.v1",
	}
}

func TestBuildRecommendationPrompt_Interpolation(t *testing.T) {
	t.Parallel()
	score := 92.0
	profile := domain.Profile{
		Academics: domain.Academics{Board: "CBSE", Grade12Score: &score},
		Interests: domain.Interests{FieldOfStudy: "Engineering"},
		Preferences: domain.Preferences{
			Locations:  []string{"India"},
			Budget:     250000,
			Priorities: []string{"placements"},
		},
	}
	universities := []usecase.PromptUniversity{{
		Name:                "IIT Delhi",
		PlacementPercentage: 98,
		AverageSalary:       2000000,
		AnnualFee:           210000,
		Ranking:             1,
		KeyFeatures:         []string{"Top-tier placements"},
	}}

	prompt := promptLib().BuildRecommendationPrompt(profile, universities)
	assert.NotContains(t, prompt, "{{profile}}")
	assert.NotContains(t, prompt, "{{universities}}")
	assert.Contains(t, prompt, `"grade12Score": 92`)
	assert.Contains(t, prompt, `"fieldOfStudy": "Engineering"`)
	assert.Contains(t, prompt, `"budget": 250000`)
	assert.Contains(t, prompt, "**IIT Delhi**")
	assert.Contains(t, prompt, `"ranking": "1"`)
}

func TestBuildRecommendationPrompt_EmptyShortlist(t *testing.T) {
	t.Parallel()
	prompt := promptLib().BuildRecommendationPrompt(domain.Profile{}, nil)
	assert.Contains(t, prompt, "No matching universities found based on current filters.")
	assert.Contains(t, prompt, `"grade12Score": N/A`)
}

func TestBuildChatPrompt_HistoryTruncatedToLastThree(t *testing.T) {
	t.Parallel()
	history := []usecase.ChatTurn{
		{Message: "first", Reply: "r1"},
		{Message: "second", Reply: "r2"},
		{Message: "third", Reply: "r3"},
		{Message: "fourth", Reply: "r4"},
	}
	prompt := promptLib().BuildChatPrompt("What about fees?", usecase.ChatContext{}, history)
	assert.NotContains(t, prompt, "first")
	assert.Contains(t, prompt, "second")
	assert.Contains(t, prompt, "third")
	assert.Contains(t, prompt, "fourth")
	assert.Contains(t, prompt, "Current User Question:\nWhat about fees?")
}

func TestBuildChatPrompt_ContextUniversities(t *testing.T) {
	t.Parallel()
	ctx := usecase.ChatContext{RecommendedUniversities: []domain.RecommendedUniversity{{
		Name:        "IIT Delhi",
		Location:    "New Delhi, Delhi, India",
		Ranking:     1,
		KeyFeatures: []string{"A", "B", "C", "D"},
	}}}
	prompt := promptLib().BuildChatPrompt("hi", ctx, nil)
	assert.Contains(t, prompt, "**IIT Delhi**")
	assert.Contains(t, prompt, "Known for A, B, C.")
	assert.NotContains(t, prompt, "D.")
}

func TestBuildChatPrompt_SanitizesInput(t *testing.T) {
	t.Parallel()
	prompt := promptLib().BuildChatPrompt("tell`me\\about\x01fees", usecase.ChatContext{}, nil)
	assert.Contains(t, prompt, "tellmeaboutfees")
}

func TestPromptLibrary_FileOverride(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	custom := "Custom template: {{profile}} || {{universities}}"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "recommendation.v2.txt"), []byte(custom), 0o600))

	lib := &usecase.PromptLibrary{Dir: dir, RecommendVersion: "recommendation.v2"}
	prompt := lib.BuildRecommendationPrompt(domain.Profile{}, nil)
	assert.Contains(t, prompt, "Custom template:")
	assert.NotContains(t, prompt, "{{universities}}")
}

func TestSanitizeUniversitiesForPrompt_RoundsFeesAndLimits(t *testing.T) {
	t.Parallel()
	candidates := make([]domain.ScoredCandidate, 0, 9)
	for i := 0; i < 9; i++ {
		candidates = append(candidates, domain.ScoredCandidate{University: domain.University{
			Name:    "U",
			Courses: []domain.Course{{AnnualFee: 123456}},
		}})
	}
	out := usecase.SanitizeUniversitiesForPrompt(candidates, 7)
	require.Len(t, out, 7)
	assert.Equal(t, 123000.0, out[0].AnnualFee)
}

func TestFilterUnknownUniversityNames(t *testing.T) {
	t.Parallel()
	note := "Consider **IIT Delhi** and also **Hogwarts** for magic."
	got := usecase.FilterUnknownUniversityNames(note, []string{"IIT Delhi"})
	assert.Contains(t, got, "**IIT Delhi**")
	assert.NotContains(t, got, "Hogwarts")
}

func TestFilterUnknownUniversityNames_NoBoldIsUntouched(t *testing.T) {
	t.Parallel()
	note := "Plain text without markers."
	assert.Equal(t, note, usecase.FilterUnknownUniversityNames(note, nil))
}
