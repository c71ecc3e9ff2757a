package live

import (
	"fmt"
	"strings"
)

// ResumeCharBudget caps the resume text embedded in the system prompt.
const ResumeCharBudget = 3000

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	case "":
		return DifficultyMedium, nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
}

var difficultyStyle = map[Difficulty]string{
	DifficultyEasy:   "Ask friendly, foundational questions and offer encouragement.",
	DifficultyMedium: "Ask a balanced mix of behavioural and technical questions with follow-ups.",
	DifficultyHard:   "Ask probing, senior-level questions and challenge vague answers.",
}

// TruncateResume keeps at most ResumeCharBudget characters.
func TruncateResume(resume string) string {
	resume = strings.TrimSpace(resume)
	runes := []rune(resume)
	if len(runes) <= ResumeCharBudget {
		return resume
	}
	return string(runes[:ResumeCharBudget])
}

// BuildSystemPrompt composes the interviewer instructions for one session.
func BuildSystemPrompt(d Difficulty, resume string) string {
	style, ok := difficultyStyle[d]
	if !ok {
		style = difficultyStyle[DifficultyMedium]
	}

	var b strings.Builder
	b.WriteString("You are a professional interviewer conducting a spoken mock interview. ")
	b.WriteString("Keep each turn short, ask one question at a time and wait for the candidate to answer.\n")
	fmt.Fprintf(&b, "Difficulty: %s. %s\n", d, style)

	if r := TruncateResume(resume); r != "" {
		b.WriteString("Base your questions on the candidate's resume:\n")
		b.WriteString(r)
		b.WriteString("\n")
	}
	return b.String()
}
