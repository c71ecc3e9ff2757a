package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/eleven-am/interview-coach/internal/shared"
)

const DefaultModel = "gemini-2.0-flash"

var ErrEmptyResponse = errors.New("scoring: model returned no content")

// Generator produces a raw report for a resume. Results are validated by
// the Service before they are stored.
type Generator interface {
	Generate(ctx context.Context, text string) (*Report, error)
}

const scoringInstruction = `You are an experienced technical recruiter reviewing a candidate's resume before a mock interview.
Score the resume from 0 to 100 for how well it prepares the candidate for a software engineering interview.
Write a two sentence summary, then list exactly three strengths, three weaknesses and three concrete improvements.
Keep every list entry under twenty words.`

// GenaiGenerator calls Gemini through the genai SDK with a JSON response
// schema. The client is created on first use so a missing key only fails
// the requests that need it.
type GenaiGenerator struct {
	apiKey string
	model  string

	mu     sync.Mutex
	client *genai.Client
}

func NewGenaiGenerator(apiKey, model string) *GenaiGenerator {
	if model == "" {
		model = DefaultModel
	}
	return &GenaiGenerator{apiKey: apiKey, model: model}
}

// Configured reports whether an API key is present.
func (g *GenaiGenerator) Configured() bool {
	return g.apiKey != ""
}

func (g *GenaiGenerator) Generate(ctx context.Context, text string) (*Report, error) {
	client, err := g.getClient(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := client.Models.GenerateContent(ctx, g.model, genai.Text(text), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(scoringInstruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    reportSchema(),
	})
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	raw := strings.TrimSpace(resp.Text())
	if raw == "" {
		return nil, ErrEmptyResponse
	}

	var report Report
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &report, nil
}

func (g *GenaiGenerator) getClient(ctx context.Context) (*genai.Client, error) {
	if g.apiKey == "" {
		return nil, shared.ErrMissingCredential
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		return g.client, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	g.client = client
	return client, nil
}

func reportSchema() *genai.Schema {
	minScore, maxScore := 0.0, 100.0
	listSize := int64(ListSize)
	list := func(desc string) *genai.Schema {
		return &genai.Schema{
			Type:        genai.TypeArray,
			Description: desc,
			Items:       &genai.Schema{Type: genai.TypeString},
			MinItems:    &listSize,
			MaxItems:    &listSize,
		}
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"score": {
				Type:    genai.TypeInteger,
				Minimum: &minScore,
				Maximum: &maxScore,
			},
			"summary":      {Type: genai.TypeString},
			"strengths":    list("What the resume does well."),
			"weaknesses":   list("Gaps an interviewer would probe."),
			"improvements": list("Concrete edits the candidate should make."),
		},
		Required:         []string{"score", "summary", "strengths", "weaknesses", "improvements"},
		PropertyOrdering: []string{"score", "summary", "strengths", "weaknesses", "improvements"},
	}
}
