package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/lysyi3m/intel-comb/app/llm"
)

type ExtractionRequest struct {
	Taxonomy        Taxonomy
	Item            Item
	MaxObservations int
	ExcerptChars    int
}

// Extractor produces candidate observations for an item. It is the only
// step of an observation rule that talks to the model.
type Extractor interface {
	Extract(ctx context.Context, req ExtractionRequest) ([]Candidate, error)
}

type ExtractorFunc func(ctx context.Context, req ExtractionRequest) ([]Candidate, error)

func (f ExtractorFunc) Extract(ctx context.Context, req ExtractionRequest) ([]Candidate, error) {
	return f(ctx, req)
}

type LLMExtractor struct {
	provider  llm.Provider
	maxTokens int
}

func NewLLMExtractor(provider llm.Provider) *LLMExtractor {
	return &LLMExtractor{provider: provider, maxTokens: 1024}
}

type extractionResponse struct {
	Observations []struct {
		Type       string   `json:"type"`
		Tier       int      `json:"tier"`
		Topic      string   `json:"topic"`
		Blurb      string   `json:"blurb"`
		Evidence   string   `json:"evidence"`
		Confidence *float64 `json:"confidence"`
	} `json:"observations"`
}

func (e *LLMExtractor) Extract(ctx context.Context, req ExtractionRequest) ([]Candidate, error) {
	resp, err := e.provider.Generate(ctx, llm.Request{
		SystemPrompt: SystemPrompt(req.Taxonomy, req.MaxObservations),
		UserPrompt:   UserPrompt(req.Item, req.ExcerptChars),
		MaxTokens:    e.maxTokens,
	})
	if err != nil {
		return nil, err
	}
	return ParseCandidates(req.Taxonomy, resp.Content, req.MaxObservations)
}

// ParseCandidates decodes the model's JSON answer. Observations with an
// unknown type or without a topic or blurb are dropped.
func ParseCandidates(t Taxonomy, content string, maxObservations int) ([]Candidate, error) {
	var parsed extractionResponse
	if err := llm.DecodeJSON(content, &parsed); err != nil {
		return nil, fmt.Errorf("decode observations: %w", err)
	}

	var out []Candidate
	for _, o := range parsed.Observations {
		ot, _, ok := t.Lookup(o.Type)
		if !ok || strings.TrimSpace(o.Topic) == "" || strings.TrimSpace(o.Blurb) == "" || o.Confidence == nil {
			continue
		}
		tier := Tier(o.Tier)
		if !tier.Valid() {
			tier = Tier3
		}
		out = append(out, Candidate{
			Type:       ot.Name,
			Tier:       tier,
			Topic:      strings.TrimSpace(o.Topic),
			Blurb:      strings.TrimSpace(o.Blurb),
			Evidence:   strings.TrimSpace(o.Evidence),
			Confidence: min(max(*o.Confidence, 0), 1),
		})
		if maxObservations > 0 && len(out) == maxObservations {
			break
		}
	}
	return out, nil
}

func SystemPrompt(t Taxonomy, maxObservations int) string {
	var b strings.Builder
	b.WriteString("You are a competitive intelligence analyst. Read one summarized item about a competitor ")
	fmt.Fprintf(&b, "and report up to %d noteworthy observations. Report none when nothing stands out.\n\n", maxObservations)
	b.WriteString("Observation types, most important first:\n")
	for _, ot := range t.Types {
		fmt.Fprintf(&b, "- %s: %s\n", ot.Name, ot.Description)
	}
	b.WriteString("\nTiers: 1 = act now, 2 = worth knowing this week, 3 = background.\n")
	b.WriteString("The topic is a short noun phrase (2-4 words) naming the underlying subject, ")
	b.WriteString("phrased the same way every time the subject comes up.\n\n")
	b.WriteString("Respond with JSON only, no prose:\n")
	b.WriteString(`{"observations":[{"type":"...","tier":1,"topic":"...","blurb":"one sentence","evidence":"short quote","confidence":0.0}]}`)
	return b.String()
}

func UserPrompt(item Item, excerptChars int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s\n", companyLabel(item))
	if item.SourceType != "" {
		fmt.Fprintf(&b, "Source: %s\n", item.SourceType)
	}
	if item.Rating != nil {
		fmt.Fprintf(&b, "Rating: %.1f / 5\n", *item.Rating)
	}
	fmt.Fprintf(&b, "Gist: %s\n", item.Gist)
	if len(item.Bullets) > 0 {
		b.WriteString("Key points:\n")
		for _, bullet := range item.Bullets {
			fmt.Fprintf(&b, "- %s\n", bullet)
		}
	}
	if excerpt := Excerpt(item.RawContent, item.URL, excerptChars); excerpt != "" {
		fmt.Fprintf(&b, "Excerpt:\n%s\n", excerpt)
	}
	return b.String()
}
