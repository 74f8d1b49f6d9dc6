package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fluxmind/flux/internal/domain"
	"github.com/fluxmind/flux/internal/logging"
	"github.com/fluxmind/flux/internal/ports"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client calls the Gemini generateContent API. One attempt per call, no
// retries: every method degrades to a deterministic local fallback so the
// sorting flow is never blocked by the remote service.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	model      string
	now        func() time.Time
}

// Verify interface compliance at compile time
var _ ports.Classifier = (*Client)(nil)

// NewClient creates a gateway client for the given model. The API key comes
// from the GEMINI_API_KEY environment variable at the call site.
func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		model:      model,
		now:        time.Now,
	}
}

// NewClientWithBaseURL is like NewClient with an overridable endpoint and
// clock, for tests.
func NewClientWithBaseURL(apiKey, model, baseURL string, now func() time.Time) *Client {
	c := NewClient(apiKey, model)
	c.baseURL = baseURL
	c.now = now
	return c
}

// request/response shapes for the generateContent endpoint

type generateRequest struct {
	Contents          []content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// verdictPayload is the wire shape of a classification verdict. The
// suggested slot is structured (hour/minute) by contract; free-text times
// are not accepted.
type verdictPayload struct {
	Category     string   `json:"category"`
	InsightQuote string   `json:"insightQuote,omitempty"`
	Reasoning    string   `json:"reasoning"`
	Reframing    string   `json:"reframing,omitempty"`
	SubTasks     []string `json:"subTasks,omitempty"`
	SuggestedSlot *struct {
		Hour   int `json:"hour"`
		Minute int `json:"minute"`
	} `json:"suggestedSlot,omitempty"`
	TimeEstimate string `json:"timeEstimate,omitempty"`
	Weight       string `json:"weight,omitempty"`
}

var verdictSchema = json.RawMessage(`{
	"type": "OBJECT",
	"properties": {
		"category": {"type": "STRING", "enum": ["LET_THEM", "LET_ME"], "description": "Classify if this is something outside user control (LET_THEM) or an actionable task (LET_ME)."},
		"weight": {"type": "STRING", "enum": ["URGENT", "IMPORTANT", "CASUAL"], "description": "Priority weight."},
		"reasoning": {"type": "STRING", "description": "Why this classification helps the user's mental state."},
		"reframing": {"type": "STRING", "description": "For LET_THEM, a wise, calming reframing of the worry (max 15 words)."},
		"insightQuote": {"type": "STRING", "description": "A short Stoic quote fitting the thought."},
		"subTasks": {"type": "ARRAY", "items": {"type": "STRING"}, "description": "For LET_ME, 1-3 atomic first steps."},
		"timeEstimate": {"type": "STRING", "description": "Rough effort estimate, e.g. '30m' or '1h'."},
		"suggestedSlot": {
			"type": "OBJECT",
			"properties": {"hour": {"type": "INTEGER"}, "minute": {"type": "INTEGER"}},
			"description": "Suggested time of day to do this, 24h clock, strictly later than now if meant for today."
		}
	},
	"required": ["category", "reasoning"]
}`)

var fragmentsSchema = json.RawMessage(`{
	"type": "OBJECT",
	"properties": {
		"fragments": {"type": "ARRAY", "items": {"type": "STRING"}, "description": "The distinct atomic thoughts contained in the input, each self-contained."}
	},
	"required": ["fragments"]
}`)

// languageName returns the English name used in prompts.
func languageName(lang domain.Language) string {
	switch lang {
	case domain.LangChinese:
		return "Chinese"
	case domain.LangSpanish:
		return "Spanish"
	case domain.LangJapanese:
		return "Japanese"
	case domain.LangFrench:
		return "French"
	default:
		return "English"
	}
}

func systemInstruction(lang domain.Language) string {
	if lang == domain.LangChinese {
		return "你是一位深谙心理学与斯多葛哲学的导师。你的目标是帮助用户建立心理韧性。对于行动项，强调完成它对心理健康的积极影响；对于接受项，提供温柔且深刻的转念建议。"
	}
	return "You are a mentor in psychology and Stoic philosophy. Your goal is to build the user's mental resilience. For actions, emphasize the positive impact on mental health once completed. For acceptance, provide gentle and profound reframing suggestions."
}

// Classify analyzes one thought. On any failure it returns the deterministic
// fallback verdict and a nil error.
func (c *Client) Classify(ctx context.Context, text string, lang domain.Language, calendarContext string) (domain.Verdict, error) {
	contextPrompt := ""
	if calendarContext != "" {
		contextPrompt = "\nUSER CALENDAR CONTEXT: " + calendarContext
	}

	prompt := fmt.Sprintf(`Analyze this thought for a therapeutic mental health app: %q.
Dichotomy of Control: Is it actionable (LET_ME) or a worry/emotion to be accepted (LET_THEM)?%s
Focus on WHY this classification helps the user's mental state.
Respond in %s, as JSON.`, text, contextPrompt, languageName(lang))

	raw, err := c.generate(ctx, prompt, systemInstruction(lang), verdictSchema)
	if err != nil {
		logging.Logger.Warn("Classification failed, using fallback verdict", "error", err)
		return domain.FallbackVerdict(c.now()), nil
	}

	var payload verdictPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		logging.Logger.Warn("Malformed classification response, using fallback verdict", "error", err)
		return domain.FallbackVerdict(c.now()), nil
	}

	verdict, err := payloadToVerdict(payload)
	if err != nil {
		logging.Logger.Warn("Invalid classification payload, using fallback verdict", "error", err)
		return domain.FallbackVerdict(c.now()), nil
	}
	return verdict, nil
}

func payloadToVerdict(p verdictPayload) (domain.Verdict, error) {
	category := domain.Category(p.Category)
	if category != domain.CategoryAccept && category != domain.CategoryAct {
		return domain.Verdict{}, fmt.Errorf("unknown category %q", p.Category)
	}

	v := domain.Verdict{
		Category:     category,
		InsightQuote: p.InsightQuote,
		Reasoning:    p.Reasoning,
		Reframing:    p.Reframing,
		SubTasks:     p.SubTasks,
		TimeEstimate: p.TimeEstimate,
	}
	if p.Weight != "" {
		w := domain.Weight(p.Weight)
		v.Weight = &w
	}
	if p.SuggestedSlot != nil {
		if p.SuggestedSlot.Hour < 0 || p.SuggestedSlot.Hour > 23 || p.SuggestedSlot.Minute < 0 || p.SuggestedSlot.Minute > 59 {
			return domain.Verdict{}, fmt.Errorf("suggested slot %d:%d out of range", p.SuggestedSlot.Hour, p.SuggestedSlot.Minute)
		}
		v.SuggestedSlot = &domain.ClockTime{Hour: p.SuggestedSlot.Hour, Minute: p.SuggestedSlot.Minute}
	}
	return v, nil
}

// Deconstruct splits raw capture into atomic fragments. Falls back to a
// local punctuation split on failure.
func (c *Client) Deconstruct(ctx context.Context, text string, lang domain.Language) ([]string, error) {
	prompt := fmt.Sprintf(`A user captured this stream of consciousness: %q.
Split it into the distinct atomic thoughts it contains (1 to 5). Keep each
fragment in the user's own words and language. Respond as JSON.`, text)

	raw, err := c.generate(ctx, prompt, systemInstruction(lang), fragmentsSchema)
	if err != nil {
		logging.Logger.Warn("Deconstruction failed, using punctuation split", "error", err)
		return SplitFragments(text), nil
	}

	var payload struct {
		Fragments []string `json:"fragments"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		logging.Logger.Warn("Malformed deconstruction response, using punctuation split", "error", err)
		return SplitFragments(text), nil
	}

	fragments := make([]string, 0, len(payload.Fragments))
	for _, f := range payload.Fragments {
		if trimmed := strings.TrimSpace(f); trimmed != "" {
			fragments = append(fragments, trimmed)
		}
	}
	if len(fragments) == 0 {
		return SplitFragments(text), nil
	}
	return fragments, nil
}

// Summarize produces a single short grounding insight for the unsorted
// cloud; empty string on failure or empty input.
func (c *Client) Summarize(ctx context.Context, thoughts []domain.Thought, lang domain.Language) string {
	if len(thoughts) == 0 {
		return ""
	}

	contents := make([]string, len(thoughts))
	for i, t := range thoughts {
		contents[i] = t.Content
	}

	prompt := fmt.Sprintf(`Here is a list of a user's current worries and tasks: %q.
Provide a single, short, profound Stoic insight (max 20 words) that summarizes
the vibe of this chaos and encourages the user to breathe and sort them.
Respond in %s.`, strings.Join(contents, " | "), languageName(lang))

	raw, err := c.generate(ctx, prompt, "You are Marcus Aurelius. Be brief, wise, and grounding.", nil)
	if err != nil {
		logging.Logger.Warn("Chaos summary failed", "error", err)
		return ""
	}
	return strings.TrimSpace(raw)
}

// generate makes one generateContent call and returns the first candidate's
// text.
func (c *Client) generate(ctx context.Context, prompt, system string, schema json.RawMessage) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	if system != "" {
		reqBody.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}
	if schema != nil {
		reqBody.GenerationConfig = &generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   schema,
		}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response")
	}

	text := genResp.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", fmt.Errorf("no text in response")
	}
	return text, nil
}

// sentenceEnders covers Latin and CJK sentence-ending punctuation plus
// newlines and semicolons.
const sentenceEnders = ".!?;\n。！？；"

// SplitFragments is the local fallback split used when the service cannot
// deconstruct input: sentence-ending punctuation in either Latin or CJK
// form. Yields the original content as a single fragment when nothing
// usable remains.
func SplitFragments(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return strings.ContainsRune(sentenceEnders, r)
	})

	fragments := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			fragments = append(fragments, trimmed)
		}
	}
	if len(fragments) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}
	return fragments
}
