package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fluxmind/flux/internal/domain"
)

var testNow = time.Date(2026, 1, 7, 14, 0, 0, 0, time.UTC)

// newTestServer returns a server that wraps payload into a generateContent
// candidate response.
func newTestServer(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, ":generateContent")

		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{
					"parts": []map[string]string{{"text": payload}},
				}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestClient(baseURL string) *Client {
	return NewClientWithBaseURL("test-key", "test-model", baseURL, func() time.Time { return testNow })
}

func TestClassifyParsesVerdict(t *testing.T) {
	payload := `{
		"category": "LET_ME",
		"weight": "IMPORTANT",
		"reasoning": "Acting here restores agency.",
		"insightQuote": "Begin.",
		"subTasks": ["find the wrench"],
		"timeEstimate": "1h",
		"suggestedSlot": {"hour": 9, "minute": 30}
	}`
	srv := newTestServer(t, payload)
	defer srv.Close()

	v, err := newTestClient(srv.URL).Classify(context.Background(), "fix the bike", domain.LangEnglish, "")
	require.NoError(t, err)

	assert.Equal(t, domain.CategoryAct, v.Category)
	require.NotNil(t, v.Weight)
	assert.Equal(t, domain.WeightImportant, *v.Weight)
	assert.Equal(t, "Acting here restores agency.", v.Reasoning)
	assert.Equal(t, []string{"find the wrench"}, v.SubTasks)
	assert.Equal(t, "1h", v.TimeEstimate)
	require.NotNil(t, v.SuggestedSlot)
	assert.Equal(t, domain.ClockTime{Hour: 9, Minute: 30}, *v.SuggestedSlot)
}

func TestClassifyFallsBackDeterministically(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "quota exceeded", http.StatusTooManyRequests)
			},
		},
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "not json at all")
			},
		},
		{
			name: "empty candidates",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"candidates": []}`)
			},
		},
	}

	want := domain.FallbackVerdict(testNow)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			v, err := newTestClient(srv.URL).Classify(context.Background(), "anything", domain.LangEnglish, "")
			require.NoError(t, err, "classification must never surface errors")
			assert.Equal(t, want, v)
		})
	}
}

func TestClassifyRejectsInvalidPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"unknown category", `{"category": "MAYBE", "reasoning": "hmm"}`},
		{"slot hour out of range", `{"category": "LET_ME", "reasoning": "r", "suggestedSlot": {"hour": 24, "minute": 0}}`},
		{"slot minute out of range", `{"category": "LET_ME", "reasoning": "r", "suggestedSlot": {"hour": 9, "minute": 60}}`},
	}

	want := domain.FallbackVerdict(testNow)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.payload)
			defer srv.Close()

			v, err := newTestClient(srv.URL).Classify(context.Background(), "x", domain.LangEnglish, "")
			require.NoError(t, err)
			assert.Equal(t, want, v)
		})
	}
}

func TestDeconstructParsesFragments(t *testing.T) {
	srv := newTestServer(t, `{"fragments": ["call mom", " water plants ", ""]}`)
	defer srv.Close()

	got, err := newTestClient(srv.URL).Deconstruct(context.Background(), "call mom and water plants", domain.LangEnglish)
	require.NoError(t, err)
	assert.Equal(t, []string{"call mom", "water plants"}, got)
}

func TestDeconstructFallsBackToLocalSplit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).Deconstruct(context.Background(), "call mom. water plants", domain.LangEnglish)
	require.NoError(t, err)
	assert.Equal(t, []string{"call mom", "water plants"}, got)
}

func TestSummarize(t *testing.T) {
	srv := newTestServer(t, "  The obstacle is the way.  ")
	defer srv.Close()
	client := newTestClient(srv.URL)

	thoughts := []domain.Thought{{Content: "everything"}}
	assert.Equal(t, "The obstacle is the way.", client.Summarize(context.Background(), thoughts, domain.LangEnglish))

	// Empty input short-circuits without a network call
	assert.Equal(t, "", client.Summarize(context.Background(), nil, domain.LangEnglish))
}

func TestSummarizeFailureReturnsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	got := newTestClient(srv.URL).Summarize(context.Background(), []domain.Thought{{Content: "x"}}, domain.LangEnglish)
	assert.Equal(t, "", got)
}

func TestSplitFragments(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "latin punctuation",
			text: "call mom. water plants! email boss?",
			want: []string{"call mom", "water plants", "email boss"},
		},
		{
			name: "cjk punctuation",
			text: "给妈妈打电话。浇花！回邮件？",
			want: []string{"给妈妈打电话", "浇花", "回邮件"},
		},
		{
			name: "newlines and semicolons",
			text: "one;two\nthree",
			want: []string{"one", "two", "three"},
		},
		{
			name: "no punctuation yields single fragment",
			text: "just one thing",
			want: []string{"just one thing"},
		},
		{
			name: "only punctuation yields original trimmed",
			text: "...",
			want: []string{"..."},
		},
		{
			name: "blank input yields nothing",
			text: "   ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitFragments(tt.text))
		})
	}
}
