package domain

import "time"

// Category is the classification produced by the gateway for one thought:
// accept (outside the user's control) or act (actionable).
type Category string

const (
	CategoryAccept Category = "LET_THEM"
	CategoryAct    Category = "LET_ME"
)

// Language selects the language the gateway responds in.
type Language string

const (
	LangChinese  Language = "zh"
	LangEnglish  Language = "en"
	LangSpanish  Language = "es"
	LangJapanese Language = "ja"
	LangFrench   Language = "fr"
)

// Valid reports whether l is a supported language.
func (l Language) Valid() bool {
	switch l {
	case LangChinese, LangEnglish, LangSpanish, LangJapanese, LangFrench:
		return true
	}
	return false
}

// ClockTime is a structured time-of-day. The gateway contract requires a
// resolved hour and minute rather than free text like "2:30 PM", so no
// natural-language time parsing happens on this side.
type ClockTime struct {
	Hour   int
	Minute int
}

// On anchors the clock time to the calendar date of day, in day's location.
func (c ClockTime) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, day.Location())
}

// Verdict is the stable typed contract with the classification gateway.
// All advisory fields are optional so additive evolution of the upstream
// response never requires consumer changes.
type Verdict struct {
	Category      Category
	InsightQuote  string
	Reasoning     string
	Reframing     string
	SubTasks      []string
	SuggestedSlot *ClockTime
	TimeEstimate  string
	Weight        *Weight
}

// FallbackVerdict is the deterministic verdict used whenever the gateway
// fails. Sorting must never block on classification, so failures degrade to
// this neutral actionable verdict instead of surfacing an error.
func FallbackVerdict(now time.Time) Verdict {
	w := WeightCasual
	slot := fallbackSlot(now)
	return Verdict{
		Category:      CategoryAct,
		InsightQuote:  "Stillness is strength.",
		Reasoning:     "Action leads to clarity.",
		SubTasks:      []string{"Take one small first step"},
		SuggestedSlot: &slot,
		TimeEstimate:  "30m",
		Weight:        &w,
	}
}

// fallbackSlot is "now + 1 hour", wrapping to next-day morning when that
// rolls past midnight. The minute carries over except across the wrap.
func fallbackSlot(now time.Time) ClockTime {
	h := now.Hour() + 1
	if h > 23 {
		return ClockTime{Hour: 9}
	}
	return ClockTime{Hour: h, Minute: now.Minute()}
}

// DisplayCategory resolves which category a presentation layer should show
// for a thought. A live verdict wins while a sorting session is open; the
// persisted status is authoritative otherwise.
func DisplayCategory(t Thought, live *Verdict) Category {
	if live != nil {
		return live.Category
	}
	if t.Status == StatusLetThem {
		return CategoryAccept
	}
	return CategoryAct
}
