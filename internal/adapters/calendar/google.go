package calendar

import (
	"context"

	"github.com/fluxmind/flux/internal/domain"
	"github.com/fluxmind/flux/internal/ports"
)

// GoogleProvider supplies calendar busyness context for classification.
// A real deployment would query the Google Calendar API here; this provider
// returns a representative demo schedule so the classifier can be exercised
// without credentials.
type GoogleProvider struct{}

// Verify interface compliance at compile time
var _ ports.CalendarContextProvider = (*GoogleProvider)(nil)

// NewGoogleProvider creates a calendar context provider.
func NewGoogleProvider() *GoogleProvider {
	return &GoogleProvider{}
}

// FetchContext returns a summary of the user's schedule.
func (p *GoogleProvider) FetchContext(ctx context.Context, lang domain.Language) (ports.CalendarSummary, error) {
	if err := ctx.Err(); err != nil {
		return ports.CalendarSummary{}, err
	}

	if lang == domain.LangChinese {
		return ports.CalendarSummary{
			BusyLevel: "high",
			Events: []string{
				"下午 2:00 与设计团队开会",
				"下午 4:30 牙医预约",
				"今日截止：PRD 交付",
				"晚上 7:00 家庭晚餐",
			},
			Summary: "（演示数据）你今天下午非常繁忙，特别是 2 点到 5 点之间有背靠背的安排。建议将重要任务安排在晚上或明天上午。",
		}, nil
	}

	return ports.CalendarSummary{
		BusyLevel: "high",
		Events: []string{
			"Meeting with Design Team @ 2:00 PM",
			"Dentist Appointment @ 4:30 PM",
			"Project Deadline: EOD Today",
			"Dinner with family @ 7:00 PM",
		},
		Summary: "(Demo Data) Your afternoon is packed with back-to-back commitments between 2 PM and 5 PM. Better schedule high-focus work for tonight or tomorrow morning.",
	}, nil
}
