package storage

import (
	"github.com/fluxmind/flux/internal/domain"
)

// thoughtModelToDomain converts a ThoughtModel (GORM) and its sub-task rows
// to a domain.Thought
func thoughtModelToDomain(m ThoughtModel, subTasks []SubTaskModel) domain.Thought {
	t := domain.Thought{
		CompletedAt:     m.CompletedAt,
		Content:         m.Content,
		CreatedAt:       m.CapturedAt,
		DueDate:         m.DueDate,
		ID:              m.ID,
		ReframedContent: m.ReframedContent,
		Status:          domain.ThoughtStatus(m.Status),
		StoicQuote:      m.StoicQuote,
		TimeEstimate:    m.TimeEstimate,
	}
	if m.Weight != nil {
		w := domain.Weight(*m.Weight)
		t.Weight = &w
	}
	if m.SlotHour != nil {
		slot := domain.ClockTime{Hour: *m.SlotHour}
		if m.SlotMinute != nil {
			slot.Minute = *m.SlotMinute
		}
		t.SuggestedSlot = &slot
	}
	for _, st := range subTasks {
		t.SubTasks = append(t.SubTasks, domain.SubTask{
			Completed: st.Completed,
			ID:        st.ID,
			Text:      st.Text,
		})
	}
	return t
}

// domainToThoughtModel converts a domain.Thought to a ThoughtModel (GORM).
// Sub-tasks are converted separately by domainToSubTaskModels.
func domainToThoughtModel(t domain.Thought, position int) ThoughtModel {
	m := ThoughtModel{
		CapturedAt:      t.CreatedAt,
		CompletedAt:     t.CompletedAt,
		Content:         t.Content,
		DueDate:         t.DueDate,
		ID:              t.ID,
		Position:        position,
		ReframedContent: t.ReframedContent,
		Status:          string(t.Status),
		StoicQuote:      t.StoicQuote,
		TimeEstimate:    t.TimeEstimate,
	}
	if t.Weight != nil {
		w := string(*t.Weight)
		m.Weight = &w
	}
	if t.SuggestedSlot != nil {
		h := t.SuggestedSlot.Hour
		min := t.SuggestedSlot.Minute
		m.SlotHour = &h
		m.SlotMinute = &min
	}
	return m
}

// domainToSubTaskModels converts a thought's sub-tasks to their GORM rows
func domainToSubTaskModels(t domain.Thought) []SubTaskModel {
	models := make([]SubTaskModel, len(t.SubTasks))
	for i, st := range t.SubTasks {
		models[i] = SubTaskModel{
			Completed: st.Completed,
			ID:        st.ID,
			Position:  i,
			Text:      st.Text,
			ThoughtID: t.ID,
		}
	}
	return models
}
