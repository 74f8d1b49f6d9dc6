package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fluxmind/flux/internal/domain"
	"github.com/fluxmind/flux/internal/logging"
	"github.com/fluxmind/flux/internal/ports"
)

// SessionState is the single mode variable of a sorting session. Exactly one
// state is active at any time; the legal transitions are enforced by the
// SortingSession methods.
type SessionState string

const (
	StateCollectingVerdict SessionState = "collecting_verdict"
	StatePresentingVerdict SessionState = "presenting_verdict"
	StateConfirmingCommit  SessionState = "confirming_commitment"
	StateSelectingSlot     SessionState = "selecting_slot"
	StateTransitioningOut  SessionState = "transitioning_out"
)

// SlotWindow is one of the three coarse scheduling choices offered when
// committing to act on a thought.
type SlotWindow string

const (
	SlotToday    SlotWindow = "today"
	SlotTomorrow SlotWindow = "tomorrow"
	SlotWeekend  SlotWindow = "weekend"
)

// ErrInvalidTransition is returned when a session method is called from a
// state that does not offer it.
var ErrInvalidTransition = errors.New("action not available in current session state")

// prefetchLimit bounds concurrent gateway calls during verdict prefetch.
const prefetchLimit = 3

// TriageService runs sorting sessions: one unsorted thought at a time is
// classified, presented, and dispatched to its destination list.
type TriageService struct {
	calendar   ports.CalendarContextProvider
	cache      map[string]domain.Verdict
	cacheMu    sync.Mutex
	classifier ports.Classifier
	lang       domain.Language
	now        func() time.Time
	registry   *ThoughtService
	undo       *UndoCoordinator
}

// NewTriageService wires the sorting flow. calendar may be nil, in which
// case classification runs without schedule context.
func NewTriageService(registry *ThoughtService, classifier ports.Classifier, calendar ports.CalendarContextProvider, undo *UndoCoordinator, lang domain.Language) *TriageService {
	return &TriageService{
		calendar:   calendar,
		cache:      make(map[string]domain.Verdict),
		classifier: classifier,
		lang:       lang,
		now:        time.Now,
		registry:   registry,
		undo:       undo,
	}
}

// SortingSession drives one thought through the sorting state machine.
// Classification runs off the UI loop, so the state fields are guarded:
// the UI goroutine may cancel or release while a Classify call is in
// flight, and the in-flight result is then discarded.
type SortingSession struct {
	mu      sync.Mutex
	closed  bool
	state   SessionState
	svc     *TriageService
	thought domain.Thought
	verdict *domain.Verdict
}

// StartSession opens a sorting session for the thought with the given id.
func (s *TriageService) StartSession(id string) (*SortingSession, error) {
	thought, ok := s.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("start session: %w", domain.ErrThoughtNotFound)
	}
	sess := &SortingSession{
		state:   StateCollectingVerdict,
		svc:     s,
		thought: thought,
	}
	if v, ok := s.cachedVerdict(id); ok {
		sess.verdict = &v
		sess.state = StatePresentingVerdict
	}
	return sess, nil
}

// State returns the session's current state.
func (sess *SortingSession) State() SessionState {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state
}

// Thought returns the thought under sorting.
func (sess *SortingSession) Thought() domain.Thought { return sess.thought }

// Verdict returns the collected verdict, nil while still collecting.
func (sess *SortingSession) Verdict() *domain.Verdict {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.verdict
}

// Closed reports whether the session has reached a terminal state.
func (sess *SortingSession) Closed() bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.closed
}

// Classify collects a verdict from the gateway. Any failure degrades to the
// deterministic fallback, so this always transitions to presenting unless
// the session was cancelled while the call was in flight. The lock is not
// held across the gateway call.
func (sess *SortingSession) Classify(ctx context.Context) error {
	sess.mu.Lock()
	if sess.closed {
		// Cancelled. The pending classification is discarded.
		sess.mu.Unlock()
		return nil
	}
	if sess.state != StateCollectingVerdict {
		sess.mu.Unlock()
		return ErrInvalidTransition
	}
	sess.mu.Unlock()

	v := sess.svc.classify(ctx, sess.thought.Content)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		// Cancelled mid-flight. The result is discarded.
		return nil
	}
	sess.verdict = &v
	sess.state = StatePresentingVerdict
	return nil
}

// Accept records the verdict's reframing and quote on the thought and moves
// it to the stillness list. Available while presenting.
func (sess *SortingSession) Accept(ctx context.Context) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != StatePresentingVerdict {
		return ErrInvalidTransition
	}
	before := sess.thought.Clone()
	sess.svc.registry.ApplyVerdict(ctx, sess.thought.ID, domain.StatusLetThem, VerdictFields{
		Reframing:  sess.verdict.Reframing,
		StoicQuote: sess.verdict.InsightQuote,
	})
	sess.svc.recordUndo("Thought accepted", func() {
		sess.svc.registry.Replace(context.Background(), before)
	})
	sess.closeLocked()
	return nil
}

// BeginCommit opens the commitment confirmation step. Available while
// presenting.
func (sess *SortingSession) BeginCommit() error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != StatePresentingVerdict {
		return ErrInvalidTransition
	}
	sess.state = StateConfirmingCommit
	return nil
}

// DeclineCommit backs out of confirmation to the verdict presentation.
func (sess *SortingSession) DeclineCommit() error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != StateConfirmingCommit {
		return ErrInvalidTransition
	}
	sess.state = StatePresentingVerdict
	return nil
}

// ConfirmCommit advances from confirmation to slot selection.
func (sess *SortingSession) ConfirmCommit() error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != StateConfirmingCommit {
		return ErrInvalidTransition
	}
	sess.state = StateSelectingSlot
	return nil
}

// SelectSlot resolves the chosen window to a concrete due date and commits
// the thought to the action list with the verdict's advisory fields.
func (sess *SortingSession) SelectSlot(ctx context.Context, window SlotWindow) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != StateSelectingSlot {
		return ErrInvalidTransition
	}
	now := sess.svc.now()
	due := ResolveSlot(now, window, sess.verdict.SuggestedSlot)

	weight := sess.verdict.Weight
	if weight == nil {
		w := domain.WeightCasual
		weight = &w
	}
	var subTasks []domain.SubTask
	for _, text := range sess.verdict.SubTasks {
		subTasks = append(subTasks, domain.SubTask{ID: domain.NewSubTaskID(), Text: text})
	}

	before := sess.thought.Clone()
	sess.svc.registry.ApplyVerdict(ctx, sess.thought.ID, domain.StatusLetMe, VerdictFields{
		DueDate:       &due,
		Reframing:     sess.verdict.Reframing,
		StoicQuote:    sess.verdict.InsightQuote,
		SubTasks:      subTasks,
		SuggestedSlot: sess.verdict.SuggestedSlot,
		TimeEstimate:  sess.verdict.TimeEstimate,
		Weight:        weight,
	})
	sess.svc.recordUndo("Thought scheduled", func() {
		sess.svc.registry.Replace(context.Background(), before)
	})
	sess.closeLocked()
	return nil
}

// Release removes the thought entirely. The escape hatch is available from
// every non-terminal state.
func (sess *SortingSession) Release(ctx context.Context) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return ErrInvalidTransition
	}
	removed, ok := sess.svc.registry.Remove(ctx, sess.thought.ID)
	if ok {
		sess.svc.recordUndo("Thought released", func() {
			sess.svc.registry.Restore(context.Background(), removed)
		})
	}
	sess.closeLocked()
	return nil
}

// Cancel abandons the session. The thought is left untouched and any
// in-flight classification result is discarded.
func (sess *SortingSession) Cancel() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.closeLocked()
}

// closeLocked marks the session terminal. Caller holds the lock.
func (sess *SortingSession) closeLocked() {
	sess.closed = true
	sess.state = StateTransitioningOut
	sess.svc.dropCached(sess.thought.ID)
}

// PrefetchVerdicts classifies the given thoughts ahead of time with bounded
// concurrency and caches the results, so sessions open instantly.
func (s *TriageService) PrefetchVerdicts(ctx context.Context, thoughts []domain.Thought) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(prefetchLimit)
	for _, t := range thoughts {
		if _, ok := s.cachedVerdict(t.ID); ok {
			continue
		}
		g.Go(func() error {
			v := s.classify(ctx, t.Content)
			s.cacheMu.Lock()
			s.cache[t.ID] = v
			s.cacheMu.Unlock()
			return nil
		})
	}
	g.Wait()
}

// classify calls the gateway with calendar context when a provider is
// configured. Classification never fails: gateway errors degrade to the
// deterministic fallback verdict.
func (s *TriageService) classify(ctx context.Context, content string) domain.Verdict {
	var calendarContext string
	if s.calendar != nil {
		summary, err := s.calendar.FetchContext(ctx, s.lang)
		if err != nil {
			logging.Logger.Debug("Calendar context unavailable", "error", err)
		} else {
			calendarContext = summary.Summary
		}
	}
	v, err := s.classifier.Classify(ctx, content, s.lang, calendarContext)
	if err != nil {
		logging.Logger.Warn("Classification failed, using fallback", "error", err)
		return domain.FallbackVerdict(s.now())
	}
	return v
}

// Deconstruct splits an overwhelming thought into independent fragments.
func (s *TriageService) Deconstruct(ctx context.Context, content string) []string {
	fragments, err := s.classifier.Deconstruct(ctx, content, s.lang)
	if err != nil || len(fragments) == 0 {
		logging.Logger.Warn("Deconstruction failed", "error", err)
		return []string{content}
	}
	return fragments
}

// Insight produces a short grounding summary of the current mental
// landscape, or "" when the gateway is unavailable.
func (s *TriageService) Insight(ctx context.Context) string {
	return s.classifier.Summarize(ctx, s.registry.Thoughts(), s.lang)
}

func (s *TriageService) cachedVerdict(id string) (domain.Verdict, bool) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	v, ok := s.cache[id]
	return v, ok
}

func (s *TriageService) dropCached(id string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	delete(s.cache, id)
}

func (s *TriageService) recordUndo(message string, restore func()) {
	if s.undo == nil {
		return
	}
	s.undo.Record(message, restore)
}

// defaultSlotHour is the time of day used when the verdict carries no
// suggested slot.
const defaultSlotHour = 18

// ResolveSlot turns a coarse window choice into a concrete due date.
// Tomorrow is the next calendar day and weekend is the upcoming Saturday
// (today, when already Saturday). A today slot that has already passed is
// corrected forward to the next full hour, so the due date is always in the
// future.
func ResolveSlot(now time.Time, window SlotWindow, slot *domain.ClockTime) time.Time {
	tod := domain.ClockTime{Hour: defaultSlotHour}
	if slot != nil {
		tod = *slot
	}
	switch window {
	case SlotTomorrow:
		return tod.On(now.AddDate(0, 0, 1))
	case SlotWeekend:
		days := 6 - int(now.Weekday())
		if now.Weekday() == time.Sunday {
			days = 6
		}
		return tod.On(now.AddDate(0, 0, days))
	default:
		due := tod.On(now)
		if !due.After(now) {
			due = nextFullHour(now)
		}
		return due
	}
}

// nextFullHour is the first whole-hour boundary strictly after now.
func nextFullHour(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), now.Hour()+1, 0, 0, 0, now.Location())
}
