// Package sim implements the deterministic journey generator: a single
// forward pass over calendar days that emits messages, decisions, and lab
// tests while tracking weekly quotas, travel weeks, and accrued staff hours.
package sim

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"careline/internal/config"
	"careline/internal/domain"
	"careline/internal/rng"
)

// Timestamps render in a fixed UTC+8 offset regardless of host timezone.
var zone = time.FixedZone("+08:00", 8*60*60)

// weekKey identifies an ISO calendar week.
type weekKey struct {
	Year int
	Week int
}

// Metrics is the operational summary of one run.
type Metrics struct {
	InternalHours map[domain.Role]float64 `json:"internal_hours"`
	MessageCount  int                     `json:"message_count"`
	DecisionCount int                     `json:"decision_count"`
	TestCount     int                     `json:"test_count"`
}

// Result is everything one run produces.
type Result struct {
	Messages  []domain.Message
	Decisions []domain.Decision
	Tests     []domain.Test
	Metrics   Metrics
}

// Simulator owns all state for one run. It is single-threaded and pure:
// identical configuration yields an identical Result.
type Simulator struct {
	cfg      config.Simulation
	registry *domain.Registry
	src      *rng.Source

	start time.Time
	end   time.Time

	messages  []domain.Message
	decisions []domain.Decision
	tests     []domain.Test

	hours              map[domain.Role]float64
	lastExerciseUpdate time.Time
	travelWeeks        map[weekKey]struct{}
	weekThreads        map[weekKey]int
}

// New builds a simulator from validated configuration.
func New(cfg config.Simulation) (*Simulator, error) {
	startDate, err := cfg.Start()
	if err != nil {
		return nil, err
	}
	start := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, zone)
	s := &Simulator{
		cfg:                cfg,
		registry:           domain.DefaultRegistry(),
		src:                rng.New(cfg.Seed),
		start:              start,
		end:                start.AddDate(0, 0, 30*cfg.Months),
		hours:              map[domain.Role]float64{},
		lastExerciseUpdate: start,
		travelWeeks:        map[weekKey]struct{}{},
		weekThreads:        map[weekKey]int{},
	}
	for _, r := range domain.StaffRoles {
		s.hours[r] = 0
	}
	return s, nil
}

// Run executes the full pass and returns the collected records.
func (s *Simulator) Run() (*Result, error) {
	s.markTravelWeeks()

	diagnosticMonths := map[int]struct{}{}
	for _, m := range s.cfg.DiagnosticPanelMonths {
		diagnosticMonths[m] = struct{}{}
	}

	for current := s.start; current.Before(s.end); current = current.AddDate(0, 0, 1) {
		year, week := current.ISOWeek()
		wk := weekKey{year, week}
		_, isTravel := s.travelWeeks[wk]
		weekday := current.Weekday()

		// Member-initiated threads on weekdays, capped per ISO week.
		if weekday >= time.Monday && weekday <= time.Friday {
			quota := s.WeeklyThreadQuota(year, week)
			remaining := quota - s.weekThreads[wk]
			if remaining < 0 {
				remaining = 0
			}
			if remaining > 2 {
				remaining = 2
			}
			today := s.src.Primary().Intn(remaining + 1)
			for i := 0; i < today; i++ {
				if err := s.memberOutreach(current, wk); err != nil {
					return nil, err
				}
			}
		}

		// Concierge touches twice a week.
		if weekday == time.Monday || weekday == time.Thursday {
			if err := s.conciergeCheckin(current); err != nil {
				return nil, err
			}
		}

		// Exercise plan refresh on a fixed cadence.
		if daysBetween(s.lastExerciseUpdate, current) >= s.cfg.ExerciseUpdateDays {
			if err := s.exerciseUpdate(current, isTravel); err != nil {
				return nil, err
			}
		}

		// Diagnostic panel on day 10 of configured months.
		if current.Day() == 10 {
			if _, ok := diagnosticMonths[s.monthNum(current)]; ok {
				if err := s.quarterlyPanel(current); err != nil {
					return nil, err
				}
			}
		}
	}

	return &Result{
		Messages:  s.messages,
		Decisions: s.decisions,
		Tests:     s.tests,
		Metrics: Metrics{
			InternalHours: s.hours,
			MessageCount:  len(s.messages),
			DecisionCount: len(s.decisions),
			TestCount:     len(s.tests),
		},
	}, nil
}

// markTravelWeeks is a pre-pass over the horizon flagging every Nth week,
// so travel lookups during the main pass are set-membership tests.
func (s *Simulator) markTravelWeeks() {
	n := s.cfg.TravelWeekEveryNWeeks
	idx := 0
	for current := s.start; current.Before(s.end); current = current.AddDate(0, 0, 7) {
		if idx%n == n-1 {
			year, week := current.ISOWeek()
			s.travelWeeks[weekKey{year, week}] = struct{}{}
		}
		idx++
	}
}

// WeeklyThreadQuota is the member-thread allowance for an ISO week: a pure
// function of (year, week, seed), drawn on a keyed stream so it never
// perturbs the sequential draws.
func (s *Simulator) WeeklyThreadQuota(year, week int) int {
	r := s.src.Keyed("wk", year, week)
	return 2 + r.Intn(s.cfg.MaxMemberThreadsPerWeek-1)
}

// IsTravelWeek reports whether the given day falls in a marked travel week.
func (s *Simulator) IsTravelWeek(day time.Time) bool {
	year, week := day.ISOWeek()
	_, ok := s.travelWeeks[weekKey{year, week}]
	return ok
}

// monthNum is months elapsed since start, 1-indexed.
func (s *Simulator) monthNum(day time.Time) int {
	return (day.Year()-s.start.Year())*12 + int(day.Month()) - int(s.start.Month()) + 1
}

// daysBetween counts whole days from a to b.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a) / (24 * time.Hour))
}

// at places a timestamp within the given day.
func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, zone)
}

// newID mints a prefixed record id from the dedicated id stream. UUIDs come
// from the seeded reader, so ids are unique within a run and reproducible
// across runs.
func (s *Simulator) newID(prefix string) (string, error) {
	u, err := uuid.NewRandomFromReader(s.src.IDs())
	if err != nil {
		return "", fmt.Errorf("mint id: %w", err)
	}
	return fmt.Sprintf("%s-%x", prefix, u[:4]), nil
}

// emitMessage appends a message and books 0.1h on the sender's role unless
// the sender is the member.
func (s *Simulator) emitMessage(ts time.Time, senderID, to, text string, tags, related []string) (domain.Message, error) {
	sender, err := s.registry.Lookup(senderID)
	if err != nil {
		return domain.Message{}, err
	}
	id, err := s.newID("MSG")
	if err != nil {
		return domain.Message{}, err
	}
	if tags == nil {
		tags = []string{}
	}
	if related == nil {
		related = []string{}
	}
	msg := domain.Message{
		ID:                 id,
		TS:                 ts.Format(time.RFC3339),
		Day:                ts.Format("2006-01-02"),
		SenderID:           sender.ID,
		SenderName:         sender.Name,
		SenderRole:         sender.Role,
		To:                 to,
		Text:               text,
		Tags:               tags,
		RelatedDecisionIDs: related,
	}
	s.messages = append(s.messages, msg)
	if sender.Role != domain.RoleMember {
		s.hours[sender.Role] += 0.1
	}
	return msg, nil
}

// emitDecision appends a decision and books 0.5h on the actor's role.
func (s *Simulator) emitDecision(ts time.Time, actorID string, kind domain.DecisionKind, title, rationale string, triggers domain.Triggers, effects domain.Effects) (domain.Decision, error) {
	actor, err := s.registry.Lookup(actorID)
	if err != nil {
		return domain.Decision{}, err
	}
	id, err := s.newID("DEC")
	if err != nil {
		return domain.Decision{}, err
	}
	// Trigger and effect lists serialize as [] rather than null.
	if triggers.MessageIDs == nil {
		triggers.MessageIDs = []string{}
	}
	if triggers.TestIDs == nil {
		triggers.TestIDs = []string{}
	}
	if triggers.Metrics == nil {
		triggers.Metrics = []string{}
	}
	if effects.PlanChanges == nil {
		effects.PlanChanges = []string{}
	}
	if effects.Followups == nil {
		effects.Followups = []string{}
	}
	dec := domain.Decision{
		ID:        id,
		TS:        ts.Format(time.RFC3339),
		ActorID:   actor.ID,
		ActorName: actor.Name,
		ActorRole: actor.Role,
		Kind:      kind,
		Title:     title,
		Rationale: rationale,
		Triggers:  triggers,
		Effects:   effects,
	}
	s.decisions = append(s.decisions, dec)
	if actor.Role != domain.RoleMember {
		s.hours[actor.Role] += 0.5
	}
	return dec, nil
}
