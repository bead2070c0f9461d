package sim

import (
	"fmt"
	"math"
	"time"

	"careline/internal/domain"
)

// memberTexts are the fixed outreach bodies, indexed by topic draw order.
var memberTexts = map[domain.Topic]string{
	domain.TopicSleep:    "Had poor deep sleep last night. Any quick fixes?",
	domain.TopicApoB:     "I read about ApoB targets. What's a realistic goal for me?",
	domain.TopicWorkout:  "Can we swap today's session? Hotel gym is limited.",
	domain.TopicTravel:   "Jet lag is rough this trip. How should I adjust today?",
	domain.TopicWearable: "Why is my HRV down despite a rest day?",
}

// memberOutreach draws a topic, emits the member message plus the concierge
// routing message, and — for an ApoB question landing with Medical — a plan
// decision and the nutrition follow-up that cites it.
func (s *Simulator) memberOutreach(day time.Time, wk weekKey) error {
	topic := domain.Topics[s.src.Primary().Intn(len(domain.Topics))]

	outreach, err := s.emitMessage(at(day, 9, 0), domain.MemberID, domain.ConciergeID,
		memberTexts[topic], []string{string(topic), "member_initiated"}, nil)
	if err != nil {
		return err
	}
	s.weekThreads[wk]++

	routeID, err := domain.RouteFor(topic)
	if err != nil {
		return err
	}
	specialist, err := s.registry.Lookup(routeID)
	if err != nil {
		return err
	}
	if _, err := s.emitMessage(at(day, 9, 10), domain.ConciergeID, routeID,
		fmt.Sprintf("Routing to %s for guidance.", specialist.Name), []string{"routing"}, nil); err != nil {
		return err
	}

	if topic == domain.TopicApoB && routeID == domain.MedicalID {
		dec, err := s.emitDecision(at(day, 10, 0), domain.MedicalID, domain.KindPlanUpdate,
			"ApoB reduction strategy",
			"Elevated ApoB + member interest: tighten nutrition and add fiber protocol before pharmacotherapy.",
			domain.Triggers{
				MessageIDs: []string{outreach.ID},
				Metrics:    []string{"ApoB: elevated"},
			},
			domain.Effects{
				PlanChanges: []string{
					"Increase soluble fiber 10-15g/day",
					"Olive oil for cooking",
					"Repeat panel in 90 days",
				},
				Followups: []string{"Nutrition check-in weekly"},
			})
		if err != nil {
			return err
		}
		if _, err := s.emitMessage(at(day, 10, 5), domain.NutritionID, domain.MemberID,
			"I'll set the plan: more legumes/oats + psyllium. We'll monitor bloating and CGM.",
			[]string{"nutrition"}, []string{dec.ID}); err != nil {
			return err
		}
	}
	return nil
}

// conciergeCheckin is the fixed twice-weekly touchpoint.
func (s *Simulator) conciergeCheckin(day time.Time) error {
	_, err := s.emitMessage(at(day, 11, 0), domain.ConciergeID, domain.MemberID,
		"Weekly check-in: any blockers to the plan? I can help coordinate.",
		[]string{"checkin", "concierge"}, nil)
	return err
}

// exerciseUpdate owns the "days since last update" state. Adherence requires
// both a favorable draw and a non-travel week; travel always forces the
// maintenance branch.
func (s *Simulator) exerciseUpdate(day time.Time, isTravel bool) error {
	s.lastExerciseUpdate = day
	adhered := s.src.Primary().Float64() < s.cfg.AdherenceProbability && !isTravel

	title := "Adjustment: maintain volume; add travel-safe routine"
	rationale := "Low adherence and/or travel constraints: keep volume steady and add bodyweight set."
	if adhered {
		title = "Progression: increase Zone 2 by +5 min"
		rationale = "Consistent adherence and stable HR/HRV trends support progressive overload."
	}

	locale := "home"
	if isTravel {
		locale = "travel"
	}
	dec, err := s.emitDecision(at(day, 14, 0), domain.PTID, domain.KindPlanUpdate, title, rationale,
		domain.Triggers{Metrics: []string{"adherence", locale}},
		domain.Effects{
			PlanChanges: []string{title},
			Followups:   []string{"PT check-in in 1 week"},
		})
	if err != nil {
		return err
	}
	_, err = s.emitMessage(at(day, 14, 10), domain.PTID, domain.MemberID,
		fmt.Sprintf("%s. I've pushed it to your app.", title),
		[]string{"exercise_update"}, []string{dec.ID})
	return err
}

// quarterlyPanel draws the three biomarkers, records the test, routes it to
// Medical, and emits the review decision plus the member summary.
func (s *Simulator) quarterlyPanel(day time.Time) error {
	r := s.src.Primary()
	apoB := 90 + r.Intn(26)
	hsCRP := math.Round((0.5+r.Float64()*1.5)*100) / 100
	fpg := 85 + r.Intn(18)

	id, err := s.newID("TST")
	if err != nil {
		return err
	}
	test := domain.Test{
		ID:      id,
		TS:      at(day, 8, 0).Format(time.RFC3339),
		Panel:   "Quarterly Panel",
		Summary: "Comprehensive biomarkers (ApoB, hsCRP, FPG).",
		Highlights: domain.Highlights{
			{Name: "ApoB", Value: float64(apoB)},
			{Name: "hsCRP", Value: hsCRP},
			{Name: "FPG", Value: float64(fpg)},
		},
	}
	s.tests = append(s.tests, test)

	routing, err := s.emitMessage(at(day, 8, 30), domain.ConciergeID, domain.MedicalID,
		"Panel results have arrived; routing for analysis.", []string{"labs"}, nil)
	if err != nil {
		return err
	}

	rec := "Nutrition-first + fiber protocol; recheck in 90 days."
	if apoB >= 110 {
		rec = "Intensify nutrition + discuss pharmacotherapy candidly; recheck in 90 days."
	}

	dec, err := s.emitDecision(at(day, 12, 0), domain.MedicalID, domain.KindTest,
		"Quarterly Panel Review",
		fmt.Sprintf("Panel shows ApoB=%d, hsCRP=%v, FPG=%d. %s", apoB, hsCRP, fpg, rec),
		domain.Triggers{
			MessageIDs: []string{routing.ID},
			TestIDs:    []string{test.ID},
			Metrics:    []string{fmt.Sprintf("ApoB:%d", apoB)},
		},
		domain.Effects{
			PlanChanges: []string{rec},
			Followups:   []string{"Q&A with member", "Nutrition plan tweaks"},
		})
	if err != nil {
		return err
	}

	_, err = s.emitMessage(at(day, 12, 15), domain.MedicalID, domain.MemberID,
		fmt.Sprintf("Your panel is back. ApoB=%d. I recommend: %s", apoB, rec),
		[]string{"labs", "summary"}, []string{dec.ID})
	return err
}
