package export

import (
	"fmt"
	"sort"
	"strings"

	"careline/internal/domain"
	"careline/internal/sim"
)

// Render produces the five-section text blob the presentation layer splits on
// "## " markers: Conversation, Timeline Summary, Decisions & Why, Internal
// Metrics (key: value lines), and Persona Analysis. Output is a pure function
// of the run result.
func Render(res *sim.Result) string {
	var b strings.Builder
	renderConversation(&b, res)
	renderTimeline(&b, res)
	renderDecisions(&b, res)
	renderMetrics(&b, res)
	renderPersona(&b, res)
	return b.String()
}

func renderConversation(b *strings.Builder, res *sim.Result) {
	registry := domain.DefaultRegistry()
	b.WriteString("## Conversation\n\n")
	for _, m := range res.Messages {
		to := m.To
		if p, err := registry.Lookup(m.To); err == nil {
			to = p.Name
		}
		fmt.Fprintf(b, "[%s] %s (%s) to %s: %s\n", m.TS, m.SenderName, m.SenderRole, to, m.Text)
	}
	b.WriteString("\n")
}

func renderTimeline(b *strings.Builder, res *sim.Result) {
	type monthStats struct {
		messages  int
		decisions int
		tests     int
	}
	stats := map[string]*monthStats{}
	get := func(ts string) *monthStats {
		key := ts[:7] // YYYY-MM
		if stats[key] == nil {
			stats[key] = &monthStats{}
		}
		return stats[key]
	}
	for _, m := range res.Messages {
		get(m.TS).messages++
	}
	for _, d := range res.Decisions {
		get(d.TS).decisions++
	}
	for _, t := range res.Tests {
		get(t.TS).tests++
	}
	months := make([]string, 0, len(stats))
	for k := range stats {
		months = append(months, k)
	}
	sort.Strings(months)

	b.WriteString("## Timeline Summary\n\n")
	for _, m := range months {
		s := stats[m]
		fmt.Fprintf(b, "- %s: %d messages, %d decisions", m, s.messages, s.decisions)
		if s.tests > 0 {
			fmt.Fprintf(b, ", %d diagnostic panel(s)", s.tests)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func renderDecisions(b *strings.Builder, res *sim.Result) {
	b.WriteString("## Decisions & Why\n\n")
	for _, d := range res.Decisions {
		fmt.Fprintf(b, "- %s [%s] %s (%s, %s)\n", d.TS[:10], d.Kind, d.Title, d.ActorName, d.ActorRole)
		fmt.Fprintf(b, "  Why: %s\n", d.Rationale)
		var cites []string
		cites = append(cites, d.Triggers.MessageIDs...)
		cites = append(cites, d.Triggers.TestIDs...)
		if len(cites) > 0 {
			fmt.Fprintf(b, "  Cites: %s\n", strings.Join(cites, ", "))
		}
	}
	b.WriteString("\n")
}

func renderMetrics(b *strings.Builder, res *sim.Result) {
	b.WriteString("## Internal Metrics\n\n")
	for _, role := range domain.StaffRoles {
		fmt.Fprintf(b, "%s Hours: %.1f\n", role, res.Metrics.InternalHours[role])
	}
	fmt.Fprintf(b, "Message Count: %d\n", res.Metrics.MessageCount)
	fmt.Fprintf(b, "Decision Count: %d\n", res.Metrics.DecisionCount)
	fmt.Fprintf(b, "Test Count: %d\n", res.Metrics.TestCount)
	b.WriteString("\n")
}

// renderPersona compares what the member raised early in the journey against
// the later stretch, using the topic tags on member-initiated messages.
func renderPersona(b *strings.Builder, res *sim.Result) {
	var memberMsgs []domain.Message
	for _, m := range res.Messages {
		if m.SenderRole == domain.RoleMember {
			memberMsgs = append(memberMsgs, m)
		}
	}
	b.WriteString("## Persona Analysis\n\n")
	if len(memberMsgs) == 0 {
		b.WriteString("No member-initiated threads in this window.\n")
		return
	}
	half := len(memberMsgs) / 2
	if half == 0 {
		half = len(memberMsgs)
	}
	fmt.Fprintf(b, "Before: %s\n", topTopics(memberMsgs[:half]))
	fmt.Fprintf(b, "After: %s\n", topTopics(memberMsgs[half:]))
}

func topTopics(msgs []domain.Message) string {
	if len(msgs) == 0 {
		return "no outreach"
	}
	counts := map[domain.Topic]int{}
	for _, m := range msgs {
		for _, tag := range m.Tags {
			if _, ok := domain.TopicRoutes[domain.Topic(tag)]; ok {
				counts[domain.Topic(tag)]++
			}
		}
	}
	parts := make([]string, 0, len(domain.Topics))
	for _, t := range domain.Topics {
		if counts[t] > 0 {
			parts = append(parts, fmt.Sprintf("%s x%d", t, counts[t]))
		}
	}
	return strings.Join(parts, ", ")
}
