package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"careline/internal/domain"
)

func TestRegistryLookup(t *testing.T) {
	reg := domain.DefaultRegistry()
	p, err := reg.Lookup(domain.MedicalID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if p.Name != "Dr. Warren" || p.Role != domain.RoleMedical {
		t.Fatalf("unexpected participant %+v", p)
	}
}

func TestRegistryUnknownParticipant(t *testing.T) {
	_, err := domain.DefaultRegistry().Lookup("U-NOBODY")
	if !errors.Is(err, domain.ErrUnknownParticipant) {
		t.Fatalf("expected ErrUnknownParticipant, got %v", err)
	}
}

func TestRegistryAllIsOrdered(t *testing.T) {
	all := domain.DefaultRegistry().All()
	if len(all) != 7 {
		t.Fatalf("roster size = %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Fatalf("roster not ordered: %s before %s", all[i-1].ID, all[i].ID)
		}
	}
}

func TestEveryTopicRoutes(t *testing.T) {
	reg := domain.DefaultRegistry()
	for _, topic := range domain.Topics {
		id, err := domain.RouteFor(topic)
		if err != nil {
			t.Fatalf("topic %s: %v", topic, err)
		}
		if _, err := reg.Lookup(id); err != nil {
			t.Fatalf("topic %s routes to unknown participant %s", topic, id)
		}
	}
}

func TestHighlightsMarshalOrderAndFormat(t *testing.T) {
	h := domain.Highlights{
		{Name: "ApoB", Value: 105},
		{Name: "hsCRP", Value: 1.2},
		{Name: "FPG", Value: 96},
	}
	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"ApoB":105,"hsCRP":1.2,"FPG":96}`
	if string(data) != want {
		t.Fatalf("got %s, want %s", data, want)
	}
}

func TestHighlightsRoundTrip(t *testing.T) {
	in := domain.Highlights{
		{Name: "ApoB", Value: 112},
		{Name: "hsCRP", Value: 0.57},
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out domain.Highlights
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("length %d != %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("entry %d: %+v != %+v", i, out[i], in[i])
		}
	}
}
