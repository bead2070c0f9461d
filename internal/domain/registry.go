package domain

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnknownParticipant means a generator asked for an identifier outside the
// fixed roster. The roster is static, so hitting this is a programming defect
// rather than a runtime condition to recover from.
var ErrUnknownParticipant = errors.New("unknown participant")

// Participant is one member of the care team (or the member themself).
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// Registry is the immutable identifier -> participant lookup.
type Registry struct {
	byID map[string]Participant
}

// MemberID is the single client the journey is simulated for.
const MemberID = "M-001"

// Care-team identifiers.
const (
	ConciergeID     = "U-RUBY"
	ConciergeLeadID = "U-NEEL"
	MedicalID       = "U-WARREN"
	PTID            = "U-RACHEL"
	NutritionID     = "U-CARLA"
	LifestyleID     = "U-ADVIK"
)

// DefaultRegistry returns the fixed roster.
func DefaultRegistry() *Registry {
	return &Registry{byID: map[string]Participant{
		ConciergeID:     {ID: ConciergeID, Name: "Ruby", Role: RoleConcierge},
		ConciergeLeadID: {ID: ConciergeLeadID, Name: "Neel", Role: RoleConciergeLead},
		MedicalID:       {ID: MedicalID, Name: "Dr. Warren", Role: RoleMedical},
		PTID:            {ID: PTID, Name: "Rachel", Role: RolePT},
		NutritionID:     {ID: NutritionID, Name: "Carla", Role: RoleNutrition},
		LifestyleID:     {ID: LifestyleID, Name: "Advik", Role: RoleLifestyle},
		MemberID:        {ID: MemberID, Name: "Rohan", Role: RoleMember},
	}}
}

// Lookup resolves an identifier to its participant.
func (r *Registry) Lookup(id string) (Participant, error) {
	p, ok := r.byID[id]
	if !ok {
		return Participant{}, fmt.Errorf("%w: %s", ErrUnknownParticipant, id)
	}
	return p, nil
}

// All returns every participant ordered by identifier.
func (r *Registry) All() []Participant {
	out := make([]Participant, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
