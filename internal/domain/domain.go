package domain

// Role is the closed set of care-team functions. A participant has exactly
// one role for the lifetime of a run.
type Role string

const (
	RoleConcierge     Role = "Concierge"
	RoleConciergeLead Role = "Concierge Lead"
	RoleMedical       Role = "Medical"
	RolePT            Role = "PT"
	RoleNutrition     Role = "Nutrition"
	RoleLifestyle     Role = "Lifestyle"
	RoleMember        Role = "Member"
)

// StaffRoles are the roles that accrue internal hours. The Member is not
// staff and never accrues time.
var StaffRoles = []Role{
	RoleMedical,
	RolePT,
	RoleNutrition,
	RoleLifestyle,
	RoleConcierge,
	RoleConciergeLead,
}

// DecisionKind classifies a care decision.
type DecisionKind string

const (
	KindPlanUpdate DecisionKind = "plan_update"
	KindMedication DecisionKind = "medication"
	KindTherapy    DecisionKind = "therapy"
	KindTest       DecisionKind = "test"
	KindProtocol   DecisionKind = "protocol"
)

// Message is one chat message in the journey. Immutable once emitted;
// sequence order is emission order.
type Message struct {
	ID                 string   `json:"id"`
	TS                 string   `json:"ts" format:"date-time"`
	Day                string   `json:"day"`
	SenderID           string   `json:"sender_id"`
	SenderName         string   `json:"sender_name"`
	SenderRole         Role     `json:"sender_role"`
	To                 string   `json:"to"`
	Text               string   `json:"text"`
	Tags               []string `json:"tags"`
	RelatedDecisionIDs []string `json:"related_decision_ids"`
}

// Triggers records what prompted a decision: prior messages, prior tests,
// and named metric observations. Only backward references are legal.
type Triggers struct {
	MessageIDs []string `json:"message_ids"`
	TestIDs    []string `json:"test_ids"`
	Metrics    []string `json:"metrics"`
}

// Effects records what a decision changes: plan adjustments and follow-up
// actions the team commits to.
type Effects struct {
	PlanChanges []string `json:"plan_changes"`
	Followups   []string `json:"followups"`
}

// Decision is a care decision authored by one staff participant.
type Decision struct {
	ID        string       `json:"id"`
	TS        string       `json:"ts" format:"date-time"`
	ActorID   string       `json:"actor_id"`
	ActorName string       `json:"actor_name"`
	ActorRole Role         `json:"actor_role"`
	Kind      DecisionKind `json:"kind"`
	Title     string       `json:"title"`
	Rationale string       `json:"rationale"`
	Triggers  Triggers     `json:"triggers"`
	Effects   Effects      `json:"effects"`
}

// Test is one lab panel result.
type Test struct {
	ID         string     `json:"id"`
	TS         string     `json:"ts" format:"date-time"`
	Panel      string     `json:"panel"`
	Summary    string     `json:"summary"`
	Highlights Highlights `json:"highlights"`
}
