package knowledge

import "time"

// Type represents the kind of contribution a proof claims.
type Type string

// Set of known proof types. Each one has a base value in the reward table.
const (
	TypeCourseCompletion Type = "course_completion"
	TypeTutorial         Type = "tutorial"
	TypeDocumentation    Type = "documentation"
	TypeCodeContribution Type = "code_contribution"
	TypeBugReport        Type = "bug_report"
	TypeResearch         Type = "research"
	TypeMentoring        Type = "mentoring"
	TypeTranslation      Type = "translation"
)

// Valid reports whether the type has an entry in the reward table.
func (t Type) Valid() bool {
	switch t {
	case TypeCourseCompletion, TypeTutorial, TypeDocumentation, TypeCodeContribution,
		TypeBugReport, TypeResearch, TypeMentoring, TypeTranslation:
		return true
	}
	return false
}

// Difficulty represents how hard the claimed work was.
type Difficulty string

// Set of difficulty levels.
const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
	Expert       Difficulty = "expert"
)

// Valid reports whether the difficulty is one of the known levels.
func (d Difficulty) Valid() bool {
	switch d {
	case Beginner, Intermediate, Advanced, Expert:
		return true
	}
	return false
}

// Status represents where a proof is in its review lifecycle.
type Status string

// Set of proof statuses. Pending moves to verified or rejected once and
// never moves again.
const (
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
	StatusRejected Status = "rejected"
)

// =============================================================================

// Verification is a single verifier vote on a proof.
type Verification struct {
	VerifierID string    `json:"verifier_id"`
	Approved   bool      `json:"approved"`
	Comments   string    `json:"comments,omitempty"`
	TimeStamp  time.Time `json:"timestamp"`
}

// Proof is a submitted knowledge claim and its review state.
type Proof struct {
	ID            string         `json:"id"`
	Type          Type           `json:"type"`
	Content       string         `json:"content"`
	Difficulty    Difficulty     `json:"difficulty"`
	Accuracy      float64        `json:"accuracy"`
	Impact        uint64         `json:"impact"`
	SubmitterID   string         `json:"submitter_id,omitempty"`
	TimeStamp     time.Time      `json:"timestamp"`
	Status        Status         `json:"status"`
	Verifications []Verification `json:"verifications"`
}

// Approvals returns the number of approving votes recorded.
func (p Proof) Approvals() int {
	var n int
	for _, v := range p.Verifications {
		if v.Approved {
			n++
		}
	}
	return n
}

// clone returns a copy that shares no memory with the registry.
func (p Proof) clone() Proof {
	vs := make([]Verification, len(p.Verifications))
	copy(vs, p.Verifications)
	p.Verifications = vs
	return p
}

// NewProof is what a submitter provides. Pointer fields are optional and
// pick up defaults when nil.
type NewProof struct {
	Type        Type
	Content     string
	Difficulty  Difficulty
	Accuracy    *float64
	Impact      *uint64
	SubmitterID string
}
