package schema

// Section names used across the pipeline. Source documents follow the
// three-section regulatory template: every document carries a PURPOSE,
// a POLICY and a PROCEDURE section, terminated by an ATTACHMENT(S) marker.
const (
	SectionPurpose   = "purpose"
	SectionPolicy    = "policy"
	SectionProcedure = "procedure"
)

// ParagraphRecord is a single paragraph of a document section.
// ParagraphID is 1-based and contiguous within (FileName, Section).
type ParagraphRecord struct {
	FileName    string `json:"file_name"`
	Section     string `json:"section"`
	ParagraphID int    `json:"paragraph_id"`
	Content     string `json:"content"`
}

// SectionRecord holds the whole, unsplit text of one document section.
type SectionRecord struct {
	FileName string `json:"file_name"`
	Section  string `json:"section"`
	Content  string `json:"content"`
}

// Requirement is one extracted compliance requirement and its audit outcome.
// IsMet is tri-state: nil means not yet adjudicated (or undecidable).
type Requirement struct {
	ID          int      `json:"id"`
	Requirement string   `json:"requirement"`
	IsMet       *bool    `json:"is_met"`
	FileName    string   `json:"file_name,omitempty"`
	Citation    string   `json:"citation,omitempty"`
	Explanation string   `json:"explanation,omitempty"`
	AlsoMet     []string `json:"also_met,omitempty"`
}

// Verdict is the transient outcome of adjudicating one requirement against
// one candidate document. It is never persisted.
type Verdict struct {
	IsMet       *bool  `json:"is_met"`
	Citation    string `json:"citation,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

// Met reports whether the verdict affirmatively found the requirement met.
// An unknown (nil) tri-state counts as not met.
func (v Verdict) Met() bool {
	return v.IsMet != nil && *v.IsMet
}

// Bool returns a pointer to b, for populating tri-state fields.
func Bool(b bool) *bool { return &b }
