package suggestion

// SourceKind identifies where a suggestion was extracted from.
type SourceKind string

const (
	SourceMeeting SourceKind = "meeting"
	SourceEmail   SourceKind = "email"
	SourceChat    SourceKind = "chat"
)

// SourceReference points back at the content a suggestion was extracted from.
// It is immutable once attached to a suggestion.
type SourceReference struct {
	Kind         SourceKind `json:"kind" yaml:"kind"`
	SourceID     string     `json:"sourceId" yaml:"sourceId"`
	SourceURL    string     `json:"sourceUrl,omitempty" yaml:"sourceUrl,omitempty"`
	TimestampRef string     `json:"timestampRef,omitempty" yaml:"timestampRef,omitempty"`
}
