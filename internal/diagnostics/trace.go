// Package diagnostics records the per-run decision trace returned as the
// debug payload of a verification result.
package diagnostics

// Stage names used across the pipeline.
const (
	StageAcquisition   = "acquisition"
	StageExtraction    = "extraction"
	StageNormalization = "normalization"
	StageComparison    = "comparison"
	StageAggregation   = "aggregation"
	StagePipeline      = "pipeline"
)

// Entry is one recorded decision or failure.
type Entry struct {
	Stage   string         `json:"stage" yaml:"stage"`
	Message string         `json:"message" yaml:"message"`
	Data    map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

// Trace is an ordered, append-only list of entries owned by a single run.
// It is not safe for concurrent use; every run creates its own.
type Trace struct {
	entries []Entry
}

// New returns an empty trace.
func New() *Trace {
	return &Trace{}
}

// Add appends an entry. kv is a flat list of key/value pairs in the style of
// slog attributes; a trailing key without value is dropped.
func (t *Trace) Add(stage, message string, kv ...any) {
	if t == nil {
		return
	}
	e := Entry{Stage: stage, Message: message}
	if len(kv) >= 2 {
		e.Data = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			key, ok := kv[i].(string)
			if !ok {
				continue
			}
			e.Data[key] = kv[i+1]
		}
	}
	t.entries = append(t.entries, e)
}

// Append copies all entries of other onto t.
func (t *Trace) Append(other *Trace) {
	if t == nil || other == nil {
		return
	}
	t.entries = append(t.entries, other.entries...)
}

// Entries returns a copy of the recorded entries.
func (t *Trace) Entries() []Entry {
	if t == nil {
		return nil
	}
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len returns the number of entries.
func (t *Trace) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Find returns the entries of a stage whose message matches.
func (t *Trace) Find(stage, message string) []Entry {
	var out []Entry
	for _, e := range t.Entries() {
		if e.Stage == stage && e.Message == message {
			out = append(out, e)
		}
	}
	return out
}
