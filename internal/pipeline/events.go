package pipeline

// Event is one record on the progress channel of a single run. Events are
// immutable, ordered, and consumed by exactly one subscriber.
type Event interface {
	event()
}

// ProgressEvent reports a stage transition. Progress is monotonically
// non-decreasing across the events of one run.
type ProgressEvent struct {
	Type     string `json:"type"`
	Step     string `json:"step"`
	Progress int    `json:"progress"`
}

// CompleteEvent is the terminal event of a successful run.
type CompleteEvent struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	MidiPath string `json:"midiPath"`
}

// ErrorEvent is the terminal event of a failed run. Kind is one of the
// pipeline error kinds; clients use it to distinguish failure modes from a
// plain network fault.
type ErrorEvent struct {
	Type    string `json:"type"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (ProgressEvent) event() {}
func (CompleteEvent) event() {}
func (ErrorEvent) event()    {}

func NewProgressEvent(step string, progress int) ProgressEvent {
	return ProgressEvent{Type: "progress", Step: step, Progress: progress}
}

func NewCompleteEvent(title, midiPath string) CompleteEvent {
	return CompleteEvent{Type: "complete", Title: title, MidiPath: midiPath}
}

func NewErrorEvent(kind, message string) ErrorEvent {
	return ErrorEvent{Type: "error", Kind: kind, Message: message}
}
