package adapter

// Resumption says whether a turn starts a new conversation or continues an
// existing one. The only implementations are Fresh and Resume.
type Resumption interface {
	isResumption()
}

// Fresh starts a new conversation thread.
type Fresh struct{}

// Resume continues the thread identified by ThreadID.
type Resume struct {
	ThreadID string
}

func (Fresh) isResumption()  {}
func (Resume) isResumption() {}

// SessionContext is the per-turn view of a chat session handed to adapters.
type SessionContext struct {
	Resumption Resumption
	SessionID  string
	WorkDir    string
}

// ThreadID returns the thread being resumed, or "" for a fresh turn.
func (sc SessionContext) ThreadID() string {
	if r, ok := sc.Resumption.(Resume); ok {
		return r.ThreadID
	}
	return ""
}
