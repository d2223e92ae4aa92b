package agent

// Wire types for the Azure AI Agents REST API. Only the fields this
// deployment reads are modeled.

type Agent struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Model string `json:"model"`
}

type Thread struct {
	ID string `json:"id"`
}

type Run struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	Status    RunStatus `json:"status"`
	LastError *RunError `json:"last_error"`
}

type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RunStatus string

const (
	RunQueued         RunStatus = "queued"
	RunInProgress     RunStatus = "in_progress"
	RunRequiresAction RunStatus = "requires_action"
	RunCompleted      RunStatus = "completed"
	RunFailed         RunStatus = "failed"
	RunCancelled      RunStatus = "cancelled"
	RunExpired        RunStatus = "expired"
)

// Terminal reports whether the run has stopped making progress.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunQueued, RunInProgress, RunRequiresAction:
		return false
	}
	return true
}

type Message struct {
	ID      string        `json:"id"`
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

type ContentPart struct {
	Type string    `json:"type"`
	Text *TextPart `json:"text"`
}

type TextPart struct {
	Value string `json:"value"`
}

// Text returns the last text part of the message, the way the chat UI
// renders an assistant reply.
func (m Message) Text() string {
	for i := len(m.Content) - 1; i >= 0; i-- {
		if m.Content[i].Type == "text" && m.Content[i].Text != nil {
			return m.Content[i].Text.Value
		}
	}
	return ""
}

type messageList struct {
	Data []Message `json:"data"`
}
