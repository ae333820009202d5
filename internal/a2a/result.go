package a2a

import (
	"fmt"
	"strings"
)

// NoMessagesReply is returned as the reply of a completed task that carried
// neither a message list nor a status-embedded message.
const NoMessagesReply = "No messages in response!"

// Outcome tags which variant of Result is populated.
type Outcome int

const (
	// OutcomeCompleted means the task reached the completed state and Reply
	// holds the resolved text.
	OutcomeCompleted Outcome = iota
	// OutcomeIncomplete means the task reported any other state and Reply
	// describes that status.
	OutcomeIncomplete
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeIncomplete:
		return "incomplete"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is the successful outcome of Send. Protocol and transport failures
// are reported through the error return instead.
type Result struct {
	Outcome   Outcome
	TaskID    string
	SessionID string
	State     TaskState
	Reply     string
	RawStatus string
}

// Completed reports whether the remote task reached the completed state.
func (r Result) Completed() bool {
	return r.Outcome == OutcomeCompleted
}

// Text returns the reply for completed tasks or the status description otherwise.
func (r Result) Text() string {
	return r.Reply
}

// resolveReply picks the message to read a completed task's reply from:
// the last entry of the message list, else the status-embedded message.
func resolveReply(messages []Message, status *TaskStatus) string {
	var msg *Message
	if len(messages) > 0 {
		msg = &messages[len(messages)-1]
	} else if status != nil && status.Message != nil {
		msg = status.Message
	}
	if msg == nil {
		return NoMessagesReply
	}

	var b strings.Builder
	for _, p := range msg.Parts {
		if p.Text != nil {
			b.WriteString(*p.Text)
		}
	}
	return b.String()
}

func incompleteReply(rawStatus string) string {
	return "Task did not complete. Status: " + rawStatus
}
