package a2a

import (
	"encoding/json"

	sdka2a "github.com/a2aproject/a2a-go/a2a"
)

// AgentCard is the capability document served at /.well-known/agent.json.
type AgentCard = sdka2a.AgentCard

// AgentSkill is one entry of AgentCard.Skills.
type AgentSkill = sdka2a.AgentSkill

// TaskState is the state reported in a task's status.
type TaskState = sdka2a.TaskState

// StateCompleted is the only state this client resolves into reply text.
const StateCompleted = sdka2a.TaskStateCompleted

// Part is one piece of message content. Text is a pointer so a part that
// carries no text field can be told apart from one with empty text.
type Part struct {
	Type string  `json:"type,omitempty"`
	Kind string  `json:"kind,omitempty"`
	Text *string `json:"text,omitempty"`
}

// Message is a role-tagged list of parts.
type Message struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// TaskStatus is the server-owned status of a task. Message is the optional
// status-embedded reply.
type TaskStatus struct {
	State   TaskState `json:"state"`
	Message *Message  `json:"message,omitempty"`
}

// Task is the params object of a tasks/send call.
type Task struct {
	ID                  string   `json:"id"`
	SessionID           string   `json:"sessionId"`
	AcceptedOutputModes []string `json:"acceptedOutputModes,omitempty"`
	Message             Message  `json:"message"`
}

// taskResult is the result object of a tasks/send response. Status is kept
// raw so non-completed outcomes can quote it verbatim.
type taskResult struct {
	ID        string          `json:"id"`
	SessionID string          `json:"sessionId"`
	Status    json.RawMessage `json:"status"`
	Messages  []Message       `json:"messages"`
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  Task   `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      any         `json:"id"`
	Result  *taskResult `json:"result"`
	Error   *rpcError   `json:"error"`
}

// textPart builds a user text part.
func textPart(text string) Part {
	return Part{Type: "text", Kind: "text", Text: &text}
}
