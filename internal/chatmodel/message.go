// Package chatmodel implements the chat-history-to-prompt compiler for
// TAIDE (llama2-chat lineage) models, together with bounded-context
// trimming and token-level generation stopping.
//
// The pipeline, leaf to root:
//   - PairTurns groups a flat message list into conversational turns
//   - renderPrompt compiles turns into the [INST]/<<SYS>> prompt grammar
//   - fitToWindow drops the oldest turns until the prompt fits the
//     configured token limit
//   - StopSet halts generation on an exact token-id suffix match
//   - Model.Generate sequences all of the above against the collaborating
//     tokenizer and completer
//
// The package holds no state across calls: every Generate builds its
// prompt, stop set, and trimmed history fresh from the caller's snapshot.
package chatmodel

// Role identifies the author of a chat message.
type Role string

// The three message roles the pairer understands. The set is closed:
// PairTurns rejects anything else.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is an atomic chat event. Immutable once created.
type Message struct {
	Role    Role
	Content string
}

// System returns a system message with the given content.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User returns a user message with the given content.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant returns an assistant message with the given content.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}
