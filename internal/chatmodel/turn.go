package chatmodel

import (
	"errors"
	"fmt"
)

// ErrMalformedHistory indicates the caller-supplied message list violates
// the ordering contract: an assistant message appeared with no open user
// utterance to attach to. This is a programming error on the caller's
// side, not a recoverable runtime condition.
var ErrMalformedHistory = errors.New("malformed chat history")

// Turn groups one exchange: at most one system note, one user utterance,
// and one assistant reply. A turn without an assistant reply renders as
// the open-ended suffix of the prompt (the exchange currently being
// answered).
type Turn struct {
	System    string
	User      string
	Assistant string
}

// empty reports whether no field of the turn has been set.
func (t Turn) empty() bool {
	return t == Turn{}
}

// PairTurns converts a chronologically ordered message list into ordered
// turns. The pairer keeps one open accumulator:
//
//   - a system message sets the accumulator's system note, overwriting any
//     earlier note within the same open turn;
//   - a user message commits the accumulator first if it already holds a
//     user utterance (two user messages with no assistant reply between
//     them yield two turns, the first one assistant-less);
//   - an assistant message requires an open user utterance and commits the
//     accumulator immediately.
//
// A trailing non-empty accumulator is committed as a final, possibly
// assistant-less turn. An empty input yields an empty (nil) result.
func PairTurns(messages []Message) ([]Turn, error) {
	var (
		turns   []Turn
		open    Turn
		hasUser bool
	)

	for i, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			open.System = msg.Content

		case RoleUser:
			if hasUser {
				turns = append(turns, open)
				open = Turn{}
			}
			open.User = msg.Content
			hasUser = true

		case RoleAssistant:
			if !hasUser {
				return nil, fmt.Errorf(
					"%w: assistant message at index %d has no preceding user message",
					ErrMalformedHistory, i)
			}
			open.Assistant = msg.Content
			turns = append(turns, open)
			open = Turn{}
			hasUser = false

		default:
			return nil, fmt.Errorf("%w: unknown role %q at index %d",
				ErrMalformedHistory, msg.Role, i)
		}
	}

	if hasUser || !open.empty() {
		turns = append(turns, open)
	}

	return turns, nil
}
