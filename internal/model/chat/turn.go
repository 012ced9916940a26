package chat

import "google.golang.org/genai"

// Role tags who produced a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// PlaceholderText stands in for turn content that cannot be represented as
// text when a history is persisted. Preserving the turn with a marker beats
// dropping it or failing the save.
const PlaceholderText = "[unsupported content]"

// Part is one piece of a turn's content.
type Part struct {
	Text string `json:"text"`
}

// Turn is a single message within a conversation.
type Turn struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// Record is the persisted shape of a conversation: one record per session id,
// holding the full ordered history.
type Record struct {
	SessionID string `json:"session_id"`
	History   []Turn `json:"history"`
}

// ToGenaiHistory converts stored turns into Gemini chat history. Turns that
// carry no text at all are dropped rather than sent upstream.
func ToGenaiHistory(turns []Turn) []*genai.Content {
	history := make([]*genai.Content, 0, len(turns))
	for _, turn := range turns {
		parts := make([]*genai.Part, 0, len(turn.Parts))
		for _, p := range turn.Parts {
			if p.Text == "" {
				continue
			}
			parts = append(parts, &genai.Part{Text: p.Text})
		}
		if len(parts) == 0 {
			continue
		}
		history = append(history, &genai.Content{Role: string(turn.Role), Parts: parts})
	}
	return history
}

// FromGenaiHistory converts Gemini chat history into the persisted turn
// shape. Non-text parts become PlaceholderText; a turn that yields no parts
// is dropped.
func FromGenaiHistory(contents []*genai.Content) []Turn {
	turns := make([]Turn, 0, len(contents))
	for _, content := range contents {
		if content == nil {
			continue
		}

		role := Role(content.Role)
		if role != RoleUser && role != RoleModel {
			role = RoleUser
		}

		parts := make([]Part, 0, len(content.Parts))
		for _, p := range content.Parts {
			if p == nil {
				continue
			}
			if p.Text != "" {
				parts = append(parts, Part{Text: p.Text})
				continue
			}
			if p.InlineData != nil || p.FileData != nil || p.FunctionCall != nil || p.FunctionResponse != nil {
				parts = append(parts, Part{Text: PlaceholderText})
			}
		}
		if len(parts) == 0 {
			continue
		}

		turns = append(turns, Turn{Role: role, Parts: parts})
	}
	return turns
}

// TextTurn builds a single-part text turn.
func TextTurn(role Role, text string) Turn {
	return Turn{Role: role, Parts: []Part{{Text: text}}}
}
