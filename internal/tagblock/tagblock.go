// Package tagblock extracts and decodes the tagged fenced blocks the
// coach embeds in its free-text replies. A block is opened by three
// backticks immediately followed by a bracketed tag, e.g. ```[MEMORY],
// and closed by the next three backticks.
package tagblock

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	TagMemory = "MEMORY"
	TagAction = "ACTION"

	fence = "```"
)

var ErrDecode = errors.New("tagblock: decode failed")

// Block is one raw tagged fenced block found in a reply. Span is the full
// text of the block including both fences, so callers can strip it
// verbatim; Payload is the inner text between the tag and the closing
// fence.
type Block struct {
	Tag     string
	Payload string
	Span    string
}

// Opening returns the literal opening marker for tag, usable as a
// presence check without extracting the block.
func Opening(tag string) string {
	return fence + "[" + tag + "]"
}

// Extract finds the first block tagged tag in text. The second return is
// false when no opening marker exists or the block is never closed.
func Extract(text, tag string) (Block, bool) {
	open := Opening(tag)
	start := strings.Index(text, open)
	if start < 0 {
		return Block{}, false
	}
	rest := text[start+len(open):]
	end := strings.Index(rest, fence)
	if end < 0 {
		return Block{}, false
	}
	return Block{
		Tag:     tag,
		Payload: strings.TrimSpace(rest[:end]),
		Span:    text[start : start+len(open)+end+len(fence)],
	}, true
}

// Strip removes the block's span from text, tidying blank lines at the
// cut site only; the rest of the text is untouched.
func Strip(text string, b Block) string {
	i := strings.Index(text, b.Span)
	if i < 0 {
		return text
	}
	before := strings.TrimRight(text[:i], " \t\n")
	after := strings.TrimLeft(text[i+len(b.Span):], " \t\n")
	switch {
	case before == "":
		return after
	case after == "":
		return before
	default:
		return before + "\n\n" + after
	}
}

// MemoryPayload mirrors the Memory row minus ownership fields.
type MemoryPayload struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	Category  string `json:"category"`
	Relevance int    `json:"relevance"`
}

// DecodeMemory parses a [MEMORY] block payload. Relevance defaults to 5
// when absent or non-numeric; a missing or unknown type is a decode
// error so junk never reaches the store.
func DecodeMemory(b Block) (MemoryPayload, error) {
	var raw struct {
		Type      string          `json:"type"`
		Content   string          `json:"content"`
		Category  string          `json:"category"`
		Relevance json.RawMessage `json:"relevance"`
	}
	if err := json.Unmarshal([]byte(b.Payload), &raw); err != nil {
		return MemoryPayload{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if raw.Content == "" {
		return MemoryPayload{}, fmt.Errorf("%w: missing content", ErrDecode)
	}

	typ := strings.ToUpper(strings.TrimSpace(raw.Type))
	switch typ {
	case "BLOCKER", "INSIGHT", "ACHIEVEMENT", "PREFERENCE":
	default:
		return MemoryPayload{}, fmt.Errorf("%w: unknown memory type %q", ErrDecode, raw.Type)
	}

	p := MemoryPayload{
		Type:      typ,
		Content:   raw.Content,
		Category:  raw.Category,
		Relevance: 5,
	}
	if len(raw.Relevance) > 0 {
		var n int
		if err := json.Unmarshal(raw.Relevance, &n); err == nil && n > 0 {
			p.Relevance = n
		}
	}
	return p, nil
}

// Action types the approval step understands.
const (
	ActionAddTask           = "ADD_TASK"
	ActionCompleteMilestone = "COMPLETE_MILESTONE"
)

// ActionPayload is the decoded shape of an [ACTION] block. Data is kept
// loosely typed; per-type field validation happens at approval time.
type ActionPayload struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// DecodeAction strictly parses an action payload string. It does not
// check the action type against the known set; unknown types are a soft
// failure downstream, not a parse error.
func DecodeAction(raw string) (ActionPayload, error) {
	var p ActionPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return ActionPayload{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return p, nil
}

// StringField returns data[key] when it is a non-empty string.
func StringField(data map[string]any, key string) (string, bool) {
	if data == nil {
		return "", false
	}
	s, ok := data[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

// IntField returns data[key] as an int when it is a JSON number.
func IntField(data map[string]any, key string) (int, bool) {
	if data == nil {
		return 0, false
	}
	f, ok := data[key].(float64)
	if !ok {
		return 0, false
	}
	return int(f), true
}
