package services

import "sync"

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one message of the chat conversation.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Conversation keeps the most recent chat turns, oldest evicted first.
type Conversation struct {
	mu       sync.Mutex
	turns    []Turn
	maxPairs int
}

func NewConversation(maxPairs int) *Conversation {
	if maxPairs <= 0 {
		maxPairs = 10
	}
	return &Conversation{maxPairs: maxPairs}
}

func (c *Conversation) AppendUserTurn(text string) {
	c.append(Turn{Role: RoleUser, Text: text})
}

func (c *Conversation) AppendModelTurn(text string) {
	c.append(Turn{Role: RoleModel, Text: text})
}

func (c *Conversation) append(t Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.turns = append(c.turns, t)
	if limit := c.maxPairs * 2; len(c.turns) > limit {
		trimmed := make([]Turn, limit)
		copy(trimmed, c.turns[len(c.turns)-limit:])
		c.turns = trimmed
	}
}

// History returns a copy of the stored turns in order.
func (c *Conversation) History() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// RequestTurns is History without the model turns that eviction can leave at the front.
// Gemini rejects contents that do not open with a user turn.
func (c *Conversation) RequestTurns() []Turn {
	turns := c.History()
	for len(turns) > 0 && turns[0].Role != RoleUser {
		turns = turns[1:]
	}
	return turns
}

func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

func (c *Conversation) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
}
