package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vanderheijden86/archtrace/pkg/model"
)

// Conversation is the ordered chat log. Several sends may be in flight at
// once; each reply is appended when it arrives, so replies land in arrival
// order rather than send order.
type Conversation struct {
	mu        sync.Mutex
	responder Responder
	messages  []model.ChatMessage
	pending   int
	seq       int
	now       func() time.Time
}

// NewConversation starts a log seeded with the greeting.
func NewConversation(r Responder) *Conversation {
	c := &Conversation{responder: r, now: time.Now}
	c.resetLocked()
	return c
}

func (c *Conversation) resetLocked() {
	c.messages = []model.ChatMessage{{
		ID:        "init",
		Role:      model.RoleAI,
		Content:   Greeting,
		Timestamp: c.now(),
	}}
}

// Reset clears the log back to the greeting. In-flight replies still
// append when they arrive.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// Messages returns a copy of the log.
func (c *Conversation) Messages() []model.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.ChatMessage, len(c.messages))
	copy(out, c.messages)
	return out
}

// Pending returns the number of sends awaiting a reply.
func (c *Conversation) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Typing reports whether any reply is outstanding.
func (c *Conversation) Typing() bool { return c.Pending() > 0 }

func (c *Conversation) appendLocked(role model.Role, text string) model.ChatMessage {
	c.seq++
	msg := model.ChatMessage{
		ID:        fmt.Sprintf("msg-%d", c.seq),
		Role:      role,
		Content:   text,
		Timestamp: c.now(),
	}
	c.messages = append(c.messages, msg)
	return msg
}

// Post appends the user message and marks a reply as pending. Blank text
// is ignored and reports false.
func (c *Conversation) Post(text string) (model.ChatMessage, bool) {
	if strings.TrimSpace(text) == "" {
		return model.ChatMessage{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending++
	return c.appendLocked(model.RoleUser, text), true
}

// Resolve asks the responder about a posted message and appends the reply.
// It blocks for the duration of the remote call.
func (c *Conversation) Resolve(ctx context.Context, posted model.ChatMessage) model.ChatMessage {
	reply := c.responder.GenerateResponse(ctx, posted.Content)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending > 0 {
		c.pending--
	}
	return c.appendLocked(model.RoleAI, reply)
}

// Send posts text and waits for the reply.
func (c *Conversation) Send(ctx context.Context, text string) (model.ChatMessage, bool) {
	posted, ok := c.Post(text)
	if !ok {
		return model.ChatMessage{}, false
	}
	return c.Resolve(ctx, posted), true
}
