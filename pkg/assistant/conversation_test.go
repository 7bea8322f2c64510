package assistant

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vanderheijden86/archtrace/pkg/model"
)

// gatedResponder blocks each prompt until released.
type gatedResponder struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
}

func newGated(prompts ...string) *gatedResponder {
	g := &gatedResponder{gates: make(map[string]chan struct{})}
	for _, p := range prompts {
		g.gates[p] = make(chan struct{})
	}
	return g
}

func (g *gatedResponder) release(p string) { close(g.gates[p]) }

func (g *gatedResponder) GenerateResponse(ctx context.Context, prompt string) string {
	g.mu.Lock()
	gate := g.gates[prompt]
	g.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return "re: " + prompt
}

type echo struct{}

func (echo) GenerateResponse(_ context.Context, p string) string { return "re: " + p }

func TestConversation_SeededWithGreeting(t *testing.T) {
	c := NewConversation(echo{})
	msgs := c.Messages()
	if len(msgs) != 1 || msgs[0].Role != model.RoleAI || msgs[0].Content != Greeting {
		t.Fatalf("unexpected seed %+v", msgs)
	}
}

func TestConversation_SendAppendsPair(t *testing.T) {
	c := NewConversation(echo{})
	reply, ok := c.Send(context.Background(), "what is AODB?")
	if !ok || reply.Content != "re: what is AODB?" || reply.Role != model.RoleAI {
		t.Fatalf("Send = %+v, %v", reply, ok)
	}
	msgs := c.Messages()
	if len(msgs) != 3 || msgs[1].Role != model.RoleUser || msgs[2].Role != model.RoleAI {
		t.Errorf("log = %+v", msgs)
	}
	if msgs[1].ID == msgs[2].ID {
		t.Error("message ids must be unique")
	}
	if c.Typing() {
		t.Error("no reply should be pending")
	}
}

func TestConversation_BlankIgnored(t *testing.T) {
	c := NewConversation(echo{})
	if _, ok := c.Send(context.Background(), "   \n"); ok {
		t.Error("blank send should be ignored")
	}
	if len(c.Messages()) != 1 {
		t.Error("blank send should not touch the log")
	}
}

func TestConversation_RepliesInArrivalOrder(t *testing.T) {
	g := newGated("first", "second")
	c := NewConversation(g)

	var wg sync.WaitGroup
	first, _ := c.Post("first")
	second, _ := c.Post("second")
	if c.Pending() != 2 || !c.Typing() {
		t.Fatalf("pending = %d", c.Pending())
	}

	wg.Add(2)
	go func() { defer wg.Done(); c.Resolve(context.Background(), first) }()
	go func() { defer wg.Done(); c.Resolve(context.Background(), second) }()

	done := make(chan struct{})
	go func() {
		for {
			if n := len(c.Messages()); n == 4 {
				close(done)
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()
	g.release("second")
	<-done
	g.release("first")
	wg.Wait()

	msgs := c.Messages()
	var order []string
	for _, m := range msgs[1:] {
		order = append(order, m.Content)
	}
	want := "first|second|re: second|re: first"
	if got := strings.Join(order, "|"); got != want {
		t.Errorf("order = %s, want %s", got, want)
	}
	if c.Pending() != 0 {
		t.Errorf("pending = %d after both replies", c.Pending())
	}
}

func TestConversation_Reset(t *testing.T) {
	c := NewConversation(echo{})
	c.Send(context.Background(), "x")
	c.Reset()
	if len(c.Messages()) != 1 {
		t.Error("Reset should leave only the greeting")
	}
}

func TestSuggestions(t *testing.T) {
	if got := Suggestions(nil); len(got) != len(Presets) {
		t.Errorf("without selection got %d suggestions", len(got))
	}
	n := model.Node{ID: "aodb", Name: "AODB", Description: "核心航班表資料庫"}
	got := Suggestions(&n)
	if len(got) != len(Presets)+1 {
		t.Fatalf("got %d suggestions", len(got))
	}
	if got[0].Label != "詢問 AODB" || !strings.Contains(got[0].Query, "「AODB」") || !strings.Contains(got[0].Query, "核心航班表資料庫") {
		t.Errorf("node suggestion = %+v", got[0])
	}
	if got[1] != Presets[0] {
		t.Error("presets should follow the node question")
	}
}

func TestArchitecturePrompt(t *testing.T) {
	arch := model.Architecture{Layers: []model.Layer{{
		ID: model.LayerIntegration, Title: "Core",
		Groups: []model.Group{{Systems: []model.Node{{ID: "aodb", Name: "AODB", Type: model.TypeCore, Milestone: model.MilestoneV3, Targets: []string{"dw"}}}}},
	}}}
	p := ArchitecturePrompt(arch)
	for _, frag := range []string{DefaultSystemPrompt, "Airport 4.0", "- AODB (aodb, CORE, Airport 3.0) -> dw"} {
		if !strings.Contains(p, frag) {
			t.Errorf("prompt missing %q", frag)
		}
	}
}
