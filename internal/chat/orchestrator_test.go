package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"docuchat/internal/config"
	"docuchat/internal/llm"
	"docuchat/internal/models"
	"docuchat/internal/store"
	"docuchat/internal/tools"
)

type memMessages struct {
	rows []models.Message
}

func (m *memMessages) Append(ctx context.Context, msg *models.Message) error {
	m.rows = append(m.rows, *msg)
	return nil
}

func (m *memMessages) ListByThread(ctx context.Context, threadID string) ([]models.Message, error) {
	var out []models.Message
	for _, r := range m.rows {
		if r.ThreadID == threadID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memMessages) CountByThread(ctx context.Context, threadID string) (int64, error) {
	rows, _ := m.ListByThread(ctx, threadID)
	return int64(len(rows)), nil
}

func (m *memMessages) DeleteByThread(ctx context.Context, threadID string) error { return nil }

func (m *memMessages) byRole(role string) []models.Message {
	var out []models.Message
	for _, r := range m.rows {
		if r.Role == role {
			out = append(out, r)
		}
	}
	return out
}

type memThreads struct {
	titles  map[string]string
	touched int
}

func (t *memThreads) Create(ctx context.Context, thread *models.Thread) error { return nil }
func (t *memThreads) Get(ctx context.Context, owner, id string) (*models.Thread, error) {
	return &models.Thread{ID: id, Owner: owner}, nil
}
func (t *memThreads) ListByOwner(ctx context.Context, owner string) ([]models.Thread, error) {
	return nil, nil
}
func (t *memThreads) SetTitle(ctx context.Context, id, title string) error {
	if t.titles == nil {
		t.titles = make(map[string]string)
	}
	t.titles[id] = title
	return nil
}
func (t *memThreads) Touch(ctx context.Context, id string) error {
	t.touched++
	return nil
}
func (t *memThreads) Delete(ctx context.Context, owner, id string) error { return nil }

type memDocs struct {
	docs []models.Document
}

func (d *memDocs) CreateOrReuse(ctx context.Context, doc *models.Document) (*models.Document, bool, error) {
	return doc, false, nil
}
func (d *memDocs) UpdateStatus(ctx context.Context, id, status, errMsg string) error { return nil }
func (d *memDocs) SetMetadata(ctx context.Context, id string, meta models.DocumentMetadata, chunkCount int) error {
	return nil
}
func (d *memDocs) Get(ctx context.Context, owner, id string) (*models.Document, error) {
	return nil, store.ErrNotFound
}
func (d *memDocs) ListByOwner(ctx context.Context, owner string) ([]models.Document, error) {
	return d.docs, nil
}
func (d *memDocs) Delete(ctx context.Context, owner, id string) error { return nil }

// chatProvider scripts the streaming answer and records which entry point
// served the turn.
type chatProvider struct {
	tokens       []string
	streamErr    error
	titleText    string
	toolStreams  int
	plainStreams int
	supports     bool
}

func (p *chatProvider) ChatCompletion(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	if p.titleText == "" {
		return "", errors.New("no title backend")
	}
	return p.titleText, nil
}

func (p *chatProvider) ChatCompletionStream(ctx context.Context, messages []llm.Message, opts llm.Options) (<-chan llm.StreamDelta, error) {
	p.plainStreams++
	return p.stream(), nil
}

func (p *chatProvider) SupportsTools() bool { return p.supports }

func (p *chatProvider) ChatCompletionWithTools(ctx context.Context, messages []llm.Message, toolset []llm.Tool, opts llm.Options) (*llm.ToolResponse, error) {
	return nil, llm.ErrToolsNotSupported
}

func (p *chatProvider) FormatToolMessages(calls []llm.ToolCall, results []llm.ToolResult) []llm.Message {
	return nil
}

func (p *chatProvider) ChatCompletionStreamWithTools(ctx context.Context, messages []llm.Message, toolset []llm.Tool, executor llm.ToolExecutor, opts llm.Options) (<-chan llm.StreamDelta, error) {
	p.toolStreams++
	return p.stream(), nil
}

func (p *chatProvider) stream() <-chan llm.StreamDelta {
	ch := make(chan llm.StreamDelta, len(p.tokens)+1)
	for _, tok := range p.tokens {
		ch <- llm.StreamDelta{Content: tok}
	}
	if p.streamErr != nil {
		ch <- llm.StreamDelta{Err: p.streamErr}
	}
	close(ch)
	return ch
}

func orchestratorFor(p *chatProvider, docs *memDocs, threads *memThreads, msgs *memMessages) *Orchestrator {
	registry := tools.NewRegistry(config.ToolsConfig{}, nil)
	return NewOrchestrator(p, docs, threads, msgs, nil, registry)
}

func drain(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var out []Event
	for e := range events {
		out = append(out, e)
	}
	if len(out) == 0 {
		t.Fatal("stream produced no events")
	}
	return out
}

func TestPlainTurnStreamsAndPersists(t *testing.T) {
	p := &chatProvider{tokens: []string{"Hello", " there"}, titleText: `"Greeting Chat"`}
	msgs := &memMessages{}
	threads := &memThreads{}
	o := orchestratorFor(p, &memDocs{}, threads, msgs)

	events, err := o.StreamTurn(context.Background(), "alice", "t1", "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := drain(t, events)

	if got[0].Type != EventToken || got[0].Content != "Hello" {
		t.Errorf("first event = %+v", got[0])
	}
	last := got[len(got)-1]
	if last.Type != EventDone || last.MessageID == "" {
		t.Errorf("terminal event = %+v", last)
	}
	assistant := msgs.byRole(models.RoleAssistant)
	if len(assistant) != 1 || assistant[0].Content != "Hello there" {
		t.Errorf("assistant messages = %+v", assistant)
	}
	if p.plainStreams != 1 || p.toolStreams != 0 {
		t.Errorf("plain=%d tool=%d, want the plain path", p.plainStreams, p.toolStreams)
	}
	if threads.touched != 1 {
		t.Errorf("thread touched %d times, want 1", threads.touched)
	}
}

func TestFirstMessageSetsTitle(t *testing.T) {
	p := &chatProvider{tokens: []string{"ok"}, titleText: `"Tax Questions"`}
	threads := &memThreads{}
	o := orchestratorFor(p, &memDocs{}, threads, &memMessages{})

	events, err := o.StreamTurn(context.Background(), "alice", "t1", "about my taxes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	drain(t, events)

	if threads.titles["t1"] != "Tax Questions" {
		t.Errorf("title = %q, want quotes stripped", threads.titles["t1"])
	}
}

func TestSecondMessageKeepsTitle(t *testing.T) {
	p := &chatProvider{tokens: []string{"ok"}, titleText: "New Title"}
	threads := &memThreads{}
	msgs := &memMessages{rows: []models.Message{
		{ID: "m1", ThreadID: "t1", Role: models.RoleUser, Content: "earlier"},
		{ID: "m2", ThreadID: "t1", Role: models.RoleAssistant, Content: "reply"},
	}}
	o := orchestratorFor(p, &memDocs{}, threads, msgs)

	events, err := o.StreamTurn(context.Background(), "alice", "t1", "follow-up")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	drain(t, events)

	if len(threads.titles) != 0 {
		t.Errorf("title regenerated on a non-first message: %v", threads.titles)
	}
}

func TestStreamErrorDiscardsPartialAssistantMessage(t *testing.T) {
	p := &chatProvider{tokens: []string{"partial"}, streamErr: errors.New("provider quota exceeded")}
	msgs := &memMessages{rows: []models.Message{
		{ID: "m1", ThreadID: "t1", Role: models.RoleUser, Content: "earlier"},
	}}
	threads := &memThreads{}
	o := orchestratorFor(p, &memDocs{}, threads, msgs)

	events, err := o.StreamTurn(context.Background(), "alice", "t1", "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := drain(t, events)

	last := got[len(got)-1]
	if last.Type != EventError || last.Detail != "provider quota exceeded" {
		t.Errorf("terminal event = %+v", last)
	}
	if n := len(msgs.byRole(models.RoleAssistant)); n != 0 {
		t.Errorf("assistant messages persisted after stream error: %d", n)
	}
	if threads.touched != 0 {
		t.Errorf("thread touched on a failed turn")
	}
}

func TestDisconnectedClientAbandonsTurn(t *testing.T) {
	p := &chatProvider{tokens: []string{"a", "b", "c", "d"}, titleText: "Chat"}
	msgs := &memMessages{}
	threads := &memThreads{}
	o := orchestratorFor(p, &memDocs{}, threads, msgs)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := o.StreamTurn(ctx, "alice", "t1", "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev := <-events; ev.Type != EventToken {
		t.Fatalf("first event = %+v", ev)
	}
	cancel()
	// Nobody reads anymore; the responder must stop on its own.
	time.Sleep(50 * time.Millisecond)

	done := false
	for ev := range events {
		if ev.Type == EventDone {
			done = true
		}
	}
	if done {
		t.Error("done event emitted after the client went away")
	}
	if n := len(msgs.byRole(models.RoleAssistant)); n != 0 {
		t.Errorf("assistant messages persisted on an abandoned turn: %d", n)
	}
	if threads.touched != 0 {
		t.Error("thread touched on an abandoned turn")
	}
}

func TestCompletedDocumentsSelectToolPath(t *testing.T) {
	p := &chatProvider{tokens: []string{"answer"}, titleText: "Docs", supports: true}
	docs := &memDocs{docs: []models.Document{{ID: "d1", Status: models.StatusCompleted}}}
	o := orchestratorFor(p, docs, &memThreads{}, &memMessages{})

	events, err := o.StreamTurn(context.Background(), "alice", "t1", "what do my docs say")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	drain(t, events)

	if p.toolStreams != 1 || p.plainStreams != 0 {
		t.Errorf("tool=%d plain=%d, want the tool-calling path", p.toolStreams, p.plainStreams)
	}
}

func TestPendingDocumentsStayOnPlainPath(t *testing.T) {
	p := &chatProvider{tokens: []string{"answer"}, titleText: "Docs", supports: true}
	docs := &memDocs{docs: []models.Document{{ID: "d1", Status: models.StatusEmbedding}}}
	o := orchestratorFor(p, docs, &memThreads{}, &memMessages{})

	events, err := o.StreamTurn(context.Background(), "alice", "t1", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	drain(t, events)

	if p.plainStreams != 1 || p.toolStreams != 0 {
		t.Errorf("tool=%d plain=%d, want the plain path", p.toolStreams, p.plainStreams)
	}
}
