package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docuchat/internal/llm"
	"docuchat/internal/models"
	"docuchat/internal/retrieval"
	"docuchat/internal/store"
	"docuchat/internal/tools"
	"docuchat/pkg/logger"
)

// Stream event types, in emission order: zero or more tokens, then exactly
// one done or error event.
const (
	EventToken = "token"
	EventError = "error"
	EventDone  = "done"
)

// Event is one server-sent event of a chat turn.
type Event struct {
	Type      string `json:"-"`
	Content   string `json:"content,omitempty"`
	Detail    string `json:"detail,omitempty"`
	MessageID string `json:"message_id,omitempty"`
}

const systemPrompt = "You are a helpful AI assistant. Answer questions clearly and concisely. " +
	"If you don't know something, say so honestly. " +
	"Do not use <think> tags or show your reasoning process. " +
	"Respond directly with your answer."

const toolSystemPrompt = systemPrompt + "\n\n" +
	"You have tools available. Use search_documents when the question may be " +
	"answered by the user's uploaded documents. Cite document titles when you " +
	"use their content."

const contextPromptFormat = systemPrompt + "\n\n" +
	"Use the following excerpts from the user's documents to answer when they " +
	"are relevant. Cite the source titles you rely on.\n\n%s"

// Orchestrator runs one conversation turn end to end: persistence, response
// path selection, provider streaming and the final assistant write.
type Orchestrator struct {
	provider  llm.Provider
	docs      store.DocumentStore
	threads   store.ThreadStore
	messages  store.MessageStore
	retriever *retrieval.Retriever
	registry  *tools.Registry
	log       *logger.Logger
}

func NewOrchestrator(
	provider llm.Provider,
	docs store.DocumentStore,
	threads store.ThreadStore,
	messages store.MessageStore,
	retriever *retrieval.Retriever,
	registry *tools.Registry,
) *Orchestrator {
	return &Orchestrator{
		provider:  provider,
		docs:      docs,
		threads:   threads,
		messages:  messages,
		retriever: retriever,
		registry:  registry,
		log:       logger.New("chat"),
	}
}

// StreamTurn persists the user message and streams the assistant response.
// The returned channel yields tokens followed by one terminal done or error
// event. The assistant message is persisted only on a clean finish.
func (o *Orchestrator) StreamTurn(ctx context.Context, owner, threadID, userMessage string) (<-chan Event, error) {
	userMsg := &models.Message{
		ID:        uuid.New().String(),
		ThreadID:  threadID,
		Role:      models.RoleUser,
		Content:   userMessage,
		CreatedAt: time.Now(),
	}
	if err := o.messages.Append(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	history, err := o.messages.ListByThread(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("load thread history: %w", err)
	}
	if len(history) == 1 {
		o.generateTitle(ctx, threadID, userMessage)
	}

	events := make(chan Event)
	go o.respond(ctx, owner, threadID, userMessage, history, events)
	return events, nil
}

func (o *Orchestrator) respond(ctx context.Context, owner, threadID, userMessage string, history []models.Message, events chan<- Event) {
	defer close(events)

	// emit returns false once the client is gone; the turn is abandoned
	// without persisting a partial answer.
	emit := func(ev Event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	stream, err := o.openStream(ctx, owner, userMessage, history)
	if err != nil {
		o.log.WithError(err).Error("chat stream failed to start")
		emit(Event{Type: EventError, Detail: err.Error()})
		return
	}

	var full string
	for delta := range stream {
		if delta.Err != nil {
			o.log.WithError(delta.Err).Error("chat stream aborted")
			emit(Event{Type: EventError, Detail: delta.Err.Error()})
			return
		}
		if delta.Content == "" {
			continue
		}
		full += delta.Content
		if !emit(Event{Type: EventToken, Content: delta.Content}) {
			return
		}
	}

	assistantMsg := &models.Message{
		ID:        uuid.New().String(),
		ThreadID:  threadID,
		Role:      models.RoleAssistant,
		Content:   full,
		CreatedAt: time.Now(),
	}
	if err := o.messages.Append(ctx, assistantMsg); err != nil {
		o.log.WithError(err).Error("persist assistant message")
		emit(Event{Type: EventError, Detail: err.Error()})
		return
	}
	if err := o.threads.Touch(ctx, threadID); err != nil {
		o.log.WithError(err).Warn("touch thread")
	}
	emit(Event{Type: EventDone, MessageID: assistantMsg.ID})
}

// openStream picks one of three response paths: tool calling when the
// provider can do it and there is anything for tools to reach, retrieval
// up front for providers without tool support, or a plain completion.
func (o *Orchestrator) openStream(ctx context.Context, owner, userMessage string, history []models.Message) (<-chan llm.StreamDelta, error) {
	hasDocs, err := o.hasCompletedDocuments(ctx, owner)
	if err != nil {
		return nil, err
	}
	enabled := o.registry.EnabledTools()
	extraTools := len(enabled) > 1

	opts := llm.Options{}

	switch {
	case (hasDocs || extraTools) && o.provider.SupportsTools():
		messages := buildMessages(toolSystemPrompt, history)
		executor := o.registry.ExecutorFor(owner)
		return o.provider.ChatCompletionStreamWithTools(ctx, messages, enabled, executor, opts)

	case hasDocs:
		hits, err := o.retriever.Search(ctx, owner, userMessage, store.SearchFilter{}, 0, retrieval.StrategyAuto)
		if err != nil {
			return nil, fmt.Errorf("retrieve context: %w", err)
		}
		prompt := systemPrompt
		if block := retrieval.FormatContext(hits); block != "" {
			prompt = fmt.Sprintf(contextPromptFormat, block)
		}
		return o.provider.ChatCompletionStream(ctx, buildMessages(prompt, history), opts)

	default:
		return o.provider.ChatCompletionStream(ctx, buildMessages(systemPrompt, history), opts)
	}
}

func (o *Orchestrator) hasCompletedDocuments(ctx context.Context, owner string) (bool, error) {
	docs, err := o.docs.ListByOwner(ctx, owner)
	if err != nil {
		return false, fmt.Errorf("list documents: %w", err)
	}
	for _, d := range docs {
		if d.Status == models.StatusCompleted {
			return true, nil
		}
	}
	return false, nil
}

func buildMessages(prompt string, history []models.Message) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: prompt})
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	return messages
}
