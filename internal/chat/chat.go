// Package chat wires the retriever, the chat model, and the conversation
// history into the service that answers visitor questions. Retrieval failures
// degrade to a context-free answer; only generation failures surface to the
// caller.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/quillhaven/sitechat/internal/budget"
	"github.com/quillhaven/sitechat/internal/logging"
	"github.com/quillhaven/sitechat/internal/rag"
	"github.com/quillhaven/sitechat/internal/store"
)

// Config holds the dependencies required to construct a Service.
type Config struct {
	// ChatModel is the LLM backend constructed by the provider factory.
	ChatModel model.ToolCallingChatModel

	// Retriever supplies knowledge-base context for each question.
	// May be nil if no documents were ingested.
	Retriever rag.Retriever

	// TopK controls how many snippets are retrieved per question.
	// Defaults to 3 if zero.
	TopK int

	// History is the optional conversation store used to persist and replay
	// prior turns. If nil, each question is stateless.
	History store.HistoryStore

	// HistoryDepth is the number of prior turns (user+assistant pairs) to
	// inject per question. Defaults to 10 if zero.
	HistoryDepth int

	// MaxContextTokens is the estimated token budget for the full input
	// context (retrieved snippets + history + question). Snippets and then
	// history are trimmed to fit. Defaults to budget.DefaultMaxContextTokens
	// if zero.
	MaxContextTokens int

	// GenerationTimeout bounds each model call. Defaults to 60s if zero.
	GenerationTimeout time.Duration
}

// Service answers visitor questions using retrieved site context.
type Service struct {
	chatModel model.ToolCallingChatModel
	retriever rag.Retriever
	topK      int
	history   store.HistoryStore
	// historyDepth is the number of recent messages to inject per question.
	historyDepth      int
	maxContextTokens  int
	generationTimeout time.Duration
}

// New constructs a Service from the provided Config.
func New(cfg *Config) (*Service, error) {
	if cfg.ChatModel == nil {
		return nil, fmt.Errorf("chat: ChatModel must not be nil")
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = 3
	}
	depth := cfg.HistoryDepth
	if depth <= 0 {
		depth = 10
	}
	maxCtx := cfg.MaxContextTokens
	if maxCtx <= 0 {
		maxCtx = budget.DefaultMaxContextTokens
	}
	timeout := cfg.GenerationTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Service{
		chatModel:         cfg.ChatModel,
		retriever:         cfg.Retriever,
		topK:              topK,
		history:           cfg.History,
		historyDepth:      depth,
		maxContextTokens:  maxCtx,
		generationTimeout: timeout,
	}, nil
}

// Answer generates a reply to the visitor's message. The message is embedded
// and matched against the knowledge base; retrieved snippets are composed
// into the prompt together with recent session history. A retrieval failure
// is logged and the question proceeds without context. A generation failure
// is returned to the caller.
func (s *Service) Answer(ctx context.Context, sessionID, message string) (string, error) {
	log := logging.FromContext(ctx)

	snippets := s.retrieve(ctx, message)
	prompt := rag.ComposePrompt(snippets, message)

	fixed := []*schema.Message{schema.UserMessage(prompt)}
	historyMsgs := s.loadHistory(ctx, sessionID)

	before := len(historyMsgs)
	historyMsgs = budget.TrimHistory(fixed, historyMsgs, s.maxContextTokens)
	if dropped := before - len(historyMsgs); dropped > 0 {
		log.Warn("budget: dropped history messages to fit context window",
			slog.Int("dropped", dropped),
			slog.Int("retained", len(historyMsgs)),
			slog.Int("max_tokens", s.maxContextTokens),
		)
	}

	messages := make([]*schema.Message, 0, len(historyMsgs)+1)
	messages = append(messages, historyMsgs...)
	messages = append(messages, schema.UserMessage(prompt))

	genCtx, cancel := context.WithTimeout(ctx, s.generationTimeout)
	defer cancel()

	resp, err := s.chatModel.Generate(genCtx, messages)
	if err != nil {
		return "", fmt.Errorf("chat: generation failed: %w", err)
	}
	answer := strings.TrimSpace(resp.Content)

	// Persist the turn (non-fatal on error). The raw visitor message goes
	// into history, not the composed prompt — replaying prompts would stack
	// stale context on later turns.
	if s.history != nil {
		if err := s.history.Append(ctx, sessionID, store.RoleUser, message); err != nil {
			log.Warn("history: failed to persist user message", slog.Any("error", err))
		}
		if err := s.history.Append(ctx, sessionID, store.RoleAssistant, answer); err != nil {
			log.Warn("history: failed to persist assistant message", slog.Any("error", err))
		}
	}

	return answer, nil
}

// retrieve fetches the top-K snippets for the message and trims them to the
// token budget. Any retrieval failure degrades to no context.
func (s *Service) retrieve(ctx context.Context, message string) []string {
	if s.retriever == nil {
		return nil
	}
	scored, err := s.retriever.Retrieve(ctx, message, s.topK)
	if err != nil {
		logging.FromContext(ctx).Warn("retrieval failed, continuing without context",
			slog.Any("error", err))
		return nil
	}
	snippets := make([]string, len(scored))
	for i, d := range scored {
		snippets[i] = d.Text
	}
	return budget.TrimSnippets(snippets, message, s.maxContextTokens)
}

// loadHistory returns the session's recent turns as schema messages,
// oldest-first. A load failure is logged and treated as empty history.
func (s *Service) loadHistory(ctx context.Context, sessionID string) []*schema.Message {
	if s.history == nil || sessionID == "" {
		return nil
	}
	prior, err := s.history.Recent(ctx, sessionID, s.historyDepth*2)
	if err != nil {
		logging.FromContext(ctx).Warn("history: failed to load prior messages", slog.Any("error", err))
		return nil
	}
	msgs := make([]*schema.Message, 0, len(prior))
	for _, m := range prior {
		switch m.Role {
		case store.RoleUser:
			msgs = append(msgs, schema.UserMessage(m.Content))
		case store.RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(m.Content, nil))
		}
	}
	return msgs
}
