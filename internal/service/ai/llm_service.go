package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"

	"github.com/Star2578/AINA/internal/config"
	"github.com/Star2578/AINA/internal/model/chat"
)

// Service runs generation requests through an eino chain of prompt template
// plus chat model. Chains are compiled lazily per model identifier and
// cached, so switching the configured model does not pay compilation on
// every turn.
type Service struct {
	cfg    config.LLMConfig
	logger *zap.Logger

	mu     sync.Mutex
	chains map[string]compose.Runnable[map[string]any, *schema.Message]
}

// NewService creates the generation service.
func NewService(cfg config.LLMConfig, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:    cfg,
		logger: logger.Named("ai"),
		chains: make(map[string]compose.Runnable[map[string]any, *schema.Message]),
	}
}

// StreamingEnabled indicates whether SSE streaming output is configured.
func (s *Service) StreamingEnabled() bool {
	return s.cfg.Stream
}

// HistoryLimit returns the number of trailing turns packed into a request.
func (s *Service) HistoryLimit() int {
	return s.cfg.HistoryLimit
}

// GenerateReply produces the assistant reply for the request's trailing user
// message, conditioned on the preceding history.
func (s *Service) GenerateReply(ctx context.Context, req chat.ChatRequest) (string, error) {
	chain, err := s.chainFor(ctx, req.Model)
	if err != nil {
		return "", err
	}

	input, err := s.buildChainInput(req)
	if err != nil {
		return "", err
	}

	response, err := chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("run generation chain: %w", err)
	}

	reply := strings.TrimSpace(response.Content)
	s.logger.Debug("generated reply",
		zap.String("model", req.Model),
		zap.Int("history", len(req.Messages)-1),
		zap.Int("length", len(reply)))
	return reply, nil
}

// StreamReply streams the assistant reply chunk by chunk.
func (s *Service) StreamReply(ctx context.Context, req chat.ChatRequest) (*schema.StreamReader[*schema.Message], error) {
	chain, err := s.chainFor(ctx, req.Model)
	if err != nil {
		return nil, err
	}

	input, err := s.buildChainInput(req)
	if err != nil {
		return nil, err
	}

	stream, err := chain.Stream(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("stream generation chain: %w", err)
	}
	return stream, nil
}

// chainFor returns the compiled chain for a model, building it on first use.
func (s *Service) chainFor(ctx context.Context, modelID string) (compose.Runnable[map[string]any, *schema.Message], error) {
	if modelID == "" {
		return nil, fmt.Errorf("generation request has no model identifier")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if chain, ok := s.chains[modelID]; ok {
		return chain, nil
	}

	chatModel, err := s.cfg.NewChatModel(ctx, modelID)
	if err != nil {
		return nil, fmt.Errorf("create chat model %q: %w", modelID, err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile chat chain for %q: %w", modelID, err)
	}

	s.chains[modelID] = runnable
	s.logger.Info("compiled generation chain", zap.String("model", modelID))
	return runnable, nil
}

// buildChainInput splits the request into history plus the trailing user
// query the template expects. The request must end with a user message.
func (s *Service) buildChainInput(req chat.ChatRequest) (map[string]any, error) {
	query, ok := req.Query()
	if !ok {
		return nil, fmt.Errorf("generation request must end with a user message")
	}

	history := make([]*schema.Message, 0, len(req.Messages)-1)
	for _, msg := range req.Messages[:len(req.Messages)-1] {
		switch msg.Role {
		case chat.RoleUser:
			history = append(history, schema.UserMessage(msg.Text))
		case chat.RoleAssistant:
			history = append(history, schema.AssistantMessage(msg.Text, nil))
		}
	}

	return map[string]any{
		"system":  s.cfg.SystemPrompt,
		"history": history,
		"query":   query,
	}, nil
}
