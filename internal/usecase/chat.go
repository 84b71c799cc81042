package usecase

import (
	"fmt"
	"strings"

	"github.com/unicompass/unicompass/internal/domain"
)

// ChatService answers follow-up questions about a recommendation
// snapshot.
type ChatService struct {
	Generator     domain.TextGenerator
	Prompts       *PromptLibrary
	MaxChatTokens int
}

// ChatReply is the outcome of one chat turn.
type ChatReply struct {
	Reply      string           `json:"reply"`
	ModelMeta  domain.ModelMeta `json:"modelMeta"`
	IsFallback bool             `json:"isFallback,omitempty"`
}

// Respond generates a reply to the student's question grounded in the
// recommendation context. An empty message is invalid.
func (s *ChatService) Respond(ctx domain.Context, message string, chatCtx ChatContext, history []ChatTurn) (ChatReply, error) {
	if strings.TrimSpace(message) == "" {
		return ChatReply{}, fmt.Errorf("op=chat: message is required: %w", domain.ErrInvalidArgument)
	}

	prompt := s.Prompts.BuildChatPrompt(message, chatCtx, history)
	gen, err := s.Generator.Generate(ctx, prompt, s.MaxChatTokens, 0.5)
	if err != nil {
		return ChatReply{}, fmt.Errorf("op=chat generate: %w", err)
	}

	return ChatReply{
		Reply:      gen.Text,
		ModelMeta:  gen.Meta,
		IsFallback: gen.Meta.Provider != "" && gen.Meta.Provider != "gemini",
	}, nil
}
