package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/windfall/speakcoach_service/internal/client"
	"github.com/windfall/speakcoach_service/internal/errors"
	"github.com/windfall/speakcoach_service/internal/prompt"
	"github.com/windfall/speakcoach_service/internal/repository"
)

const maxReplyRunes = 2000

// StartRequest opens a conversation. Empty fields take defaults, with the
// level and language falling back to the learner's profile.
type StartRequest struct {
	Persona  string `json:"persona"`
	Tone     string `json:"tone"`
	Level    string `json:"cefr_level"`
	Language string `json:"language"`
	Scenario string `json:"scenario"`
}

// Catalog lists every option a conversation can be started with.
type Catalog struct {
	Personas  []prompt.CatalogEntry `json:"personas"`
	Tones     []prompt.CatalogEntry `json:"tones"`
	Levels    []prompt.CatalogEntry `json:"levels"`
	Languages []prompt.CatalogEntry `json:"languages"`
}

// ConversationView is a conversation with its visible messages.
type ConversationView struct {
	Conversation *repository.Conversation `json:"conversation"`
	Messages     []repository.Message     `json:"messages"`
}

// StartResult is a new conversation and the coach's first line.
type StartResult struct {
	Conversation *repository.Conversation `json:"conversation"`
	Greeting     string                   `json:"greeting"`
}

// ReplyResult is the coach's answer to one learner turn.
type ReplyResult struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	Reply          string    `json:"reply"`
}

// CoachService runs role-play conversations with the LLM.
type CoachService struct {
	conversations repository.ConversationRepository
	profiles      repository.ProfileRepository
	llm           Completer
	historyLimit  int
	log           zerolog.Logger
}

// NewCoachService creates a new CoachService.
func NewCoachService(
	conversations repository.ConversationRepository,
	profiles repository.ProfileRepository,
	llm Completer,
	historyLimit int,
	log zerolog.Logger,
) *CoachService {
	if historyLimit <= 0 {
		historyLimit = 20
	}
	return &CoachService{
		conversations: conversations,
		profiles:      profiles,
		llm:           llm,
		historyLimit:  historyLimit,
		log:           log,
	}
}

// Catalog returns the selectable personas, tones, levels and languages.
func (s *CoachService) Catalog() Catalog {
	return Catalog{
		Personas:  prompt.Personas(),
		Tones:     prompt.Tones(),
		Levels:    prompt.Levels(),
		Languages: prompt.Languages(),
	}
}

// StartConversation stores a new conversation and the coach's greeting.
func (s *CoachService) StartConversation(ctx context.Context, userID uuid.UUID, req StartRequest) (*StartResult, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	level, language := req.Level, req.Language
	if profile != nil {
		if level == "" {
			level = profile.CEFRLevel
		}
		if language == "" {
			language = profile.TargetLanguage
		}
	}

	opts, err := prompt.Options{
		Persona:  prompt.Persona(req.Persona),
		Tone:     prompt.Tone(req.Tone),
		Level:    prompt.Level(level),
		Language: language,
		Scenario: req.Scenario,
	}.Normalize()
	if err != nil {
		return nil, errors.Validation(err.Error())
	}

	system, err := s.systemPrompt(opts, profile)
	if err != nil {
		return nil, err
	}

	conv := &repository.Conversation{
		UserID:    userID,
		Persona:   string(opts.Persona),
		Tone:      string(opts.Tone),
		CEFRLevel: string(opts.Level),
		Language:  opts.Language,
		Scenario:  opts.Scenario,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, err
	}

	greeting, err := s.llm.Complete(ctx, []client.Message{
		{Role: client.RoleSystem, Content: system},
		{Role: client.RoleUser, Content: prompt.OpeningInstruction()},
	})
	if err != nil {
		return nil, err
	}

	if err := s.conversations.AppendMessages(ctx, conv.ID,
		repository.Message{Role: client.RoleSystem, Content: system},
		repository.Message{Role: client.RoleAssistant, Content: greeting},
	); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("conversation_id", conv.ID.String()).
		Str("persona", conv.Persona).
		Str("cefr_level", conv.CEFRLevel).
		Msg("Conversation started")

	return &StartResult{Conversation: conv, Greeting: greeting}, nil
}

// Reply sends the learner's turn with recent history and stores both sides.
func (s *CoachService) Reply(ctx context.Context, userID, convID uuid.UUID, text string) (*ReplyResult, error) {
	text, err := requireText("text", text, maxReplyRunes)
	if err != nil {
		return nil, err
	}

	conv, err := s.conversations.Get(ctx, userID, convID)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", userID.String()).Msg("Failed to load profile, continuing without learner details")
		profile = nil
	}

	system, err := s.systemPrompt(optionsFor(conv), profile)
	if err != nil {
		return nil, err
	}

	history, err := s.conversations.RecentMessages(ctx, conv.ID, s.historyLimit)
	if err != nil {
		return nil, err
	}

	messages := make([]client.Message, 0, len(history)+2)
	messages = append(messages, client.Message{Role: client.RoleSystem, Content: system})
	for _, m := range history {
		if m.Role == client.RoleSystem {
			continue
		}
		messages = append(messages, client.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, client.Message{Role: client.RoleUser, Content: text})

	reply, err := s.llm.Complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	if err := s.conversations.AppendMessages(ctx, conv.ID,
		repository.Message{Role: client.RoleUser, Content: text},
		repository.Message{Role: client.RoleAssistant, Content: reply},
	); err != nil {
		return nil, err
	}

	return &ReplyResult{ConversationID: conv.ID, Reply: reply}, nil
}

// GetConversation returns the conversation and its recent non-system messages.
func (s *CoachService) GetConversation(ctx context.Context, userID, convID uuid.UUID) (*ConversationView, error) {
	conv, err := s.conversations.Get(ctx, userID, convID)
	if err != nil {
		return nil, err
	}

	history, err := s.conversations.RecentMessages(ctx, conv.ID, s.historyLimit)
	if err != nil {
		return nil, err
	}

	visible := make([]repository.Message, 0, len(history))
	for _, m := range history {
		if m.Role != client.RoleSystem {
			visible = append(visible, m)
		}
	}
	return &ConversationView{Conversation: conv, Messages: visible}, nil
}

func optionsFor(conv *repository.Conversation) prompt.Options {
	return prompt.Options{
		Persona:  prompt.Persona(conv.Persona),
		Tone:     prompt.Tone(conv.Tone),
		Level:    prompt.Level(conv.CEFRLevel),
		Language: conv.Language,
		Scenario: conv.Scenario,
	}
}

func (s *CoachService) systemPrompt(opts prompt.Options, profile *repository.Profile) (string, error) {
	if profile != nil {
		opts.LearnerName = profile.DisplayName
		opts.NativeLanguage = profile.NativeLanguage
	}
	system, err := prompt.BuildSystemPrompt(opts)
	if err != nil {
		return "", errors.Validation(err.Error())
	}
	return system, nil
}
