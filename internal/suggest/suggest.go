// Package suggest produces conversation openers for premium users.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ammar1510/spark/internal/config"
	"github.com/ammar1510/spark/internal/logger"
	"github.com/ammar1510/spark/internal/models"
)

var (
	ErrPremiumRequired = errors.New("suggestions are a premium feature")
	ErrInvalidResponse = errors.New("invalid response format from provider")
)

// Fallback is returned whenever the provider is missing or failing
var Fallback = []string{
	"How's your week going?",
	"Anything fun planned for the weekend?",
	"I'm having trouble with my AI, but I'd love to chat!",
}

// Provider turns a prompt into suggestion lines
type Provider interface {
	Suggest(ctx context.Context, prompt string) ([]string, error)
}

// Service wraps a provider with the premium gate and the fallback lines
type Service struct {
	provider Provider
	log      *logger.Logger
}

// NewService accepts a nil provider, in which case Fallback is always used
func NewService(p Provider) *Service {
	return &Service{provider: p, log: logger.New("suggest")}
}

// NewFromConfig builds an HTTP provider when an endpoint is configured
func NewFromConfig(cfg config.SuggestConfig) *Service {
	if cfg.Endpoint == "" {
		return NewService(nil)
	}
	return NewService(NewHTTPProvider(cfg))
}

// ForMatch suggests what user could say next in m. other is the person on
// the other side.
func (s *Service) ForMatch(ctx context.Context, user, other *models.User, m *models.Match) ([]string, error) {
	if !user.IsPremium {
		return nil, ErrPremiumRequired
	}
	if s.provider == nil {
		return Fallback, nil
	}

	lines, err := s.provider.Suggest(ctx, BuildPrompt(user, other, m.Messages))
	if err != nil {
		s.log.Warn("Provider failed for match %s, using fallback: %v", m.ID, err)
		return Fallback, nil
	}
	return lines, nil
}

// BuildPrompt renders the conversation for the generation model
func BuildPrompt(user, other *models.User, messages []models.Message) string {
	var history strings.Builder
	for _, msg := range messages {
		name := other.Name
		if msg.SenderID == user.ID {
			name = user.Name
		}
		fmt.Fprintf(&history, "%s: %s\n", name, msg.Text)
	}
	if history.Len() == 0 {
		history.WriteString("This is the start of the conversation. Help the user send a great first message!\n")
	}

	example := "something cool"
	if len(other.Interests) > 0 {
		example = other.Interests[0]
	}

	var b strings.Builder
	b.WriteString("You are an AI dating coach and conversation buddy. Your goal is to help a user continue a conversation on a dating app.\n")
	fmt.Fprintf(&b, "The user you are helping is %q. They are talking to %q.\n\n", user.Name, other.Name)
	b.WriteString("Here is the conversation history:\n")
	b.WriteString(history.String())
	fmt.Fprintf(&b, "\nBased on this conversation (and the other user's profile info: interests are [%s], bio is %q), ",
		strings.Join(other.Interests, ", "), other.Bio)
	fmt.Fprintf(&b, "generate three distinct, engaging, and context-aware suggestions for what %q could say next.\n", user.Name)
	b.WriteString("The suggestions should be short, like a text message.\n")
	b.WriteString("Provide the output in JSON format as an array of 3 strings.\n")
	fmt.Fprintf(&b, "Example: [\"That's so interesting! What's your favorite part about that?\", \"I noticed you're into %s. Tell me more!\"]\n", example)
	return b.String()
}
