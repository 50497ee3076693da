package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/reviselabs/revise/internal/ai"
	"github.com/reviselabs/revise/internal/common"
)

var (
	// ErrForbidden covers both "session absent" and "session owned by someone
	// else" so callers cannot probe for other users' sessions.
	ErrForbidden = errors.New("forbidden")

	ErrInvalidPersona = errors.New("invalid persona type")
	ErrEmptyInput     = errors.New("empty input")
)

const (
	topicCap           = 10
	contextRecentLimit = 15
	syntheticGreeting  = "Hi!"
)

type Service struct {
	repo       *Repo
	provider   ai.Provider
	windowSize int
	llmTimeout time.Duration
}

func NewService(repo *Repo, provider ai.Provider, windowSize int, llmTimeout time.Duration) *Service {
	if windowSize < 10 || windowSize > 15 {
		windowSize = 12
	}
	if llmTimeout <= 0 {
		llmTimeout = 60 * time.Second
	}
	return &Service{repo: repo, provider: provider, windowSize: windowSize, llmTimeout: llmTimeout}
}

// StartSession returns the existing session for (userID, personaType) or
// creates one, seeds its memory, and persists a one-shot greeting as the
// first "model" message. Resume is idempotent: no second greeting.
func (s *Service) StartSession(ctx context.Context, userID uint64, userName, personaType, personaName, relationshipStage string) (*Session, error) {
	if !ValidPersonaType(personaType) {
		return nil, ErrInvalidPersona
	}
	if strings.TrimSpace(userName) == "" ||
		strings.TrimSpace(personaName) == "" ||
		strings.TrimSpace(relationshipStage) == "" {
		return nil, ErrEmptyInput
	}

	existing, err := s.repo.GetSessionByUserAndPersona(ctx, userID, personaType)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	sid, err := common.NewULID()
	if err != nil {
		return nil, err
	}
	session := &Session{
		ID:                sid,
		UserID:            userID,
		PersonaType:       personaType,
		PersonaName:       personaName,
		RelationshipStage: relationshipStage,
	}
	if err := s.repo.CreateSessionWithMemory(ctx, session); err != nil {
		// lost a race with a concurrent start for the same persona
		if again, lookupErr := s.repo.GetSessionByUserAndPersona(ctx, userID, personaType); lookupErr == nil {
			return again, nil
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	system := buildSystemPrompt(personaType, personaName, userName, relationshipStage, nil)
	lctx, cancel := context.WithTimeout(ctx, s.llmTimeout)
	defer cancel()
	greeting, err := s.provider.Generate(lctx, system, fmt.Sprintf("Greet %s for the first time.", userName))
	if err != nil {
		return nil, fmt.Errorf("greeting: %w", err)
	}
	if err := s.repo.InsertMessage(ctx, &Message{
		SessionID: session.ID,
		Role:      RoleModel,
		Content:   greeting,
	}); err != nil {
		return nil, fmt.Errorf("persist greeting: %w", err)
	}
	return session, nil
}

// PostMessage runs one conversation turn: classify, persist the inbound
// message, window the history, generate a reply, persist it, update memory.
func (s *Service) PostMessage(ctx context.Context, userID uint64, userName, sessionID, userInput string) (string, error) {
	if strings.TrimSpace(userInput) == "" {
		return "", ErrEmptyInput
	}

	session, err := s.ownedSession(ctx, userID, sessionID)
	if err != nil {
		return "", err
	}

	mem, err := s.repo.GetMemory(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("load memory: %w", err)
		}
		mem = nil
	}

	cctx, cancelClassify := context.WithTimeout(ctx, s.llmTimeout)
	analysis := s.classify(cctx, userInput)
	cancelClassify()

	sentiment := analysis.Sentiment
	userMsg := &Message{
		SessionID: sessionID,
		Role:      RoleUser,
		Content:   userInput,
		Sentiment: &sentiment,
		Topics:    analysis.Topics,
	}
	if err := s.repo.InsertMessage(ctx, userMsg); err != nil {
		return "", fmt.Errorf("persist user message: %w", err)
	}

	recentDesc, err := s.repo.ListRecentMessagesDesc(ctx, sessionID, s.windowSize)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}
	turns := buildTurns(recentDesc)
	if len(turns) == 0 {
		turns = []ai.Turn{{Role: ai.RoleUser, Content: userInput}}
	}

	system := buildSystemPrompt(session.PersonaType, session.PersonaName, userName, session.RelationshipStage, mem)

	gctx, cancelGen := context.WithTimeout(ctx, s.llmTimeout)
	defer cancelGen()
	reply, err := s.provider.Chat(gctx, system, turns)
	if err != nil {
		// inbound message stays; an orphan user turn is tolerated
		return "", fmt.Errorf("generate reply: %w", err)
	}

	if err := s.repo.InsertMessage(ctx, &Message{
		SessionID: sessionID,
		Role:      RoleModel,
		Content:   reply,
	}); err != nil {
		return "", fmt.Errorf("persist reply: %w", err)
	}

	if mem != nil {
		mem.EmotionalState = analysis.Sentiment
		mem.RecentTopics = mergeTopics(analysis.Topics, mem.RecentTopics, topicCap)
		if err := s.repo.UpdateMemory(ctx, mem); err != nil {
			logrus.WithError(err).WithField("session_id", sessionID).Warn("chat: memory update failed")
		}
	}

	return reply, nil
}

// GetContext returns the resume recap: the last messages in chronological
// order plus a deterministic summary sentence built from memory topics.
func (s *Service) GetContext(ctx context.Context, userID uint64, sessionID string) (string, []Message, error) {
	if _, err := s.ownedSession(ctx, userID, sessionID); err != nil {
		return "", nil, err
	}

	recentDesc, err := s.repo.ListRecentMessagesDesc(ctx, sessionID, contextRecentLimit)
	if err != nil {
		return "", nil, fmt.Errorf("load history: %w", err)
	}
	msgs := make([]Message, 0, len(recentDesc))
	for i := len(recentDesc) - 1; i >= 0; i-- {
		msgs = append(msgs, recentDesc[i])
	}

	summary := "Welcome back! Let's continue our conversation."
	if mem, err := s.repo.GetMemory(ctx, sessionID); err == nil && len(mem.RecentTopics) > 0 {
		summary = fmt.Sprintf("Last time we chatted, we talked about %s. It's so good to talk to you again!",
			strings.Join(mem.RecentTopics, ", "))
	}
	return summary, msgs, nil
}

func (s *Service) ownedSession(ctx context.Context, userID uint64, sessionID string) (*Session, error) {
	session, err := s.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrForbidden
		}
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if session.UserID != userID {
		return nil, ErrForbidden
	}
	return session, nil
}

// buildTurns converts newest-first rows into the provider's turn order:
// oldest first, no two consecutive turns with the same role, first turn "user".
func buildTurns(recentDesc []Message) []ai.Turn {
	turns := make([]ai.Turn, 0, len(recentDesc)+1)
	for i := len(recentDesc) - 1; i >= 0; i-- {
		m := recentDesc[i]
		if len(turns) > 0 && turns[len(turns)-1].Role == m.Role {
			continue
		}
		turns = append(turns, ai.Turn{Role: m.Role, Content: m.Content})
	}
	if len(turns) > 0 && turns[0].Role != ai.RoleUser {
		turns = append([]ai.Turn{{Role: ai.RoleUser, Content: syntheticGreeting}}, turns...)
	}
	return turns
}

// mergeTopics keeps the newest topics first, drops duplicates, and caps the
// list so memory never grows with the conversation.
func mergeTopics(newest, existing []string, limit int) []string {
	merged := make([]string, 0, limit)
	seen := make(map[string]struct{}, limit)
	for _, list := range [][]string{newest, existing} {
		for _, t := range list {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			key := strings.ToLower(t)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, t)
			if len(merged) == limit {
				return merged
			}
		}
	}
	return merged
}
