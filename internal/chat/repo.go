package chat

import (
	"context"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// CreateSessionWithMemory creates the session row and its empty memory row
// in one transaction; a session without a memory record is unusable.
func (r *Repo) CreateSessionWithMemory(ctx context.Context, s *Session) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(s).Error; err != nil {
			return err
		}
		return tx.Create(&Memory{SessionID: s.ID}).Error
	})
}

func (r *Repo) GetSessionByUserAndPersona(ctx context.Context, userID uint64, personaType string) (*Session, error) {
	var s Session
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND persona_type = ?", userID, personaType).
		First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repo) GetSessionByID(ctx context.Context, sessionID string) (*Session, error) {
	var s Session
	if err := r.db.WithContext(ctx).
		Where("id = ?", sessionID).
		First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repo) GetMemory(ctx context.Context, sessionID string) (*Memory, error) {
	var m Memory
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repo) UpdateMemory(ctx context.Context, m *Memory) error {
	return r.db.WithContext(ctx).Model(&Memory{}).
		Where("session_id = ?", m.SessionID).
		Updates(map[string]any{
			"emotional_state": m.EmotionalState,
			"recent_topics":   m.RecentTopics,
		}).Error
}

func (r *Repo) InsertMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// ListRecentMessagesDesc returns the most recent messages, newest first.
func (r *Repo) ListRecentMessagesDesc(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 12
	}
	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id DESC").
		Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}
