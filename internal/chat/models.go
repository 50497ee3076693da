package chat

import (
	"time"

	"gorm.io/datatypes"
)

const (
	PersonaGirlfriend = "girlfriend"
	PersonaBoyfriend  = "boyfriend"
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Session is one persona conversation. A user holds at most one session
// per persona type.
type Session struct {
	ID                string    `gorm:"primaryKey;type:varchar(26)" json:"session_id"`
	UserID            uint64    `gorm:"not null;uniqueIndex:uniq_chat_user_persona,priority:1" json:"-"`
	PersonaType       string    `gorm:"type:varchar(16);not null;uniqueIndex:uniq_chat_user_persona,priority:2" json:"persona_type"`
	PersonaName       string    `gorm:"type:varchar(64);not null" json:"persona_name"`
	RelationshipStage string    `gorm:"type:varchar(32);not null" json:"relationship_stage"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"-"`
}

func (Session) TableName() string { return "chat_sessions" }

// Memory is the per-session summary record reused across turns so the
// persona keeps continuity without reprocessing the full history.
type Memory struct {
	ID               uint64                      `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID        string                      `gorm:"type:varchar(26);uniqueIndex;not null" json:"session_id"`
	EmotionalState   string                      `gorm:"type:varchar(64)" json:"emotional_state"`
	RecentTopics     datatypes.JSONSlice[string] `json:"recent_topics"`
	UserPreferences  datatypes.JSONMap           `json:"user_preferences"`
	RelationshipData datatypes.JSONMap           `json:"relationship_data"`
	UpdatedAt        time.Time                   `json:"-"`
}

func (Memory) TableName() string { return "chat_memories" }

// Message is append-only; ordering by id is the sole sequencing mechanism.
type Message struct {
	ID        uint64                      `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID string                      `gorm:"type:varchar(26);not null;index" json:"session_id"`
	Role      string                      `gorm:"type:varchar(16);not null" json:"role"`
	Content   string                      `gorm:"type:text;not null" json:"content"`
	Sentiment *string                     `gorm:"type:varchar(64)" json:"sentiment"`
	Topics    datatypes.JSONSlice[string] `json:"topics"`
	CreatedAt time.Time                   `json:"timestamp"`
}

func (Message) TableName() string { return "chat_messages" }
