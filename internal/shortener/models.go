package shortener

import "time"

type Link struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    uint64    `gorm:"index;not null" json:"-"`
	LongURL   string    `gorm:"type:varchar(2048);not null" json:"longurl"`
	ShortCode string    `gorm:"type:varchar(16);uniqueIndex;not null" json:"shorturl"`
	Clicks    uint64    `gorm:"not null;default:0" json:"clicks"`
	CreatedAt time.Time `json:"created_at"`
}

func (Link) TableName() string { return "short_links" }
