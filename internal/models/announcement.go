package models

import (
	"fmt"
	"time"
)

// Announcement is a chat message congratulating a user on reaching a level.
type Announcement struct {
	ChatID    int64  `gorm:"primaryKey"`
	MessageID string `gorm:"primaryKey"`

	UserID string `gorm:"type:uuid;uniqueIndex:idx_announcement_user_level"`
	Level  Level  `gorm:"uniqueIndex:idx_announcement_user_level"`

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

func (a *Announcement) String() string {
	return fmt.Sprintf(
		"Announcement(%s, %d, %s, %q)",
		a.MessageID,
		a.ChatID,
		a.UserID,
		a.Level,
	)
}
