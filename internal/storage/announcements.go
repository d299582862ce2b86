package storage

import (
	"context"
	"fmt"

	"github.com/C4T-BuT-S4D/skillmatrix/internal/models"
)

// ListPendingAnnouncements returns users waiting for congratulation whose
// current level has not been announced yet.
func (s *Storage) ListPendingAnnouncements(ctx context.Context, limit int) ([]*models.User, error) {
	var result []*models.User
	if err := s.db.
		WithContext(ctx).
		Where("users.need_congratulate = ? AND users.blocked = ?", true, false).
		Where(`NOT EXISTS (SELECT 1 FROM announcements
			WHERE announcements.user_id = users.id AND announcements.level = users.level)`).
		Order("users.updated_at ASC").
		Limit(limit).
		Find(&result).
		Error; err != nil {
		return nil, fmt.Errorf("getting pending announcements: %w", err)
	}
	return result, nil
}

func (s *Storage) AddAnnouncement(ctx context.Context, a *models.Announcement) error {
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("creating announcement: %w", err)
	}
	return nil
}
