package repository

import (
	"context"
	"fmt"

	"libhub/internal/httpapi/models"

	"gorm.io/gorm"
)

// HistoryRepository exposes the raw history operations; the capping and
// dedup rules live in the history service.
type HistoryRepository interface {
	InsertView(ctx context.Context, entry *models.BrowseHistory) error
	TrimViews(ctx context.Context, userID string, keep int) error
	ListViews(ctx context.Context, userID string, limit int) ([]models.BrowseHistory, error)
	InsertSearch(ctx context.Context, entry *models.SearchHistory) error
	DeleteSearchTerm(ctx context.Context, userID, term string) error
	TrimSearches(ctx context.Context, userID string, keep int) error
	ListSearches(ctx context.Context, userID string, limit int) ([]models.SearchHistory, error)
}

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) InsertView(ctx context.Context, entry *models.BrowseHistory) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("insert view: %w", err)
	}
	return nil
}

func (r *historyRepository) TrimViews(ctx context.Context, userID string, keep int) error {
	db := r.db.WithContext(ctx)
	sub := db.Model(&models.BrowseHistory{}).
		Select("id").
		Where("user_id = ?", userID).
		Order("viewed_at desc").
		Limit(keep)
	return db.Where("user_id = ? AND id NOT IN (?)", userID, sub).
		Delete(&models.BrowseHistory{}).Error
}

func (r *historyRepository) ListViews(ctx context.Context, userID string, limit int) ([]models.BrowseHistory, error) {
	var list []models.BrowseHistory
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("viewed_at desc").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list views: %w", err)
	}
	return list, nil
}

func (r *historyRepository) InsertSearch(ctx context.Context, entry *models.SearchHistory) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("insert search: %w", err)
	}
	return nil
}

func (r *historyRepository) DeleteSearchTerm(ctx context.Context, userID, term string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND term = ?", userID, term).
		Delete(&models.SearchHistory{}).Error
}

func (r *historyRepository) TrimSearches(ctx context.Context, userID string, keep int) error {
	db := r.db.WithContext(ctx)
	sub := db.Model(&models.SearchHistory{}).
		Select("id").
		Where("user_id = ?", userID).
		Order("searched_at desc").
		Limit(keep)
	return db.Where("user_id = ? AND id NOT IN (?)", userID, sub).
		Delete(&models.SearchHistory{}).Error
}

func (r *historyRepository) ListSearches(ctx context.Context, userID string, limit int) ([]models.SearchHistory, error) {
	var list []models.SearchHistory
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("searched_at desc").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list searches: %w", err)
	}
	return list, nil
}
