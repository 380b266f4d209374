package service

import (
	"context"
	"strings"

	"libhub/internal/httpapi/models"
	"libhub/internal/httpapi/repository"
)

type HistoryService interface {
	RecordView(ctx context.Context, userID string, book *models.Book) error
	RecordSearch(ctx context.Context, userID, term string) error
	ListViews(ctx context.Context, userID string) ([]models.BrowseHistory, error)
	ListSearches(ctx context.Context, userID string) ([]models.SearchHistory, error)
}

type historyService struct {
	repo repository.HistoryRepository
}

func NewHistoryService(repo repository.HistoryRepository) HistoryService {
	return &historyService{repo: repo}
}

// RecordView appends a browse entry and trims the list to the most recent 20.
func (s *historyService) RecordView(ctx context.Context, userID string, book *models.Book) error {
	entry := &models.BrowseHistory{
		UserID:   userID,
		BookID:   book.ID,
		Title:    book.Title,
		Category: book.Category,
	}
	if err := s.repo.InsertView(ctx, entry); err != nil {
		return err
	}
	return s.repo.TrimViews(ctx, userID, models.MaxBrowseHistory)
}

// RecordSearch keeps the 8 most recent distinct terms; repeating a term moves
// it back to the front instead of duplicating it.
func (s *historyService) RecordSearch(ctx context.Context, userID, term string) error {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	if err := s.repo.DeleteSearchTerm(ctx, userID, term); err != nil {
		return err
	}
	if err := s.repo.InsertSearch(ctx, &models.SearchHistory{UserID: userID, Term: term}); err != nil {
		return err
	}
	return s.repo.TrimSearches(ctx, userID, models.MaxSearchHistory)
}

func (s *historyService) ListViews(ctx context.Context, userID string) ([]models.BrowseHistory, error) {
	return s.repo.ListViews(ctx, userID, models.MaxBrowseHistory)
}

func (s *historyService) ListSearches(ctx context.Context, userID string) ([]models.SearchHistory, error) {
	return s.repo.ListSearches(ctx, userID, models.MaxSearchHistory)
}
