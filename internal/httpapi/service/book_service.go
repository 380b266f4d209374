package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"libhub/internal/httpapi/models"
	"libhub/internal/httpapi/repository"

	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

var (
	ErrBookExists  = errors.New("book already in catalog")
	ErrStockTooLow = errors.New("stock adjustment would go below zero")
)

// SimilarBook is a fuzzy match with its token-overlap score. This codepath is
// for recommendations only; reservations always go through FindExact.
type SimilarBook struct {
	Book  models.Book `json:"book"`
	Score float64     `json:"score"`
}

type BookService interface {
	Get(ctx context.Context, id int64) (*models.Book, error)
	List(ctx context.Context, page, pageSize int) ([]models.Book, int64, error)
	ListCollection(ctx context.Context, collection string) ([]models.Book, error)
	Create(ctx context.Context, b *models.Book) error
	AdjustStock(ctx context.Context, id int64, delta int) error
	FindExact(ctx context.Context, title string) (*models.Book, error)
	Similar(ctx context.Context, title string, limit int) ([]SimilarBook, error)
	AddComment(ctx context.Context, bookID int64, userID, content string) error
	Comments(ctx context.Context, bookID int64) ([]models.Comment, error)
}

type bookService struct {
	repo        repository.BookRepository
	commentRepo repository.CommentRepository
	userRepo    repository.UserRepository
	notifier    Notifier
	cache       *repository.BookCache
	logger      *slog.Logger
	broadcast   *rate.Limiter
}

func NewBookService(
	repo repository.BookRepository,
	commentRepo repository.CommentRepository,
	userRepo repository.UserRepository,
	notifier Notifier,
	cache *repository.BookCache,
	logger *slog.Logger,
) BookService {
	return &bookService{
		repo:        repo,
		commentRepo: commentRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		cache:       cache,
		logger:      logger,
		// keeps a catalog import from flooding the notifications table
		broadcast:   rate.NewLimiter(rate.Limit(20), 50),
	}
}

// Get returns a book, read-through cached.
func (s *bookService) Get(ctx context.Context, id int64) (*models.Book, error) {
	if cached, err := s.cache.Get(ctx, id); err == nil && cached != nil {
		return cached, nil
	}
	book, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	if cerr := s.cache.Set(ctx, book); cerr != nil {
		s.logger.Warn("cache set failed", "book_id", id, "error", cerr)
	}
	return book, nil
}

func (s *bookService) List(ctx context.Context, page, pageSize int) ([]models.Book, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.repo.GetAll(ctx, page, pageSize)
}

func (s *bookService) ListCollection(ctx context.Context, collection string) ([]models.Book, error) {
	return s.repo.ListByCollection(ctx, collection)
}

// Create adds a catalog item (staff-only at the handler) and broadcasts a
// new-book notification to every member, best-effort.
func (s *bookService) Create(ctx context.Context, b *models.Book) error {
	if existing, err := s.repo.FindByNormalizedTitle(ctx, models.NormalizeTitle(b.Title)); err == nil && existing != nil {
		return ErrBookExists
	}
	if err := s.repo.Create(ctx, b); err != nil {
		return err
	}

	ids, err := s.userRepo.GetAllIDs(ctx)
	if err != nil {
		s.logger.Warn("new-book broadcast skipped", "title", b.Title, "error", err)
		return nil
	}
	for _, id := range ids {
		if err := s.broadcast.Wait(ctx); err != nil {
			return nil
		}
		s.notifier.Notify(ctx, id, models.NotifNewBook,
			"Nouveau livre",
			fmt.Sprintf("« %s » vient d'être ajouté au catalogue.", b.Title))
	}
	return nil
}

// AdjustStock applies a signed correction to a book's copy count, for staff
// handling lost or re-shelved copies outside the reservation flow.
func (s *bookService) AdjustStock(ctx context.Context, id int64, delta int) error {
	if err := s.repo.UpdateStock(ctx, id, delta); err != nil {
		if errors.Is(err, repository.ErrInsufficientStock) {
			return ErrStockTooLow
		}
		return fmt.Errorf("adjust stock: %w", err)
	}
	if cerr := s.cache.Invalidate(ctx, id); cerr != nil {
		s.logger.Warn("cache invalidation failed", "book_id", id, "error", cerr)
	}
	return nil
}

// FindExact resolves a book by exact normalized title. The reservation path
// uses this and only this; no partial-match fallback.
func (s *bookService) FindExact(ctx context.Context, title string) (*models.Book, error) {
	normalized := models.NormalizeTitle(title)
	if normalized == "" {
		return nil, ErrBookNotFound
	}
	book, err := s.repo.FindByNormalizedTitle(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("find book: %w", err)
	}
	return book, nil
}

// Similar ranks catalog items by token overlap with the given title.
// Independent from FindExact by design: conflating the two would risk a
// reservation silently matching the wrong book.
func (s *bookService) Similar(ctx context.Context, title string, limit int) ([]SimilarBook, error) {
	tokens := models.TitleTokens(title)
	if len(tokens) == 0 {
		return nil, nil
	}
	if limit < 1 || limit > 50 {
		limit = 10
	}

	candidates, err := s.repo.SearchByTokens(ctx, tokens)
	if err != nil {
		return nil, err
	}

	query := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		query[t] = true
	}
	normalized := models.NormalizeTitle(title)

	var out []SimilarBook
	for _, c := range candidates {
		if c.NormalizedTitle == normalized {
			// exact hit is not a "similar" result
			continue
		}
		out = append(out, SimilarBook{Book: c, Score: overlapScore(query, models.TitleTokens(c.Title))})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// overlapScore is |query ∩ candidate| / |query ∪ candidate| over title tokens.
func overlapScore(query map[string]bool, candidate []string) float64 {
	if len(query) == 0 || len(candidate) == 0 {
		return 0
	}
	seen := make(map[string]bool, len(candidate))
	shared := 0
	for _, t := range candidate {
		if seen[t] {
			continue
		}
		seen[t] = true
		if query[t] {
			shared++
		}
	}
	union := len(query) + len(seen) - shared
	return float64(shared) / float64(union)
}

func (s *bookService) AddComment(ctx context.Context, bookID int64, userID, content string) error {
	if _, err := s.repo.GetByID(ctx, bookID); err != nil {
		return ErrBookNotFound
	}
	comment := &models.Comment{BookID: bookID, UserID: userID, Content: content}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return err
	}
	if cerr := s.cache.Invalidate(ctx, bookID); cerr != nil {
		s.logger.Warn("cache invalidation failed", "book_id", bookID, "error", cerr)
	}
	return nil
}

func (s *bookService) Comments(ctx context.Context, bookID int64) ([]models.Comment, error) {
	return s.commentRepo.ListByBook(ctx, bookID)
}
