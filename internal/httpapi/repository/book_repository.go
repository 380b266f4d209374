package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"libhub/internal/httpapi/models"

	"gorm.io/gorm"
)

// ErrInsufficientStock is returned by UpdateStock when the delta would take
// the stock count negative. Stock is never blind-written.
var ErrInsufficientStock = errors.New("insufficient stock")

type BookRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Book, error)
	GetAll(ctx context.Context, page, pageSize int) ([]models.Book, int64, error)
	ListByCollection(ctx context.Context, collection string) ([]models.Book, error)
	Create(ctx context.Context, b *models.Book) error
	Update(ctx context.Context, id int64, b *models.Book) error
	Delete(ctx context.Context, id int64) error
	FindByNormalizedTitle(ctx context.Context, normalized string) (*models.Book, error)
	SearchByTokens(ctx context.Context, tokens []string) ([]models.Book, error)
	UpdateStock(ctx context.Context, id int64, delta int) error
}

type bookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) BookRepository {
	return &bookRepository{db: db}
}

func (r *bookRepository) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	var b models.Book
	if err := r.db.WithContext(ctx).Preload("Comments").First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookRepository) GetAll(ctx context.Context, page, pageSize int) ([]models.Book, int64, error) {
	var list []models.Book
	var total int64

	// Count total records
	if err := r.db.WithContext(ctx).Model(&models.Book{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize

	if err := r.db.WithContext(ctx).
		Order("created_at desc").
		Limit(pageSize).
		Offset(offset).
		Find(&list).Error; err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

func (r *bookRepository) ListByCollection(ctx context.Context, collection string) ([]models.Book, error) {
	var list []models.Book
	if err := r.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("title asc").
		Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list collection %q: %w", collection, err)
	}
	return list, nil
}

func (r *bookRepository) Create(ctx context.Context, b *models.Book) error {
	if err := r.db.WithContext(ctx).Create(b).Error; err != nil {
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

func (r *bookRepository) Update(ctx context.Context, id int64, b *models.Book) error {
	// ensure ID set for Save
	b.ID = id
	if err := r.db.WithContext(ctx).Save(b).Error; err != nil {
		return fmt.Errorf("update book: %w", err)
	}
	return nil
}

func (r *bookRepository) Delete(ctx context.Context, id int64) error {
	if err := r.db.WithContext(ctx).Delete(&models.Book{}, id).Error; err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	return nil
}

// FindByNormalizedTitle resolves a book by its exact normalized title. This is
// the only lookup the reservation path uses; callers must normalize first.
func (r *bookRepository) FindByNormalizedTitle(ctx context.Context, normalized string) (*models.Book, error) {
	var b models.Book
	if err := r.db.WithContext(ctx).
		Where("normalized_title = ?", normalized).
		First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// SearchByTokens performs case-insensitive partial match on title and category.
// Any token matching qualifies a row; scoring/ranking happens in the service.
// Example: "beton arme" -> WHERE (title ILIKE '%beton%' OR ...) OR (title ILIKE '%arme%' OR ...)
func (r *bookRepository) SearchByTokens(ctx context.Context, tokens []string) ([]models.Book, error) {
	var list []models.Book
	if len(tokens) == 0 {
		return list, nil
	}

	clauses := make([]string, 0, len(tokens))
	args := make([]interface{}, 0, len(tokens)*2)
	for _, t := range tokens {
		p := "%" + t + "%"
		// COALESCE avoids NULL category breaking ILIKE
		clauses = append(clauses, "(normalized_title ILIKE ? OR COALESCE(category,'') ILIKE ?)")
		args = append(args, p, p)
	}

	where := strings.Join(clauses, " OR ")
	if err := r.db.WithContext(ctx).Where(where, args...).Order("created_at desc").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	return list, nil
}

// UpdateStock applies a stock delta atomically; the WHERE guard keeps the
// count from ever going negative under concurrent decrements.
func (r *bookRepository) UpdateStock(ctx context.Context, id int64, delta int) error {
	result := r.db.WithContext(ctx).
		Model(&models.Book{}).
		Where("id = ? AND stock + ? >= 0", id, delta).
		UpdateColumn("stock", gorm.Expr("stock + ?", delta))
	if result.Error != nil {
		return fmt.Errorf("update stock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}
