package service

import (
	"context"
	"testing"

	"libhub/internal/httpapi/models"
	"libhub/internal/httpapi/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// MockCommentRepository mocks the CommentRepository interface
type MockCommentRepository struct {
	mock.Mock
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	args := m.Called(ctx, comment)
	return args.Error(0)
}

func (m *MockCommentRepository) ListByBook(ctx context.Context, bookID int64) ([]models.Comment, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Comment), args.Error(1)
}

func (m *MockCommentRepository) Delete(ctx context.Context, id int64, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func newBookService(bookRepo *MockBookRepository, commentRepo *MockCommentRepository, userRepo *MockUserRepository, notifier *MockNotifier) BookService {
	return NewBookService(bookRepo, commentRepo, userRepo, notifier, nil, testLogger())
}

func TestFindExact_MatchesNormalizedForm(t *testing.T) {
	mockBookRepo := new(MockBookRepository)
	svc := newBookService(mockBookRepo, new(MockCommentRepository), new(MockUserRepository), new(MockNotifier))

	book := &models.Book{ID: 7, Title: "Béton Armé 2"}
	// accents, casing and punctuation in the query all collapse to the same key
	mockBookRepo.On("FindByNormalizedTitle", mock.Anything, "beton arme 2").Return(book, nil)

	got, err := svc.FindExact(context.Background(), "  BETON-ARME (2) ")

	assert.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)
	mockBookRepo.AssertExpectations(t)
}

func TestFindExact_NotFound(t *testing.T) {
	mockBookRepo := new(MockBookRepository)
	svc := newBookService(mockBookRepo, new(MockCommentRepository), new(MockUserRepository), new(MockNotifier))

	mockBookRepo.On("FindByNormalizedTitle", mock.Anything, "inconnu").Return(nil, gorm.ErrRecordNotFound)

	_, err := svc.FindExact(context.Background(), "Inconnu")

	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestSimilar_ExcludesExactMatch(t *testing.T) {
	mockBookRepo := new(MockBookRepository)
	svc := newBookService(mockBookRepo, new(MockCommentRepository), new(MockUserRepository), new(MockNotifier))

	candidates := []models.Book{
		{ID: 1, Title: "Béton Armé 2", NormalizedTitle: "beton arme 2"},
		{ID: 2, Title: "Béton Armé 1", NormalizedTitle: "beton arme 1"},
		{ID: 3, Title: "Béton Précontraint", NormalizedTitle: "beton precontraint"},
	}
	mockBookRepo.On("SearchByTokens", mock.Anything, []string{"beton", "arme", "2"}).Return(candidates, nil)

	out, err := svc.Similar(context.Background(), "Béton Armé 2", 10)

	assert.NoError(t, err)
	// the exact title never appears among its own similars
	assert.Len(t, out, 2)
	for _, s := range out {
		assert.NotEqual(t, int64(1), s.Book.ID)
	}
	// closer overlap ranks first
	assert.Equal(t, int64(2), out[0].Book.ID)
	assert.Greater(t, out[0].Score, out[1].Score)
}

func TestSimilar_EmptyQuery(t *testing.T) {
	mockBookRepo := new(MockBookRepository)
	svc := newBookService(mockBookRepo, new(MockCommentRepository), new(MockUserRepository), new(MockNotifier))

	out, err := svc.Similar(context.Background(), "!!!", 10)

	assert.NoError(t, err)
	assert.Nil(t, out)
	mockBookRepo.AssertNotCalled(t, "SearchByTokens", mock.Anything, mock.Anything)
}

func TestOverlapScore(t *testing.T) {
	query := map[string]bool{"beton": true, "arme": true, "2": true}

	assert.InDelta(t, 0.5, overlapScore(query, []string{"beton", "arme", "1"}), 0.0001)
	assert.InDelta(t, 1.0, overlapScore(query, []string{"beton", "arme", "2"}), 0.0001)
	assert.Equal(t, 0.0, overlapScore(query, []string{"chimie"}))
	assert.Equal(t, 0.0, overlapScore(query, nil))
}

func TestCreate_DuplicateTitle(t *testing.T) {
	mockBookRepo := new(MockBookRepository)
	svc := newBookService(mockBookRepo, new(MockCommentRepository), new(MockUserRepository), new(MockNotifier))

	existing := &models.Book{ID: 1, Title: "Béton Armé 2"}
	mockBookRepo.On("FindByNormalizedTitle", mock.Anything, "beton arme 2").Return(existing, nil)

	err := svc.Create(context.Background(), &models.Book{Title: "BETON ARME 2"})

	assert.ErrorIs(t, err, ErrBookExists)
	mockBookRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreate_BroadcastsToAllMembers(t *testing.T) {
	mockBookRepo := new(MockBookRepository)
	mockUserRepo := new(MockUserRepository)
	mockNotifier := new(MockNotifier)
	svc := newBookService(mockBookRepo, new(MockCommentRepository), mockUserRepo, mockNotifier)

	mockBookRepo.On("FindByNormalizedTitle", mock.Anything, "hydraulique").Return(nil, gorm.ErrRecordNotFound)
	mockBookRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Book")).Return(nil)
	mockUserRepo.On("GetAllIDs", mock.Anything).Return([]string{"user-a", "user-b"}, nil)
	mockNotifier.On("Notify", mock.Anything, "user-a", models.NotifNewBook, mock.Anything, mock.Anything).Return()
	mockNotifier.On("Notify", mock.Anything, "user-b", models.NotifNewBook, mock.Anything, mock.Anything).Return()

	err := svc.Create(context.Background(), &models.Book{Title: "Hydraulique", Stock: 3})

	assert.NoError(t, err)
	mockNotifier.AssertExpectations(t)
}

func TestCreate_BroadcastFailureIsSwallowed(t *testing.T) {
	mockBookRepo := new(MockBookRepository)
	mockUserRepo := new(MockUserRepository)
	mockNotifier := new(MockNotifier)
	svc := newBookService(mockBookRepo, new(MockCommentRepository), mockUserRepo, mockNotifier)

	mockBookRepo.On("FindByNormalizedTitle", mock.Anything, "hydraulique").Return(nil, gorm.ErrRecordNotFound)
	mockBookRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Book")).Return(nil)
	mockUserRepo.On("GetAllIDs", mock.Anything).Return(nil, assert.AnError)

	err := svc.Create(context.Background(), &models.Book{Title: "Hydraulique"})

	assert.NoError(t, err)
	mockNotifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAdjustStock_AppliesDelta(t *testing.T) {
	mockBookRepo := new(MockBookRepository)
	svc := newBookService(mockBookRepo, new(MockCommentRepository), new(MockUserRepository), new(MockNotifier))

	mockBookRepo.On("UpdateStock", mock.Anything, int64(7), -2).Return(nil)

	err := svc.AdjustStock(context.Background(), 7, -2)

	assert.NoError(t, err)
	mockBookRepo.AssertExpectations(t)
}

func TestAdjustStock_RejectsNegativeResult(t *testing.T) {
	mockBookRepo := new(MockBookRepository)
	svc := newBookService(mockBookRepo, new(MockCommentRepository), new(MockUserRepository), new(MockNotifier))

	mockBookRepo.On("UpdateStock", mock.Anything, int64(7), -50).Return(repository.ErrInsufficientStock)

	err := svc.AdjustStock(context.Background(), 7, -50)

	assert.ErrorIs(t, err, ErrStockTooLow)
}

func TestAddComment_UnknownBook(t *testing.T) {
	mockBookRepo := new(MockBookRepository)
	mockCommentRepo := new(MockCommentRepository)
	svc := newBookService(mockBookRepo, mockCommentRepo, new(MockUserRepository), new(MockNotifier))

	mockBookRepo.On("GetByID", mock.Anything, int64(99)).Return(nil, gorm.ErrRecordNotFound)

	err := svc.AddComment(context.Background(), 99, testUserID, "très utile")

	assert.ErrorIs(t, err, ErrBookNotFound)
	mockCommentRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
