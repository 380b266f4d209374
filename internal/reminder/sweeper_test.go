package reminder

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"libhub/internal/httpapi/models"
	"libhub/internal/httpapi/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockReservationRepo struct {
	mock.Mock
}

func (m *mockReservationRepo) GetSlots(ctx context.Context, userID string) ([]models.ReservationSlot, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReservationSlot), args.Error(1)
}

func (m *mockReservationRepo) Reserve(ctx context.Context, userID, normalizedTitle string) (*models.ReservationSlot, error) {
	args := m.Called(ctx, userID, normalizedTitle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReservationSlot), args.Error(1)
}

func (m *mockReservationRepo) Cancel(ctx context.Context, userID string, slotIndex int) (*repository.CancelResult, error) {
	args := m.Called(ctx, userID, slotIndex)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.CancelResult), args.Error(1)
}

func (m *mockReservationRepo) MarkBorrowed(ctx context.Context, userID string, slotIndex int, dueDate time.Time) (*models.ReservationSlot, error) {
	args := m.Called(ctx, userID, slotIndex, dueDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ReservationSlot), args.Error(1)
}

func (m *mockReservationRepo) MarkReturned(ctx context.Context, userID string, slotIndex int) (*repository.CancelResult, error) {
	args := m.Called(ctx, userID, slotIndex)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.CancelResult), args.Error(1)
}

func (m *mockReservationRepo) DueForReminder(ctx context.Context, now time.Time, limit int) ([]models.ReservationSlot, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReservationSlot), args.Error(1)
}

func (m *mockReservationRepo) MarkReminded(ctx context.Context, slotID int64, at time.Time) error {
	args := m.Called(ctx, slotID, at)
	return args.Error(0)
}

type mockTokenRepo struct {
	mock.Mock
}

func (m *mockTokenRepo) Create(token *models.RefreshToken) error {
	args := m.Called(token)
	return args.Error(0)
}

func (m *mockTokenRepo) FindByToken(tokenString string) (*models.RefreshToken, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RefreshToken), args.Error(1)
}

func (m *mockTokenRepo) Revoke(tokenID string) error {
	args := m.Called(tokenID)
	return args.Error(0)
}

func (m *mockTokenRepo) Delete(tokenID string) error {
	args := m.Called(tokenID)
	return args.Error(0)
}

func (m *mockTokenRepo) DeleteExpired() error {
	args := m.Called()
	return args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, userID, typ, title, message string) {
	m.Called(ctx, userID, typ, title, message)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweep_RemindsOverdueLoansOnce(t *testing.T) {
	repo := new(mockReservationRepo)
	tokens := new(mockTokenRepo)
	notifier := new(mockNotifier)
	sweeper := NewSweeper(repo, tokens, notifier, time.Hour, discardLogger())

	tokens.On("DeleteExpired").Return(nil)

	title := "Béton Armé 2"
	overdue := []models.ReservationSlot{
		{ID: 1, UserID: "user-a", Status: models.SlotBorrowed, BookTitle: &title},
		{ID: 2, UserID: "user-b", Status: models.SlotBorrowed},
	}
	repo.On("DueForReminder", mock.Anything, mock.AnythingOfType("time.Time"), sweepBatchSize).Return(overdue, nil)
	notifier.On("Notify", mock.Anything, "user-a", models.NotifReminder, mock.Anything, mock.Anything).Return()
	notifier.On("Notify", mock.Anything, "user-b", models.NotifReminder, mock.Anything, mock.Anything).Return()
	repo.On("MarkReminded", mock.Anything, int64(1), mock.AnythingOfType("time.Time")).Return(nil)
	repo.On("MarkReminded", mock.Anything, int64(2), mock.AnythingOfType("time.Time")).Return(nil)

	sweeper.sweep(context.Background())

	repo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestSweep_NothingDue(t *testing.T) {
	repo := new(mockReservationRepo)
	tokens := new(mockTokenRepo)
	notifier := new(mockNotifier)
	sweeper := NewSweeper(repo, tokens, notifier, time.Hour, discardLogger())

	tokens.On("DeleteExpired").Return(nil)
	repo.On("DueForReminder", mock.Anything, mock.AnythingOfType("time.Time"), sweepBatchSize).
		Return([]models.ReservationSlot{}, nil)

	sweeper.sweep(context.Background())

	tokens.AssertExpectations(t)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSweep_TokenPurgeFailureStillReminds(t *testing.T) {
	repo := new(mockReservationRepo)
	tokens := new(mockTokenRepo)
	notifier := new(mockNotifier)
	sweeper := NewSweeper(repo, tokens, notifier, time.Hour, discardLogger())

	title := "Béton Armé 2"
	tokens.On("DeleteExpired").Return(assert.AnError)
	repo.On("DueForReminder", mock.Anything, mock.AnythingOfType("time.Time"), sweepBatchSize).
		Return([]models.ReservationSlot{{ID: 9, UserID: "user-a", Status: models.SlotBorrowed, BookTitle: &title}}, nil)
	notifier.On("Notify", mock.Anything, "user-a", models.NotifReminder, mock.Anything, mock.Anything).Return()
	repo.On("MarkReminded", mock.Anything, int64(9), mock.AnythingOfType("time.Time")).Return(nil)

	sweeper.sweep(context.Background())

	repo.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestSweep_ListFailureSkipsNotifications(t *testing.T) {
	repo := new(mockReservationRepo)
	tokens := new(mockTokenRepo)
	notifier := new(mockNotifier)
	sweeper := NewSweeper(repo, tokens, notifier, time.Hour, discardLogger())

	tokens.On("DeleteExpired").Return(nil)
	repo.On("DueForReminder", mock.Anything, mock.AnythingOfType("time.Time"), sweepBatchSize).
		Return(nil, assert.AnError)

	sweeper.sweep(context.Background())

	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
