package postgresql_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	mock_database "github.com/kambaexpress/backoffice/internal/db/mocks"
	"github.com/kambaexpress/backoffice/internal/repository"
	"github.com/kambaexpress/backoffice/internal/repository/postgresql"
)

func TestOutboxTaskRepo_CreateTx(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns id and created status", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := postgresql.NewOutboxTaskRepo()

		task := &repository.OutboxTask{
			Payload:    json.RawMessage(`{"table":"orders"}`),
			Topic:      "order_changes",
			MessageKey: "order-123",
		}
		mockTx.EXPECT().Exec(gomock.Any(), gomock.Any(),
			gomock.Any(), repository.TaskStatusCreated, task.Payload, "order_changes", "order-123",
			gomock.Any(), gomock.Any(),
		).Return(pgconn.CommandTag("INSERT 0 1"), nil)

		require.NoError(t, repo.CreateTx(ctx, mockTx, task))
		assert.NotEqual(t, uuid.Nil, task.ID)
	})

	t.Run("database error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := postgresql.NewOutboxTaskRepo()

		dbErr := errors.New("database error")
		mockTx.EXPECT().Exec(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
			gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, dbErr)

		err := repo.CreateTx(ctx, mockTx, &repository.OutboxTask{})
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestOutboxTaskRepo_GetProcessableTasksTx(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	mockTx := mock_database.NewMockTx(ctrl)
	repo := postgresql.NewOutboxTaskRepo()

	id := uuid.New()
	staleID := uuid.New()
	staleBefore := time.Date(2025, 3, 14, 9, 59, 0, 0, time.UTC)
	mockTx.EXPECT().Select(gomock.Any(), gomock.Any(), gomock.Any(),
		repository.TaskStatusCreated,
		repository.TaskStatusFailed, 5,
		repository.TaskStatusProcessing, staleBefore,
		50,
	).DoAndReturn(func(_ context.Context, dest interface{}, query string, _ ...interface{}) error {
		assert.Contains(t, query, "FOR UPDATE SKIP LOCKED")
		assert.Contains(t, query, "updated_at < $5")
		*dest.(*[]*repository.OutboxTask) = []*repository.OutboxTask{
			{ID: id, Status: repository.TaskStatusCreated},
			{ID: staleID, Status: repository.TaskStatusProcessing},
		}
		return nil
	})

	tasks, err := repo.GetProcessableTasksTx(ctx, mockTx, 50, 5, staleBefore)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, id, tasks[0].ID)
	assert.Equal(t, staleID, tasks[1].ID)
}

func TestOutboxTaskRepo_UpdateTaskStatus(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	lastErr := "broker unavailable"

	t.Run("in transaction", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockTx := mock_database.NewMockTx(ctrl)
		repo := postgresql.NewOutboxTaskRepo()

		mockTx.EXPECT().Exec(gomock.Any(), gomock.Any(),
			id, repository.TaskStatusProcessing, 0, (*string)(nil), gomock.Nil(),
		).Return(pgconn.CommandTag("UPDATE 1"), nil)

		assert.NoError(t, repo.UpdateTaskStatusTx(ctx, mockTx, id, repository.TaskStatusProcessing, 0, nil, nil))
	})

	t.Run("missing task", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockDB := mock_database.NewMockDB(ctrl)
		repo := postgresql.NewOutboxTaskRepo()

		mockDB.EXPECT().Exec(gomock.Any(), gomock.Any(),
			id, repository.TaskStatusFailed, 2, &lastErr, gomock.Nil(),
		).Return(pgconn.CommandTag("UPDATE 0"), nil)

		err := repo.UpdateTaskStatus(ctx, mockDB, id, repository.TaskStatusFailed, 2, &lastErr, nil)
		assert.ErrorIs(t, err, repository.ErrObjectNotFound)
	})
}
