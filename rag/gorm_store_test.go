package rag

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/AAreesha/Cross-Reference-Database-System/types"
)

// =============================================================================
// 🧪 GormStore 测试（sqlite 文件库）
// =============================================================================

func setupSQLiteStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "records.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	store := NewGormStore(db, GormStoreConfig{BatchSize: 2}, nil, zap.NewNop())
	require.NoError(t, store.AutoMigrate(context.Background()))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return store
}

func TestGormStore_InsertAndCount(t *testing.T) {
	ctx := context.Background()
	s := setupSQLiteStore(t)

	n, err := s.InsertMany(ctx, []types.Record{
		rec(types.PartitionDB1, "r1", "first row", 1, 0),
		rec(types.PartitionDB1, "r2", "second row", 0, 1),
		rec(types.PartitionDB1, "r3", "third row", 1, 1),
		rec(types.PartitionDB2, "r1", "other partition", 1, 0),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	c1, err := s.Count(ctx, types.PartitionDB1)
	require.NoError(t, err)
	assert.Equal(t, 3, c1)

	c4, err := s.Count(ctx, types.PartitionDB4)
	require.NoError(t, err)
	assert.Equal(t, 0, c4)
}

func TestGormStore_InsertRollsBackOnConflict(t *testing.T) {
	ctx := context.Background()
	s := setupSQLiteStore(t)

	_, err := s.InsertMany(ctx, []types.Record{rec(types.PartitionDB1, "r1", "first", 1, 0)})
	require.NoError(t, err)

	// 三条记录跨越两个 INSERT 批次，第二批冲突后第一批也必须回滚
	_, err = s.InsertMany(ctx, []types.Record{
		rec(types.PartitionDB1, "r2", "second", 1, 0),
		rec(types.PartitionDB1, "r3", "third", 1, 0),
		rec(types.PartitionDB1, "r1", "conflict", 1, 0),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrStorageWriteFailed)

	n, err := s.Count(ctx, types.PartitionDB1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGormStore_NearestByVector(t *testing.T) {
	ctx := context.Background()
	s := setupSQLiteStore(t)

	_, err := s.InsertMany(ctx, []types.Record{
		rec(types.PartitionDB1, "far", "far", 0, 1),
		rec(types.PartitionDB1, "tie-a", "tie a", 1, 0),
		rec(types.PartitionDB1, "tie-b", "tie b", 3, 0),
	})
	require.NoError(t, err)

	hits, err := s.NearestByVector(ctx, types.PartitionDB1, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "tie-a", hits[0].Record.ID)
	assert.Equal(t, "tie-b", hits[1].Record.ID)
	assert.Equal(t, []float32{1, 0}, hits[0].Record.Embedding)
	assert.Equal(t, types.PartitionDB1, hits[0].Record.Partition)
}

func TestGormStore_SearchLexical(t *testing.T) {
	ctx := context.Background()
	s := setupSQLiteStore(t)

	_, err := s.InsertMany(ctx, []types.Record{
		rec(types.PartitionDB3, "a", "Valve torque reading", 1),
		rec(types.PartitionDB3, "b", "pump pressure", 1),
		rec(types.PartitionDB3, "c", "interval valve schedule", 1),
		rec(types.PartitionDB3, "d", "Größe valve", 1),
	})
	require.NoError(t, err)

	hits, err := s.SearchLexical(ctx, types.PartitionDB3, []string{"valve"}, 10)
	require.NoError(t, err)
	var ids []string
	for _, h := range hits {
		ids = append(ids, h.Record.ID)
	}
	assert.ElementsMatch(t, []string{"a", "c", "d"}, ids)

	// "interval" 包含子串 "val" 但不以其开头，LIKE 预过滤后仍需前缀判定
	hits, err = s.SearchLexical(ctx, types.PartitionDB3, []string{"val", "sched"}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c", hits[0].Record.ID)

	hits, err = s.SearchLexical(ctx, types.PartitionDB3, []string{"größe"}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "d", hits[0].Record.ID)
}

// =============================================================================
// 🧪 GormStore 失败路径（sqlmock + postgres 方言）
// =============================================================================

func setupMockStore(t *testing.T) (sqlmock.Sqlmock, *GormStore) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return mock, NewGormStore(db, GormStoreConfig{}, nil, zap.NewNop())
}

func TestGormStore_InsertFailureRollsBack(t *testing.T) {
	mock, s := setupMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "records"`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	n, err := s.InsertMany(context.Background(), []types.Record{
		rec(types.PartitionDB1, "r1", "text", 1, 0),
	})
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, types.ErrStorageWriteFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_CommitFailure(t *testing.T) {
	mock, s := setupMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "records"`).
		WillReturnRows(sqlmock.NewRows([]string{"seq"}).AddRow(1))
	mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

	n, err := s.InsertMany(context.Background(), []types.Record{
		rec(types.PartitionDB1, "r1", "text", 1, 0),
	})
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, types.ErrStorageWriteFailed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_ReadFailure(t *testing.T) {
	mock, s := setupMockStore(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "records"`).WillReturnError(errors.New("timeout"))
	_, err := s.Count(context.Background(), types.PartitionDB1)
	assert.ErrorIs(t, err, types.ErrStorageReadFailed)

	mock.ExpectQuery(`SELECT \* FROM "records"`).WillReturnError(errors.New("timeout"))
	_, err = s.NearestByVector(context.Background(), types.PartitionDB1, []float32{1}, 5)
	assert.ErrorIs(t, err, types.ErrStorageReadFailed)

	assert.NoError(t, mock.ExpectationsWereMet())
}
