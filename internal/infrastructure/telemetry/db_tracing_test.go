package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedFruit struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100"`
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedFruit{}))
	return db
}

func recordingSpan(t *testing.T) (context.Context, func() sdktrace.ReadOnlySpan) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	ctx, span := tp.Tracer("test").Start(context.Background(), "query")
	return ctx, func() sdktrace.ReadOnlySpan {
		span.End()
		ended := recorder.Ended()
		require.Len(t, ended, 1)
		return ended[0]
	}
}

func hasAttr(span sdktrace.ReadOnlySpan, kv attribute.KeyValue) bool {
	for _, a := range span.Attributes() {
		if a == kv {
			return true
		}
	}
	return false
}

func TestNewDBTracingPlugin_Defaults(t *testing.T) {
	p := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, nil)

	assert.Equal(t, 200*time.Millisecond, p.config.SlowQueryThresh)
	assert.Equal(t, "postgresql", p.config.DBName)
	assert.NotNil(t, p.logger)
}

func TestDBTracingPlugin_Register_Disabled(t *testing.T) {
	db := setupTestDB(t)
	p := NewDBTracingPlugin(DBTracingConfig{}, zap.NewNop())

	require.NoError(t, p.Register(db))
	assert.Nil(t, db.Callback().Query().Get("otel_timing:after_query"))
}

func TestDBTracingPlugin_Register_Enabled(t *testing.T) {
	db := setupTestDB(t)
	p := NewDBTracingPlugin(DBTracingConfig{Enabled: true, DBName: "sqlite"}, zap.NewNop())

	require.NoError(t, p.Register(db))
	assert.NotNil(t, db.Callback().Query().Get("otel_timing:after_query"))

	require.NoError(t, db.Create(&tracedFruit{Name: "plum"}).Error)
	var got tracedFruit
	require.NoError(t, db.First(&got).Error)
	assert.Equal(t, "plum", got.Name)
}

func TestAfterQuery_SlowQuery(t *testing.T) {
	p := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: 10 * time.Millisecond}, nil)
	ctx, finish := recordingSpan(t)

	db := &gorm.DB{Statement: &gorm.Statement{
		Context: context.WithValue(ctx, queryStartKey{}, time.Now().Add(-time.Second)),
		Table:   "orders",
		DB:      &gorm.DB{RowsAffected: 2},
	}}
	p.afterQuery(db)

	span := finish()
	assert.True(t, hasAttr(span, attribute.Bool("db.slow_query", true)))
	assert.True(t, hasAttr(span, attribute.String("db.sql.table", "orders")))
	assert.True(t, hasAttr(span, attribute.Int64("db.rows_affected", 2)))
	require.Len(t, span.Events(), 1)
	assert.Equal(t, "slow_query_warning", span.Events()[0].Name)
}

func TestAfterQuery_FastQueryNotFlagged(t *testing.T) {
	p := NewDBTracingPlugin(DBTracingConfig{Enabled: true, SlowQueryThresh: time.Hour}, nil)
	ctx, finish := recordingSpan(t)

	db := &gorm.DB{Statement: &gorm.Statement{
		Context: context.WithValue(ctx, queryStartKey{}, time.Now()),
	}}
	p.afterQuery(db)

	span := finish()
	assert.False(t, hasAttr(span, attribute.Bool("db.slow_query", true)))
	assert.Empty(t, span.Events())
}

func TestAfterQuery_ErrorStatus(t *testing.T) {
	p := NewDBTracingPlugin(DBTracingConfig{Enabled: true}, nil)

	t.Run("real error marks span", func(t *testing.T) {
		ctx, finish := recordingSpan(t)
		db := &gorm.DB{Error: errors.New("deadlock detected"), Statement: &gorm.Statement{Context: ctx}}
		p.afterQuery(db)

		span := finish()
		assert.Equal(t, codes.Error, span.Status().Code)
		assert.Equal(t, "deadlock detected", span.Status().Description)
	})

	t.Run("record not found is not an error", func(t *testing.T) {
		ctx, finish := recordingSpan(t)
		db := &gorm.DB{Error: gorm.ErrRecordNotFound, Statement: &gorm.Statement{Context: ctx}}
		p.afterQuery(db)

		assert.NotEqual(t, codes.Error, finish().Status().Code)
	})
}
