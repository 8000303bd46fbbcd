package db

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ceyewan/itemscope/clog"
)

func newBufferLogger(t *testing.T) (clog.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger, err := clog.New(&clog.Config{Level: "debug", Format: "json"}, clog.WithWriter(&buf))
	require.NoError(t, err)
	return logger, &buf
}

func TestGormLoggerTrace(t *testing.T) {
	fc := func() (string, int64) { return "SELECT 1", 1 }
	ctx := context.Background()

	t.Run("record not found is not an error", func(t *testing.T) {
		log, buf := newBufferLogger(t)
		l := newGormLogger(log, &Config{SlowThreshold: time.Hour}, false)
		l.Trace(ctx, time.Now(), fc, gorm.ErrRecordNotFound)
		assert.NotContains(t, buf.String(), "sql error")
	})

	t.Run("error", func(t *testing.T) {
		log, buf := newBufferLogger(t)
		l := newGormLogger(log, &Config{SlowThreshold: time.Hour}, false)
		l.Trace(ctx, time.Now(), fc, errors.New("boom"))
		assert.Contains(t, buf.String(), "sql error")
		assert.Contains(t, buf.String(), "SELECT 1")
	})

	t.Run("slow", func(t *testing.T) {
		log, buf := newBufferLogger(t)
		l := newGormLogger(log, &Config{SlowThreshold: time.Millisecond}, false)
		l.Trace(ctx, time.Now().Add(-time.Second), fc, nil)
		assert.Contains(t, buf.String(), "slow sql")
	})

	t.Run("log sql", func(t *testing.T) {
		log, buf := newBufferLogger(t)
		l := newGormLogger(log, &Config{SlowThreshold: time.Hour, LogSQL: true}, false)
		l.Trace(ctx, time.Now(), fc, nil)
		assert.Contains(t, buf.String(), `"msg":"sql"`)
	})

	t.Run("silent", func(t *testing.T) {
		log, buf := newBufferLogger(t)
		l := newGormLogger(log, &Config{LogSQL: true}, true)
		l.Trace(ctx, time.Now(), fc, errors.New("boom"))
		assert.Empty(t, buf.String())
	})
}
