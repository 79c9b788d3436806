// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Level   string `json:"level"`
	Msg     string `json:"msg"`
	Caller  string `json:"caller"`
	Grain   string `json:"grain"`
	Count   int    `json:"count"`
	Reason  string `json:"reason"`
	Trailer string `json:"_"`
}

func lastEntry(t *testing.T, buf *bytes.Buffer) entry {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	var e entry
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &e))
	return e
}

func TestZapLogger(t *testing.T) {
	t.Run("info level filters debug", func(t *testing.T) {
		buf := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buf)
		logger.Debug("hidden")
		assert.Empty(t, buf.String())
		assert.False(t, logger.Enabled(DebugLevel))
		assert.True(t, logger.Enabled(ErrorLevel))
		assert.Equal(t, InfoLevel, logger.LogLevel())

		logger.Infof("received %d messages", 3)
		e := lastEntry(t, buf)
		assert.Equal(t, "info", e.Level)
		assert.Equal(t, "received 3 messages", e.Msg)
		assert.NotEmpty(t, e.Caller)
	})
	t.Run("debug level", func(t *testing.T) {
		buf := new(bytes.Buffer)
		logger := NewZap(DebugLevel, buf)
		logger.Debugf("pump %s", "ran")
		e := lastEntry(t, buf)
		assert.Equal(t, "debug", e.Level)
		assert.Equal(t, "pump ran", e.Msg)
		assert.Equal(t, DebugLevel, logger.LogLevel())
	})
	t.Run("warn and error", func(t *testing.T) {
		buf := new(bytes.Buffer)
		logger := NewZap(WarningLevel, buf)
		logger.Info("hidden")
		assert.Empty(t, buf.String())
		logger.Warn("careful")
		assert.Equal(t, "warn", lastEntry(t, buf).Level)
		logger.Errorf("failed: %v", errors.New("boom"))
		e := lastEntry(t, buf)
		assert.Equal(t, "error", e.Level)
		assert.Equal(t, "failed: boom", e.Msg)
	})
	t.Run("with fields", func(t *testing.T) {
		buf := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buf).With("grain", "counter/1", "count", 2, "reason", errors.New("stuck"), 42, "skipped", "dangling")
		logger.Info("hello")
		e := lastEntry(t, buf)
		assert.Equal(t, "counter/1", e.Grain)
		assert.Equal(t, 2, e.Count)
		assert.Equal(t, "stuck", e.Reason)
		assert.Equal(t, "dangling", e.Trailer)
	})
	t.Run("with no fields returns same logger", func(t *testing.T) {
		logger := NewZap(InfoLevel, io.Discard)
		assert.Same(t, logger, logger.With())
	})
	t.Run("panic", func(t *testing.T) {
		buf := new(bytes.Buffer)
		logger := NewZap(InfoLevel, buf)
		assert.Panics(t, func() { logger.Panicf("bad %s", "state") })
		assert.Equal(t, "panic", lastEntry(t, buf).Level)
	})
	t.Run("outputs and flush", func(t *testing.T) {
		file, err := os.Create(filepath.Join(t.TempDir(), "out.log"))
		require.NoError(t, err)
		defer file.Close()

		logger := NewZap(InfoLevel, file, os.Stdout)
		assert.Len(t, logger.LogOutput(), 2)
		logger.Info("to file")
		require.NoError(t, logger.Flush())

		content, err := os.ReadFile(file.Name())
		require.NoError(t, err)
		assert.Contains(t, string(content), "to file")
	})
}

func TestDiscardLogger(t *testing.T) {
	logger := DiscardLogger
	assert.NotPanics(t, func() {
		logger.Debug("x")
		logger.Infof("%d", 1)
		logger.Warn("x")
		logger.Errorf("%s", "x")
	})
	assert.False(t, logger.Enabled(InfoLevel))
	assert.True(t, logger.Enabled(PanicLevel))
	assert.Equal(t, DiscardLogger, logger.With("k", "v"))
	assert.Equal(t, []io.Writer{io.Discard}, logger.LogOutput())
	assert.NoError(t, logger.Flush())
	assert.Panics(t, func() { logger.Panic("x") })
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", DebugLevel.String())
	assert.Equal(t, "WARNING", WarningLevel.String())
	assert.Equal(t, "INVALID", InvalidLevel.String())
	assert.Equal(t, "INVALID", Level(-1).String())
}
