/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inspecta/inspecta/config"
)

func TestNewLogger_FileOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "inspecta.log")
	cfg := NewDefaultConfig()
	cfg.Output = OutputFile
	cfg.File.Path = logPath
	cfg.Level = LevelInfo

	logger, closeFn := NewLogger(cfg)
	logger.Debug("debug is filtered out")
	logger.Info("queue created", Int("max_concurrent", 4))
	logger.With(String("screen", "sanitation-list")).Error("backend call failed", Error(errors.New("boom")))
	closeFn()

	f, err := os.Open(logPath)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	var entries []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		entry := map[string]interface{}{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, entries, 2)

	require.Equal(t, "queue created", entries[0]["msg"])
	require.Equal(t, "info", entries[0]["level"])
	require.EqualValues(t, 4, entries[0]["max_concurrent"])

	require.Equal(t, "backend call failed", entries[1]["msg"])
	require.Equal(t, "sanitation-list", entries[1]["screen"])
	require.Equal(t, "boom", entries[1]["error"])
}

func TestConfig_Set(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := NewConfig()
		err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(bytes.NewBufferString(""), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, NewDefaultConfig(), cfg)
	})

	t.Run("file output", func(t *testing.T) {
		data := `
log:
  level: DEBUG
  format: text
  output: file
  file:
    path: /var/log/inspecta-{{pid}}.log
    rotation:
      maxSize: 10M
      maxBackups: 3
`
		cfg := NewConfig()
		err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(bytes.NewBufferString(data), config.DataTypeYAML, cfg)
		require.NoError(t, err)
		require.Equal(t, LevelDebug, cfg.Level)
		require.Equal(t, FormatText, cfg.Format)
		require.Equal(t, OutputFile, cfg.Output)
		require.Equal(t, config.ByteSize(10*1024*1024), cfg.File.Rotation.MaxSize)
		require.Equal(t, 3, cfg.File.Rotation.MaxBackups)
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			name   string
			data   string
			errMsg string
		}{
			{
				name:   "unknown level",
				data:   "log:\n  level: trace\n",
				errMsg: `log.level: unknown value "trace", should be one of [error warn info debug]`,
			},
			{
				name:   "file output without path",
				data:   "log:\n  output: file\n",
				errMsg: `log.file.path: cannot be empty when "file" output is used`,
			},
			{
				name:   "too small rotation size",
				data:   "log:\n  file:\n    rotation:\n      maxSize: 1K\n",
				errMsg: "log.file.rotation.maxSize: should be >= 1M",
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				cfg := NewConfig()
				err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(
					bytes.NewBufferString(tt.data), config.DataTypeYAML, cfg)
				require.EqualError(t, err, tt.errMsg)
			})
		}
	})
}
