package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/gamelog-sync/internal/model"
)

func TestParseDateFlag(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    string
		wantErr bool
	}{
		{name: "empty means not given", value: ""},
		{name: "iso date", value: "2024-01-15", want: "2024-01-15"},
		{name: "api layout rejected", value: "01/15/2024", wantErr: true},
		{name: "garbage", value: "yesterday", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDateFlag("start-date", tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "--start-date")
				return
			}
			require.NoError(t, err)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Format(model.DateLayout))
		})
	}
}

func TestSyncOptionsFromFlags(t *testing.T) {
	t.Cleanup(func() { syncFlags.start, syncFlags.fullHistory, syncFlags.skipQuality = "", false, false })
	syncFlags.start = "2022-10-19"
	syncFlags.fullHistory = true
	syncFlags.skipQuality = true

	opts, err := syncOptions()
	require.NoError(t, err)
	require.NotNil(t, opts.Start)
	assert.Nil(t, opts.End)
	assert.True(t, opts.FullHistory)
	assert.True(t, opts.SkipQuality)
	assert.False(t, opts.SkipDetails)
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"sync", "overrides", "quality", "migrate"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}
