package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unfoldingword/door43client/internal/config"
)

func TestNewApp_RequiresConfig(t *testing.T) {
	_, err := NewApp(nil)
	assert.Error(t, err)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	a, err := NewApp(cfg)
	require.NoError(t, err)
	assert.NotNil(t, a)
}

func TestPositionalArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "command only",
			args: []string{"sync"},
			want: []string{"sync"},
		},
		{
			name: "flags with values stripped",
			args: []string{"-d", "index.sqlite", "materialize", "en", "gen", "ulb"},
			want: []string{"materialize", "en", "gen", "ulb"},
		},
		{
			name: "equals form stripped",
			args: []string{"--config=conf.json", "import", "dir"},
			want: []string{"import", "dir"},
		},
		{
			name: "empty",
			args: nil,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, positionalArgs(tt.args))
		})
	}
}
