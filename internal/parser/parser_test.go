package parser

import (
	"log/slog"
	"testing"

	"github.com/arenalab/arena-recorder/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParser() *Parser {
	return NewParser(slog.Default(), "unlabeled")
}

func TestNewParser(t *testing.T) {
	p := NewParser(nil, "x")
	require.NotNil(t, p)
	require.NotNil(t, p.logger)
}

func TestParseIntFromFloat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"integer", "32", 32, false},
		{"zero", "0", 0, false},
		{"negative integer", "-1", -1, false},
		{"float with decimals", "32.00", 32, false},
		{"negative float", "-1.00", -1, false},
		{"fractional rejects", "10.99", 0, true},
		{"empty string", "", 0, true},
		{"non-numeric", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseIntFromFloat(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseFlag(t *testing.T) {
	tests := []struct {
		input   string
		want    bool
		wantErr bool
	}{
		{"1", true, false},
		{"0", false, false},
		{"1.0", true, false},
		{"true", true, false},
		{"FALSE", false, false},
		{"2", false, true},
		{"yes", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseFlag(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseStart(t *testing.T) {
	p := newTestParser()

	req, err := p.ParseStart(nil)
	require.NoError(t, err)
	assert.Equal(t, "unlabeled", req.Label)

	req, err = p.ParseStart([]string{`"aggressive"`})
	require.NoError(t, err)
	assert.Equal(t, "aggressive", req.Label)

	req, err = p.ParseStart([]string{`""`})
	require.NoError(t, err)
	assert.Equal(t, "unlabeled", req.Label)

	_, err = p.ParseStart([]string{"a", "b"})
	assert.ErrorIs(t, err, ErrArgCount)
}

func TestParseTick(t *testing.T) {
	p := newTestParser()

	req, err := p.ParseTick([]string{"1", "-1", "0.5", "0", "1", "0"})
	require.NoError(t, err)
	assert.Equal(t, core.V(1, -1), req.Input.Move)
	assert.Equal(t, core.V(0.5, 0), req.Input.Aim)
	assert.True(t, req.Input.Fire)
	assert.False(t, req.Input.Reload)
	assert.Zero(t, req.DT)

	req, err = p.ParseTick([]string{"0", "0", "0", "0", "false", "true", "0.033"})
	require.NoError(t, err)
	assert.True(t, req.Input.Reload)
	assert.Equal(t, 0.033, req.DT)
}

func TestParseTick_Errors(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name string
		args []string
	}{
		{"too few", []string{"1", "0"}},
		{"too many", []string{"0", "0", "0", "0", "0", "0", "0", "0"}},
		{"bad move", []string{"x", "0", "0", "0", "0", "0"}},
		{"nan aim", []string{"0", "0", "NaN", "0", "0", "0"}},
		{"bad fire", []string{"0", "0", "0", "0", "maybe", "0"}},
		{"bad reload", []string{"0", "0", "0", "0", "0", "3"}},
		{"negative dt", []string{"0", "0", "0", "0", "0", "0", "-0.1"}},
		{"infinite dt", []string{"0", "0", "0", "0", "0", "0", "Inf"}},
		{"dt above max", []string{"0", "0", "0", "0", "0", "0", "1.5"}},
		{"overflowing dt", []string{"0", "0", "0", "0", "0", "0", "1e307"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ParseTick(tt.args)
			assert.Error(t, err)
		})
	}

	_, err := p.ParseTick(nil)
	assert.ErrorIs(t, err, ErrArgCount)
}
