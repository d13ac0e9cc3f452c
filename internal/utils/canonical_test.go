package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeColor_EveryVariation(t *testing.T) {
	for canon, variations := range colorVariations {
		for _, v := range variations {
			got, ok := NormalizeColor(v)
			require.True(t, ok, "variation %q", v)
			assert.Equal(t, canon, got, "variation %q", v)

			got, ok = NormalizeColor("  " + strings.ToUpper(v) + " ")
			require.True(t, ok, "upper variation %q", v)
			assert.Equal(t, canon, got, "upper variation %q", v)
		}
	}
}

func TestNormalizeColor(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{name: "english", input: "White", want: "white", wantOK: true},
		{name: "russian compound", input: "черный металлик", want: "black", wantOK: true},
		{name: "shade prefix", input: "темно-красный", want: "red", wantOK: true},
		{name: "yo spelling", input: "Чёрный", want: "black", wantOK: true},
		{name: "empty", input: "", wantOK: false},
		{name: "blank", input: "   ", wantOK: false},
		{name: "unknown", input: "хамелеон", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeColor(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeCity(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{name: "canonical", input: "Алматы", want: "Алматы", wantOK: true},
		{name: "hyphenated romanization", input: "Alma-Ata", want: "Алматы", wantOK: true},
		{name: "extra whitespace", input: "alma  ata", want: "Алматы", wantOK: true},
		{name: "former name", input: "Nur Sultan", want: "Астана", wantOK: true},
		{name: "soviet name", input: "Чимкент", want: "Шымкент", wantOK: true},
		{name: "city suffix", input: "г. Караганда", want: "Караганда", wantOK: true},
		{name: "empty", input: "", wantOK: false},
		{name: "unknown", input: "Москва", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeCity(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeCity_EveryVariation(t *testing.T) {
	for canon, variations := range cityVariations {
		for _, v := range variations {
			got, ok := NormalizeCity(strings.ToUpper(v))
			require.True(t, ok, "variation %q", v)
			assert.Equal(t, canon, got, "variation %q", v)
		}
	}
}

func TestNewCanonicalizer_Conflict(t *testing.T) {
	_, err := NewCanonicalizer(map[string][]string{
		"a": {"shared"},
		"b": {"Shared"},
	}, nil)
	assert.Error(t, err)
}

func TestNewCanonicalizer_DeterministicFallback(t *testing.T) {
	c, err := NewCanonicalizer(map[string][]string{
		"short": {"ab"},
		"long":  {"abcd"},
	}, nil)
	require.NoError(t, err)

	// "xabcdx" contains both variations; the longer one wins every time
	for i := 0; i < 20; i++ {
		got, ok := c.Normalize("xabcdx")
		require.True(t, ok)
		assert.Equal(t, "long", got)
	}
}

func TestCanonicals(t *testing.T) {
	assert.Contains(t, CanonicalColors(), "white")
	assert.Len(t, CanonicalCities(), len(cityVariations))
	assert.IsIncreasing(t, CanonicalColors())
}
