package common

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestCapitalize(t *testing.T) {
	tests := map[string]string{
		"":                "",
		"light rain":      "Light rain",
		"OVERCAST CLOUDS": "Overcast clouds",
		"éclaircies":      "Éclaircies",
		"x":               "X",
	}
	for in, want := range tests {
		assert.Equal(t, want, Capitalize(in), in)
	}
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "short", TruncateRunes("short", 100, "..."))

	exact := strings.Repeat("a", 100)
	assert.Equal(t, exact, TruncateRunes(exact, 100, "..."))

	long := strings.Repeat("b", 150)
	got := TruncateRunes(long, 100, "...")
	assert.Equal(t, 100, len(got))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, strings.Repeat("b", 97), strings.TrimSuffix(got, "..."))

	multibyte := strings.Repeat("ж", 101)
	got = TruncateRunes(multibyte, 100, "...")
	assert.Equal(t, 100, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{12, "12.0"},
		{10.5, "10.5"},
		{4.1, "4.1"},
		{-3, "-3.0"},
		{0, "0.0"},
		{0.25, "0.25"},
		{14.23, "14.23"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFloat(tt.in))
	}
}
