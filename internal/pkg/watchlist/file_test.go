package watchlist

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/endorses/lexicat/pkg/recognizer"
)

const sampleFile = `
phone_min_digits: 10
rules:
  - EMAIL_ADDR=*@example.com
  - pattern: HOST_NAME
    value: "*.internal.example.com"
    description: internal hosts
  - pattern: IP
    value: "10.*"
    enabled: false
  - PHONE_NUMBER=800-555-1212
`

func TestDecode(t *testing.T) {
	f, err := Decode(strings.NewReader(sampleFile))
	require.NoError(t, err)

	assert.Equal(t, 10, f.PhoneMinDigits)
	require.Len(t, f.Rules, 4)
	assert.Equal(t, "internal hosts", f.Rules[1].Description)
	assert.False(t, f.Rules[2].IsEnabled())
	assert.Equal(t, []string{
		"EMAIL_ADDR=*@example.com",
		"HOST_NAME=*.internal.example.com",
		"PHONE_NUMBER=800-555-1212",
	}, f.RuleStrings())
}

func TestDecodeErrors(t *testing.T) {
	tests := map[string]string{
		"unknown pattern": "rules:\n  - URL=http\n",
		"missing value":   "rules:\n  - pattern: IP\n",
		"not yaml":        "rules: [",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(input))
			assert.Error(t, err)
		})
	}

	_, err := Decode(strings.NewReader("rules:\n  - pattern: IP\n"))
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestDecodeEmpty(t *testing.T) {
	f, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Rules)
}

func TestLoad(t *testing.T) {
	w, err := Load(strings.NewReader(sampleFile), "MAC=00:1a:*")
	require.NoError(t, err)
	assert.Equal(t, 4, w.Len())

	m, _, err := recognizer.Default().Match(recognizer.IP, "10.0.0.1", 0)
	require.NoError(t, err)
	_, ok := w.Check(m)
	assert.False(t, ok, "disabled rule must not match")

	m, _, err = recognizer.Default().Match(recognizer.MAC, "00:1A:2b:3c:4d:5e", 0)
	require.NoError(t, err)
	hit, ok := w.Check(m)
	require.True(t, ok)
	assert.Equal(t, "MAC=00:1a:*", hit.Rule.String())

	_, err = Load(strings.NewReader("phone_min_digits: 10\nrules:\n  - PHONE_NUMBER=555-1212\n"))
	assert.ErrorIs(t, err, ErrInvalidRule)
}
