package uri

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFormatRoundTrip(t *testing.T) {
	raw := "wc:abc123@1?bridge=https%3A%2F%2Fb.example&key=deadbeef"

	p, err := Parse(raw)
	require.NoError(t, err)
	require.Equal(t, "abc123", p.HandshakeTopic)
	require.Equal(t, "https://b.example", p.Bridge)
	require.Equal(t, "deadbeef", p.Key)
	require.Equal(t, SupportedVersion, p.Version)

	formatted := Format(p)
	reparsed, err := Parse(formatted)
	require.NoError(t, err)
	require.Equal(t, p, reparsed)
}

func TestFormatEscapesSpecialBridgeCharacters(t *testing.T) {
	p := Params{
		HandshakeTopic: "topic-1",
		Bridge:         "https://b.example/path?x=1&y=2 with spaces",
		Key:            "00ff",
	}

	formatted := Format(p)
	reparsed, err := Parse(formatted)
	require.NoError(t, err)
	require.Equal(t, p.Bridge, reparsed.Bridge)
}

func TestParseRejectsWrongProtocol(t *testing.T) {
	_, err := Parse("http:abc123@1?bridge=https://b.example&key=deadbeef")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidUri))
}

func TestParseRejectsUnsupportedVersion(t *testing.T) {
	_, err := Parse("wc:abc123@2?bridge=https://b.example&key=deadbeef")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidUri))
}

func TestParseRejectsMissingFields(t *testing.T) {
	cases := []string{
		"wc:@1?bridge=https://b.example&key=deadbeef",
		"wc:abc123@1?key=deadbeef",
		"wc:abc123@1?bridge=https://b.example",
	}
	for _, raw := range cases {
		_, err := Parse(raw)
		require.Error(t, err, raw)
		require.True(t, errors.Is(err, ErrInvalidUri), raw)
	}
}
