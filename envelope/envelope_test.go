package envelope

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

type greeting struct {
	Text string `json:"text"`
}

func TestSealOpenRoundTrip(t *testing.T) {
	c := NewChaChaCrypto()
	key, err := c.GenerateKey()
	require.NoError(t, err)

	env, err := Seal(c, greeting{Text: "hello wallet"}, key)
	require.NoError(t, err)
	require.NotEmpty(t, env)

	var out greeting
	require.NoError(t, Open(c, env, key, &out))
	require.Equal(t, "hello wallet", out.Text)
}

func TestSealRejectsEmptyKey(t *testing.T) {
	c := NewChaChaCrypto()
	_, err := Seal(c, greeting{Text: "x"}, nil)
	require.ErrorIs(t, err, ErrNoKey)
}

func TestOpenRejectsEmptyKey(t *testing.T) {
	c := NewChaChaCrypto()
	key, err := c.GenerateKey()
	require.NoError(t, err)
	env, err := Seal(c, greeting{Text: "x"}, key)
	require.NoError(t, err)

	var out greeting
	err = Open(c, env, nil, &out)
	require.ErrorIs(t, err, ErrNoKey)
}

func TestOpenFailsWithWrongKey(t *testing.T) {
	c := NewChaChaCrypto()
	key, err := c.GenerateKey()
	require.NoError(t, err)
	other, err := c.GenerateKey()
	require.NoError(t, err)

	env, err := Seal(c, greeting{Text: "secret"}, key)
	require.NoError(t, err)

	var out greeting
	err = Open(c, env, other, &out)
	require.ErrorIs(t, err, ErrNoKey)
}

func TestOpenRejectsMalformedEnvelope(t *testing.T) {
	c := NewChaChaCrypto()
	key, err := c.GenerateKey()
	require.NoError(t, err)

	var out greeting
	err = Open(c, json.RawMessage(`{"data": "not-an-envelope"`), key, &out)
	require.Error(t, err)
}

func TestEnvelopeIsOpaqueJSON(t *testing.T) {
	c := NewChaChaCrypto()
	key, err := c.GenerateKey()
	require.NoError(t, err)

	env, err := Seal(c, greeting{Text: "hi"}, key)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(env, &fields))
	require.Contains(t, fields, "data")
	require.Contains(t, fields, "iv")
}
