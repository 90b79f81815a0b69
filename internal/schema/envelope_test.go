package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvelopeWithID(t *testing.T) {
	raw, err := Encode(LiveBarPush{
		Type:      TypeLiveBar,
		RequestID: 7,
		Symbol:    "AAPL",
		Bar:       WireBar{Time: "2024-03-15 09:30:00", Close: 101},
	})
	require.NoError(t, err)

	env, err := ParseEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeLiveBar, env.Type)
	assert.True(t, env.HasID)
	assert.Equal(t, uint64(7), env.RequestID)

	var push LiveBarPush
	require.NoError(t, env.Decode(&push))
	assert.Equal(t, "AAPL", push.Symbol)
	assert.Equal(t, 101.0, push.Bar.Close)
}

func TestParseEnvelopeWithoutID(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"Type":"Connect"}`))
	require.NoError(t, err)
	assert.Equal(t, TypeConnect, env.Type)
	assert.False(t, env.HasID)
}

func TestParseEnvelopeMalformed(t *testing.T) {
	if _, err := ParseEnvelope([]byte("{not json")); err == nil {
		t.Fatal("expected error")
	}
}

func TestKnownType(t *testing.T) {
	assert.True(t, KnownType(TypeFinalise))
	assert.True(t, KnownType(TypeServerExit))
	assert.False(t, KnownType("Bogus"))
}
