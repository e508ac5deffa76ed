package signed

import (
	"crypto/ed25519"
	"encoding/base64"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeSeedPadsBase64(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	seed := priv.Seed()
	b64 := base64.StdEncoding.EncodeToString(seed)
	// Strip padding to exercise the pad-to-multiple-of-4 behaviour.
	unpadded := b64
	for len(unpadded) > 0 && unpadded[len(unpadded)-1] == '=' {
		unpadded = unpadded[:len(unpadded)-1]
	}
	decoded, err := DecodeSeed(unpadded)
	require.NoError(t, err)
	assert.Equal(t, priv, decoded)
}

func TestDecodeSeedRejectsWrongLength(t *testing.T) {
	_, err := DecodeSeed(base64.StdEncoding.EncodeToString([]byte("too short")))
	assert.Error(t, err)
}

func TestFormatDecimalNoScientificNotation(t *testing.T) {
	s := FormatDecimal(0.1234567)
	assert.Equal(t, "0.1234567", s)
	assert.NotContains(t, s, "e")
}

func TestFormatDecimalIdempotent(t *testing.T) {
	once := FormatDecimal(65.12)
	parsed, err := strconv.ParseFloat(once, 64)
	require.NoError(t, err)
	twice := FormatDecimal(parsed)
	assert.Equal(t, once, twice)
}

func TestRateLimiterPrunesOldEntries(t *testing.T) {
	rl := newRateLimiter()
	stale := time.Now().Add(-2 * time.Second)
	rl.perSecond = []time.Time{stale, stale, stale}
	rl.wait()
	assert.Len(t, rl.perSecond, 1)
}
