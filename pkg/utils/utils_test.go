package utils

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestGetMessageHash(t *testing.T) {
	// sha256("abc")
	want, _ := hex.DecodeString("ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad")
	assert.Equal(t, want, GetMessageHash([]byte("abc")))
	assert.Len(t, GetMessageHash(nil), 32)
}

func TestMaskString(t *testing.T) {
	assert.Equal(t, "", MaskString(""))
	assert.Equal(t, "ab", MaskString("ab"))
	assert.Equal(t, "a*c", MaskString("abc"))
	assert.Equal(t, "s****t", MaskString("secret"))
}

func TestZerologConsoleWriter(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(ZerologConsoleWriter(&buf))
	log.Info().Str("sender", "0x01").Msg("accepted")
	assert.Contains(t, buf.String(), "accepted")
	assert.Contains(t, buf.String(), "sender=")
}
