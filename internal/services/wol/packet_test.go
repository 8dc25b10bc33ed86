package wol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMagicPacket_Layout(t *testing.T) {
	packet, err := NewMagicPacket("aa:bb:cc:dd:ee:ff")
	require.NoError(t, err)

	b := packet.Bytes()
	require.Len(t, b, 102)
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, 6), b[:6])

	mac := []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	assert.Equal(t, bytes.Repeat(mac, 16), b[6:])
}

func TestNewMagicPacket_InvalidMAC(t *testing.T) {
	_, err := NewMagicPacket("AA-BB-CC-DD-EE-FF")
	assert.ErrorIs(t, err, ErrInvalidMAC)
}
