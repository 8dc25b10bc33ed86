package wol

import (
	"fmt"
	"net"
)

// MagicPacketSize is 6 sync bytes plus 16 copies of the MAC.
const MagicPacketSize = 6 + 16*6

// MagicPacket is the Wake-on-LAN payload NIC firmware listens for.
type MagicPacket [MagicPacketSize]byte

// NewMagicPacket builds the payload for a canonical MAC address.
func NewMagicPacket(mac string) (MagicPacket, error) {
	var packet MagicPacket

	normalized, err := ValidateMAC(mac)
	if err != nil {
		return packet, err
	}
	hw, err := net.ParseMAC(normalized)
	if err != nil {
		return packet, fmt.Errorf("%w %q: %v", ErrInvalidMAC, mac, err)
	}

	return magicPacketFor(hw), nil
}

func magicPacketFor(hw net.HardwareAddr) MagicPacket {
	var packet MagicPacket
	for i := 0; i < 6; i++ {
		packet[i] = 0xFF
	}
	for i := 0; i < 16; i++ {
		copy(packet[6+i*6:], hw)
	}
	return packet
}

// Bytes returns the payload as a slice.
func (p MagicPacket) Bytes() []byte {
	return p[:]
}
