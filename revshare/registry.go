package revshare

import (
	"encoding/binary"
	"fmt"
	"math"
)

const (
	registryHeaderSize = 52 // holding(20) + controller(20) + version(8) + num_entries(4)
	registryEntrySize  = 22 // receiver(20) + share_bps(2)
)

// SerializeRegistry serializes a RegistryState to binary format.
func SerializeRegistry(state *RegistryState) ([]byte, error) {
	if len(state.Entries) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d entries", ErrTooManyEntries, len(state.Entries))
	}
	buf := make([]byte, registryHeaderSize+registryEntrySize*len(state.Entries))
	offset := 0

	copy(buf[offset:offset+AddressSize], state.Holding[:])
	offset += AddressSize

	copy(buf[offset:offset+AddressSize], state.Controller[:])
	offset += AddressSize

	binary.BigEndian.PutUint64(buf[offset:offset+8], state.Version)
	offset += 8

	binary.BigEndian.PutUint32(buf[offset:offset+4], uint32(len(state.Entries)))
	offset += 4

	for _, entry := range state.Entries {
		copy(buf[offset:offset+AddressSize], entry.Receiver[:])
		offset += AddressSize
		binary.BigEndian.PutUint16(buf[offset:offset+2], entry.ShareBps)
		offset += 2
	}

	return buf, nil
}

// DeserializeRegistry deserializes binary data into a RegistryState.
// Trailing bytes are rejected so a truncated write cannot pass as a shorter list.
func DeserializeRegistry(data []byte) (*RegistryState, error) {
	if len(data) < registryHeaderSize {
		return nil, fmt.Errorf("%w: too short (%d bytes)", ErrInvalidRegistryData, len(data))
	}
	offset := 0

	state := &RegistryState{}
	copy(state.Holding[:], data[offset:offset+AddressSize])
	offset += AddressSize

	copy(state.Controller[:], data[offset:offset+AddressSize])
	offset += AddressSize

	state.Version = binary.BigEndian.Uint64(data[offset : offset+8])
	offset += 8

	numEntries := int(binary.BigEndian.Uint32(data[offset : offset+4]))
	offset += 4

	expectedSize := registryHeaderSize + registryEntrySize*numEntries
	if len(data) != expectedSize {
		return nil, fmt.Errorf("%w: expected %d bytes for %d entries, got %d",
			ErrInvalidRegistryData, expectedSize, numEntries, len(data))
	}

	if numEntries > 0 {
		state.Entries = make([]ReceiverShare, numEntries)
	}
	for i := 0; i < numEntries; i++ {
		copy(state.Entries[i].Receiver[:], data[offset:offset+AddressSize])
		offset += AddressSize
		state.Entries[i].ShareBps = binary.BigEndian.Uint16(data[offset : offset+2])
		offset += 2
	}

	return state, nil
}
