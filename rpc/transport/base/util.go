package base

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"net"
)

// headerSize is the fixed part of a frame
const headerSize = 14

// writeFrame writes a frame to w with the format:
// - 8 bytes: requestID (uint64, big endian)
// - 2 bytes: store name length (uint16, big endian)
// - 4 bytes: data length (uint32, big endian)
// - N bytes: store name
// - M bytes: data payload
//
// Responses echo the store name and request id of their request.
func writeFrame(w io.Writer, storeName string, requestID uint64, data []byte) error {
	if len(storeName) > math.MaxUint16 {
		return fmt.Errorf("store name too long (%d bytes)", len(storeName))
	}
	if uint64(len(data)) > math.MaxUint32 {
		return fmt.Errorf("payload too large (%d bytes)", len(data))
	}

	header := make([]byte, headerSize)
	binary.BigEndian.PutUint64(header[:8], requestID)
	binary.BigEndian.PutUint16(header[8:10], uint16(len(storeName)))
	binary.BigEndian.PutUint32(header[10:14], uint32(len(data)))

	b := net.Buffers{header, []byte(storeName), data}
	_, err := b.WriteTo(w)
	return err
}

// readFrame reads a frame from r using the provided buffer for the payload.
// If the buffer is too small a temporary buffer is allocated.
// The returned data aliases buf when it fits.
func readFrame(r io.Reader, buf []byte) (storeName string, requestID uint64, data []byte, err error) {
	if len(buf) < headerSize {
		buf = make([]byte, headerSize)
	}

	if _, err = io.ReadFull(r, buf[:headerSize]); err != nil {
		return "", 0, nil, err
	}

	requestID = binary.BigEndian.Uint64(buf[:8])
	nameLength := int(binary.BigEndian.Uint16(buf[8:10]))
	contentLength := int(binary.BigEndian.Uint32(buf[10:14]))

	if nameLength > 0 {
		name := make([]byte, nameLength)
		if _, err = io.ReadFull(r, name); err != nil {
			return "", 0, nil, err
		}
		storeName = string(name)
	}

	if contentLength == 0 {
		return storeName, requestID, []byte{}, nil
	}

	if len(buf) < contentLength {
		buf = make([]byte, contentLength)
	}
	if _, err = io.ReadFull(r, buf[:contentLength]); err != nil {
		return "", 0, nil, err
	}
	return storeName, requestID, buf[:contentLength], nil
}
