package protocol

import (
	"encoding/binary"
	"errors"
	"io"
)

// MaxNameLen bounds the encoded filename so the length always fits the
// 2-byte prefix.
const MaxNameLen = 65535

var (
	ErrNameTooLong      = errors.New("protocol: filename exceeds 65535 encoded bytes")
	ErrIncompleteStream = errors.New("protocol: stream closed before expected byte count")
)

// TransferHeader is the fixed wire header preceding every payload:
// 2-byte big-endian name length, UTF-8 name bytes, 8-byte big-endian
// file size.
type TransferHeader struct {
	Filename string
	FileSize uint64
}

// EncodeHeader serializes h. The name-length check happens before any
// byte is produced, so a failed encode emits nothing.
func EncodeHeader(h TransferHeader) ([]byte, error) {
	name := []byte(h.Filename)
	if len(name) > MaxNameLen {
		return nil, ErrNameTooLong
	}
	buf := make([]byte, 2+len(name)+8)
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(name)))
	copy(buf[2:], name)
	binary.BigEndian.PutUint64(buf[2+len(name):], h.FileSize)
	return buf, nil
}

// DecodeHeader performs three sequential exact reads: the 2-byte name
// length, the name bytes, and the 8-byte file size. A source that ends
// early yields ErrIncompleteStream, never a short header.
func DecodeHeader(r io.Reader) (TransferHeader, error) {
	var prefix [2]byte
	if err := ReadExact(r, prefix[:]); err != nil {
		return TransferHeader{}, err
	}
	nameLen := binary.BigEndian.Uint16(prefix[:])

	name := make([]byte, nameLen)
	if err := ReadExact(r, name); err != nil {
		return TransferHeader{}, err
	}

	var size [8]byte
	if err := ReadExact(r, size[:]); err != nil {
		return TransferHeader{}, err
	}

	return TransferHeader{
		Filename: string(name),
		FileSize: binary.BigEndian.Uint64(size[:]),
	}, nil
}

// ReadExact fills buf from r or fails. End-of-stream before len(buf)
// bytes maps to ErrIncompleteStream; other read errors pass through.
func ReadExact(r io.Reader, buf []byte) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrIncompleteStream
		}
		return err
	}
	return nil
}
