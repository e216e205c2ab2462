package protocol

import (
	"bytes"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"testing/iotest"
)

func TestEncodeDecodeHeaderRoundTrip(t *testing.T) {
	cases := []TransferHeader{
		{Filename: "empty.txt", FileSize: 0},
		{Filename: "arquivo.bin", FileSize: 4096},
		{Filename: "relatório-final.pdf", FileSize: 1<<32 + 7},
		{Filename: strings.Repeat("n", MaxNameLen), FileSize: math.MaxUint64},
	}
	for _, in := range cases {
		b, err := EncodeHeader(in)
		if err != nil {
			t.Fatalf("encode %q: %v", in.Filename, err)
		}
		out, err := DecodeHeader(bytes.NewReader(b))
		if err != nil {
			t.Fatalf("decode %q: %v", in.Filename, err)
		}
		if out != in {
			t.Fatalf("round trip mismatch: got=%+v want=%+v", out, in)
		}
	}
}

func TestEncodeHeaderNameTooLongEmitsNothing(t *testing.T) {
	b, err := EncodeHeader(TransferHeader{Filename: strings.Repeat("x", MaxNameLen+1), FileSize: 1})
	if !errors.Is(err, ErrNameTooLong) {
		t.Fatalf("expected ErrNameTooLong, got %v", err)
	}
	if b != nil {
		t.Fatalf("expected no bytes on failed encode, got %d", len(b))
	}
}

func TestDecodeHeaderFragmentedSource(t *testing.T) {
	in := TransferHeader{Filename: "fragmented.dat", FileSize: 10000}
	b, err := EncodeHeader(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// One byte per Read call must reconstruct the same header as a bulk read.
	out, err := DecodeHeader(iotest.OneByteReader(bytes.NewReader(b)))
	if err != nil {
		t.Fatalf("decode fragmented: %v", err)
	}
	if out != in {
		t.Fatalf("fragmented decode mismatch: got=%+v want=%+v", out, in)
	}
}

func TestDecodeHeaderTruncatedSource(t *testing.T) {
	b, err := EncodeHeader(TransferHeader{Filename: "truncated.bin", FileSize: 99})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for cut := 0; cut < len(b); cut++ {
		_, err := DecodeHeader(bytes.NewReader(b[:cut]))
		if !errors.Is(err, ErrIncompleteStream) {
			t.Fatalf("cut=%d: expected ErrIncompleteStream, got %v", cut, err)
		}
	}
}

func TestReadExactShortSourceReturnsNoPartialResult(t *testing.T) {
	buf := make([]byte, 8)
	err := ReadExact(bytes.NewReader([]byte{1, 2, 3}), buf)
	if !errors.Is(err, ErrIncompleteStream) {
		t.Fatalf("expected ErrIncompleteStream, got %v", err)
	}
}

func TestReadExactEmptyBuffer(t *testing.T) {
	if err := ReadExact(bytes.NewReader(nil), nil); err != nil {
		t.Fatalf("zero-length read: %v", err)
	}
}

func TestReadExactPassesThroughOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	err := ReadExact(io.MultiReader(bytes.NewReader([]byte{1}), iotest.ErrReader(boom)), make([]byte, 4))
	if !errors.Is(err, boom) {
		t.Fatalf("expected underlying error, got %v", err)
	}
}
