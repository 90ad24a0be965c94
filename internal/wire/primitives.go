package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

func writeU8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func readU8(r io.Reader) (uint8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func writeI32(w io.Writer, v int32) error {
	return binary.Write(w, binary.BigEndian, v)
}

func readI32(r io.Reader) (int32, error) {
	var v int32
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return 0, err
	}
	return v, nil
}

func writeI64(w io.Writer, v int64) error {
	return binary.Write(w, binary.BigEndian, v)
}

func readI64(r io.Reader) (int64, error) {
	var v int64
	if err := binary.Read(r, binary.BigEndian, &v); err != nil {
		return 0, err
	}
	return v, nil
}

// writeString writes a field as an i32 length prefix followed by the UTF-8
// bytes of s. The -1 absent sentinel is a decoder-side concept only: every
// string field this module writes is always present.
func writeString(w io.Writer, s string) error {
	if err := writeI32(w, int32(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

// readString reads a length-prefixed string, treating the -1 sentinel as an
// absent value decoded to the empty string.
func readString(r io.Reader) (string, error) {
	n, err := readI32(r)
	if err != nil {
		return "", err
	}
	if n == -1 {
		return "", nil
	}
	if n < 0 {
		return "", fmt.Errorf("negative string length %d", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
