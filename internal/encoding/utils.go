// Package encoding implements the canonical binary encoding the meaning
// package uses to turn its domain records into store.Record bodies:
// deterministic, length-prefixed, little-endian, so that two logically
// identical records always produce the same bytes and therefore the
// same content hash.
package encoding

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidVector is returned when a vector is invalid.
var ErrInvalidVector = errors.New("invalid vector")

// EncodeVector writes vector as a length-prefixed sequence of
// little-endian float32 values.
func EncodeVector(buf *bytes.Buffer, vector []float32) error {
	if vector == nil {
		return ErrInvalidVector
	}

	vectorLen := len(vector)
	if vectorLen > 2147483647 {
		return fmt.Errorf("vector too large: %d elements exceeds maximum", vectorLen)
	}
	if err := binary.Write(buf, binary.LittleEndian, int32(vectorLen)); err != nil {
		return fmt.Errorf("failed to encode vector length: %w", err)
	}

	for _, val := range vector {
		if err := binary.Write(buf, binary.LittleEndian, val); err != nil {
			return fmt.Errorf("failed to encode vector value: %w", err)
		}
	}

	return nil
}

// DecodeVector reads a vector written by EncodeVector.
func DecodeVector(r *bytes.Reader) ([]float32, error) {
	var length int32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, fmt.Errorf("failed to decode vector length: %w", err)
	}
	if length < 0 {
		return nil, ErrInvalidVector
	}
	if length == 0 {
		return []float32{}, nil
	}

	expectedBytes := int(length) * 4
	if r.Len() < expectedBytes {
		return nil, ErrInvalidVector
	}

	vector := make([]float32, length)
	for i := int32(0); i < length; i++ {
		if err := binary.Read(r, binary.LittleEndian, &vector[i]); err != nil {
			return nil, fmt.Errorf("failed to decode vector value at index %d: %w", i, err)
		}
	}

	return vector, nil
}

// EncodeString writes s as a length-prefixed UTF-8 byte sequence.
func EncodeString(buf *bytes.Buffer, s string) error {
	if len(s) > 2147483647 {
		return fmt.Errorf("string too large: %d bytes exceeds maximum", len(s))
	}
	if err := binary.Write(buf, binary.LittleEndian, int32(len(s))); err != nil {
		return fmt.Errorf("failed to encode string length: %w", err)
	}
	if _, err := buf.WriteString(s); err != nil {
		return fmt.Errorf("failed to encode string value: %w", err)
	}
	return nil
}

// DecodeString reads a string written by EncodeString.
func DecodeString(r *bytes.Reader) (string, error) {
	var length int32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", fmt.Errorf("failed to decode string length: %w", err)
	}
	if length < 0 {
		return "", fmt.Errorf("negative string length %d", length)
	}
	b := make([]byte, length)
	if length > 0 {
		if _, err := r.Read(b); err != nil {
			return "", fmt.Errorf("failed to decode string value: %w", err)
		}
	}
	return string(b), nil
}

// EncodeBool writes b as a single byte.
func EncodeBool(buf *bytes.Buffer, b bool) {
	if b {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

// DecodeBool reads a bool written by EncodeBool.
func DecodeBool(r *bytes.Reader) (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, fmt.Errorf("failed to decode bool value: %w", err)
	}
	return b != 0, nil
}

// ValidateVector fails on a nil or empty vector, or one containing a
// non-finite element.
func ValidateVector(vector []float32) error {
	if len(vector) == 0 {
		return ErrInvalidVector
	}
	for _, val := range vector {
		if math.IsNaN(float64(val)) || math.IsInf(float64(val), 0) {
			return ErrInvalidVector
		}
	}
	return nil
}
