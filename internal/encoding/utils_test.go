package encoding

import (
	"bytes"
	"math"
	"testing"
)

func TestVectorRoundTrip(t *testing.T) {
	in := []float32{1.5, -2.25, 0, 3.125}

	var buf bytes.Buffer
	if err := EncodeVector(&buf, in); err != nil {
		t.Fatalf("EncodeVector() error = %v", err)
	}

	out, err := DecodeVector(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("DecodeVector() error = %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len(out) = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("out[%d] = %v, want %v", i, out[i], in[i])
		}
	}
}

func TestEncodeVectorRejectsNil(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeVector(&buf, nil); err == nil {
		t.Fatal("expected error encoding nil vector")
	}
}

func TestStringRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	if err := EncodeString(&buf, "hello, meaning"); err != nil {
		t.Fatalf("EncodeString() error = %v", err)
	}
	if err := EncodeString(&buf, ""); err != nil {
		t.Fatalf("EncodeString() error = %v", err)
	}

	r := bytes.NewReader(buf.Bytes())
	got, err := DecodeString(r)
	if err != nil {
		t.Fatalf("DecodeString() error = %v", err)
	}
	if got != "hello, meaning" {
		t.Errorf("got %q, want %q", got, "hello, meaning")
	}

	got2, err := DecodeString(r)
	if err != nil {
		t.Fatalf("DecodeString() error = %v", err)
	}
	if got2 != "" {
		t.Errorf("got %q, want empty", got2)
	}
}

func TestBoolRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	EncodeBool(&buf, true)
	EncodeBool(&buf, false)

	r := bytes.NewReader(buf.Bytes())
	a, err := DecodeBool(r)
	if err != nil || !a {
		t.Fatalf("DecodeBool() = %v, %v, want true, nil", a, err)
	}
	b, err := DecodeBool(r)
	if err != nil || b {
		t.Fatalf("DecodeBool() = %v, %v, want false, nil", b, err)
	}
}

func TestValidateVectorRejectsNonFinite(t *testing.T) {
	if err := ValidateVector(nil); err == nil {
		t.Error("expected error for nil vector")
	}
	if err := ValidateVector([]float32{}); err == nil {
		t.Error("expected error for empty vector")
	}
	if err := ValidateVector([]float32{1, float32(math.NaN())}); err == nil {
		t.Error("expected error for NaN element")
	}
	if err := ValidateVector([]float32{1, 2, 3}); err != nil {
		t.Errorf("unexpected error for valid vector: %v", err)
	}
}
