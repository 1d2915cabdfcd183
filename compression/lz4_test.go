package compression

import (
	"bytes"
	"io"
	"testing"
)

func TestParse(t *testing.T) {

	cases := map[string]Type{"": Lz4, "lz4": Lz4, " LZ4 ": Lz4, "none": None}

	for name, expect := range cases {
		got, err := Parse(name)
		if err != nil || got != expect {
			t.Errorf("%q: expected %s, got %s (%v)", name, expect, got, err)
		}
	}

	if _, err := Parse("gzip"); err == nil {
		t.Errorf("expected error for gzip")
	}
}

func TestStreamRoundtrip(t *testing.T) {

	payload := bytes.Repeat([]byte("0123456789abcdef"), 50_000)

	for _, typ := range []Type{None, Lz4} {

		var dst bytes.Buffer
		w, err := NewWriter(typ, &dst)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", typ, err)
		}
		if _, err := w.Write(payload); err != nil {
			t.Fatalf("%s: unexpected error %v", typ, err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("%s: unexpected error %v", typ, err)
		}

		if typ == Lz4 && dst.Len() >= len(payload) {
			t.Errorf("lz4 did not compress: %d >= %d", dst.Len(), len(payload))
		}

		r, err := NewReader(typ, &dst)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", typ, err)
		}
		decoded, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", typ, err)
		}
		if !bytes.Equal(decoded, payload) {
			t.Errorf("%s: payload differs after roundtrip", typ)
		}
	}
}

func TestExtension(t *testing.T) {
	if Lz4.Extension() != "spz" || None.Extension() != "spc" {
		t.Errorf("unexpected extensions %s / %s", Lz4.Extension(), None.Extension())
	}
}
