package primes

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerate(t *testing.T) {
	s := Generate(30)
	want := []int{2, 3, 5, 7, 11, 13, 17, 19, 23, 29}
	if s.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", s.Len(), len(want))
	}
	for _, p := range want {
		if !s.Contains(p) {
			t.Errorf("Contains(%d) = false, want true", p)
		}
	}
	for _, c := range []int{0, 1, 4, 9, 15, 25, 27, 30, 31} {
		if s.Contains(c) {
			t.Errorf("Contains(%d) = true, want false", c)
		}
	}
	if !s.Covers(30) {
		t.Error("Covers(30) = false for a set generated up to 30")
	}
}

func TestGenerate_SmallLimits(t *testing.T) {
	if s := Generate(1); s.Len() != 0 {
		t.Errorf("Generate(1).Len() = %d, want 0", s.Len())
	}
	if s := Generate(2); s.Len() != 1 || !s.Contains(2) {
		t.Errorf("Generate(2) should contain exactly 2")
	}
}

func TestGenerate_CountBelowTenThousand(t *testing.T) {
	if n := Generate(10000).Len(); n != 1229 {
		t.Errorf("pi(10000) = %d, want 1229", n)
	}
}

func TestRead(t *testing.T) {
	s, err := Read(strings.NewReader("2 3 5\n7\t11\n\n13"))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if s.Len() != 6 {
		t.Errorf("Len() = %d, want 6", s.Len())
	}
	if s.Max() != 13 {
		t.Errorf("Max() = %d, want 13", s.Max())
	}
}

func TestRead_InvalidToken(t *testing.T) {
	if _, err := Read(strings.NewReader("2 3 five")); err == nil {
		t.Error("expected error for non-integer token")
	}
}

func TestWriteLoadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	n, err := Write(&buf, 100)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != 25 {
		t.Errorf("Write() count = %d, want 25", n)
	}

	path := filepath.Join(t.TempDir(), "primes.txt")
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		t.Fatalf("failed to write primes file: %v", err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Len() != 25 || !s.Contains(97) || s.Contains(91) {
		t.Errorf("loaded set does not match primes up to 100")
	}
}

func TestResolve(t *testing.T) {
	s, err := Resolve("", 50)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !s.Contains(47) {
		t.Error("generated set missing 47")
	}

	path := filepath.Join(t.TempDir(), "short.txt")
	if err := os.WriteFile(path, []byte("2 3 5 7"), 0600); err != nil {
		t.Fatalf("failed to write primes file: %v", err)
	}
	if _, err := Resolve(path, 100); err == nil {
		t.Error("expected error when primes file does not reach the limit")
	}
	if _, err := Resolve(path, 7); err != nil {
		t.Errorf("Resolve() within range error = %v", err)
	}
	if _, err := Resolve(filepath.Join(t.TempDir(), "missing.txt"), 7); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestResolve_FileCoversUpToNextPrime(t *testing.T) {
	tests := []struct {
		name      string
		written   int
		wantBound int
		ok        []int
		tooFar    int
	}{
		{"primes to 1000", 1000, 1008, []int{997, 1000, 1001, 1008}, 1009},
		{"primes to 1M", 1000000, 1000002, []int{999983, 1000000, 1000001}, 1000003},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "primes.txt")
			f, err := os.Create(path)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := Write(f, tt.written); err != nil {
				t.Fatalf("Write() error = %v", err)
			}
			if err := f.Close(); err != nil {
				t.Fatal(err)
			}

			for _, limit := range tt.ok {
				s, err := Resolve(path, limit)
				if err != nil {
					t.Errorf("Resolve(%d) error = %v", limit, err)
					continue
				}
				if s.Bound() != tt.wantBound {
					t.Errorf("Bound() = %d, want %d", s.Bound(), tt.wantBound)
				}
			}
			if _, err := Resolve(path, tt.tooFar); err == nil {
				t.Errorf("Resolve(%d) should fail past the next prime", tt.tooFar)
			}
		})
	}
}

func TestBound(t *testing.T) {
	if b := NewSet(nil).Bound(); b != 1 {
		t.Errorf("empty set Bound() = %d, want 1", b)
	}
	if b := NewSet([]int{2, 3, 5, 7}).Bound(); b != 10 {
		t.Errorf("Bound() = %d, want 10", b)
	}
	if b := Generate(20).Bound(); b != 22 {
		t.Errorf("Generate(20).Bound() = %d, want 22", b)
	}
	if b := Generate(1).Bound(); b != 1 {
		t.Errorf("Generate(1).Bound() = %d, want 1", b)
	}
}
