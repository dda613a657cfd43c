// Package primes provides the precomputed prime set used by the
// prime-indicator input. Sets are either loaded from a whitespace separated
// integer file or generated up to a bound with a prime sieve.
package primes

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jbarham/primegen"
)

// Set is an immutable set of primes. It satisfies sequence.PrimeSet.
type Set struct {
	members map[int]struct{}
	max     int
	bound   int // membership is exact for every n <= bound
}

// NewSet builds a Set from the given values, assuming they list every prime
// up to their largest value.
func NewSet(values []int) *Set {
	s := &Set{members: make(map[int]struct{}, len(values))}
	for _, v := range values {
		s.add(v)
	}
	s.bound = boundAfter(s.max)
	return s
}

// boundAfter returns the largest n for which a complete list of primes
// ending at largest is still complete: one less than the next prime.
func boundAfter(largest int) int {
	if largest < 2 {
		return 1
	}
	pg := primegen.New()
	pg.SkipTo(uint64(largest) + 1)
	return int(pg.Peek()) - 1
}

func (s *Set) add(v int) {
	s.members[v] = struct{}{}
	if v > s.max {
		s.max = v
	}
}

// Contains reports whether n is in the set.
func (s *Set) Contains(n int) bool {
	_, ok := s.members[n]
	return ok
}

// Len returns the number of primes in the set.
func (s *Set) Len() int {
	return len(s.members)
}

// Max returns the largest value in the set, or 0 for an empty set.
func (s *Set) Max() int {
	return s.max
}

// Bound returns the largest integer for which Contains is exact.
func (s *Set) Bound() int {
	return s.bound
}

// Covers reports whether the set can answer membership for every integer
// up to limit. A set read from a file is assumed to list every prime up to
// its largest element, and so is also exact up to the next prime.
func (s *Set) Covers(limit int) bool {
	return limit <= s.bound || limit < 2
}

// Generate returns every prime p with p <= limit.
func Generate(limit int) *Set {
	s := &Set{members: make(map[int]struct{}), bound: 1}
	if limit < 2 {
		return s
	}
	pg := primegen.New()
	for {
		p := pg.Next()
		if p > uint64(limit) {
			// Nothing is missing below the first prime past limit.
			s.bound = int(p) - 1
			return s
		}
		s.add(int(p))
	}
}

// Load reads a prime set from path.
func Load(path string) (*Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening primes file: %w", err)
	}
	defer f.Close()

	s, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return s, nil
}

// Read parses whitespace separated integers from r.
func Read(r io.Reader) (*Set, error) {
	s := &Set{members: make(map[int]struct{})}
	scanner := bufio.NewScanner(r)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		v, err := strconv.Atoi(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", scanner.Text(), err)
		}
		s.add(v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning: %w", err)
	}
	s.bound = boundAfter(s.max)
	return s, nil
}

// Write streams every prime p <= limit to w, one per line, and returns the
// number written.
func Write(w io.Writer, limit int) (int, error) {
	bw := bufio.NewWriter(w)
	count := 0
	if limit >= 2 {
		pg := primegen.New()
		for p := pg.Next(); p <= uint64(limit); p = pg.Next() {
			if _, err := bw.WriteString(strconv.FormatUint(p, 10)); err != nil {
				return count, fmt.Errorf("writing prime: %w", err)
			}
			if err := bw.WriteByte('\n'); err != nil {
				return count, fmt.Errorf("writing prime: %w", err)
			}
			count++
		}
	}
	if err := bw.Flush(); err != nil {
		return count, fmt.Errorf("flushing primes: %w", err)
	}
	return count, nil
}

// Resolve loads path when it is set and otherwise generates primes up to
// limit. It fails when a loaded file does not reach limit.
func Resolve(path string, limit int) (*Set, error) {
	if path == "" {
		return Generate(limit), nil
	}
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	if !s.Covers(limit) {
		return nil, fmt.Errorf("primes file %s covers integers up to %d, need %d", path, s.Bound(), limit)
	}
	return s, nil
}
