// Package globset compiles collections of glob patterns into a single
// matcher answering "which pattern matches this path?" in near-constant
// time for catalogs of hundreds of entries.
//
// Each pattern is classified once into the cheapest bucket able to serve
// it: exact literals and extensions become hash lookups, fixed prefixes
// and suffixes share two double-array tries, and only irregular patterns
// reach the backtracking glob matcher, shielded by a literal-fragment
// prefilter. When several patterns match the same path the one added
// first wins, so declaration order in a catalog is also match priority.
package globset

import (
	"fmt"
	"sort"
	"strings"
)

// Builder accumulates patterns for a Set. Patterns are validated as they
// are added; negated patterns (prefixed `!`) are dropped without
// consuming an index, so they can never produce a positive match.
type Builder struct {
	patterns []string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder { return &Builder{} }

// Add validates pattern and appends it to the set under the next index.
func (b *Builder) Add(pattern string) error {
	if strings.HasPrefix(pattern, "!") {
		return nil
	}
	if err := Validate(pattern); err != nil {
		return fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	b.patterns = append(b.patterns, pattern)
	return nil
}

// Len returns the number of patterns added so far.
func (b *Builder) Len() int { return len(b.patterns) }

// Build compiles the accumulated patterns into a Set.
func (b *Builder) Build() (*Set, error) {
	s := &Set{
		patterns: b.patterns,
		literals: make(map[string][]int),
		extAny:   make(map[string][]int),
		extLocal: make(map[string][]int),
	}
	fwdKeys := make(map[string]*prefixSlot)
	revKeys := make(map[string]*suffixSlot)
	frags := make(map[string][]int)

	for idx, pattern := range b.patterns {
		variants := expandBraces(pattern)
		classes := make([]classified, 0, len(variants))
		fast := true
		for _, v := range variants {
			c := classify(v)
			if c.strategy == strategyGlob {
				fast = false
				break
			}
			classes = append(classes, c)
		}
		if !fast {
			// one slow variant sends the whole pattern to the glob bucket
			g, err := Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
			}
			pos := len(s.globs)
			s.globs = append(s.globs, globEntry{index: idx, glob: g})
			if lit := longestLiteral(pattern); lit != "" {
				frags[lit] = append(frags[lit], pos)
			} else {
				s.always = append(s.always, pos)
			}
			continue
		}
		for _, c := range classes {
			switch c.strategy {
			case strategyLiteral:
				s.literals[c.literal] = append(s.literals[c.literal], idx)
			case strategyExtensionAny:
				s.extAny[c.literal] = append(s.extAny[c.literal], idx)
			case strategyExtensionLocal:
				s.extLocal[c.literal] = append(s.extLocal[c.literal], idx)
			case strategyPrefix:
				slot := slotFor(fwdKeys, c.literal)
				slot.pure = append(slot.pure, idx)
			case strategyPrefixSuffix:
				slot := slotFor(fwdKeys, c.literal)
				slot.verify = append(slot.verify, suffixVerify{suffix: c.verify, index: idx})
			case strategySuffix:
				// `**/name` matches name under any directory and bare
				nested := slotFor(revKeys, reverseString("/"+c.literal))
				nested.endsWith = append(nested.endsWith, idx)
				bare := slotFor(revKeys, reverseString(c.literal))
				bare.exact = append(bare.exact, idx)
			case strategyCompoundSuffix:
				slot := slotFor(revKeys, reverseString(c.literal))
				slot.endsWith = append(slot.endsWith, idx)
			}
		}
	}

	var err error
	if s.fwd, s.fwdSlots, err = buildSlotTrie(fwdKeys); err != nil {
		return nil, err
	}
	if s.rev, s.revSlots, err = buildSlotTrie(revKeys); err != nil {
		return nil, err
	}
	if len(frags) > 0 {
		if s.scanner, err = newLiteralScanner(frags); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Set is a compiled pattern set. Lookup cost depends only on the buckets
// a path can touch, not on the number of patterns.
type Set struct {
	patterns []string

	literals map[string][]int
	extAny   map[string][]int
	extLocal map[string][]int

	fwd      *doubleArray
	fwdSlots []prefixSlot
	rev      *doubleArray
	revSlots []suffixSlot

	globs   []globEntry
	always  []int // glob positions with no extractable literal
	scanner *literalScanner
}

type prefixSlot struct {
	pure   []int
	verify []suffixVerify
}

type suffixVerify struct {
	suffix string
	index  int
}

type suffixSlot struct {
	endsWith []int
	exact    []int
}

type globEntry struct {
	index int
	glob  *Glob
}

// Len returns the number of patterns in the set.
func (s *Set) Len() int { return len(s.patterns) }

// Pattern returns the source text of the pattern at index idx.
func (s *Set) Pattern(idx int) string { return s.patterns[idx] }

// Match reports whether any pattern matches path.
func (s *Set) Match(path string) bool {
	_, ok := s.Lookup(path)
	return ok
}

// Lookup returns the index of the first pattern matching path, in the
// order the patterns were added.
func (s *Set) Lookup(path string) (int, bool) {
	path = normalizePath(path)
	best := -1
	consider := func(idx int) {
		if best < 0 || idx < best {
			best = idx
		}
	}

	if idxs, ok := s.literals[path]; ok {
		consider(idxs[0])
	}
	if ext := extensionOf(path); ext != "" {
		if idxs, ok := s.extAny[ext]; ok {
			consider(idxs[0])
		}
		if idxs, ok := s.extLocal[ext]; ok && !strings.ContainsRune(path, '/') {
			consider(idxs[0])
		}
	}
	if s.fwd != nil {
		s.fwd.commonPrefix(path, func(n int, v uint32) bool {
			slot := &s.fwdSlots[v]
			if n < len(path) && len(slot.pure) > 0 {
				consider(slot.pure[0])
			}
			for i := range slot.verify {
				if strings.HasSuffix(path, slot.verify[i].suffix) {
					consider(slot.verify[i].index)
					break
				}
			}
			return true
		})
	}
	if s.rev != nil {
		s.rev.commonPrefix(reverseString(path), func(n int, v uint32) bool {
			slot := &s.revSlots[v]
			if len(slot.endsWith) > 0 {
				consider(slot.endsWith[0])
			}
			if n == len(path) && len(slot.exact) > 0 {
				consider(slot.exact[0])
			}
			return true
		})
	}
	if len(s.globs) > 0 {
		var mark []bool
		if s.scanner != nil {
			mark = make([]bool, len(s.globs))
			s.scanner.candidates(path, mark)
			for _, pos := range s.always {
				mark[pos] = true
			}
		}
		for pos := range s.globs {
			entry := &s.globs[pos]
			if best >= 0 && entry.index >= best {
				break // bucket is ordered, nothing better follows
			}
			if mark != nil && !mark[pos] {
				continue
			}
			if entry.glob.Match(path) {
				consider(entry.index)
				break
			}
		}
	}
	if best < 0 {
		return 0, false
	}
	return best, true
}

func slotFor[T any](m map[string]*T, key string) *T {
	if s, ok := m[key]; ok {
		return s
	}
	s := new(T)
	m[key] = s
	return s
}

func buildSlotTrie[T any](keys map[string]*T) (*doubleArray, []T, error) {
	if len(keys) == 0 {
		return nil, nil, nil
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)
	slots := make([]T, len(sorted))
	values := make([]uint32, len(sorted))
	for i, k := range sorted {
		slots[i] = *keys[k]
		values[i] = uint32(i)
	}
	trie, err := buildDoubleArray(sorted, values)
	if err != nil {
		return nil, nil, err
	}
	return trie, slots, nil
}

// MapBuilder accumulates pattern-to-value associations for a Map.
type MapBuilder[T any] struct {
	b    Builder
	vals []T
}

// NewMapBuilder returns an empty MapBuilder.
func NewMapBuilder[T any]() *MapBuilder[T] { return &MapBuilder[T]{} }

// Add validates pattern and associates it with value. Negated patterns
// are dropped along with their value.
func (mb *MapBuilder[T]) Add(pattern string, value T) error {
	n := mb.b.Len()
	if err := mb.b.Add(pattern); err != nil {
		return err
	}
	if mb.b.Len() > n {
		mb.vals = append(mb.vals, value)
	}
	return nil
}

// Len returns the number of associations added so far.
func (mb *MapBuilder[T]) Len() int { return mb.b.Len() }

// Build compiles the accumulated associations into a Map.
func (mb *MapBuilder[T]) Build() (*Map[T], error) {
	set, err := mb.b.Build()
	if err != nil {
		return nil, err
	}
	return &Map[T]{set: set, vals: mb.vals}, nil
}

// Map associates glob patterns with values; Get returns the value of the
// first matching pattern.
type Map[T any] struct {
	set  *Set
	vals []T
}

// Get returns the value associated with the first pattern matching path.
func (m *Map[T]) Get(path string) (T, bool) {
	if idx, ok := m.set.Lookup(path); ok {
		return m.vals[idx], true
	}
	var zero T
	return zero, false
}

// Len returns the number of associations in the map.
func (m *Map[T]) Len() int { return m.set.Len() }
