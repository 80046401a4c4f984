package globset

import "sort"

// literalScanner decides which glob-bucket patterns could possibly match
// a path by scanning the path for their literal fragments. Fragments live
// in a double-array trie; the scan runs a common-prefix query from every
// byte offset, so cost is O(len(path) * longest fragment) and patterns
// whose fragment never occurs are skipped without running the matcher.
type literalScanner struct {
	trie  *doubleArray
	slots [][]int // fragment slot -> glob bucket positions
}

func newLiteralScanner(frags map[string][]int) (*literalScanner, error) {
	keys := make([]string, 0, len(frags))
	for k := range frags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	slots := make([][]int, len(keys))
	values := make([]uint32, len(keys))
	for i, k := range keys {
		slots[i] = frags[k]
		values[i] = uint32(i)
	}
	trie, err := buildDoubleArray(keys, values)
	if err != nil {
		return nil, err
	}
	return &literalScanner{trie: trie, slots: slots}, nil
}

// candidates marks the bucket position of every pattern whose literal
// fragment occurs somewhere in path.
func (s *literalScanner) candidates(path string, mark []bool) {
	for i := range path {
		s.trie.commonPrefix(path[i:], func(_ int, v uint32) bool {
			for _, pos := range s.slots[v] {
				mark[pos] = true
			}
			return true
		})
	}
}
