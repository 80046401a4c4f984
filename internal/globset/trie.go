package globset

import "errors"

// doubleArray is a static double-array trie over byte-string keys. Each
// node is one 32-bit unit and a child transition is two array reads, so
// exact-match and common-prefix queries run in O(len(key)) without
// allocating.
//
// Unit layout: bits 0-7 incoming label, bit 8 leaf-child flag, bit 9
// offset extension flag, bits 10-30 offset, bit 31 value marker. A node's
// offset is stored XORed with its own position, and the child for byte c
// sits at offset^c; the child for the reserved NUL label holds the value
// of the key ending at that node.
type doubleArray struct {
	units []uint32
}

const (
	daBlockSize   = 256
	daExtraBlocks = 16
	daNumExtras   = daBlockSize * daExtraBlocks

	daOffsetMax = 1 << 29
	daHasLeaf   = 1 << 8
	daExtension = 1 << 9
	daLeafBit   = 1 << 31
)

func daLabel(u uint32) uint32      { return u & (daLeafBit | 0xFF) }
func daOffset(u uint32) uint32     { return (u >> 10) << ((u & daExtension) >> 6) }
func daHasLeafChild(u uint32) bool { return u&daHasLeaf != 0 }
func daValue(u uint32) uint32      { return u &^ daLeafBit }

// exactMatch returns the value stored for key.
func (d *doubleArray) exactMatch(key string) (uint32, bool) {
	pos := uint32(0)
	unit := d.units[0]
	for i := 0; i < len(key); i++ {
		c := uint32(key[i])
		pos = pos ^ daOffset(unit) ^ c
		unit = d.units[pos]
		if daLabel(unit) != c {
			return 0, false
		}
	}
	if !daHasLeafChild(unit) {
		return 0, false
	}
	return daValue(d.units[pos^daOffset(unit)]), true
}

// commonPrefix invokes fn for every stored key that is a prefix of key,
// passing the prefix length and the stored value. Returning false from fn
// stops the walk.
func (d *doubleArray) commonPrefix(key string, fn func(n int, value uint32) bool) {
	pos := uint32(0)
	unit := d.units[0]
	pos ^= daOffset(unit)
	for i := 0; i < len(key); i++ {
		c := uint32(key[i])
		pos ^= c
		unit = d.units[pos]
		if daLabel(unit) != c {
			return
		}
		pos ^= daOffset(unit)
		if daHasLeafChild(unit) {
			if !fn(i+1, daValue(d.units[pos])) {
				return
			}
		}
	}
}

// daBuilder lays out units for a sorted key set. The pool grows in
// 256-unit blocks; a circular doubly-linked free list over the newest 16
// blocks drives offset search, and older blocks are frozen as building
// moves past them.
type daBuilder struct {
	units  []uint32
	extras []daExtra
	head   int // first unused unit, -1 when the free list is empty
	labels []uint32
}

type daExtra struct {
	prev, next      int
	isFixed, isUsed bool
}

var (
	errKeyOrder      = errors.New("double-array keys out of order")
	errKeyNul        = errors.New("double-array key contains NUL byte")
	errOffsetRange   = errors.New("double-array offset out of range")
	errValueOverflow = errors.New("double-array value exceeds 31 bits")
)

// buildDoubleArray constructs a trie from keys sorted in ascending byte
// order. Duplicate keys keep the first value.
func buildDoubleArray(keys []string, values []uint32) (*doubleArray, error) {
	b := &daBuilder{head: -1, extras: make([]daExtra, daNumExtras)}
	b.expand()
	b.reserve(0)
	b.extra(0).isUsed = true
	if err := b.setOffset(0, 1); err != nil {
		return nil, err
	}
	if len(keys) > 0 {
		if err := b.build(keys, values, 0, len(keys), 0, 0); err != nil {
			return nil, err
		}
	}
	b.fixAll()
	return &doubleArray{units: b.units}, nil
}

func (b *daBuilder) extra(id int) *daExtra { return &b.extras[id%daNumExtras] }

func (b *daBuilder) setOffset(id int, rel uint32) error {
	if rel >= daOffsetMax {
		return errOffsetRange
	}
	u := b.units[id] & (daLeafBit | daHasLeaf | 0xFF)
	if rel < 1<<21 {
		u |= rel << 10
	} else {
		u |= rel<<2 | daExtension
	}
	b.units[id] = u
	return nil
}

func (b *daBuilder) setLabel(id int, label uint32) {
	b.units[id] = b.units[id]&^uint32(0xFF) | label&0xFF
}

// build recurses over the key range sharing a prefix of length depth,
// rooted at unit id.
func (b *daBuilder) build(keys []string, values []uint32, begin, end, depth, id int) error {
	offset, err := b.arrange(keys, values, begin, end, depth, id)
	if err != nil {
		return err
	}
	for begin < end && len(keys[begin]) == depth {
		begin++
	}
	if begin == end {
		return nil
	}
	lastBegin := begin
	lastLabel := keys[begin][depth]
	for begin++; begin < end; begin++ {
		if label := keys[begin][depth]; label != lastLabel {
			if err := b.build(keys, values, lastBegin, begin, depth+1, offset^int(lastLabel)); err != nil {
				return err
			}
			lastBegin = begin
			lastLabel = label
		}
	}
	return b.build(keys, values, lastBegin, end, depth+1, offset^int(lastLabel))
}

// arrange places the children of unit id (the distinct labels of the key
// range at the given depth) and returns the chosen offset.
func (b *daBuilder) arrange(keys []string, values []uint32, begin, end, depth, id int) (int, error) {
	b.labels = b.labels[:0]
	value := uint32(0)
	haveValue := false
	for i := begin; i < end; i++ {
		var label uint32
		if len(keys[i]) > depth {
			label = uint32(keys[i][depth])
			if label == 0 {
				return 0, errKeyNul
			}
		} else if !haveValue {
			if values[i] >= daLeafBit {
				return 0, errValueOverflow
			}
			value = values[i]
			haveValue = true
		}
		if n := len(b.labels); n == 0 || label != b.labels[n-1] {
			if n > 0 && label < b.labels[n-1] {
				return 0, errKeyOrder
			}
			b.labels = append(b.labels, label)
		}
	}
	offset := b.findOffset(id)
	if err := b.setOffset(id, uint32(id^offset)); err != nil {
		return 0, err
	}
	for _, label := range b.labels {
		child := offset ^ int(label)
		b.reserve(child)
		if label == 0 {
			b.units[id] |= daHasLeaf
			b.units[child] = value | daLeafBit
		} else {
			b.setLabel(child, label)
		}
	}
	b.extra(offset).isUsed = true
	return offset, nil
}

// findOffset walks the free list for an offset placing every pending
// label on an unfixed unit, falling back to a fresh block.
func (b *daBuilder) findOffset(id int) int {
	if b.head >= 0 {
		unused := b.head
		for {
			offset := unused ^ int(b.labels[0])
			if b.validOffset(id, offset) {
				return offset
			}
			unused = b.extra(unused).next
			if unused == b.head {
				break
			}
		}
	}
	return len(b.units) | (id & 0xFF)
}

func (b *daBuilder) validOffset(id, offset int) bool {
	if b.extra(offset).isUsed {
		return false
	}
	// the relative offset must fit the unit's offset field
	if rel := id ^ offset; rel&0xFF != 0 && rel&(0xFF<<21) != 0 {
		return false
	}
	for _, label := range b.labels[1:] {
		if b.extra(offset^int(label)).isFixed {
			return false
		}
	}
	return true
}

// reserve takes unit id out of the free list.
func (b *daBuilder) reserve(id int) {
	if id >= len(b.units) {
		b.expand()
	}
	if id == b.head {
		b.head = b.extra(id).next
		if b.head == id {
			b.head = -1
		}
	}
	b.extra(b.extra(id).prev).next = b.extra(id).next
	b.extra(b.extra(id).next).prev = b.extra(id).prev
	b.extra(id).isFixed = true
}

// expand appends one block of units and links it into the free list,
// freezing the block that falls out of the live window.
func (b *daBuilder) expand() {
	src := len(b.units)
	dest := src + daBlockSize
	if dest/daBlockSize > daExtraBlocks {
		b.fixBlock(src/daBlockSize - daExtraBlocks)
	}
	b.units = append(b.units, make([]uint32, daBlockSize)...)
	if dest/daBlockSize > daExtraBlocks {
		for id := src; id < dest; id++ {
			e := b.extra(id)
			e.isFixed = false
			e.isUsed = false
		}
	}
	for id := src + 1; id < dest; id++ {
		b.extra(id - 1).next = id
		b.extra(id).prev = id - 1
	}
	b.extra(src).prev = dest - 1
	b.extra(dest - 1).next = src
	if b.head >= 0 {
		tail := b.extra(b.head).prev
		b.extra(src).prev = tail
		b.extra(dest - 1).next = b.head
		b.extra(tail).next = src
		b.extra(b.head).prev = dest - 1
	} else {
		b.head = src
	}
}

// fixBlock freezes every unit of a block, giving never-reserved units a
// poison label so stray transitions cannot land on them.
func (b *daBuilder) fixBlock(blockID int) {
	begin := blockID * daBlockSize
	end := begin + daBlockSize
	unusedOffset := 0
	for offset := begin; offset < end; offset++ {
		if !b.extra(offset).isUsed {
			unusedOffset = offset
			break
		}
	}
	for id := begin; id < end; id++ {
		if !b.extra(id).isFixed {
			b.reserve(id)
			b.setLabel(id, uint32(id^unusedOffset))
		}
	}
}

func (b *daBuilder) fixAll() {
	blocks := len(b.units) / daBlockSize
	begin := 0
	if blocks > daExtraBlocks {
		begin = blocks - daExtraBlocks
	}
	for blockID := begin; blockID < blocks; blockID++ {
		b.fixBlock(blockID)
	}
}
