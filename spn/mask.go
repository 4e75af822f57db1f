package spn

import (
	"strconv"
	"strings"

	ie "github.com/sahib/dca/errors"
)

// Mask marks the S-boxes of a round that an attack looks at.
type Mask []bool

// NewMask builds a mask of `sboxes` entries where `active` are set.
func NewMask(sboxes int, active ...int) (Mask, error) {
	mask := make(Mask, sboxes)
	for _, idx := range active {
		if idx < 0 || idx >= sboxes {
			return nil, ie.Configurationf("s-box index %d out of range [0, %d)", idx, sboxes)
		}

		if mask[idx] {
			return nil, ie.Configurationf("s-box index %d given twice", idx)
		}

		mask[idx] = true
	}

	return mask, nil
}

// ParseMask parses a comma separated list of S-box indices like "0,2".
func ParseMask(raw string, sboxes int) (Mask, error) {
	active := []int{}
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		idx, err := strconv.Atoi(field)
		if err != nil {
			return nil, ie.Configurationf("bad s-box index `%s` in mask `%s`", field, raw)
		}

		active = append(active, idx)
	}

	return NewMask(sboxes, active...)
}

// Active returns the number of set entries.
func (m Mask) Active() int {
	n := 0
	for _, isActive := range m {
		if isActive {
			n++
		}
	}

	return n
}

// Indices returns the set entries in ascending order.
func (m Mask) Indices() []int {
	indices := []int{}
	for idx, isActive := range m {
		if isActive {
			indices = append(indices, idx)
		}
	}

	return indices
}

func (m Mask) String() string {
	parts := []string{}
	for _, idx := range m.Indices() {
		parts = append(parts, strconv.Itoa(idx))
	}

	return "{" + strings.Join(parts, ",") + "}"
}

// LoopBorder is the number of values that fit into the active sub-blocks.
func (m Mask) LoopBorder() int {
	return 1 << uint(SubBlockWidth*m.Active())
}

// GenerateValue scatters the bits of `data` into the active sub-blocks:
// the lowest nibble of `data` lands in the lowest active sub-block and so on.
func (m Mask) GenerateValue(data int) Block {
	out := Block(0)
	pos := uint(0)
	for idx, isActive := range m {
		if !isActive {
			continue
		}

		nibble := Block(data>>(SubBlockWidth*pos)) & (SBoxSize - 1)
		out |= nibble << uint(SubBlockWidth*idx)
		pos++
	}

	return out
}

// Covers reports whether every active sub-block of `x` is non-zero.
func (m Mask) Covers(x Block) bool {
	for idx, isActive := range m {
		if isActive && (x>>uint(SubBlockWidth*idx))&(SBoxSize-1) == 0 {
			return false
		}
	}

	return true
}

// ValidateGroups checks that `groups` are non-empty and partition all S-boxes.
func ValidateGroups(groups []Mask, sboxes int) error {
	if len(groups) == 0 {
		return ie.Configurationf("need at least one s-box group")
	}

	seen := make([]bool, sboxes)
	for _, group := range groups {
		if len(group) != sboxes {
			return ie.Configurationf("group %s has %d entries, want %d", group, len(group), sboxes)
		}

		if group.Active() == 0 {
			return ie.Configurationf("empty s-box group")
		}

		for _, idx := range group.Indices() {
			if seen[idx] {
				return ie.Configurationf("s-box %d is part of more than one group", idx)
			}

			seen[idx] = true
		}
	}

	for idx, isSeen := range seen {
		if !isSeen {
			return ie.Configurationf("s-box %d is not covered by any group", idx)
		}
	}

	return nil
}

// DefaultGroups splits the S-boxes into even and odd indices.
func DefaultGroups(sboxes int) []Mask {
	even, odd := make(Mask, sboxes), make(Mask, sboxes)
	for idx := 0; idx < sboxes; idx++ {
		if idx%2 == 0 {
			even[idx] = true
		} else {
			odd[idx] = true
		}
	}

	if sboxes == 1 {
		return []Mask{even}
	}

	return []Mask{even, odd}
}
