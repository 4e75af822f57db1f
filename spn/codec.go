package spn

// SubBlock extracts the bits [4*idx, 4*idx+4) of `x`.
func (s *Shape) SubBlock(x Block, idx int) Block {
	return (x >> uint(SubBlockWidth*idx)) & (SBoxSize - 1)
}

// MergeSubBlocks is the inverse of SubBlock. The most significant
// sub-block comes first, so MergeSubBlocks(sb3, sb2, sb1, sb0) rebuilds
// a 16 bit block.
func (s *Shape) MergeSubBlocks(subs ...Block) Block {
	x := Block(0)
	for _, sub := range subs {
		x = (x << SubBlockWidth) | (sub & (SBoxSize - 1))
	}

	return x & s.BlockMask()
}

func (s *Shape) permute(x Block, table []uint) Block {
	out := Block(0)
	for idx, dst := range table {
		out |= ((x >> uint(idx)) & 1) << dst
	}

	return out
}

func (s *Shape) substitute(x Block, table *[SBoxSize]Block) Block {
	out := Block(0)
	for idx := 0; idx < s.sboxes; idx++ {
		shift := uint(SubBlockWidth * idx)
		out |= table[(x>>shift)&(SBoxSize-1)] << shift
	}

	return out
}

// ApplyPermutation moves bit i of `x` to bit pbox[i].
func (s *Shape) ApplyPermutation(x Block) Block {
	return s.permute(x, s.pbox)
}

// ReversePermutation undoes ApplyPermutation.
func (s *Shape) ReversePermutation(x Block) Block {
	return s.permute(x, s.pboxInv)
}

// ApplySubstitution runs every sub-block of `x` through the S-box.
func (s *Shape) ApplySubstitution(x Block) Block {
	return s.substitute(x, &s.sbox)
}

// ReverseSubstitution undoes ApplySubstitution.
func (s *Shape) ReverseSubstitution(x Block) Block {
	return s.substitute(x, &s.sboxInv)
}

// Substitute applies the S-box to a single 4 bit value.
func (s *Shape) Substitute(nibble Block) Block {
	return s.sbox[nibble&(SBoxSize-1)]
}
