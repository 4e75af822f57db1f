package spn

// Subkeys is an immutable snapshot of recovered round keys, ordered from
// the outermost key (the last whitening key) inwards. The zero value is
// an empty snapshot.
type Subkeys struct {
	keys []Block
}

// NewSubkeys creates a snapshot from `keys`, outermost key first.
func NewSubkeys(keys ...Block) Subkeys {
	return Subkeys{keys: append([]Block(nil), keys...)}
}

// With returns a new snapshot that has `key` appended as the next inner key.
func (sk Subkeys) With(key Block) Subkeys {
	keys := make([]Block, len(sk.keys), len(sk.keys)+1)
	copy(keys, sk.keys)
	return Subkeys{keys: append(keys, key)}
}

// Len returns the number of keys in the snapshot.
func (sk Subkeys) Len() int { return len(sk.keys) }

// At returns the i-th key, counted from the outside.
func (sk Subkeys) At(i int) Block { return sk.keys[i] }

// Slice returns a copy of the keys, outermost first.
func (sk Subkeys) Slice() []Block {
	return append([]Block(nil), sk.keys...)
}

// Index returns the cipher subkey index (1-based, R+1 being the last
// whitening key) of the i-th key in the snapshot.
func (s *Shape) Index(i int) int {
	return s.Subkeys() - i
}

// Peel undoes the key mix of subkey `index` and the layers that follow it:
// the last key is simply removed, the one before it also needs the final
// substitution reversed, and every other key sits behind a full round.
func (s *Shape) Peel(x Block, index int, key Block) Block {
	switch {
	case index == s.Subkeys():
		return x ^ key
	case index == s.rounds:
		return s.ReverseSubstitution(x) ^ key
	default:
		return s.ReverseSubstitution(s.ReversePermutation(x)) ^ key
	}
}

// SBoxInput maps the state right after peeling subkey `index` back to
// the input of the substitution layer in front of it.
func (s *Shape) SBoxInput(x Block, index int) Block {
	if index == s.Subkeys() {
		return s.ReverseSubstitution(x)
	}

	return s.ReverseSubstitution(s.ReversePermutation(x))
}

// PartialDecrypt peels every key in `known`, outermost first.
func (s *Shape) PartialDecrypt(x Block, known Subkeys) Block {
	for idx, key := range known.keys {
		x = s.Peel(x, s.Index(idx), key)
	}

	return x
}
