package spn

import (
	"math/rand"

	ie "github.com/sahib/dca/errors"
)

// Encrypter is anything that can encrypt a single block with a key
// schedule unknown to the caller.
type Encrypter interface {
	EncryptBlock(plain Block) Block
}

// Cipher is a keyed toy SPN. Rounds 1..R-1 mix the key, substitute and
// permute. The last round mixes the key, substitutes and applies the
// final whitening key k[R+1].
type Cipher struct {
	shape *Shape
	keys  []Block
}

// NewCipher creates a cipher from `keys`, ordered k1..k[R+1].
func NewCipher(shape *Shape, keys []Block) (*Cipher, error) {
	if len(keys) != shape.Subkeys() {
		return nil, ie.Configurationf("need %d subkeys, got %d", shape.Subkeys(), len(keys))
	}

	for idx, key := range keys {
		if key&^shape.BlockMask() != 0 {
			return nil, ie.Configurationf("subkey %d (%#x) does not fit into %d bits", idx+1, key, shape.Bits())
		}
	}

	return &Cipher{
		shape: shape,
		keys:  append([]Block(nil), keys...),
	}, nil
}

// RandomSubkeys draws a fresh key schedule for `shape` from `rng`.
func RandomSubkeys(shape *Shape, rng *rand.Rand) []Block {
	keys := make([]Block, shape.Subkeys())
	for idx := range keys {
		keys[idx] = Block(rng.Intn(int(shape.BlockMask()) + 1))
	}

	return keys
}

// Shape returns the parameters of the cipher.
func (c *Cipher) Shape() *Shape { return c.shape }

// Subkeys returns a copy of the key schedule, k1 first.
func (c *Cipher) Subkeys() []Block {
	return append([]Block(nil), c.keys...)
}

// EncryptBlock encrypts a single block.
func (c *Cipher) EncryptBlock(plain Block) Block {
	s := c.shape
	x := plain & s.BlockMask()
	for round := 0; round < s.rounds-1; round++ {
		x = s.ApplyPermutation(s.ApplySubstitution(x ^ c.keys[round]))
	}

	x = s.ApplySubstitution(x ^ c.keys[s.rounds-1])
	return x ^ c.keys[s.rounds]
}

// DecryptBlock is the inverse of EncryptBlock.
func (c *Cipher) DecryptBlock(cipher Block) Block {
	return c.shape.PartialDecrypt(cipher&c.shape.BlockMask(), c.Outside())
}

// Outside returns the full key schedule as snapshot, outermost key first.
func (c *Cipher) Outside() Subkeys {
	keys := make([]Block, 0, len(c.keys))
	for idx := len(c.keys) - 1; idx >= 0; idx-- {
		keys = append(keys, c.keys[idx])
	}

	return Subkeys{keys: keys}
}
