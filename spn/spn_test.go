package spn

import (
	"math/rand"
	"testing"

	ie "github.com/sahib/dca/errors"
	"github.com/stretchr/testify/require"
)

var heysKeys = []Block{0x1234, 0xABCD, 0x5678, 0x9ABC, 0xDEF0}

func heysShape(t *testing.T, rounds int) *Shape {
	shape, err := HeysShape(rounds)
	require.Nil(t, err)
	return shape
}

func TestRoundTrip(t *testing.T) {
	shape := heysShape(t, 4)
	for x := 0; x <= 0xFFFF; x++ {
		block := Block(x)
		require.Equal(t, block, shape.ReversePermutation(shape.ApplyPermutation(block)))
		require.Equal(t, block, shape.ReverseSubstitution(shape.ApplySubstitution(block)))
	}
}

func TestSubBlocks(t *testing.T) {
	shape := heysShape(t, 4)
	x := Block(0xABCD)

	require.Equal(t, Block(0xD), shape.SubBlock(x, 0))
	require.Equal(t, Block(0xC), shape.SubBlock(x, 1))
	require.Equal(t, Block(0xB), shape.SubBlock(x, 2))
	require.Equal(t, Block(0xA), shape.SubBlock(x, 3))

	merged := shape.MergeSubBlocks(
		shape.SubBlock(x, 3),
		shape.SubBlock(x, 2),
		shape.SubBlock(x, 1),
		shape.SubBlock(x, 0),
	)
	require.Equal(t, x, merged)
}

func TestKnownLayers(t *testing.T) {
	shape := heysShape(t, 4)

	// Every nibble goes through S[0] = 14.
	require.Equal(t, Block(0xEEEE), shape.ApplySubstitution(0x0000))
	require.Equal(t, Block(0x7777), shape.ApplySubstitution(0xFFFF))

	// The permutation is a transpose of the 4x4 bit matrix.
	require.Equal(t, Block(0x000F), shape.ApplyPermutation(0x1111))
	require.Equal(t, Block(0x1111), shape.ApplyPermutation(0x000F))
	require.Equal(t, Block(0x8000), shape.ApplyPermutation(0x8000))
}

func TestBadShapes(t *testing.T) {
	tcs := []struct {
		name   string
		rounds int
		sboxes int
		sbox   []int
		pbox   []int
	}{
		{"one-round", 1, 4, HeysSBox, HeysPBox},
		{"no-sboxes", 4, 0, HeysSBox, nil},
		{"too-many-sboxes", 4, 5, HeysSBox, HeysPBox},
		{"short-sbox", 4, 4, HeysSBox[:15], HeysPBox},
		{"duplicate-sbox", 4, 4, []int{0, 0, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}, HeysPBox},
		{"range-pbox", 4, 4, HeysSBox, []int{0, 4, 8, 12, 1, 5, 9, 13, 2, 6, 10, 14, 3, 7, 11, 16}},
		{"wrong-pbox-len", 4, 2, HeysSBox, HeysPBox},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewShape(tc.rounds, tc.sboxes, tc.sbox, tc.pbox)
			require.NotNil(t, err)
			require.True(t, ie.IsConfigurationError(err))
		})
	}
}

func TestSmallShape(t *testing.T) {
	shape, err := NewShape(3, 2, HeysSBox, []int{0, 4, 1, 5, 2, 6, 3, 7})
	require.Nil(t, err)
	require.Equal(t, 8, shape.Bits())
	require.Equal(t, Block(0xFF), shape.BlockMask())

	for x := 0; x <= 0xFF; x++ {
		block := Block(x)
		require.Equal(t, block, shape.ReversePermutation(shape.ApplyPermutation(block)))
		require.Equal(t, block, shape.ReverseSubstitution(shape.ApplySubstitution(block)))
		require.True(t, shape.ApplySubstitution(block) <= 0xFF)
	}
}

func TestMask(t *testing.T) {
	mask, err := ParseMask("0, 2", 4)
	require.Nil(t, err)
	require.Equal(t, Mask{true, false, true, false}, mask)
	require.Equal(t, 2, mask.Active())
	require.Equal(t, []int{0, 2}, mask.Indices())
	require.Equal(t, "{0,2}", mask.String())
	require.Equal(t, 256, mask.LoopBorder())

	require.Equal(t, Block(0x0000), mask.GenerateValue(0))
	require.Equal(t, Block(0x0001), mask.GenerateValue(0x01))
	require.Equal(t, Block(0x0100), mask.GenerateValue(0x10))
	require.Equal(t, Block(0x0B0A), mask.GenerateValue(0xBA))

	require.True(t, mask.Covers(0x0101))
	require.False(t, mask.Covers(0x0100))
	require.False(t, mask.Covers(0x1010))

	odd, err := NewMask(4, 1, 3)
	require.Nil(t, err)
	require.Equal(t, Block(0xB0A0), odd.GenerateValue(0xBA))

	_, err = ParseMask("0,x", 4)
	require.True(t, ie.IsConfigurationError(err))

	_, err = NewMask(4, 4)
	require.True(t, ie.IsConfigurationError(err))

	_, err = NewMask(4, 1, 1)
	require.True(t, ie.IsConfigurationError(err))
}

func TestGroups(t *testing.T) {
	groups := DefaultGroups(4)
	require.Len(t, groups, 2)
	require.Equal(t, "{0,2}", groups[0].String())
	require.Equal(t, "{1,3}", groups[1].String())
	require.Nil(t, ValidateGroups(groups, 4))

	require.Len(t, DefaultGroups(1), 1)
	require.Nil(t, ValidateGroups(DefaultGroups(1), 1))

	overlapping := []Mask{{true, true, false, false}, {false, true, true, true}}
	require.True(t, ie.IsConfigurationError(ValidateGroups(overlapping, 4)))

	missing := []Mask{{true, false, false, false}, {false, true, true, false}}
	require.True(t, ie.IsConfigurationError(ValidateGroups(missing, 4)))

	require.True(t, ie.IsConfigurationError(ValidateGroups(nil, 4)))
}

func TestSubkeysSnapshot(t *testing.T) {
	empty := Subkeys{}
	one := empty.With(0x1111)
	two := one.With(0x2222)

	require.Equal(t, 0, empty.Len())
	require.Equal(t, 1, one.Len())
	require.Equal(t, []Block{0x1111, 0x2222}, two.Slice())

	// Branching off the same snapshot must not affect the siblings.
	other := one.With(0x3333)
	require.Equal(t, Block(0x2222), two.At(1))
	require.Equal(t, Block(0x3333), other.At(1))

	slice := two.Slice()
	slice[0] = 0
	require.Equal(t, Block(0x1111), two.At(0))
}

func TestCipherRoundTrip(t *testing.T) {
	shape := heysShape(t, 4)
	cipher, err := NewCipher(shape, heysKeys)
	require.Nil(t, err)

	for x := 0; x <= 0xFFFF; x += 7 {
		require.Equal(t, Block(x), cipher.DecryptBlock(cipher.EncryptBlock(Block(x))))
	}

	_, err = NewCipher(shape, heysKeys[:4])
	require.True(t, ie.IsConfigurationError(err))
}

func TestPartialDecrypt(t *testing.T) {
	shape := heysShape(t, 4)
	cipher, err := NewCipher(shape, heysKeys)
	require.Nil(t, err)

	// The keys k5..k2 bring us to the input of the first substitution
	// layer; only the first key mix is left after that.
	known := NewSubkeys(heysKeys[4], heysKeys[3], heysKeys[2])
	rng := rand.New(rand.NewSource(23))

	for idx := 0; idx < 100; idx++ {
		plain := Block(rng.Intn(0x10000))
		state := shape.PartialDecrypt(cipher.EncryptBlock(plain), known)
		state = shape.Peel(state, 2, heysKeys[1])
		require.Equal(t, plain, shape.SBoxInput(state, 2)^heysKeys[0])

		full := shape.PartialDecrypt(cipher.EncryptBlock(plain), known.With(heysKeys[1]).With(heysKeys[0]))
		require.Equal(t, plain, full)
	}
}

func TestPeelStages(t *testing.T) {
	shape := heysShape(t, 4)
	cipher, err := NewCipher(shape, heysKeys)
	require.Nil(t, err)

	plain := Block(0x4242)

	// Forward, keeping the input of every substitution layer:
	inputs := []Block{}
	x := plain
	for round := 0; round < 3; round++ {
		inputs = append(inputs, x^heysKeys[round])
		x = shape.ApplyPermutation(shape.ApplySubstitution(x ^ heysKeys[round]))
	}
	inputs = append(inputs, x^heysKeys[3])

	c := cipher.EncryptBlock(plain)
	known := Subkeys{}
	for idx := 0; idx < 4; idx++ {
		index := shape.Index(idx)
		state := shape.Peel(shape.PartialDecrypt(c, known), index, heysKeys[index-1])
		require.Equal(t, inputs[index-2], shape.SBoxInput(state, index))
		known = known.With(heysKeys[index-1])
	}
}

func TestFormatBits(t *testing.T) {
	shape := heysShape(t, 4)
	require.Equal(t, "1101 1110 1111 0000", shape.FormatBits(0xDEF0))
}

func TestRandomSubkeys(t *testing.T) {
	shape, err := NewShape(3, 2, HeysSBox, []int{0, 4, 1, 5, 2, 6, 3, 7})
	require.Nil(t, err)

	keys := RandomSubkeys(shape, rand.New(rand.NewSource(1)))
	require.Len(t, keys, 4)
	for _, key := range keys {
		require.True(t, key <= 0xFF)
	}

	_, err = NewCipher(shape, []Block{0x100, 0, 0, 0})
	require.True(t, ie.IsConfigurationError(err))
}
