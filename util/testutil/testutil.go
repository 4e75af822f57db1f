package testutil

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/sahib/dca/spn"
)

// HeysKeys is the key schedule k1..k5 used by most end to end tests.
var HeysKeys = []spn.Block{0x1234, 0xABCD, 0x5678, 0x9ABC, 0xDEF0}

// TempDir creates a temporary directory with the prefix "dca-" and fails
// the test if that is not possible. Remove it with Remover.
func TempDir(t *testing.T) string {
	dir, err := ioutil.TempDir("", "dca-")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	return dir
}

// Remover removes all files in paths recursively and errors when it fails.
// It is no error if there's nothing to delete. It's useful in defer statements.
func Remover(t *testing.T, paths ...string) {
	for _, path := range paths {
		if err := os.RemoveAll(path); err != nil {
			t.Errorf("removing temp directory failed: %v", err)
		}
	}
}

// HeysCipher returns the 4 round tutorial cipher keyed with HeysKeys.
func HeysCipher(t *testing.T) *spn.Cipher {
	shape, err := spn.HeysShape(4)
	if err != nil {
		t.Fatalf("failed to build shape: %v", err)
	}

	cipher, err := spn.NewCipher(shape, HeysKeys)
	if err != nil {
		t.Fatalf("failed to build cipher: %v", err)
	}

	return cipher
}
