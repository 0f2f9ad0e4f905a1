package service

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const referenceLetters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewReference returns a booking reference of the form "ABC-123": three
// random uppercase letters and a number in 100..999. Uniqueness is left to
// the store's index; callers retry on collision.
func NewReference(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	var letters [3]byte
	for i := range letters {
		n, err := rand.Int(r, big.NewInt(int64(len(referenceLetters))))
		if err != nil {
			return "", err
		}
		letters[i] = referenceLetters[n.Int64()]
	}
	n, err := rand.Int(r, big.NewInt(900))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%03d", letters[:], n.Int64()+100), nil
}
