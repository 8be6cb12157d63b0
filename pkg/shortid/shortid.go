// Package shortid generates the short human-shareable codes printed on
// raffle links and receipts.
package shortid

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet excludes lowercase to keep codes legible when read aloud.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length of 5 gives ~60M combinations; collisions are handled by the
// caller retrying against the uniqueness constraint.
const Length = 5

// New returns a fresh short code.
func New() (string, error) {
	return gonanoid.Generate(Alphabet, Length)
}
