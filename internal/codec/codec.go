// Package codec renders binary payloads as text for JSON transport.
//
// The encoding is standard base64 with padding. Nothing here touches the
// network or storage, so the round-trip property can be checked in isolation.
package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var ErrMalformedPayload = errors.New("malformed payload")

func Encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// Decode rejects characters outside the standard alphabet, bad padding and
// non-zero trailing bits. Line breaks count as outside the alphabet.
func Decode(s string) ([]byte, error) {
	if strings.ContainsAny(s, "\r\n") {
		return nil, fmt.Errorf("%w: line break in input", ErrMalformedPayload)
	}
	b, err := base64.StdEncoding.Strict().DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if b == nil {
		b = []byte{}
	}
	return b, nil
}

// EncodedLen returns the length of Encode's output for n input bytes, for
// checking transport limits before encoding.
func EncodedLen(n int) int {
	return base64.StdEncoding.EncodedLen(n)
}

// DecodedLen returns the upper bound of Decode's output for an n-byte string.
func DecodedLen(n int) int {
	return base64.StdEncoding.DecodedLen(n)
}
