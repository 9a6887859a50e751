package session

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// ErrTampered reports a persisted blob whose MAC does not match.
var ErrTampered = errors.New("session: blob failed integrity check")

// Codec serialises records as base64(JSON) "." base64(BLAKE2b-256 keyed MAC).
// The MAC detects corruption and casual edits; it is not authentication.
type Codec struct {
	key []byte
}

// NewCodec derives a 32-byte MAC key from secret.
func NewCodec(secret string) Codec {
	sum := blake2b.Sum256([]byte(secret))
	return Codec{key: sum[:]}
}

// Encode produces the persisted blob for r.
func (c Codec) Encode(r Record) (string, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("session: encode: %w", err)
	}
	mac, err := c.mac(payload)
	if err != nil {
		return "", err
	}
	enc := base64.RawURLEncoding
	return enc.EncodeToString(payload) + "." + enc.EncodeToString(mac), nil
}

// Decode verifies and parses a blob produced by Encode.
func (c Codec) Decode(blob string) (Record, error) {
	body, sig, ok := strings.Cut(strings.TrimSpace(blob), ".")
	if !ok {
		return Record{}, ErrTampered
	}
	enc := base64.RawURLEncoding
	payload, err := enc.DecodeString(body)
	if err != nil {
		return Record{}, ErrTampered
	}
	got, err := enc.DecodeString(sig)
	if err != nil {
		return Record{}, ErrTampered
	}
	want, err := c.mac(payload)
	if err != nil {
		return Record{}, err
	}
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return Record{}, ErrTampered
	}
	var r Record
	if err := json.Unmarshal(payload, &r); err != nil {
		return Record{}, fmt.Errorf("session: decode: %w", err)
	}
	return r, nil
}

func (c Codec) mac(payload []byte) ([]byte, error) {
	h, err := blake2b.New256(c.key)
	if err != nil {
		return nil, fmt.Errorf("session: mac: %w", err)
	}
	h.Write(payload)
	return h.Sum(nil), nil
}
