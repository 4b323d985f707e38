// Package model holds the wire-agnostic data types replayed transactions
// are built from: addresses, objects, packages, transactions, and effects.
package model

import (
	"encoding/hex"
	"encoding/json"
	"strings"
)

// AddressLength is the canonical byte width of every on-chain identifier:
// account addresses, object ids, and package ids all share it.
const AddressLength = 32

// Address is a 32-byte identifier. Equality is always byte-wise; short hex
// forms such as "0x2" must be left-zero-padded before comparison, which
// ParseAddress does for every caller so no padded/unpadded pair ever
// compares unequal by accident.
type Address [AddressLength]byte

// ObjectID and PackageID alias Address: they share its encoding and
// padding rules but are kept distinct for readability at call sites.
type (
	ObjectID  = Address
	PackageID = Address
)

// Digest identifies a transaction or an object's content by hash. It is the
// same width as Address but a distinct type; ParseDigest accepts the same
// hex forms as ParseAddress, including left-padding a short form.
type Digest [AddressLength]byte

// ParseAddress decodes a hex string (with or without "0x") into an Address,
// left-zero-padding short forms like "0x2" to the canonical width.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "0X")
	if len(s)%2 != 0 {
		s = "0" + s
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, err
	}
	if len(raw) > AddressLength {
		return Address{}, errTooLong(len(raw))
	}
	var a Address
	copy(a[AddressLength-len(raw):], raw)
	return a, nil
}

func errTooLong(n int) error {
	return &addressLengthError{n}
}

type addressLengthError struct{ got int }

func (e *addressLengthError) Error() string {
	return "model: address exceeds 32 bytes"
}

// Hex renders the address in canonical, left-zero-padded lowercase hex with
// a "0x" prefix. Every externally exposed address uses this form.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) String() string { return a.Hex() }

// IsZero reports whether the address is the all-zero value.
func (a Address) IsZero() bool {
	return a == Address{}
}

func ParseDigest(s string) (Digest, error) {
	a, err := ParseAddress(s)
	if err != nil {
		return Digest{}, err
	}
	return Digest(a), nil
}

func (d Digest) Hex() string    { return Address(d).Hex() }
func (d Digest) String() string { return d.Hex() }

// MarshalText/UnmarshalText let Address be used as a JSON map key
// (encoding/json only accepts non-string map keys when the key type
// implements encoding.TextMarshaler), which the bundle package's
// structured-text form relies on for SharedObjectInputVersions and
// similar id-keyed maps.
func (a Address) MarshalText() ([]byte, error) { return []byte(a.Hex()), nil }

func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func (d Digest) MarshalText() ([]byte, error) { return []byte(d.Hex()), nil }

func (d *Digest) UnmarshalText(text []byte) error {
	parsed, err := ParseDigest(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON renders an Address as its canonical hex string, used by the
// bundle package's structured-text export form so ids are human-diffable
// instead of a raw byte array.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Hex())
}

// UnmarshalJSON parses the canonical hex string form back into an Address.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalJSON renders a Digest as its canonical hex string.
func (d Digest) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Hex())
}

// UnmarshalJSON parses the canonical hex string form back into a Digest.
func (d *Digest) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDigest(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
