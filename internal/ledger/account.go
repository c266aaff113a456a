package ledger

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Principal is the raw byte form of a caller identity.
type Principal []byte

// AccountIdentifier is the 32 byte ledger address: a CRC32 checksum
// followed by a SHA-224 digest of the owning principal and subaccount.
type AccountIdentifier [32]byte

// Subaccount selects one of the accounts owned by a principal. The zero
// value is the default account.
type Subaccount [32]byte

// ErrInvalidPrincipal is returned for identity strings that are not a
// well formed principal.
var ErrInvalidPrincipal = errors.New("invalid principal")

var errInvalidAccountLength = errors.New("account identifier must be 32 bytes")

var principalEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// ParsePrincipal decodes the textual principal form (dash separated groups
// of lowercase base32) and checks its embedded CRC32.
func ParsePrincipal(text string) (Principal, error) {
	raw := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(text), "-", ""))
	if raw == "" {
		return nil, ErrInvalidPrincipal
	}
	decoded, err := principalEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrincipal, err)
	}
	if len(decoded) < 4 || len(decoded) > 4+29 {
		return nil, ErrInvalidPrincipal
	}
	sum, body := binary.BigEndian.Uint32(decoded[:4]), decoded[4:]
	if crc32.ChecksumIEEE(body) != sum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidPrincipal)
	}
	p := Principal(body)
	// Reject non canonical spellings so one identity has one text form.
	if p.String() != strings.ToLower(strings.TrimSpace(text)) {
		return nil, fmt.Errorf("%w: not canonical", ErrInvalidPrincipal)
	}
	return p, nil
}

// String renders the canonical textual form.
func (p Principal) String() string {
	buf := make([]byte, 4+len(p))
	binary.BigEndian.PutUint32(buf, crc32.ChecksumIEEE(p))
	copy(buf[4:], p)
	enc := strings.ToLower(principalEncoding.EncodeToString(buf))
	var b strings.Builder
	for i := 0; i < len(enc); i += 5 {
		if i > 0 {
			b.WriteByte('-')
		}
		end := i + 5
		if end > len(enc) {
			end = len(enc)
		}
		b.WriteString(enc[i:end])
	}
	return b.String()
}

// AccountOf derives the ledger address of a principal's subaccount. A nil
// subaccount means the default one.
func AccountOf(p Principal, sub *Subaccount) AccountIdentifier {
	var s Subaccount
	if sub != nil {
		s = *sub
	}
	h := sha256.New224()
	h.Write([]byte("\x0Aaccount-id"))
	h.Write(p)
	h.Write(s[:])
	digest := h.Sum(nil)

	var id AccountIdentifier
	binary.BigEndian.PutUint32(id[:4], crc32.ChecksumIEEE(digest))
	copy(id[4:], digest)
	return id
}

// AccountFromIdentity derives the default account of a textual principal.
func AccountFromIdentity(identity string) (AccountIdentifier, error) {
	p, err := ParsePrincipal(identity)
	if err != nil {
		return AccountIdentifier{}, err
	}
	return AccountOf(p, nil), nil
}

// Hex returns the lowercase hex form used by wallets.
func (a AccountIdentifier) Hex() string { return hex.EncodeToString(a[:]) }

// Bytes returns a copy of the identifier as a slice.
func (a AccountIdentifier) Bytes() []byte { return append([]byte(nil), a[:]...) }

// ParseAccountIdentifier decodes the hex form and validates its checksum.
func ParseAccountIdentifier(s string) (AccountIdentifier, error) {
	var id AccountIdentifier
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return id, fmt.Errorf("invalid account identifier: %w", err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("invalid account identifier: want %d bytes, got %d", len(id), len(raw))
	}
	copy(id[:], raw)
	if binary.BigEndian.Uint32(id[:4]) != crc32.ChecksumIEEE(id[4:]) {
		return id, errors.New("invalid account identifier: checksum mismatch")
	}
	return id, nil
}

// SameAddress compares two addresses through their BLAKE2b digests, so
// callers never depend on how the ledger chose to frame the bytes. Empty
// addresses never match.
func SameAddress(a, b []byte) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	da, db := blake2b.Sum256(a), blake2b.Sum256(b)
	return subtle.ConstantTimeCompare(da[:], db[:]) == 1
}
