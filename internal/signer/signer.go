// Package signer issues and checks masking receipts: a signed statement
// binding the hash of an input document to the hash of its masked output.
package signer

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrDigestMismatch means a document does not match the hash recorded in
	// the receipt.
	ErrDigestMismatch = errors.New("signer: document does not match receipt")
	// ErrBadSignature means the signature does not recover to the recorded
	// signer address.
	ErrBadSignature = errors.New("signer: signature does not match signer")
)

// Receipt records one masking run.
type Receipt struct {
	InputSHA256  string         `json:"input_sha256"`
	OutputSHA256 string         `json:"output_sha256"`
	Counts       map[string]int `json:"counts"`
	Timestamp    int64          `json:"timestamp"` // unix nanoseconds
	Signer       string         `json:"signer"`
	Signature    string         `json:"signature"` // base64 r||s||v
}

// Signer signs receipts with a secp256k1 key.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// New creates a Signer from a hex-encoded private key (0x prefix optional).
func New(hexKey string) (*Signer, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("signer: invalid hex key: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("signer: key must be 32 bytes, got %d", len(raw))
	}
	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("signer: %w", err)
	}
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// Address returns the hex address receipts are attributed to.
func (s *Signer) Address() string {
	return s.address.Hex()
}

// Sign builds and signs a receipt for a run that turned input into output.
func (s *Signer) Sign(input, output []byte, counts map[string]int) (*Receipt, error) {
	r := &Receipt{
		InputSHA256:  Digest(input),
		OutputSHA256: Digest(output),
		Counts:       maps.Clone(counts),
		Timestamp:    time.Now().UnixNano(),
		Signer:       s.Address(),
	}
	if r.Counts == nil {
		r.Counts = map[string]int{}
	}
	sig, err := crypto.Sign(r.hash(), s.key)
	if err != nil {
		return nil, fmt.Errorf("signer: sign: %w", err)
	}
	r.Signature = base64.StdEncoding.EncodeToString(sig)
	return r, nil
}

// Digest returns the hex SHA-256 of b.
func Digest(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Verify checks that output matches the receipt and that the signature was
// produced by the recorded signer. It returns the recovered address.
func Verify(r *Receipt, output []byte) (string, error) {
	if r == nil {
		return "", errors.New("signer: nil receipt")
	}
	if Digest(output) != r.OutputSHA256 {
		return "", ErrDigestMismatch
	}
	sig, err := base64.StdEncoding.DecodeString(r.Signature)
	if err != nil {
		return "", fmt.Errorf("signer: decode signature: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return "", fmt.Errorf("signer: signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}
	pub, err := crypto.SigToPub(r.hash(), sig)
	if err != nil {
		return "", fmt.Errorf("signer: recover: %w", err)
	}
	addr := crypto.PubkeyToAddress(*pub)
	if !common.IsHexAddress(r.Signer) || addr != common.HexToAddress(r.Signer) {
		return "", ErrBadSignature
	}
	return addr.Hex(), nil
}

// VerifyInput additionally checks that input is the document the receipt
// was issued for.
func VerifyInput(r *Receipt, input, output []byte) (string, error) {
	if r != nil && Digest(input) != r.InputSHA256 {
		return "", ErrDigestMismatch
	}
	return Verify(r, output)
}

// hash is Keccak-256 over a canonical line encoding of the signed fields.
// Counts are written in key order.
func (r *Receipt) hash() []byte {
	var b strings.Builder
	b.WriteString("identity-mask receipt v1\n")
	b.WriteString(r.InputSHA256)
	b.WriteByte('\n')
	b.WriteString(r.OutputSHA256)
	b.WriteByte('\n')
	for _, k := range slices.Sorted(maps.Keys(r.Counts)) {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strconv.Itoa(r.Counts[k]))
		b.WriteByte('\n')
	}
	b.WriteString(strconv.FormatInt(r.Timestamp, 10))
	b.WriteByte('\n')
	b.WriteString(r.Signer)
	return crypto.Keccak256([]byte(b.String()))
}
