package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefix for content-addressed identity. The version suffix enables
// future algorithm migration without colliding with old identities.
const domainRHS = "taylorize/rhs/v1"

// hashWithDomain computes SHA-256 with domain separation:
// SHA256(domain || 0x00 || data). The null separator prevents domain/data
// boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RHSIdentity computes the content-addressed identity of a right-hand-side
// expression: the registry key under which its specialization is stored.
//
// Identity covers the source text, the signature names, the state
// dimension, and the program format version: everything that shapes the
// compiled plan and programs. Parameter values are intentionally excluded;
// the same specialization serves every integration run regardless of
// parameter bindings.
func RHSIdentity(sig Signature, source string, dim int) (string, error) {
	obj := map[string]any{
		"ir":     IRVersion,
		"output": sig.Output,
		"state":  sig.State,
		"time":   sig.Time,
		"params": sig.Params,
		"source": source,
		"dim":    dim,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("RHSIdentity: failed to marshal: %w", err)
	}
	return hashWithDomain(domainRHS, canonical), nil
}

// MustRHSIdentity is like RHSIdentity but panics on error. Use only in
// tests or when inputs are known to be valid.
func MustRHSIdentity(sig Signature, source string, dim int) string {
	id, err := RHSIdentity(sig, source, dim)
	if err != nil {
		panic(err)
	}
	return id
}
