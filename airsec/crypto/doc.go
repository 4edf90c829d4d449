// Package crypto provides the cryptographic primitives for both appliance protocols.
//
// The schemes are fixed by device firmware and are reproduced bit for bit:
//   - Protocol A: finite-field Diffie-Hellman over a fixed 1024-bit group,
//     a wrapped AES-128 session key, and AES-CBC bodies under an all-zero IV
//   - Protocol B: per-message AES-128-CBC keys derived from MD5(salt || nonce),
//     with an unkeyed SHA-256 checksum over the envelope
//   - PKCS#7 padding, validated strictly on removal
//
// None of this is a general purpose secure transport. The all-zero IV and the
// unkeyed checksum are device quirks that must be preserved for compatibility.
package crypto
