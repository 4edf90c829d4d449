// Package counter implements the Protocol B message nonce.
//
// The nonce is a 32-bit big-endian counter sent in clear as eight uppercase
// hex characters. It starts Unseeded; the handshake response seeds it exactly
// once, and every outgoing message advances it by one, wrapping at 2^32.
package counter
