// Package airsec implements the device-security layer for consumer air
// purifiers that speak one of two proprietary secured protocols.
//
// Protocol A runs a Diffie-Hellman exchange over plain HTTP and reads
// AES-CBC bodies under the resulting key. Protocol B syncs a nonce over CoAP
// and exchanges self-describing envelopes whose keys are derived per message.
// Every fetch negotiates from scratch; no key material outlives a call.
package airsec
