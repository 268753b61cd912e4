// Package adaptive wraps the AEAD ciphers dblite encrypts snapshots with.
//
// AES-GCM is chosen where the CPU accelerates AES (amd64, arm64) and
// ChaCha20-Poly1305 elsewhere. Ciphertexts carry their random nonce as a
// prefix, so Decrypt needs only the key and the associated data.
package adaptive
