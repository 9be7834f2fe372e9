// Package auth holds the cryptographic building blocks of romvault sessions:
// the password Hasher and the token Codec that signs and verifies access and
// refresh tokens.
package auth
