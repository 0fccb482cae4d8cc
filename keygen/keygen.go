// Copyright IBM Corp. 2014, 2025
// SPDX-License-Identifier: MPL-2.0

// Package keygen creates the RSA key pair used to sign application updates and
// encodes it in the formats the updater expects: PKCS#8 for the private key
// and SubjectPublicKeyInfo for the public key, both PEM armored.
package keygen

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"

	"golang.org/x/crypto/ssh"
)

const (
	// KeyBits is the modulus size of every generated key.
	KeyBits = 2048

	// PublicExponent is the RSA public exponent of every generated key.
	PublicExponent = 65537

	// PEM block types.
	PrivateKeyBlockType = "PRIVATE KEY"
	PublicKeyBlockType  = "PUBLIC KEY"
)

// KeyPair is a freshly generated RSA private key and its public half.
type KeyPair struct {
	private *rsa.PrivateKey
}

// Generate creates a new key pair reading entropy from random. Failures are
// reported as a *BackendError since they can only come from the random source
// or the RSA primitive itself.
func Generate(random io.Reader) (*KeyPair, error) {
	key, err := rsa.GenerateKey(random, KeyBits)
	if err != nil {
		return nil, &BackendError{Op: "generate", Err: err}
	}

	if err := key.Validate(); err != nil {
		return nil, &BackendError{Op: "validate", Err: err}
	}
	if key.E != PublicExponent {
		return nil, &BackendError{Op: "validate",
			Err: fmt.Errorf("unexpected public exponent %d", key.E)}
	}
	if l := key.N.BitLen(); l != KeyBits {
		return nil, &BackendError{Op: "validate",
			Err: fmt.Errorf("unexpected modulus size %d", l)}
	}

	return &KeyPair{private: key}, nil
}

// PrivateKey returns the underlying private key.
func (k *KeyPair) PrivateKey() *rsa.PrivateKey {
	return k.private
}

// PublicKey returns the public half of the pair.
func (k *KeyPair) PublicKey() *rsa.PublicKey {
	return &k.private.PublicKey
}

// PrivatePEM returns the private key as unencrypted PKCS#8 in a PEM block.
func (k *KeyPair) PrivatePEM() ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(k.private)
	if err != nil {
		return nil, fmt.Errorf("keygen: marshal private key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{
		Type:  PrivateKeyBlockType,
		Bytes: der,
	}), nil
}

// PublicPEM returns the public key as SubjectPublicKeyInfo in a PEM block.
func (k *KeyPair) PublicPEM() ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(k.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("keygen: marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{
		Type:  PublicKeyBlockType,
		Bytes: der,
	}), nil
}

// Fingerprint returns the SHA256 fingerprint of the public key in the form
// OpenSSH prints it, e.g. "SHA256:2mzJ...".
func (k *KeyPair) Fingerprint() (string, error) {
	pub, err := ssh.NewPublicKey(k.PublicKey())
	if err != nil {
		return "", fmt.Errorf("keygen: fingerprint: %w", err)
	}
	return ssh.FingerprintSHA256(pub), nil
}
