// Copyright IBM Corp. 2014, 2025
// SPDX-License-Identifier: MPL-2.0

package keygen

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMismatchedPair is returned by VerifyPair when the two PEM documents do not
// describe the same key.
var ErrMismatchedPair = errors.New("private and public key do not match")

// VerifyPair parses both PEM documents the way an updater would and checks
// that they belong together: the public numbers must match and a token signed
// with the private key must verify with the public key.
func VerifyPair(privatePEM, publicPEM []byte) error {
	priv, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
	if err != nil {
		return fmt.Errorf("keygen: parse private key: %w", err)
	}
	pub, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
	if err != nil {
		return fmt.Errorf("keygen: parse public key: %w", err)
	}

	if priv.E != pub.E || priv.N.Cmp(pub.N) != 0 {
		return ErrMismatchedPair
	}

	claims := jwt.RegisteredClaims{
		Subject:  "updater-keygen",
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(priv)
	if err != nil {
		return fmt.Errorf("keygen: sign probe: %w", err)
	}

	_, err = jwt.Parse(signed, func(t *jwt.Token) (interface{}, error) {
		return pub, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrMismatchedPair, err)
	}
	return nil
}
