package pasetotoken

import "errors"

var (
	// ErrConfig covers bad key material and inconsistent Manager settings.
	ErrConfig = errors.New("paseto: invalid configuration")
	// ErrInvalidToken is returned for anything Verify rejects: bad footer or
	// signature, wrong issuer or audience, expiry, or missing app claims.
	ErrInvalidToken = errors.New("paseto: invalid token")
)
