// Package cookie provides HMAC-SHA256 signing for cookie values and builders for
// cookies with secure default attributes.
//
// # Signing
//
// A Signer stamps each value with its signing time and verifies it against every
// configured secret, so secrets can be rotated by prepending a new one:
//
//	signer, err := cookie.NewSigner([]string{newSecret, oldSecret})
//	if err != nil {
//		return err
//	}
//
//	signed := signer.Sign([]byte(`{"user":"42"}`))
//	value, err := signer.VerifyMaxAge(signed, 24*time.Hour)
//	switch {
//	case errors.Is(err, cookie.ErrInvalidSignature):
//		// tampered or signed with a retired key
//	case errors.Is(err, cookie.ErrExpired):
//		// too old
//	}
//
// Secrets must be at least 32 characters. ParseSecrets splits a comma-separated
// list as read from the environment.
//
// # Building cookies
//
// New and Expired produce *http.Cookie values from Options. New enforces the 4KB
// browser limit and returns ErrCookieTooLarge beyond it.
//
//	opts := cookie.DefaultOptions()
//	opts.Secure = true
//	c, err := cookie.New("session", signed, opts)
package cookie
