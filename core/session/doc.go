// Package session provides a stateless session stored in a signed cookie.
//
// A Session is a key/value map with a modified flag. Every mutation (Set, Delete,
// Pop, Update, Clear) marks it modified, and only modified sessions are written back.
//
// CookieStore serializes the session as JSON, signs it with HMAC-SHA256 through
// core/cookie (key rotation included) and sets it on the response:
//
//	store, err := session.NewCookieStore(session.Config{
//		SecretKey: os.Getenv("SESSION_SECRET_KEY"),
//		Secure:    true,
//	})
//	if err != nil {
//		return err
//	}
//
//	sess := store.Open(req)     // never nil for a non-nil store
//	sess.Set("user_id", "42")
//	err = store.Save(sess, resp) // Set-Cookie only because sess was modified
//
// A missing, tampered, malformed or expired cookie is not an error: Open returns a
// fresh empty session and logs the rejection at debug level. Saving a modified
// empty session expires the cookie.
//
// Configuration is read from SESSION_SECRET_KEY and SESSION_COOKIE_* environment
// variables via core/config. Without a secret key sessions are disabled and a nil
// *CookieStore is used, whose Open returns nil and whose Save is a no-op.
package session
