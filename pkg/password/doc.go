// Package password hashes and verifies passwords with Argon2id.
//
// Hashes use the PHC string format, so the parameters travel with the hash and
// Verify needs no configuration:
//
//	encoded, err := password.Hash("correct horse battery staple")
//	ok, err := password.Verify("correct horse battery staple", encoded)
//
// A Hasher built with custom Params is used when the defaults do not fit.
// NeedsRehash reports hashes made with weaker parameters than the hasher's.
package password
