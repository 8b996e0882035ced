// Package encryption provides streaming cipher stages for pipelines and a
// small authenticated sealer for secrets stored in configuration.
//
// Streaming stages:
//
//	enc, err := encryption.NewEncryptor(encryption.WithPassphrase("s3cret"))
//	dec, err := encryption.NewDecryptor(encryption.WithPassphrase("s3cret"))
//
// The default algorithm is AES-256-CBC with PKCS#7 padding; ChaCha20 is
// selected with WithAlgorithm. When no IV is supplied the encryptor
// generates one and writes it at the head of its output, and the decryptor
// reads it back from there.
//
// Secrets:
//
//	s, err := encryption.NewSecrets(key)
//	sealed, err := s.Seal("password")     // "enc:..."
//	plain, err := s.Resolve(sealed)       // "password"
package encryption
