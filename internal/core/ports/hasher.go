package ports

// PasswordHasher is a slow, salted one-way password function.
type PasswordHasher interface {
	Hash(password string) (string, error)
	// Compare returns nil only when password matches hash.
	Compare(hash, password string) error
}
