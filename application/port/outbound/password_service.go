package outbound

// PasswordService defines the interface for password hashing and verification
type PasswordService interface {
	HashPassword(password string) (string, error)
	VerifyPassword(password, hash string) (bool, error)
}
