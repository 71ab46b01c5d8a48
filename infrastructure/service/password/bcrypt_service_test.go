package password

import (
	"testing"
)

func TestBcryptPasswordService(t *testing.T) {
	service := NewBcryptPasswordService(4) // low cost keeps the test fast

	t.Run("HashAndVerify", func(t *testing.T) {
		hash, err := service.HashPassword("Password1")
		if err != nil {
			t.Fatalf("HashPassword failed: %v", err)
		}
		if hash == "Password1" {
			t.Error("Hash should not equal the plain password")
		}

		ok, err := service.VerifyPassword("Password1", hash)
		if err != nil {
			t.Fatalf("VerifyPassword failed: %v", err)
		}
		if !ok {
			t.Error("Correct password should verify")
		}
	})

	t.Run("WrongPassword", func(t *testing.T) {
		hash, err := service.HashPassword("Password1")
		if err != nil {
			t.Fatalf("HashPassword failed: %v", err)
		}

		ok, err := service.VerifyPassword("WrongPassword", hash)
		if err != nil {
			t.Fatalf("VerifyPassword failed: %v", err)
		}
		if ok {
			t.Error("Wrong password should not verify")
		}
	})

	t.Run("UniqueSalts", func(t *testing.T) {
		first, err := service.HashPassword("Password1")
		if err != nil {
			t.Fatalf("HashPassword failed: %v", err)
		}
		second, err := service.HashPassword("Password1")
		if err != nil {
			t.Fatalf("HashPassword failed: %v", err)
		}
		if first == second {
			t.Error("Hashing the same password twice should produce different hashes")
		}
	})
}
