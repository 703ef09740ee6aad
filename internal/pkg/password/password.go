package password

import "golang.org/x/crypto/bcrypt"

// Cost matches the work factor of hashes already present in existing user files.
const Cost = bcrypt.DefaultCost

// MaxBytes is the longest password bcrypt accepts.
const MaxBytes = 72

func Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func Compare(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
