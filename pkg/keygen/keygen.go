package keygen

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

const alphaNumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewFileID generates the opaque identifier under which an uploaded
// image is stored and later served. UUID format, 36 characters.
func NewFileID() string {
	return uuid.New().String()
}

// NewSessionID generates an opaque session identifier.
// 48 characters alphanumeric from crypto/rand.
func NewSessionID() (string, error) {
	return randomString(48, alphaNumeric)
}

// randomString generates a random string of given length from the given charset
func randomString(length int, charset string) (string, error) {
	result := make([]byte, length)
	charsetLen := big.NewInt(int64(len(charset)))

	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", err
		}
		result[i] = charset[num.Int64()]
	}

	return string(result), nil
}
