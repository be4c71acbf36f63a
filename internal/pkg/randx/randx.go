/*
Package randx provides functions for generating cryptographically secure random strings and identifiers.

It is used for opaque session tokens, token nonces and upload object keys.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// TokenPrefix marks opaque session tokens.
	TokenPrefix = "RYA_"

	// TokenRandomLength is the number of Base62 characters in an opaque token (~190 bits).
	TokenRandomLength = 32
)

// Base62 returns a random Base62 string of the given length drawn from crypto/rand.
func Base62(length int) (string, error) {
	result := make([]byte, length)

	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// Token generates a new opaque session token.
func Token() (string, error) {
	raw, err := Base62(TokenRandomLength)
	if err != nil {
		return "", err
	}
	return TokenPrefix + raw, nil
}

// UploadKey builds a unique object key for an uploaded file with the given extension (".png").
func UploadKey(ext string) string {
	return fmt.Sprintf("uploads/%s%s", uuid.New().String(), ext)
}
