// Package tokens genera secretos opacos y sus hashes para guardar en storage.
package tokens

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// MinCodeBytes: 16 bytes = 128 bits de entropía.
const MinCodeBytes = 16

// GenerateOpaqueToken genera un token aleatorio (base64url sin padding).
// Rechaza tamaños por debajo de MinCodeBytes.
func GenerateOpaqueToken(nBytes int) (string, error) {
	if nBytes < MinCodeBytes {
		return "", fmt.Errorf("tokens: %d bytes is below the %d byte minimum", nBytes, MinCodeBytes)
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// SHA256Base64URL devuelve sha256(input) en base64url sin padding (para guardar en DB).
func SHA256Base64URL(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
