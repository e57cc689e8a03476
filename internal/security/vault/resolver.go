package vault

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
)

// SecretRef names every place a secret may come from.
type SecretRef struct {
	Name      string
	Plain     string
	Encrypted string // base64 of the EncryptedData JSON
	File      string
}

type SecretResolver interface {
	Resolve(ref SecretRef) (string, error)
}

type resolver struct {
	provider Provider
}

func NewResolver(provider Provider) SecretResolver {
	return &resolver{provider: provider}
}

// Resolve prefers a mounted secret file, then an encrypted value, then the
// plain value. An empty result is not an error.
func (r *resolver) Resolve(ref SecretRef) (string, error) {
	if path := strings.TrimSpace(ref.File); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s file: %w", ref.Name, err)
		}
		return strings.TrimRight(string(raw), "\r\n"), nil
	}

	if encoded := strings.TrimSpace(ref.Encrypted); encoded != "" {
		payload, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return "", fmt.Errorf("decode %s: %w", ref.Name, ErrInvalidPayload)
		}
		plain, err := r.provider.Decrypt(payload)
		if err != nil {
			return "", fmt.Errorf("decrypt %s: %w", ref.Name, err)
		}
		return string(plain), nil
	}

	return ref.Plain, nil
}

// EncryptString produces the value accepted by SecretRef.Encrypted.
func EncryptString(provider Provider, plaintext string) (string, error) {
	payload, err := provider.Encrypt([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(payload), nil
}
