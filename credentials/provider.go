// Package credentials resolves the optional secrets stock-lookup uses: the
// backend API key and static S3 keys.
package credentials

import (
	"errors"
	"fmt"
	"os"
)

// ErrNotFound is wrapped by GetCredential when a secret is not set.
var ErrNotFound = errors.New("credential not found")

// Provider resolves secrets by name. Lookup is for optional secrets whose
// absence just disables a feature; GetCredential is for required ones.
type Provider interface {
	Lookup(name string) (string, bool)
	GetCredential(name string) (string, error)
}

// EnvProvider reads secrets from environment variables, optionally under a
// common prefix.
type EnvProvider struct {
	prefix string
}

func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{prefix: prefix}
}

func (p *EnvProvider) Lookup(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	value := os.Getenv(p.prefix + name)
	return value, value != ""
}

func (p *EnvProvider) GetCredential(name string) (string, error) {
	return required(p, p.prefix+name, name)
}

// StaticProvider serves a fixed set of secrets, mostly for tests.
type StaticProvider struct {
	secrets map[string]string
}

func NewStaticProvider(secrets map[string]string) *StaticProvider {
	return &StaticProvider{secrets: secrets}
}

func (p *StaticProvider) Lookup(name string) (string, bool) {
	value, ok := p.secrets[name]
	return value, ok && value != ""
}

func (p *StaticProvider) GetCredential(name string) (string, error) {
	return required(p, name, name)
}

func required(p Provider, label, name string) (string, error) {
	value, ok := p.Lookup(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotFound, label)
	}
	return value, nil
}
