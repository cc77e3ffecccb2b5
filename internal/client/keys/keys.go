// Package keys holds the organisation key of the running process.
//
// A Manager replaces what would otherwise be ambient global state: it is
// created once by the application and handed to whoever needs the active
// key, so that installing or restoring a key is an explicit call.
package keys

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/manokeeper/internal/common"
	"github.com/dmitrijs2005/manokeeper/internal/cryptox"
)

// Material is a derived organisation key.
type Material []byte

// Equal reports whether two keys are byte-identical.
func (m Material) Equal(o Material) bool {
	return bytes.Equal(m, o)
}

func (m Material) clone() Material {
	if m == nil {
		return nil
	}
	return append(Material(nil), m...)
}

// SetOptions controls SetActive.
type SetOptions struct {
	// NeedsDerivation means the argument is a raw passphrase. When false the
	// bytes are installed as an already derived key (rollback path).
	NeedsDerivation bool
}

type Manager struct {
	mu     sync.RWMutex
	active Material

	minLength int
	testMode  bool
	derive    func(passphrase string) []byte
}

type Option func(*Manager)

// WithMinLength overrides common.MinimumEncryptionKeyLength.
func WithMinLength(n int) Option {
	return func(m *Manager) { m.minLength = n }
}

// WithTestMode disables the minimum length check.
func WithTestMode(on bool) Option {
	return func(m *Manager) { m.testMode = on }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		minLength: common.MinimumEncryptionKeyLength,
		derive:    cryptox.DeriveKey,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Manager) MinLength() int { return m.minLength }

func (m *Manager) TestMode() bool { return m.testMode }

// CheckLength rejects passphrases shorter than the configured minimum,
// unless the manager runs in test mode.
func (m *Manager) CheckLength(passphrase string) error {
	if m.testMode {
		return nil
	}
	if len([]rune(passphrase)) < m.minLength {
		return fmt.Errorf("%w: key must be at least %d characters", common.ErrValidation, m.minLength)
	}
	return nil
}

// Derive turns a passphrase into key material. The same passphrase always
// yields the same key. Surrounding whitespace is ignored.
func (m *Manager) Derive(passphrase string) (Material, error) {
	passphrase = strings.TrimSpace(passphrase)
	if passphrase == "" {
		return nil, fmt.Errorf("%w: key is required", common.ErrValidation)
	}
	if err := m.CheckLength(passphrase); err != nil {
		return nil, err
	}
	return Material(m.derive(passphrase)), nil
}

// Active returns a copy of the active key. ok is false if no key was ever
// set (or after Reset).
func (m *Manager) Active() (Material, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.active == nil {
		return nil, false
	}
	return m.active.clone(), true
}

// SetActive installs a new active key and returns it.
func (m *Manager) SetActive(material []byte, opts SetOptions) (Material, error) {
	next := Material(material).clone()
	if opts.NeedsDerivation {
		var err error
		next, err = m.Derive(string(material))
		if err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	common.WipeByteArray(m.active)
	m.active = next
	return next.clone(), nil
}

// Reset forgets the active key.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	common.WipeByteArray(m.active)
	m.active = nil
}
