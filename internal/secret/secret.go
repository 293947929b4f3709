// Package secret handles encryption and decryption of environment scripts.
//
// Encrypted state is signaled purely by the filename suffix (.enc).
// Ciphertext is age format with a scrypt (passphrase) recipient, so files
// are interoperable with the standalone age tool. Decryption produces a
// sibling plaintext file with the .dec suffix; those transients are owned
// by the run and removed when it ends.
package secret

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"filippo.io/age"
	"golang.org/x/term"

	"qube/internal/config"
	"qube/internal/errors"
	"qube/internal/logger"
)

// scryptWorkFactor is the log2 of the scrypt N parameter used when
// encrypting. 18 (N=262144) matches the age CLI default.
const scryptWorkFactor = 18

// Manager performs the secret operations for one run. The passphrase is
// optional; when empty, the terminal is prompted on first use and the
// answer is reused for the rest of the run.
type Manager struct {
	passphrase string
	prompted   bool
	log        logger.Logger
}

// NewManager creates a manager with an optional pre-supplied passphrase.
func NewManager(passphrase string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.Noop()
	}
	return &Manager{passphrase: passphrase, log: log}
}

// IsEncrypted reports whether path carries the encrypted suffix.
func IsEncrypted(path string) bool {
	return strings.HasSuffix(path, config.EncryptedSuffix)
}

// PlaintextPath returns the transient plaintext sibling for an encrypted
// path: the encrypted suffix replaced with the plaintext marker.
func PlaintextPath(encryptedPath string) string {
	return strings.TrimSuffix(encryptedPath, config.EncryptedSuffix) + config.DecryptedSuffix
}

// Decrypt decrypts an encrypted file to its plaintext sibling and returns
// the plaintext path. The path must carry the encrypted suffix. On a wrong
// passphrase no plaintext file is produced.
func (m *Manager) Decrypt(path string) (string, error) {
	if !IsEncrypted(path) {
		return "", errors.New(errors.ErrSecret,
			fmt.Sprintf("'%s' is not encrypted", path),
			fmt.Sprintf("Encrypted environment scripts end in %s.", config.EncryptedSuffix))
	}

	ciphertext, err := os.Open(path)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrSecret,
			fmt.Sprintf("Can't read '%s'", path),
			"Check the file exists and is readable.")
	}
	defer ciphertext.Close()

	passphrase, err := m.getPassphrase(fmt.Sprintf("Passphrase for %s: ", path))
	if err != nil {
		return "", err
	}

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrSecret,
			"Couldn't prepare decryption", "")
	}

	reader, err := age.Decrypt(ciphertext, identity)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrSecret,
			fmt.Sprintf("Decryption of '%s' failed", path),
			"Check the passphrase is correct.")
	}

	// Buffer the whole plaintext before touching the filesystem so a wrong
	// passphrase or truncated ciphertext never leaves a partial plaintext
	// file behind.
	var plaintext bytes.Buffer
	if _, err := io.Copy(&plaintext, reader); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrSecret,
			fmt.Sprintf("Decryption of '%s' failed", path),
			"Check the passphrase is correct.")
	}

	outPath := PlaintextPath(path)
	if err := os.WriteFile(outPath, plaintext.Bytes(), 0o600); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrSecret,
			fmt.Sprintf("Couldn't write plaintext to '%s'", outPath),
			"Check directory permissions.")
	}

	m.log.Debug("decrypted %s -> %s", path, outPath)
	return outPath, nil
}

// Encrypt encrypts plaintextPath to targetPath using the run's passphrase
// and the pinned scrypt work factor.
func (m *Manager) Encrypt(plaintextPath, targetPath string) error {
	plaintext, err := os.ReadFile(plaintextPath)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrSecret,
			fmt.Sprintf("Can't read '%s'", plaintextPath),
			"Check the file exists and is readable.")
	}

	passphrase, err := m.getPassphrase(fmt.Sprintf("Passphrase for %s: ", targetPath))
	if err != nil {
		return err
	}

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrSecret,
			"Couldn't prepare encryption", "")
	}
	recipient.SetWorkFactor(scryptWorkFactor)

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, recipient)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrSecret,
			"Couldn't prepare encryption", "")
	}
	if _, err := writer.Write(plaintext); err != nil {
		return errors.WrapWithCode(err, errors.ErrSecret,
			"Encryption failed", "")
	}
	if err := writer.Close(); err != nil {
		return errors.WrapWithCode(err, errors.ErrSecret,
			"Encryption failed", "")
	}

	if err := os.WriteFile(targetPath, ciphertext.Bytes(), 0o600); err != nil {
		return errors.WrapWithCode(err, errors.ErrSecret,
			fmt.Sprintf("Couldn't write '%s'", targetPath),
			"Check directory permissions.")
	}

	m.log.Debug("encrypted %s -> %s", plaintextPath, targetPath)
	return nil
}

// getPassphrase returns the supplied passphrase or prompts the terminal
// once, caching the answer for subsequent operations in the same run.
func (m *Manager) getPassphrase(prompt string) (string, error) {
	if m.passphrase != "" || m.prompted {
		return m.passphrase, nil
	}

	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrSecret,
			"Couldn't read passphrase from terminal",
			"Pass it with -p when running non-interactively.")
	}

	m.passphrase = string(raw)
	m.prompted = true
	return m.passphrase, nil
}
