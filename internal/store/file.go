package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// Digest - фиксированный 256 битный хеш содержимого файла модели
type Digest [32]byte

// IsZero reports whether the digest was never set.
func (d Digest) IsZero() bool {
	var z Digest
	return d == z
}

// String returns a short hex form for logs.
func (d Digest) String() string {
	return hex.EncodeToString(d[:6])
}

// Sum hashes file content.
func Sum(data []byte) Digest {
	return Digest(sha256.Sum256(data))
}

// ReadFile reads the backing file and returns its content and digest.
func ReadFile(path string) ([]byte, Digest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Digest{}, err
	}
	return data, Sum(data), nil
}

// WriteFile replaces the backing file atomically (temp file + rename).
func WriteFile(path string, data []byte) (Digest, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Digest{}, err
	}
	f, err := os.CreateTemp(dir, ".model-*")
	if err != nil {
		return Digest{}, err
	}
	tmp := f.Name()
	defer func() {
		// после успешного Rename файла уже нет
		if _, statErr := os.Stat(tmp); statErr == nil {
			_ = os.Remove(tmp)
		}
	}()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return Digest{}, err
	}
	if err := f.Close(); err != nil {
		return Digest{}, err
	}
	if err := os.Rename(tmp, path); err != nil {
		return Digest{}, fmt.Errorf("replace %s: %w", path, err)
	}
	return Sum(data), nil
}
