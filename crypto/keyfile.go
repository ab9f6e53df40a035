package crypto

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// SaveKeyFile writes the private key as a JSON array of its 64 bytes, the
// layout used by common wallet tooling. The parent directory is created with
// 0700 permissions and the file is replaced atomically.
func SaveKeyFile(path string, key *PrivateKey) error {
	if key == nil {
		return errors.New("crypto: nil private key")
	}
	if path == "" {
		return errors.New("crypto: empty key file path")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	raw := key.Bytes()
	ints := make([]int, len(raw))
	for i, b := range raw {
		ints[i] = int(b)
	}
	encoded, err := json.Marshal(ints)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "keyfile-")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadKeyFile reads a key written by SaveKeyFile.
func LoadKeyFile(path string) (*PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return nil, fmt.Errorf("crypto: decode key file %s: %w", path, err)
	}
	raw := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("crypto: key file %s: byte %d out of range", path, i)
		}
		raw[i] = byte(v)
	}
	return PrivateKeyFromBytes(raw)
}
