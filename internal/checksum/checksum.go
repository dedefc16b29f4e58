// Package checksum fingerprints dataset files so unchanged reloads can be skipped.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ReadFile returns the file's content together with its digest.
func ReadFile(path string) ([]byte, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("checksum: read %s: %w", path, err)
	}
	return data, Sum(data), nil
}
