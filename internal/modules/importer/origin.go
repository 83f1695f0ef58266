package importer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// hashChunkSize is the read buffer used while hashing statement files
const hashChunkSize = 64 * 1024

// HashFile returns the hex sha256 of the file at path, streamed in fixed-size chunks.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.CopyBuffer(h, f, make([]byte, hashChunkSize)); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// OriginID ties a row to the file content and position it was read from.
func OriginID(path, fileHash string, rowIndex int) string {
	return fmt.Sprintf("%s:%s:%d", path, fileHash, rowIndex)
}
