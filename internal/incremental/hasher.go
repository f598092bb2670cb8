package incremental

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"time"
)

// ContentHasher computes stable digests of file content for change
// detection. The digest depends only on content: identical bytes always
// produce identical digests.
type ContentHasher struct{}

// NewContentHasher creates a hasher.
func NewContentHasher() *ContentHasher {
	return &ContentHasher{}
}

// HashContent returns the hex SHA-256 digest of content.
func (h *ContentHasher) HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return fmt.Sprintf("%x", sum)
}

// HashFile hashes a file by streaming it, returning the digest along with
// the file's modification time and size.
func (h *ContentHasher) HashFile(path string) (string, time.Time, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", time.Time{}, 0, err
	}
	defer f.Close() //nolint:errcheck // Best effort cleanup

	info, err := f.Stat()
	if err != nil {
		return "", time.Time{}, 0, err
	}

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", time.Time{}, 0, err
	}

	return fmt.Sprintf("%x", hasher.Sum(nil)), info.ModTime(), info.Size(), nil
}
