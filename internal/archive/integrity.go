package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
)

const blobSuffix = ".ndjson.gz"

// VerifyObject confirms that the SHA-256 of data matches expected.
func VerifyObject(data []byte, expectedHex string) error {
	sum := sha256.Sum256(data)
	got := hex.EncodeToString(sum[:])
	if got != expectedHex {
		return fmt.Errorf("archive: sha256 mismatch: got %s, expected %s", got, expectedHex)
	}
	return nil
}

// VerifyKey checks blob against the digest prefix embedded in its key.
func VerifyKey(key string, blob []byte) error {
	want, err := keyDigest(key)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(blob)
	if got := hex.EncodeToString(sum[:])[:len(want)]; got != want {
		return fmt.Errorf("archive: %s: content digest %s does not match key", key, got)
	}
	return nil
}

// keyDigest extracts <sha8> from .../<cutoff>_<sha8>.ndjson.gz.
func keyDigest(key string) (string, error) {
	base := path.Base(key)
	if !strings.HasSuffix(base, blobSuffix) {
		return "", fmt.Errorf("archive: %s: not a summary blob key", key)
	}
	stem := strings.TrimSuffix(base, blobSuffix)
	i := strings.LastIndexByte(stem, '_')
	if i < 0 || len(stem)-i-1 != 8 {
		return "", fmt.Errorf("archive: %s: key has no digest", key)
	}
	digest := stem[i+1:]
	if _, err := hex.DecodeString(digest); err != nil {
		return "", fmt.Errorf("archive: %s: key digest is not hex", key)
	}
	return digest, nil
}
