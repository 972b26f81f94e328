package archive

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/fabriziosalmi/newsportal/internal/models"
)

type BlobMetadata struct {
	Key    string
	SHA256 string
	Size   int64
	Lines  int64
}

// PrepareBlob encodes batch as NDJSON, compresses and hashes it, and derives
// the object key. The key depends on the content so re-archiving the same
// batch overwrites the same object.
func PrepareBlob(tenantID, cutoff string, batch []models.Summary, at time.Time) ([]byte, BlobMetadata, error) {
	var raw bytes.Buffer
	enc := json.NewEncoder(&raw)
	for _, s := range batch {
		if err := enc.Encode(s); err != nil {
			return nil, BlobMetadata{}, fmt.Errorf("archive: encode summary %s: %w", s.ID, err)
		}
	}

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(raw.Bytes()); err != nil {
		return nil, BlobMetadata{}, fmt.Errorf("archive: gzip write: %w", err)
	}
	if err := gw.Close(); err != nil {
		return nil, BlobMetadata{}, fmt.Errorf("archive: gzip close: %w", err)
	}

	compressed := buf.Bytes()
	sum := sha256.Sum256(compressed)
	sha256hex := hex.EncodeToString(sum[:])

	// Key: summaries/<tenant>/<YYYY>/<MM>/<DD>/<cutoff>_<sha[:8]>.ndjson.gz
	key := fmt.Sprintf("summaries/%s/%s/%s_%s%s",
		url.PathEscape(tenantID),
		at.UTC().Format("2006/01/02"),
		compactTimestamp(cutoff),
		sha256hex[:8],
		blobSuffix,
	)

	return compressed, BlobMetadata{
		Key:    key,
		SHA256: sha256hex,
		Size:   int64(len(compressed)),
		Lines:  int64(len(batch)),
	}, nil
}

// DecompressBlob reads gzip compressed data from a reader.
func DecompressBlob(r io.Reader) ([]byte, error) {
	gr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("archive: gzip reader: %w", err)
	}
	defer gr.Close()

	return io.ReadAll(gr)
}

// DecodeSummaries parses decompressed NDJSON back into summaries.
func DecodeSummaries(raw []byte) ([]models.Summary, error) {
	var out []models.Summary
	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var s models.Summary
		if err := json.Unmarshal(line, &s); err != nil {
			return nil, fmt.Errorf("archive: decode line %d: %w", len(out)+1, err)
		}
		out = append(out, s)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("archive: scan: %w", err)
	}
	return out, nil
}

// compactTimestamp turns 2025-10-02T18:00:00.000000Z into 20251002T180000Z.
func compactTimestamp(ts string) string {
	if t, err := models.ParseTimestamp(ts); err == nil {
		return t.Format("20060102T150405Z")
	}
	return strings.NewReplacer(":", "", "-", "", ".", "").Replace(ts)
}
