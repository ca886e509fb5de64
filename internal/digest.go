package internal

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"

	"HiddenScan/internal/provider"
)

// Digests of one file: MD5 for legacy tooling, SHA-256 as the strong digest.
type Digests struct {
	MD5    string
	SHA256 string
}

// digester hashes everything written to it with both algorithms.
type digester struct {
	md5    hash.Hash
	sha256 hash.Hash
}

func newDigester() *digester {
	return &digester{md5: md5.New(), sha256: sha256.New()}
}

func (d *digester) Write(p []byte) (int, error) {
	d.md5.Write(p)
	d.sha256.Write(p)
	return len(p), nil
}

func (d *digester) Sum() Digests {
	return Digests{
		MD5:    hex.EncodeToString(d.md5.Sum(nil)),
		SHA256: hex.EncodeToString(d.sha256.Sum(nil)),
	}
}

// DigestReader consumes r and returns its digests and length.
func DigestReader(r io.Reader) (Digests, int64, error) {
	d := newDigester()
	n, err := io.Copy(d, r)
	if err != nil {
		return Digests{}, n, err
	}
	return d.Sum(), n, nil
}

// DigestEntry hashes the content of a file entry straight from the provider.
func DigestEntry(e provider.Entry) (Digests, error) {
	rc, err := e.Open()
	if err != nil {
		return Digests{}, err
	}
	defer rc.Close()
	d, _, err := DigestReader(rc)
	return d, err
}
