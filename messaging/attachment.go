package messaging

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"

	"github.com/bishopmatthew/messagecenter/limits"
)

var (
	// ErrUnsupportedSource indicates a reference scheme the materializer cannot read.
	ErrUnsupportedSource = errors.New("unsupported attachment source")

	// ErrNotRegularFile indicates the reference points at a directory or device.
	ErrNotRegularFile = errors.New("attachment source is not a regular file")
)

// Materializer turns a source reference into a stored attachment. created
// reports whether this call wrote att.Path; false means the content was
// already stored and other messages may reference the file.
type Materializer interface {
	Materialize(ctx context.Context, ref string) (att Attachment, created bool, err error)
}

// FileMaterializer copies local files into a content-addressed attachment
// directory. Stored names are derived from the BLAKE2b-256 digest of the
// content so that the same file sent twice is stored once.
type FileMaterializer struct {
	Dir     string
	MaxSize int64
}

// NewFileMaterializer creates a materializer storing into dir.
// A non-positive maxSize uses limits.MaxAttachmentSize.
func NewFileMaterializer(dir string, maxSize int64) *FileMaterializer {
	return &FileMaterializer{Dir: dir, MaxSize: maxSize}
}

// Materialize implements Materializer. Accepted references are plain paths
// and file:// URIs.
func (fm *FileMaterializer) Materialize(ctx context.Context, ref string) (Attachment, bool, error) {
	path, err := resolveSourcePath(ref)
	if err != nil {
		return Attachment{}, false, err
	}

	src, err := os.Open(path)
	if err != nil {
		return Attachment{}, false, fmt.Errorf("failed to open source: %w", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return Attachment{}, false, fmt.Errorf("failed to stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return Attachment{}, false, ErrNotRegularFile
	}
	if err := limits.ValidateAttachmentSize(info.Size(), fm.MaxSize); err != nil {
		return Attachment{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return Attachment{}, false, err
	}

	if err := os.MkdirAll(fm.Dir, 0o700); err != nil {
		return Attachment{}, false, fmt.Errorf("failed to create attachment dir: %w", err)
	}

	tmp, err := os.CreateTemp(fm.Dir, ".incoming-*")
	if err != nil {
		return Attachment{}, false, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	hasher, err := blake2b.New256(nil)
	if err != nil {
		cleanup()
		return Attachment{}, false, err
	}

	written, err := io.Copy(io.MultiWriter(tmp, hasher), src)
	if err != nil {
		cleanup()
		return Attachment{}, false, fmt.Errorf("failed to copy source: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return Attachment{}, false, fmt.Errorf("failed to sync attachment: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return Attachment{}, false, fmt.Errorf("failed to close attachment: %w", err)
	}

	digest := hex.EncodeToString(hasher.Sum(nil))
	ext := strings.ToLower(filepath.Ext(path))
	final := filepath.Join(fm.Dir, digest[:32]+ext)

	// Link fails when final exists; only the call that links it owns it.
	created := true
	err = os.Link(tmpName, final)
	os.Remove(tmpName)
	if errors.Is(err, fs.ErrExist) {
		created = false
	} else if err != nil {
		return Attachment{}, false, fmt.Errorf("failed to store attachment: %w", err)
	}

	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	logrus.WithFields(logrus.Fields{
		"function": "Materialize",
		"name":     filepath.Base(path),
		"size":     written,
		"digest":   digest[:16],
		"created":  created,
	}).Debug("Attachment materialized")

	return Attachment{
		Path:     final,
		Name:     filepath.Base(path),
		MIMEType: mimeType,
		Size:     written,
		Digest:   digest,
	}, created, nil
}

// resolveSourcePath maps a reference to a local file path.
func resolveSourcePath(ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("%w: empty reference", ErrUnsupportedSource)
	}
	if !strings.Contains(ref, "://") {
		return ref, nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedSource, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("%w: scheme %q", ErrUnsupportedSource, u.Scheme)
	}
	if u.Path == "" {
		return "", fmt.Errorf("%w: empty path", ErrUnsupportedSource)
	}
	return filepath.FromSlash(u.Path), nil
}
