package expand

import (
	"archive/tar"
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pierrec/lz4/v4"
)

// archiveSuffixes lists the supported container extensions, longest first so
// the two-part tar.lz4 suffix is stripped before the short forms.
var archiveSuffixes = []string{".tar.lz4", ".tlz4", ".zip"}

// IsArchive reports whether path names a supported archive container.
// The extension check is case-insensitive.
func IsArchive(path string) bool {
	lower := strings.ToLower(filepath.Base(path))
	for _, suffix := range archiveSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// Stem returns the archive base name with its container suffix stripped.
// The result names the directory the archive extracts into.
func Stem(path string) string {
	base := filepath.Base(path)
	lower := strings.ToLower(base)
	for _, suffix := range archiveSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return base[:len(base)-len(suffix)]
		}
	}
	return base
}

// extract fully unpacks every member of the archive at src into dest.
func extract(src, dest string) error {
	lower := strings.ToLower(src)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return extractZip(src, dest)
	case strings.HasSuffix(lower, ".tar.lz4"), strings.HasSuffix(lower, ".tlz4"):
		return extractTarLz4(src, dest)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedArchive, src)
}

func extractZip(src, dest string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer r.Close()

	for _, f := range r.File {
		target, err := memberPath(dest, f.Name)
		if err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open member %s: %w", f.Name, err)
		}
		err = writeMember(target, rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("extract member %s: %w", f.Name, err)
		}
	}
	return nil
}

func extractTarLz4(src, dest string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer f.Close()

	tr := tar.NewReader(lz4.NewReader(f))
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", src, err)
		}
		target, err := memberPath(dest, hdr.Name)
		if err != nil {
			return err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			if err := writeMember(target, tr); err != nil {
				return fmt.Errorf("extract member %s: %w", hdr.Name, err)
			}
		default:
			// symlinks and special files are not part of survey deliveries
			continue
		}
	}
}

// memberPath joins a member name onto dest, rejecting names that would
// escape the extraction target.
func memberPath(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	if target != filepath.Clean(dest) &&
		!strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrMemberEscapesTarget, name)
	}
	return target, nil
}

func writeMember(target string, r io.Reader) error {
	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, r)
	return err
}
