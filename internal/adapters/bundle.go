package adapters

import (
	"archive/tar"
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"

	"github.com/vegizombie/lal-build-manager/internal/ports"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	xzMagic   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
)

// unpackBundle extracts a gzip or xz compressed tarball into dest and
// returns the sha256 of the archive bytes it read.
func unpackBundle(archivePath string, dest string) (string, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("artifact bundle not found: %s", archivePath)).
			WithCause(err)
	}
	defer file.Close()

	hasher := sha256.New()
	reader := bufio.NewReader(io.TeeReader(file, hasher))
	decompressed, err := openDecompressor(reader)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("unreadable artifact bundle: %s", filepath.Base(archivePath))).
			WithCause(err)
	}
	if err := extractTar(tar.NewReader(decompressed), dest); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("failed to unpack artifact bundle: %s", filepath.Base(archivePath))).
			WithCause(err)
	}
	// Drain so the digest covers the whole file, trailers included.
	if _, err := io.Copy(io.Discard, decompressed); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("truncated artifact bundle: %s", filepath.Base(archivePath))).
			WithCause(err)
	}
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read artifact bundle").
			WithCause(err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func openDecompressor(reader *bufio.Reader) (io.Reader, error) {
	header, err := reader.Peek(len(xzMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	switch {
	case bytes.HasPrefix(header, xzMagic):
		return xz.NewReader(reader)
	case bytes.HasPrefix(header, gzipMagic):
		return gzip.NewReader(reader)
	default:
		return nil, errors.New("unsupported bundle format (expected gzip or xz)")
	}
}

func extractTar(tr *tar.Reader, dest string) error {
	if err := os.MkdirAll(dest, 0755); err != nil {
		return err
	}
	root, err := filepath.EvalSymlinks(dest)
	if err != nil {
		return err
	}
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		target, err := safeJoin(dest, header.Name)
		if err != nil {
			return err
		}
		if target == filepath.Clean(dest) {
			continue
		}
		// Earlier entries may have planted symlinks; every write is checked
		// against the resolved location, not the archive path.
		parent, err := resolveInside(root, filepath.Dir(target), header.Name)
		if err != nil {
			return err
		}
		mode := header.FileInfo().Mode().Perm()
		switch header.Typeflag {
		case tar.TypeDir:
			if _, err := resolveInside(root, target, header.Name); err != nil {
				return err
			}
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
			if err := os.Chmod(target, mode|0700); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := refuseSymlink(target, header.Name); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			if err := writeTarFile(tr, target, mode); err != nil {
				return err
			}
		case tar.TypeSymlink:
			if filepath.IsAbs(header.Linkname) {
				return fmt.Errorf("absolute symlink not allowed: %s -> %s", header.Name, header.Linkname)
			}
			if !isWithin(root, filepath.Join(parent, filepath.FromSlash(header.Linkname))) {
				return fmt.Errorf("symlink escapes destination: %s -> %s", header.Name, header.Linkname)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			if err := os.Symlink(header.Linkname, target); err != nil {
				return err
			}
		case tar.TypeLink:
			source, err := safeJoin(dest, header.Linkname)
			if err != nil {
				return err
			}
			if _, err := resolveInside(root, source, header.Linkname); err != nil {
				return err
			}
			if err := refuseSymlink(target, header.Name); err != nil {
				return err
			}
			if err := os.Link(source, target); err != nil {
				return err
			}
		}
	}
}

// resolveInside follows the symlinks along the existing part of path and
// returns the resolved path, or an error if it lands outside root.
func resolveInside(root string, path string, name string) (string, error) {
	existing := path
	var rest []string
	for {
		if _, err := os.Lstat(existing); err == nil {
			break
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			break
		}
		rest = append([]string{filepath.Base(existing)}, rest...)
		existing = parent
	}
	resolved, err := filepath.EvalSymlinks(existing)
	if err != nil {
		return "", fmt.Errorf("entry %s: %w", name, err)
	}
	resolved = filepath.Join(append([]string{resolved}, rest...)...)
	if !isWithin(root, resolved) {
		return "", fmt.Errorf("entry escapes destination: %s", name)
	}
	return resolved, nil
}

func refuseSymlink(target string, name string) error {
	info, err := os.Lstat(target)
	if err == nil && info.Mode()&fs.ModeSymlink != 0 {
		return fmt.Errorf("entry overwrites a symlink: %s", name)
	}
	return nil
}

func isWithin(root string, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func writeTarFile(tr *tar.Reader, target string, mode fs.FileMode) error {
	file, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, tr); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Chmod(target, mode)
}

func safeJoin(root string, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("entry escapes destination: %s", name)
	}
	return filepath.Join(root, cleaned), nil
}

type ArchiveAdapter struct{}

func NewArchiveAdapter() ArchiveAdapter {
	return ArchiveAdapter{}
}

// PackDirectory writes sourceDir as a gzip compressed tarball at destPath.
func (a ArchiveAdapter) PackDirectory(sourceDir string, destPath string) error {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	err := filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(sourceDir, path)
		if err != nil || rel == "." {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		link := ""
		if info.Mode()&fs.ModeSymlink != 0 {
			if link, err = os.Readlink(path); err != nil {
				return err
			}
		}
		header, err := tar.FileInfoHeader(info, link)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			header.Name += "/"
		}
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(tw, file)
		_ = file.Close()
		return err
	})
	if err == nil {
		err = tw.Close()
	}
	if err == nil {
		err = gz.Close()
	}
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("failed to pack %s", sourceDir)).
			WithCause(err)
	}
	return writeFileAtomic(destPath, buf.Bytes(), 0644)
}

// CopyBundle places an existing bundle at destPath without repacking it.
func (a ArchiveAdapter) CopyBundle(bundlePath string, destPath string) error {
	data, err := os.ReadFile(bundlePath)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg(fmt.Sprintf("artifact bundle not found: %s", bundlePath)).
			WithCause(err)
	}
	return writeFileAtomic(destPath, data, 0644)
}

var _ ports.ArchivePort = ArchiveAdapter{}
