// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	cerrors "github.com/NVIDIA/sysdiff/pkg/errors"
)

// ExtractFile opens the tar archive at file and extracts it into dest.
func ExtractFile(file, dest string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open archive %q: %w", file, err)
	}
	defer f.Close()

	return Extract(f, dest)
}

// Extract validates every member of the tar archive in r and, only when all
// of them are safe, extracts the archive into dest.
func Extract(r io.ReadSeeker, dest string) error {
	root, err := canonicalDir(dest)
	if err != nil {
		return err
	}

	count, err := validate(tar.NewReader(r), root)
	if err != nil {
		return err
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind archive: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("failed to create destination %q: %w", root, err)
	}
	if err := extract(tar.NewReader(r), root); err != nil {
		return err
	}

	slog.Debug("archive extracted", "destination", root, "members", count)
	return nil
}

// Gunzip decompresses the gzip file at src into dst.
func Gunzip(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", src, err)
	}
	defer in.Close()

	zr, err := gzip.NewReader(in)
	if err != nil {
		return fmt.Errorf("failed to read gzip header of %q: %w", src, err)
	}
	defer zr.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %q: %w", dst, err)
	}
	if _, err := io.Copy(out, zr); err != nil {
		out.Close()
		return fmt.Errorf("failed to decompress %q: %w", src, err)
	}
	return out.Close()
}

// canonicalDir returns the absolute form of dir, with symlinks resolved when
// dir already exists.
func canonicalDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve destination %q: %w", dir, err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return abs, nil
}

// within reports whether target is root or lies beneath it.
func within(root, target string) bool {
	if target == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(target, prefix)
}

// memberPath joins name onto root and checks the result stays inside root.
// Absolute names are rejected rather than re-rooted.
func memberPath(root, name string) (string, error) {
	if path.IsAbs(name) || filepath.IsAbs(filepath.FromSlash(name)) {
		return "", cerrors.NewWithContext(cerrors.ErrCodeArchiveSecurity,
			"absolute path in tar archive",
			map[string]any{"member": name, "destination": root})
	}
	target, err := filepath.Abs(filepath.Join(root, filepath.FromSlash(name)))
	if err != nil {
		return "", fmt.Errorf("failed to resolve member %q: %w", name, err)
	}
	if !within(root, target) {
		return "", cerrors.NewWithContext(cerrors.ErrCodeArchiveSecurity,
			"attempted path traversal in tar archive",
			map[string]any{"member": name, "destination": root})
	}
	return target, nil
}

func validate(tr *tar.Reader, root string) (int, error) {
	var targets []string
	symlinks := make(map[string]bool)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read archive: %w", err)
		}

		target, err := memberPath(root, hdr.Name)
		if err != nil {
			return 0, err
		}
		if hdr.Typeflag == tar.TypeLink {
			if _, err := memberPath(root, hdr.Linkname); err != nil {
				return 0, err
			}
		}
		if hdr.Typeflag == tar.TypeSymlink {
			symlinks[target] = true
		}
		targets = append(targets, target)
	}

	// A member beneath a symlink carried by the archive would be written
	// wherever that link points.
	for _, target := range targets {
		for dir := filepath.Dir(target); within(root, dir) && dir != root; dir = filepath.Dir(dir) {
			if symlinks[dir] {
				return 0, cerrors.NewWithContext(cerrors.ErrCodeArchiveSecurity,
					"archive member placed beneath a symbolic link",
					map[string]any{"member": target, "link": dir})
			}
		}
	}

	return len(targets), nil
}

func extract(tr *tar.Reader, root string) error {
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read archive: %w", err)
		}

		target, err := memberPath(root, hdr.Name)
		if err != nil {
			return err
		}
		if err := writeMember(tr, hdr, root, target); err != nil {
			return err
		}
	}
}

func writeMember(tr *tar.Reader, hdr *tar.Header, root, target string) error {
	mode := os.FileMode(hdr.Mode).Perm()

	switch hdr.Typeflag {
	case tar.TypeDir:
		if err := os.MkdirAll(target, mode|0o700); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", target, err)
		}
		return os.Chmod(target, mode|0o700)

	case tar.TypeReg:
		if err := prepareParent(target); err != nil {
			return err
		}
		f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode|0o600)
		if err != nil {
			return fmt.Errorf("failed to create %q: %w", target, err)
		}
		if _, err := io.Copy(f, tr); err != nil {
			f.Close()
			return fmt.Errorf("failed to write %q: %w", target, err)
		}
		return f.Close()

	case tar.TypeLink:
		if err := prepareParent(target); err != nil {
			return err
		}
		source, err := memberPath(root, hdr.Linkname)
		if err != nil {
			return err
		}
		if err := os.Link(source, target); err != nil {
			return fmt.Errorf("failed to link %q to %q: %w", target, source, err)
		}
		return nil

	case tar.TypeSymlink:
		resolved := hdr.Linkname
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(filepath.Dir(target), resolved)
		}
		if !within(root, filepath.Clean(resolved)) {
			slog.Debug("skipping symlink leaving destination",
				"member", hdr.Name, "link", hdr.Linkname)
			return nil
		}
		if err := prepareParent(target); err != nil {
			return err
		}
		if err := os.Symlink(hdr.Linkname, target); err != nil {
			return fmt.Errorf("failed to create symlink %q: %w", target, err)
		}
		return nil

	default:
		slog.Debug("skipping unsupported archive member",
			"member", hdr.Name, "type", string(hdr.Typeflag))
		return nil
	}
}

// prepareParent creates the parent directory of target and clears any
// non-directory entry already occupying target.
func prepareParent(target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %q: %w", target, err)
	}
	if fi, err := os.Lstat(target); err == nil && !fi.IsDir() {
		if err := os.Remove(target); err != nil {
			return fmt.Errorf("failed to replace %q: %w", target, err)
		}
	}
	return nil
}
