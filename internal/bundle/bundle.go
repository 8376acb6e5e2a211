// Package bundle handles application bundles: plain directories or
// compressed tarballs holding an application plus its app.yaml manifest.
package bundle

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// appIDRegex validates application identifiers.
var appIDRegex = regexp.MustCompile(`^[a-z][a-z0-9-]{0,99}$`)

// reservedAppIDs are identifiers the platform keeps for itself.
var reservedAppIDs = map[string]bool{
	"none":      true,
	"nimbus":    true,
	"dashboard": true,
}

// Manifest is the application configuration shipped inside a bundle.
type Manifest struct {
	Application string `yaml:"application"`
	Runtime     string `yaml:"runtime"`
}

// Bundle is an opened application bundle rooted at a local directory.
type Bundle struct {
	// Dir is the directory holding the application files.
	Dir string

	// AppID and Runtime come from the bundle's manifest.
	AppID   string
	Runtime string

	// Extracted reports whether Dir is a temporary extraction that the
	// cleanup function will remove.
	Extracted bool
}

// IsCompressed reports whether path names a compressed bundle.
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, ".tar.gz") || strings.HasSuffix(path, ".tgz")
}

// Open prepares a bundle for upload. Compressed bundles are extracted to a
// temporary directory; the returned cleanup must be called in every case,
// success or failure, and removes that directory.
func Open(path string) (*Bundle, func(), error) {
	cleanup := func() {}

	info, err := os.Stat(path)
	if err != nil {
		return nil, cleanup, fmt.Errorf("cannot read bundle: %w", err)
	}

	dir := path
	extracted := false
	if IsCompressed(path) {
		if info.IsDir() {
			return nil, cleanup, fmt.Errorf("%s is a directory, not a compressed bundle", path)
		}
		tmp, err := os.MkdirTemp("", "nimbus-bundle-*")
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to create extraction directory: %w", err)
		}
		cleanup = func() { _ = os.RemoveAll(tmp) }

		if err := extractTarGz(path, tmp); err != nil {
			return nil, cleanup, fmt.Errorf("failed to extract bundle: %w", err)
		}
		dir = tmp
		extracted = true
	} else if !info.IsDir() {
		return nil, cleanup, fmt.Errorf("%s is neither a directory nor a .tar.gz bundle", path)
	}

	root, err := manifestRoot(dir)
	if err != nil {
		return nil, cleanup, err
	}

	manifest, err := readManifest(root)
	if err != nil {
		return nil, cleanup, err
	}

	if err := ValidateAppID(manifest.Application); err != nil {
		return nil, cleanup, err
	}
	if manifest.Runtime == "" {
		return nil, cleanup, fmt.Errorf("app.yaml does not declare a runtime")
	}

	return &Bundle{
		Dir:       root,
		AppID:     manifest.Application,
		Runtime:   manifest.Runtime,
		Extracted: extracted,
	}, cleanup, nil
}

// ValidateAppID checks an application identifier against naming rules and
// the reserved list.
func ValidateAppID(appID string) error {
	if appID == "" {
		return fmt.Errorf("app.yaml does not declare an application id")
	}
	if !appIDRegex.MatchString(appID) {
		return fmt.Errorf("invalid application id %q: must start with a letter and contain only lowercase letters, digits, and hyphens", appID)
	}
	if reservedAppIDs[appID] {
		return fmt.Errorf("application id %q is reserved", appID)
	}
	return nil
}

// manifestRoot locates the directory holding app.yaml: the bundle root,
// or its single top-level directory (the usual tarball shape).
func manifestRoot(dir string) (string, error) {
	if _, err := os.Stat(filepath.Join(dir, "app.yaml")); err == nil {
		return dir, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("cannot read bundle directory: %w", err)
	}
	if len(entries) == 1 && entries[0].IsDir() {
		nested := filepath.Join(dir, entries[0].Name())
		if _, err := os.Stat(filepath.Join(nested, "app.yaml")); err == nil {
			return nested, nil
		}
	}
	return "", fmt.Errorf("bundle has no app.yaml")
}

func readManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, "app.yaml"))
	if err != nil {
		return nil, fmt.Errorf("cannot read app.yaml: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("cannot parse app.yaml: %w", err)
	}
	return &m, nil
}

// extractTarGz unpacks a gzipped tarball under destDir, refusing entries
// that would escape it.
func extractTarGz(src, destDir string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		target := filepath.Join(destDir, filepath.Clean(hdr.Name))
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) && target != filepath.Clean(destDir) {
			return fmt.Errorf("bundle entry %q escapes extraction directory", hdr.Name)
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
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode)&0o777)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil { //nolint:gosec // trusted operator-supplied bundle
				_ = out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
		default:
			// Symlinks and specials are skipped; application bundles
			// contain plain files and directories.
		}
	}
}
