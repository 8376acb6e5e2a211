package ssh

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// UploadFile streams a single local file to remotePath on the node,
// creating parent directories as needed.
func (c *Client) UploadFile(ctx context.Context, localPath, remotePath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", localPath, err)
	}
	defer func() { _ = f.Close() }()

	remoteDir := filepath.ToSlash(filepath.Dir(remotePath))
	command := fmt.Sprintf("mkdir -p %s && cat > %s", shellQuote(remoteDir), shellQuote(remotePath))
	return c.runWithStdin(ctx, command, f)
}

// UploadBytes writes data to remotePath on the node, creating parent
// directories as needed.
func (c *Client) UploadBytes(ctx context.Context, data []byte, remotePath string) error {
	remoteDir := filepath.ToSlash(filepath.Dir(remotePath))
	command := fmt.Sprintf("mkdir -p %s && cat > %s", shellQuote(remoteDir), shellQuote(remotePath))
	return c.runWithStdin(ctx, command, bytes.NewReader(data))
}

// UploadDir packs a local directory into a gzipped tar stream and unpacks
// it under remoteDir on the node.
func (c *Client) UploadDir(ctx context.Context, localDir, remoteDir string) error {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(packDir(localDir, pw))
	}()

	command := fmt.Sprintf("mkdir -p %s && tar -xzf - -C %s", shellQuote(remoteDir), shellQuote(remoteDir))
	if err := c.runWithStdin(ctx, command, pr); err != nil {
		_ = pr.Close()
		return err
	}
	return nil
}

// DownloadDir fetches remoteDir from the node into localDir as a gzipped
// tar stream. localDir is created if missing.
func (c *Client) DownloadDir(ctx context.Context, remoteDir, localDir string) error {
	if err := os.MkdirAll(localDir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", localDir, err)
	}

	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create SSH session: %w", err)
	}
	defer func() { _ = session.Close() }()

	stdout, err := session.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdout pipe: %w", err)
	}

	command := fmt.Sprintf("tar -czf - -C %s .", shellQuote(remoteDir))
	if err := session.Start(command); err != nil {
		return fmt.Errorf("failed to start %q on %s: %w", command, c.config.Host, err)
	}

	unpackErr := unpackStream(stdout, localDir)
	waitErr := session.Wait()
	if waitErr != nil {
		return fmt.Errorf("fetching %s from %s failed: %w", remoteDir, c.config.Host, waitErr)
	}
	return unpackErr
}

// runWithStdin executes a command feeding stdin from r.
func (c *Client) runWithStdin(ctx context.Context, command string, r io.Reader) error {
	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create SSH session: %w", err)
	}
	defer func() { _ = session.Close() }()

	session.Stdin = r
	if err := session.Run(command); err != nil {
		return fmt.Errorf("command %q failed on %s: %w", command, c.config.Host, err)
	}
	return nil
}

// packDir writes dir's contents as a gzipped tar stream.
func packDir(dir string, w io.Writer) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

// unpackStream reads a gzipped tar stream into destDir, refusing entries
// that would escape it.
func unpackStream(r io.Reader, destDir string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("bad archive stream: %w", err)
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
			return fmt.Errorf("archive entry %q escapes destination", hdr.Name)
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
			if _, err := io.Copy(out, tr); err != nil { //nolint:gosec // stream from an authenticated deployment node
				_ = out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
		default:
			// Skip links and specials.
		}
	}
}

// shellQuote wraps s in single quotes for safe interpolation into a
// remote shell command.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
