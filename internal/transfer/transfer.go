// Package transfer uploads files to remote hosts over SFTP.
package transfer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// ProgressFunc receives the running byte count of a push. total is the
// local file size.
type ProgressFunc func(host string, sent, total int64)

const copyChunk = 32 << 10

// PushFile copies localPath to remotePath on one host, then reads the remote
// file back and compares SHA-256 digests. Missing remote directories are
// created. The file is left mode 0755 so an uploaded script can be run
// directly.
func PushFile(ctx context.Context, conn *ssh.Client, localPath, remotePath, host string, progress ProgressFunc) (checksum string, sent int64, err error) {
	src, err := os.Open(localPath)
	if err != nil {
		return "", 0, fmt.Errorf("open local file: %w", err)
	}
	defer src.Close()
	info, err := src.Stat()
	if err != nil {
		return "", 0, fmt.Errorf("stat local file: %w", err)
	}

	client, err := sftp.NewClient(conn)
	if err != nil {
		return "", 0, fmt.Errorf("sftp client: %w", err)
	}
	defer client.Close()

	if dir := path.Dir(remotePath); dir != "." && dir != "/" {
		if err := client.MkdirAll(dir); err != nil {
			return "", 0, fmt.Errorf("create remote dir %s: %w", dir, err)
		}
	}

	dst, err := client.OpenFile(remotePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return "", 0, fmt.Errorf("create remote file: %w", err)
	}
	if err := dst.Chmod(0o755); err != nil {
		dst.Close()
		return "", 0, fmt.Errorf("chmod remote file: %w", err)
	}

	digest := sha256.New()
	sent, err = copyContext(ctx, dst, io.TeeReader(src, digest), func(n int64) {
		if progress != nil {
			progress(host, n, info.Size())
		}
	})
	closeErr := dst.Close()
	if err != nil {
		return "", sent, fmt.Errorf("copy: %w", err)
	}
	if closeErr != nil {
		return "", sent, fmt.Errorf("close remote file: %w", closeErr)
	}
	checksum = hex.EncodeToString(digest.Sum(nil))

	remote, err := remoteSHA256(client, remotePath)
	if err != nil {
		return checksum, sent, fmt.Errorf("remote checksum verification failed: %w", err)
	}
	if remote != checksum {
		return checksum, sent, fmt.Errorf("checksum mismatch: local=%s remote=%s", checksum, remote)
	}
	return checksum, sent, nil
}

// remoteSHA256 hashes the remote file over SFTP, so the host needs no
// sha256sum binary.
func remoteSHA256(client *sftp.Client, remotePath string) (string, error) {
	f, err := client.Open(remotePath)
	if err != nil {
		return "", fmt.Errorf("open remote file for checksum: %w", err)
	}
	defer f.Close()

	digest := sha256.New()
	if _, err := io.Copy(digest, f); err != nil {
		return "", fmt.Errorf("read remote file for checksum: %w", err)
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}

// copyContext copies src to dst in chunks, stopping when ctx ends. onWrite
// sees the running total after every chunk.
func copyContext(ctx context.Context, dst io.Writer, src io.Reader, onWrite func(int64)) (int64, error) {
	buf := make([]byte, copyChunk)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			w, err := dst.Write(buf[:n])
			total += int64(w)
			onWrite(total)
			if err != nil {
				return total, err
			}
		}
		switch {
		case readErr == io.EOF:
			return total, nil
		case readErr != nil:
			return total, readErr
		}
	}
}
