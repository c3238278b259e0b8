package slicetable

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// IsURL reports whether p is an http(s) location.
func IsURL(p string) bool {
	return strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://")
}

// Resolver turns file locations into local paths, downloading remote files once into CacheDir.
type Resolver struct {
	CacheDir   string
	HTTPClient *http.Client
}

// NewResolver creates a resolver caching downloads in cacheDir.
func NewResolver(cacheDir string) *Resolver {
	return &Resolver{
		CacheDir: cacheDir,
		HTTPClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// Resolve returns a local path for location.
func (r *Resolver) Resolve(ctx context.Context, location string) (string, error) {
	if !IsURL(location) {
		return localPath(location)
	}
	if r == nil || r.CacheDir == "" {
		return "", fmt.Errorf("no cache directory to download %s", location)
	}
	u, err := url.Parse(location)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", location, err)
	}
	sum := sha1.Sum([]byte(location))
	name := hex.EncodeToString(sum[:]) + path.Ext(u.Path)
	dest := filepath.Join(r.CacheDir, name)
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat %s: %w", dest, err)
	}
	if err := r.download(ctx, location, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func (r *Resolver) download(ctx context.Context, location, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	client := r.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", location, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: status %d", location, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dest, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("rename download: %w", err)
	}
	return nil
}

func localPath(p string) (string, error) {
	if strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand %s: %w", p, err)
		}
		p = filepath.Join(home, p[2:])
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	return abs, nil
}
