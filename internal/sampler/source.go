// File: internal/sampler/source.go
package sampler

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	// Decoders registered with image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/mitchellh/go-homedir"
)

// CacheBustParam is the query parameter appended to remote image URLs.
const CacheBustParam = "cb"

// maxImageBytes bounds how much of a remote or local source is read.
const maxImageBytes = 64 << 20

// HTTPDoer is the subset of *http.Client the sampler needs for remote sources.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SourceKind classifies an image reference.
type SourceKind int

const (
	SourceFile SourceKind = iota
	SourceRemote
	SourceData
)

func (k SourceKind) String() string {
	switch k {
	case SourceRemote:
		return "remote"
	case SourceData:
		return "data"
	default:
		return "file"
	}
}

// Classify reports how src will be loaded.
func Classify(src string) SourceKind {
	lower := strings.ToLower(src)
	switch {
	case strings.HasPrefix(lower, "data:"):
		return SourceData
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return SourceRemote
	default:
		return SourceFile
	}
}

// CacheBust appends cb=<unix millis> to remote URLs that do not already carry
// it. Anything else, including URLs that fail to parse, is returned unchanged.
func CacheBust(raw string, now time.Time) string {
	if Classify(raw) != SourceRemote {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if u.Query().Has(CacheBustParam) {
		return raw
	}
	param := CacheBustParam + "=" + strconv.FormatInt(now.UnixMilli(), 10)
	if u.RawQuery == "" {
		u.RawQuery = param
	} else {
		u.RawQuery += "&" + param
	}
	return u.String()
}

// ResolvePath turns a local reference (plain path, ~/path or file:// URL)
// into a filesystem path.
func ResolvePath(src string) (string, error) {
	if strings.HasPrefix(strings.ToLower(src), "file://") {
		u, err := url.Parse(src)
		if err != nil {
			return "", err
		}
		return u.Path, nil
	}
	return homedir.Expand(src)
}

// readSource returns the raw encoded bytes behind src.
func (s *Sampler) readSource(ctx context.Context, src string) ([]byte, error) {
	switch Classify(src) {
	case SourceData:
		return decodeDataURL(src)
	case SourceRemote:
		return s.fetch(ctx, CacheBust(src, s.now()))
	default:
		path, err := ResolvePath(src)
		if err != nil {
			return nil, err
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, maxImageBytes))
	}
}

func (s *Sampler) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/*")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
}

// decodeDataURL extracts the payload of a data: URL, base64 or percent-encoded.
func decodeDataURL(raw string) ([]byte, error) {
	header, payload, ok := strings.Cut(raw[len("data:"):], ",")
	if !ok {
		return nil, errors.New("malformed data URL: missing ','")
	}
	if strings.HasSuffix(strings.ToLower(header), ";base64") {
		out, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// Some encoders drop the padding.
			if out, err2 := base64.RawStdEncoding.DecodeString(payload); err2 == nil {
				return out, nil
			}
			return nil, fmt.Errorf("malformed data URL payload: %w", err)
		}
		return out, nil
	}
	out, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("malformed data URL payload: %w", err)
	}
	return []byte(out), nil
}

func decodeImage(data []byte) (image.Image, string, error) {
	return image.Decode(bytes.NewReader(data))
}
