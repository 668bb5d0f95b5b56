// Package uploads validates inbound attachments and keeps local copies under
// a configured directory.
package uploads

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/assocbot/internal/conversation"
	"github.com/m3rciful/assocbot/internal/domain"
)

// Rules restrict what a step accepts.
type Rules struct {
	MaxBytes  int64
	Exts      []string
	TooLarge  string
	BadFormat string
}

const (
	DefaultMaxBytes = 10 << 20
	PosterMaxBytes  = 5 << 20
)

// Receipt accepts payment receipts, membership cards and attachments.
func Receipt(maxBytes int64) Rules {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return Rules{
		MaxBytes:  maxBytes,
		Exts:      []string{"jpg", "jpeg", "png", "pdf"},
		TooLarge:  fmt.Sprintf("❌ حجم فایل نباید بیش از %dMB باشد.", maxBytes>>20),
		BadFormat: "❌ فقط فرمت‌های jpg, jpeg, png, pdf مجاز است.",
	}
}

// Poster accepts event posters.
func Poster(maxBytes int64) Rules {
	if maxBytes <= 0 {
		maxBytes = PosterMaxBytes
	}
	return Rules{
		MaxBytes:  maxBytes,
		Exts:      []string{"jpg", "jpeg", "png"},
		TooLarge:  fmt.Sprintf("❌ حجم پوستر نباید بیش از %dMB باشد.", maxBytes>>20),
		BadFormat: "❌ فقط فرمت‌های jpg, jpeg, png برای پوستر مجاز است.",
	}
}

// Check returns a ValidationError when f breaks the rules.
func (r Rules) Check(f conversation.File) error {
	if r.MaxBytes > 0 && f.Size > r.MaxBytes {
		return domain.Invalid("file", r.TooLarge)
	}
	ext := f.Ext()
	for _, e := range r.Exts {
		if e == ext {
			return nil
		}
	}
	return domain.Invalid("file", r.BadFormat)
}

// Name builds {prefix}_{uid}_{unix}_{uuid8}.{ext}.
func Name(prefix string, userID int64, now time.Time, ext string) string {
	short := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%d_%d_%s.%s", prefix, userID, now.Unix(), short, ext)
}

// Fetcher streams a platform file by id.
type Fetcher interface {
	Fetch(ctx context.Context, fileID string, w io.Writer) error
}

// Keeper saves attachments locally. A nil Keeper keeps nothing.
type Keeper struct {
	dir   string
	fetch Fetcher
}

// NewKeeper returns a Keeper writing into dir.
func NewKeeper(dir string, fetch Fetcher) *Keeper {
	return &Keeper{dir: dir, fetch: fetch}
}

// Keep downloads f and returns the stored path.
func (k *Keeper) Keep(ctx context.Context, prefix string, userID int64, f conversation.File, now time.Time) (string, error) {
	if k == nil || k.fetch == nil || k.dir == "" {
		return "", nil
	}
	if err := os.MkdirAll(k.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	ext := f.Ext()
	if ext == "" {
		ext = "bin"
	}
	path := filepath.Join(k.dir, Name(prefix, userID, now, ext))
	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if err := k.fetch.Fetch(ctx, f.ID, out); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("fetch %s: %w", f.ID, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("close upload: %w", err)
	}
	return path, nil
}
