package shortener

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNotFound   = errors.New("short url not found")
	ErrEmptyInput = errors.New("empty url")
)

const (
	codeLength   = 6
	codeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeRetries  = 5
)

type Service struct {
	repo *Repo
}

func NewService(repo *Repo) *Service {
	return &Service{repo: repo}
}

// Shorten returns the user's existing link for this URL, or mints a new
// random short code. The bool reports whether the link already existed.
func (s *Service) Shorten(ctx context.Context, userID uint64, longURL string) (*Link, bool, error) {
	longURL = strings.TrimSpace(longURL)
	if longURL == "" {
		return nil, false, ErrEmptyInput
	}

	if existing, err := s.repo.GetByUserAndLongURL(ctx, userID, longURL); err == nil {
		return existing, true, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	for i := 0; i < codeRetries; i++ {
		code, err := randomCode(codeLength)
		if err != nil {
			return nil, false, err
		}
		link := &Link{UserID: userID, LongURL: longURL, ShortCode: code}
		if err := s.repo.Create(ctx, link); err != nil {
			// unique index collision on short_code; try another code
			continue
		}
		return link, false, nil
	}
	return nil, false, fmt.Errorf("failed to allocate short code after %d attempts", codeRetries)
}

// Resolve maps a short code to a redirect target, repairing a missing
// scheme so the redirect is absolute.
func (s *Service) Resolve(ctx context.Context, code string) (string, error) {
	link, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return NormalizeTarget(link.LongURL), nil
}

func (s *Service) ListByUser(ctx context.Context, userID uint64) ([]Link, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Delete removes a link only when it belongs to the caller. Returns the
// deleted link so the handler can invalidate the redirect cache.
func (s *Service) Delete(ctx context.Context, userID, linkID uint64) (*Link, error) {
	link, err := s.repo.GetByIDAndUser(ctx, linkID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.repo.Delete(ctx, link.ID); err != nil {
		return nil, err
	}
	return link, nil
}

func (s *Service) RecordClicks(ctx context.Context, code string, count uint64) error {
	return s.repo.IncrementClicks(ctx, code, count)
}

// NormalizeTarget prefixes https:// when the stored URL has no scheme.
func NormalizeTarget(longURL string) string {
	if strings.HasPrefix(longURL, "http://") || strings.HasPrefix(longURL, "https://") {
		return longURL
	}
	return "https://" + longURL
}

func randomCode(n int) (string, error) {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		out[i] = codeAlphabet[idx.Int64()]
	}
	return string(out), nil
}
