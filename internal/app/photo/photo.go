/*
Package photo replaces a member's profile photo.

A photo is checked, resized to a main image and a thumbnail, uploaded to object storage,
saved on the member profile and mirrored into the local session. The previous image is
removed last and only on a best-effort basis.
*/
package photo

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"strings"
	"time"

	_ "image/png"

	"github.com/rs/zerolog"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"harukcal/internal/app/session"
	"harukcal/internal/pkg/errs"
	"harukcal/internal/pkg/logx"
	"harukcal/internal/pkg/randx"
)

const (
	// DefaultMaxBytes is the upload limit for the original file.
	DefaultMaxBytes = 5 << 20

	// MainSize and ThumbSize bound the longer edge of the stored images.
	MainSize  = 400
	ThumbSize = 150

	// KeyPrefix and ThumbPrefix are the object key folders.
	KeyPrefix   = "member/"
	ThumbPrefix = "member/thumbnails/"

	jpegQuality = 85
	contentType = "image/jpeg"
)

// Storage is the object storage used for photos.
type Storage interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
	KeyFromURL(rawURL string) (string, bool)
}

// ProfileImageSetter saves the new URL on the member profile.
type ProfileImageSetter interface {
	UpdateProfileImage(ctx context.Context, imageURL string) error
}

// SessionUpdater mirrors the new URL into the session store and state.
type SessionUpdater interface {
	ApplyPhoto(photoURL string) (*session.Record, error)
}

// Result describes a replaced photo.
type Result struct {
	URL      string
	Key      string
	ThumbKey string
	Record   *session.Record
}

// Service replaces profile photos.
type Service struct {
	storage  Storage
	profile  ProfileImageSetter
	session  SessionUpdater
	maxBytes int64
	now      func() time.Time
	logger   zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithMaxBytes overrides DefaultMaxBytes.
func WithMaxBytes(n int64) Option {
	return func(s *Service) { s.maxBytes = n }
}

// WithClock overrides the clock used for file names.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service.
func NewService(storage Storage, profile ProfileImageSetter, sess SessionUpdater, opts ...Option) *Service {
	s := &Service{
		storage:  storage,
		profile:  profile,
		session:  sess,
		maxBytes: DefaultMaxBytes,
		now:      time.Now,
		logger:   logx.Component("photo"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Keys returns the main and thumbnail object keys for an original file name.
func Keys(fileName string, now time.Time) (key, thumbKey string) {
	name := randx.PhotoFileName(fileName, now)
	return KeyPrefix + name + ".jpg", ThumbPrefix + name + "_thumb.jpg"
}

// ReplaceProfilePhoto stores the image read from r as the member's profile photo and
// deletes oldURL with its thumbnail afterwards.
//
// A failed thumbnail upload is logged and ignored. If the session was cleared while the
// upload ran, the profile is still saved and ErrNoSession is returned with the result.
func (s *Service) ReplaceProfilePhoto(ctx context.Context, fileName string, r io.Reader, oldURL string) (*Result, error) {
	raw, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, errs.Wrap(errs.ErrUnknown, err)
	}
	if int64(len(raw)) > s.maxBytes {
		return nil, errs.NewError(errs.ErrPhotoTooLarge)
	}

	switch http.DetectContentType(raw) {
	case "image/png", "image/jpeg":
	default:
		return nil, errs.NewError(errs.ErrPhotoTypeUnsupported)
	}

	src, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errs.Wrap(errs.ErrPhotoTypeUnsupported, err)
	}

	mainJPEG, err := encode(src, MainSize)
	if err != nil {
		return nil, errs.Wrap(errs.ErrUnknown, err)
	}
	thumbJPEG, err := encode(src, ThumbSize)
	if err != nil {
		return nil, errs.Wrap(errs.ErrUnknown, err)
	}

	key, thumbKey := Keys(fileName, s.now())
	log := s.logger.With().Str("key", key).Logger()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.storage.Upload(gctx, key, contentType, bytes.NewReader(mainJPEG))
	})
	g.Go(func() error {
		if err := s.storage.Upload(gctx, thumbKey, contentType, bytes.NewReader(thumbJPEG)); err != nil {
			log.Warn().Err(err).Str("thumb_key", thumbKey).Msg("Thumbnail upload failed")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Photo upload failed")
		s.remove(context.WithoutCancel(ctx), thumbKey)
		if errs.CodeOf(err) == errs.ErrFileStorageFailed {
			return nil, err
		}
		return nil, errs.Wrap(errs.ErrFileStorageFailed, err)
	}

	res := &Result{URL: s.storage.PublicURL(key), Key: key, ThumbKey: thumbKey}

	if err := s.profile.UpdateProfileImage(ctx, res.URL); err != nil {
		log.Error().Err(err).Msg("Saving profile image failed")
		s.remove(context.WithoutCancel(ctx), key, thumbKey)
		return nil, err
	}

	res.Record, err = s.session.ApplyPhoto(res.URL)
	if err != nil && !errs.HasCode(err, errs.ErrNoSession) {
		log.Error().Err(err).Msg("Session photo update failed")
	}

	if oldKey, ok := s.ownedKey(oldURL); ok && oldKey != key {
		s.remove(context.WithoutCancel(ctx), oldKey, ThumbKeyOf(oldKey))
	}

	log.Info().Msg("Profile photo replaced")
	return res, err
}

// ThumbKeyOf returns the thumbnail key paired with a main image key.
func ThumbKeyOf(key string) string {
	name := strings.TrimPrefix(key, KeyPrefix)
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	return ThumbPrefix + name + "_thumb.jpg"
}

// ownedKey maps a previous profile image URL to its key, but only for main images this
// service stored in its own bucket.
func (s *Service) ownedKey(rawURL string) (string, bool) {
	key, ok := s.storage.KeyFromURL(rawURL)
	if !ok || !strings.HasPrefix(key, KeyPrefix) || strings.HasPrefix(key, ThumbPrefix) {
		return "", false
	}
	return key, true
}

func (s *Service) remove(ctx context.Context, keys ...string) {
	for _, k := range keys {
		if err := s.storage.Delete(ctx, k); err != nil {
			s.logger.Warn().Err(err).Str("key", k).Msg("Failed to delete old photo")
		}
	}
}

// encode scales src to fit within size x size on a white background and encodes it as JPEG.
// Images already within the bound keep their dimensions.
func encode(src image.Image, size int) ([]byte, error) {
	b := src.Bounds()
	w, h := fit(b.Dx(), b.Dy(), size)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func fit(w, h, size int) (int, int) {
	if w <= size && h <= size {
		return max(w, 1), max(h, 1)
	}
	if w >= h {
		return size, max(h*size/w, 1)
	}
	return max(w*size/h, 1), size
}
