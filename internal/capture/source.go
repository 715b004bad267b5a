package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var ErrNoFrames = errors.New("capture: directory has no images")

// DirectorySource replays still images from a directory in name order,
// looping at the end. It stands in for a camera during development.
type DirectorySource struct {
	mu    sync.Mutex
	files []string
	next  int
}

func NewDirectorySource(dir string) (*DirectorySource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frame directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFrames, dir)
	}
	return &DirectorySource{files: files}, nil
}

func (s *DirectorySource) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files) > 0
}

func (s *DirectorySource) Frame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	path := s.files[s.next]
	s.next = (s.next + 1) % len(s.files)
	s.mu.Unlock()

	return DecodeImageFile(path)
}

// Release rewinds to the first image.
func (s *DirectorySource) Release() error {
	s.mu.Lock()
	s.next = 0
	s.mu.Unlock()
	return nil
}

// DecodeImageFile decodes a JPEG or PNG file.
func DecodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}
