// Package guard enforces upload-size and extracted-text ceilings before expensive work begins.
package guard

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"lingua-flow-go/internal/types"
)

// DefaultMaxUploadBytes is the default upload ceiling (10 MiB).
const DefaultMaxUploadBytes int64 = 10 * 1024 * 1024

// DefaultMaxTextChars is the default extracted-text ceiling in characters.
const DefaultMaxTextChars = 5000

var ErrSizeExceeded = errors.New("size exceeded")

// CheckSize rejects assets larger than maxBytes. It never moves the asset's read position.
func CheckSize(asset types.UploadedAsset, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	size, err := AssetSize(asset)
	if err != nil {
		return err
	}
	if size > maxBytes {
		return fmt.Errorf("%w: %s upload is %d bytes (max %d)", ErrSizeExceeded, asset.Kind, size, maxBytes)
	}
	return nil
}

// AssetSize returns the declared size, or measures the content by seeking when the
// declared size is unknown. The read position is restored before returning.
func AssetSize(asset types.UploadedAsset) (int64, error) {
	if asset.Size > 0 {
		return asset.Size, nil
	}
	if asset.Content == nil {
		return 0, nil
	}
	pos, err := asset.Content.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("read position: %w", err)
	}
	end, err := asset.Content.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("seek end: %w", err)
	}
	if _, err := asset.Content.Seek(pos, io.SeekStart); err != nil {
		return 0, fmt.Errorf("restore read position: %w", err)
	}
	return end, nil
}

// TruncateText cuts text to at most maxChars characters and reports whether it did.
func TruncateText(text string, maxChars int) (string, bool) {
	if maxChars <= 0 {
		maxChars = DefaultMaxTextChars
	}
	if utf8.RuneCountInString(text) <= maxChars {
		return text, false
	}
	count := 0
	for i := range text {
		if count == maxChars {
			return text[:i], true
		}
		count++
	}
	return text, false
}
