package render

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/1broseidon/nestcomp/internal/surface"
)

// ErrNoTexture is returned for a view whose current buffer could not be
// uploaded. It persists until the surface commits a new buffer.
var ErrNoTexture = errors.New("buffer has no texture")

// TextureCache maps views to device textures. Textures are refreshed only
// when a view's buffer advanced, and replaced textures are freed at the
// start of the next frame rather than immediately.
type TextureCache struct {
	alloc   Allocator
	logger  *slog.Logger
	entries map[*surface.View]TextureID
	failed  map[*surface.View]bool
	dispose []TextureID
	uploads uint64
}

// NewTextureCache creates a cache backed by alloc.
func NewTextureCache(alloc Allocator, logger *slog.Logger) *TextureCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextureCache{
		alloc:   alloc,
		logger:  logger,
		entries: make(map[*surface.View]TextureID),
		failed:  make(map[*surface.View]bool),
	}
}

// Texture returns the view's texture, uploading the surface's latest buffer
// first when it changed since the last call. ok is false when the view has
// no buffer to show. A buffer that failed to upload is not retried; later
// calls return ErrNoTexture until the next commit.
func (c *TextureCache) Texture(v *surface.View) (id TextureID, ok bool, err error) {
	if v.Advance() {
		delete(c.failed, v)
		if old, had := c.entries[v]; had {
			c.dispose = append(c.dispose, old)
			delete(c.entries, v)
		}
		buf := v.CurrentBuffer()
		if buf == nil || buf.Size().Empty() {
			return 0, false, nil
		}
		img := buf.Image()
		if img == nil {
			c.failed[v] = true
			return 0, false, fmt.Errorf("surface %d: %w", v.Surface().ID(), ErrNoTexture)
		}
		id, err := c.alloc.Upload(img)
		if err != nil {
			c.failed[v] = true
			return 0, false, fmt.Errorf("upload surface %d: %w", v.Surface().ID(), err)
		}
		c.uploads++
		c.entries[v] = id
		return id, true, nil
	}
	if c.failed[v] {
		return 0, false, ErrNoTexture
	}
	id, had := c.entries[v]
	return id, had, nil
}

// Release queues the view's texture for disposal and forgets the view.
func (c *TextureCache) Release(v *surface.View) {
	delete(c.failed, v)
	if id, had := c.entries[v]; had {
		c.dispose = append(c.dispose, id)
		delete(c.entries, v)
	}
}

// Defer queues an arbitrary texture for disposal on the next frame.
func (c *TextureCache) Defer(id TextureID) {
	if id != 0 {
		c.dispose = append(c.dispose, id)
	}
}

// DisposePending frees every texture queued since the previous call and
// returns how many there were.
func (c *TextureCache) DisposePending() int {
	n := len(c.dispose)
	for _, id := range c.dispose {
		c.alloc.Delete(id)
	}
	c.dispose = c.dispose[:0]
	if n > 0 {
		c.logger.Debug("disposed textures", "count", n)
	}
	return n
}

// Uploads is the number of buffer uploads performed so far.
func (c *TextureCache) Uploads() uint64 { return c.uploads }

// Len is the number of live view textures.
func (c *TextureCache) Len() int { return len(c.entries) }
