// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package surface

import "sync"

// Pool reuses images grouped by dimensions and format.
//
// Render targets are released back to the pool on resize so that toggling
// between two resolutions (windowed and fullscreen, for example) does not
// allocate every time.
//
// Thread safety: all methods are safe for concurrent use.
type Pool struct {
	mu      sync.Mutex
	buckets map[poolKey][]*Image
	maxSize int // max images per bucket
}

// poolKey identifies a bucket of identical image specifications.
type poolKey struct {
	width  int
	height int
	format Format
}

// NewPool creates a pool retaining at most maxPerBucket images per shape.
// A maxPerBucket of 0 means unlimited.
func NewPool(maxPerBucket int) *Pool {
	return &Pool{
		buckets: make(map[poolKey][]*Image),
		maxSize: maxPerBucket,
	}
}

// Get returns a zeroed image of the given shape, reusing a pooled one if possible.
func (p *Pool) Get(width, height int, format Format) (*Image, error) {
	key := poolKey{width: width, height: height, format: format}

	p.mu.Lock()
	bucket := p.buckets[key]
	if n := len(bucket); n > 0 {
		img := bucket[n-1]
		p.buckets[key] = bucket[:n-1]
		p.mu.Unlock()

		img.Clear()
		return img, nil
	}
	p.mu.Unlock()

	return New(width, height, format)
}

// Put returns an image to the pool. Nil images and images beyond the
// bucket limit are dropped for the GC.
func (p *Pool) Put(img *Image) {
	if img == nil {
		return
	}
	key := poolKey{width: img.width, height: img.height, format: img.format}

	p.mu.Lock()
	defer p.mu.Unlock()

	bucket := p.buckets[key]
	if p.maxSize > 0 && len(bucket) >= p.maxSize {
		return
	}
	p.buckets[key] = append(bucket, img)
}

// Len returns the number of pooled images across all buckets.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.buckets {
		n += len(b)
	}
	return n
}
