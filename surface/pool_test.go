package surface

import (
	"sync"
	"testing"
)

func TestPoolReuse(t *testing.T) {
	p := NewPool(2)

	img, err := p.Get(8, 4, FormatRG32F)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	img.Fill(1, 1)
	p.Put(img)

	if got := p.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}

	again, err := p.Get(8, 4, FormatRG32F)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if again != img {
		t.Error("expected pooled image to be reused")
	}
	for i, v := range again.Pix() {
		if v != 0 {
			t.Fatalf("reused image not cleared at %d: %v", i, v)
		}
	}
}

func TestPoolBucketLimit(t *testing.T) {
	p := NewPool(1)
	a, _ := New(2, 2, FormatR32F)
	b, _ := New(2, 2, FormatR32F)
	p.Put(a)
	p.Put(b)
	p.Put(nil)

	if got := p.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
}

func TestPoolShapeSeparation(t *testing.T) {
	p := NewPool(0)
	a, _ := New(2, 2, FormatR32F)
	p.Put(a)

	got, err := p.Get(2, 2, FormatRG32F)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == a {
		t.Error("pool returned image with wrong format")
	}
}

func TestPoolInvalid(t *testing.T) {
	p := NewPool(4)
	if _, err := p.Get(0, 10, FormatR32F); err == nil {
		t.Error("Get(0, 10) should fail")
	}
}

func TestPoolConcurrent(t *testing.T) {
	p := NewPool(8)
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				img, err := p.Get(16, 16, FormatRGBA32F)
				if err != nil {
					t.Error(err)
					return
				}
				p.Put(img)
			}
		}()
	}
	wg.Wait()
}
