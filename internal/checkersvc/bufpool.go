package checkersvc

import (
	"io"
	"sync"
	"unsafe"

	"github.com/havenlang/havenchk/internal/allocator"
)

// bodyPool reads HTTP request bodies into buffers drawn from the
// pool-class allocator rather than letting each request grow its own
// slice from nothing: MIR module payloads cluster tightly around a
// handful of sizes (one function body's worth of instructions), which
// is exactly the access pattern a size-classed pool allocator is built
// for.
type bodyPool struct {
	once sync.Once
}

func (bp *bodyPool) ensureInit() {
	bp.once.Do(func() {
		_ = allocator.Initialize(allocator.PoolAllocatorKind)
	})
}

// ReadAll drains r into a pool-allocated buffer, capped at limit bytes,
// and returns a copy safe to retain after the pool buffer is freed.
func (bp *bodyPool) ReadAll(r io.Reader, limit int64) ([]byte, error) {
	bp.ensureInit()

	const chunk = 1024

	ptr := allocator.GlobalAllocator.Alloc(uintptr(chunk))
	if ptr == nil {
		return io.ReadAll(io.LimitReader(r, limit))
	}
	defer allocator.GlobalAllocator.Free(ptr)

	scratch := unsafe.Slice((*byte)(ptr), chunk)

	var out []byte

	lr := io.LimitReader(r, limit)

	for {
		n, err := lr.Read(scratch)
		if n > 0 {
			out = append(out, scratch[:n]...)
		}

		if err == io.EOF {
			return out, nil
		}

		if err != nil {
			return out, err
		}
	}
}
