package archive

import (
	"io"
	"sync"
)

func copyWithBuffer(dst io.Writer, src io.Reader) (written int64, err error) {
	buf := copyPool.Get().(*[]byte)
	written, err = io.CopyBuffer(dst, src, *buf)
	copyPool.Put(buf)
	return
}

var copyPool = sync.Pool{
	New: func() any { s := make([]byte, 32*1024); return &s },
}
