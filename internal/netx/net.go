// Package netx has stream helpers for transfers that report progress.
package netx

import "io"

// ProgressFunc receives the completed fraction of a transfer in [0, 1].
type ProgressFunc func(fraction float64)

// ProgressReader counts bytes read through it and reports them against a
// known total. With an unknown total (<= 0) nothing is reported until Done.
type ProgressReader struct {
	r     io.Reader
	total int64
	read  int64
	fn    ProgressFunc
	last  float64
}

func NewProgressReader(r io.Reader, total int64, fn ProgressFunc) *ProgressReader {
	return &ProgressReader{r: r, total: total, fn: fn, last: -1}
}

func (p *ProgressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.read += int64(n)
	if n > 0 && p.fn != nil && p.total > 0 {
		f := float64(p.read) / float64(p.total)
		if f > 1 {
			f = 1
		}
		// skip sub-percent updates
		if f-p.last >= 0.01 || f == 1 {
			p.last = f
			p.fn(f)
		}
	}
	return n, err
}

// N is the number of bytes read so far.
func (p *ProgressReader) N() int64 { return p.read }

// Done reports completion if it has not been reported yet.
func (p *ProgressReader) Done() {
	if p.fn != nil && p.last < 1 {
		p.last = 1
		p.fn(1)
	}
}

// CopyWithProgress copies src to dst, reporting progress against total.
// Completion (1.0) is reported only when the copy succeeds.
func CopyWithProgress(dst io.Writer, src io.Reader, total int64, fn ProgressFunc) (int64, error) {
	pr := NewProgressReader(src, total, fn)
	n, err := io.Copy(dst, pr)
	if err != nil {
		return n, err
	}
	pr.Done()
	return n, nil
}
