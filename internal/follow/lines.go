package follow

import (
	"bufio"
	"errors"
	"io"
	"iter"
)

// Lines returns a lazy sequence over the lines of r. Each line keeps its
// trailing newline, except the last one if the stream ends mid-line. If
// reading fails with anything other than [io.EOF], the error is yielded
// once and the sequence ends.
//
// Lines are only read when the consumer asks for them so a slow consumer
// blocks the producer of r.
func Lines(r io.Reader) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		br := bufio.NewReader(r)
		for {
			line, err := br.ReadBytes('\n')
			if len(line) > 0 {
				if !yield(line, nil) {
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					yield(nil, err)
				}
				return
			}
		}
	}
}
