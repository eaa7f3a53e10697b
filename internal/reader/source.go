package reader

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"sync"

	"github.com/klauspost/pgzip"
)

// Source yields the raw lines of an input. Each call to Lines starts from
// the beginning; resources are released when iteration stops.
type Source interface {
	Lines() iter.Seq2[string, error]
	// Name is the file path, or "" for sources that are not files.
	Name() string
}

// FileSource reads a plain or gzip-compressed text file. Compression is
// detected from the magic bytes, so BGZF files are read as well.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return s.Path }

func (s FileSource) Lines() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		f, err := os.Open(s.Path)
		if err != nil {
			yield("", fmt.Errorf("open input file: %w", err))
			return
		}
		defer f.Close()
		readLines(f, yield)
	}
}

// IterableSource serves lines held in memory.
type IterableSource struct {
	Items []string
}

func (s IterableSource) Name() string { return "" }

func (s IterableSource) Lines() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, line := range s.Items {
			if !yield(strings.TrimRight(line, "\r\n"), nil) {
				return
			}
		}
	}
}

// ErrConsumed is returned when a single-pass source is iterated twice.
var ErrConsumed = errors.New("input stream has already been read")

// StreamSource reads an io.Reader such as stdin. It can be iterated once.
type StreamSource struct {
	r    io.Reader
	mu   sync.Mutex
	used bool
}

// NewStreamSource wraps r.
func NewStreamSource(r io.Reader) *StreamSource {
	return &StreamSource{r: r}
}

func (s *StreamSource) Name() string { return "" }

func (s *StreamSource) Lines() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		s.mu.Lock()
		used := s.used
		s.used = true
		s.mu.Unlock()
		if used {
			yield("", ErrConsumed)
			return
		}
		readLines(s.r, yield)
	}
}

// readLines decompresses r when it starts with the gzip magic bytes and
// yields one line at a time without the line terminator.
func readLines(r io.Reader, yield func(string, error) bool) {
	br := bufio.NewReader(r)
	magic, _ := br.Peek(2)
	var in *bufio.Reader
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := pgzip.NewReader(br)
		if err != nil {
			yield("", fmt.Errorf("create gzip reader: %w", err))
			return
		}
		defer gz.Close()
		in = bufio.NewReader(gz)
	} else {
		in = br
	}

	for {
		line, err := in.ReadString('\n')
		if len(line) > 0 {
			if !yield(strings.TrimRight(line, "\r\n"), nil) {
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				yield("", fmt.Errorf("read input line: %w", err))
			}
			return
		}
	}
}

// Peek returns up to n leading lines of src together with a Source that
// still yields the whole input. Re-readable sources are returned unchanged;
// a StreamSource is replaced by one that replays the peeked lines before
// continuing the stream.
func Peek(src Source, n int) ([]string, Source, error) {
	stream, ok := src.(*StreamSource)
	if !ok {
		var lines []string
		if n <= 0 {
			return lines, src, nil
		}
		for line, err := range src.Lines() {
			if err != nil {
				return nil, nil, err
			}
			lines = append(lines, line)
			if len(lines) >= n {
				break
			}
		}
		return lines, src, nil
	}

	next, stop := iter.Pull2(stream.Lines())
	var lines []string
	for len(lines) < n {
		line, err, ok := next()
		if !ok {
			break
		}
		if err != nil {
			stop()
			return nil, nil, err
		}
		lines = append(lines, line)
	}
	return lines, &replaySource{head: lines, next: next, stop: stop}, nil
}

// replaySource is the single-pass remainder of a peeked stream.
type replaySource struct {
	head []string
	next func() (string, error, bool)
	stop func()
	used bool
}

func (s *replaySource) Name() string { return "" }

func (s *replaySource) Lines() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if s.used {
			yield("", ErrConsumed)
			return
		}
		s.used = true
		defer s.stop()
		for _, line := range s.head {
			if !yield(line, nil) {
				return
			}
		}
		for {
			line, err, ok := s.next()
			if !ok {
				return
			}
			if !yield(line, err) || err != nil {
				return
			}
		}
	}
}
