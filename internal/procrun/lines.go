package procrun

import (
	"bufio"
	"io"
	"strings"
)

func scanLines(r io.Reader, fn func(line string)) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	scanner.Split(splitByNewlineOrCR)
	for scanner.Scan() {
		fn(scanner.Text())
	}
	// Drain so a chatty child never blocks on a full pipe after a scan error.
	_, _ = io.Copy(io.Discard, r)
}

// splitByNewlineOrCR treats carriage returns as line breaks so progress
// updates that rewrite the same terminal line arrive one by one.
func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// tailBuffer keeps the most recent max bytes of line output.
type tailBuffer struct {
	max   int
	lines []string
	size  int
}

func (b *tailBuffer) WriteLine(line string) {
	b.lines = append(b.lines, line)
	b.size += len(line) + 1
	for b.size > b.max && len(b.lines) > 1 {
		b.size -= len(b.lines[0]) + 1
		b.lines = b.lines[1:]
	}
}

func (b *tailBuffer) String() string {
	if len(b.lines) == 0 {
		return ""
	}
	return strings.Join(b.lines, "\n") + "\n"
}
