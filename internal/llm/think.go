package llm

import (
	"regexp"
	"strings"
)

var thinkBlockRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripThinkTags removes reasoning blocks from a complete response.
func StripThinkTags(s string) string {
	return strings.TrimSpace(thinkBlockRe.ReplaceAllString(s, ""))
}

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// thinkFilter suppresses <think>...</think> spans in a streamed response.
// Delimiters may straddle chunk boundaries, so the filter buffers any suffix
// that could be the start of a delimiter until the next chunk resolves it.
type thinkFilter struct {
	inside bool
	buf    string
}

// Feed consumes one raw chunk and returns the text safe to emit now.
func (f *thinkFilter) Feed(chunk string) string {
	f.buf += chunk
	var out strings.Builder
	for {
		if f.inside {
			idx := strings.Index(f.buf, thinkClose)
			if idx < 0 {
				// Keep only what could be the start of the closer.
				f.buf = tailPartial(f.buf, thinkClose)
				return out.String()
			}
			f.buf = f.buf[idx+len(thinkClose):]
			f.inside = false
			continue
		}
		idx := strings.Index(f.buf, thinkOpen)
		if idx < 0 {
			n := partialLen(f.buf, thinkOpen)
			out.WriteString(f.buf[:len(f.buf)-n])
			f.buf = f.buf[len(f.buf)-n:]
			return out.String()
		}
		out.WriteString(f.buf[:idx])
		f.buf = f.buf[idx+len(thinkOpen):]
		f.inside = true
	}
}

// Flush returns any text still held at end of stream. An unterminated think
// block is dropped; a buffered partial delimiter outside a block was plain
// text after all.
func (f *thinkFilter) Flush() string {
	if f.inside {
		f.buf = ""
		return ""
	}
	out := f.buf
	f.buf = ""
	return out
}

// partialLen reports how many trailing bytes of s form a proper prefix of
// delim.
func partialLen(s, delim string) int {
	max := len(delim) - 1
	if max > len(s) {
		max = len(s)
	}
	for n := max; n > 0; n-- {
		if strings.HasSuffix(s, delim[:n]) {
			return n
		}
	}
	return 0
}

func tailPartial(s, delim string) string {
	return s[len(s)-partialLen(s, delim):]
}
