package main

import (
	"fmt"
	"io"
)

// rawLineReader reads one line at a time from a terminal already switched
// into raw mode, echoing input and handling backspace/Ctrl+C/Ctrl+D itself
// since raw mode disables the kernel's own line discipline. Condensed from
// repl/input_tty.go's ttyInput.readLine: no history, no arrow-key
// navigation, no Ctrl+L redraw - just enough editing to type a command and
// fix a typo.
type rawLineReader struct {
	in  io.Reader
	out io.Writer
	buf [1]byte
}

func newRawLineReader(in io.Reader, out io.Writer) *rawLineReader {
	return &rawLineReader{in: in, out: out}
}

// readLine prints prompt, then reads until Enter, Ctrl+C, or Ctrl+D/EOF.
// The second return is false when the caller should stop (quit the REPL).
func (r *rawLineReader) readLine(prompt string) (string, bool) {
	fmt.Fprint(r.out, prompt)
	line := make([]byte, 0, 64)

	for {
		n, err := r.in.Read(r.buf[:])
		if n == 0 && err != nil {
			return "", false
		}
		b := r.buf[0]
		switch b {
		case '\r', '\n':
			fmt.Fprint(r.out, "\r\n")
			return string(line), true
		case 0x03: // Ctrl+C
			fmt.Fprint(r.out, "^C\r\n")
			return "", false
		case 0x04: // Ctrl+D
			if len(line) == 0 {
				fmt.Fprint(r.out, "\r\n")
				return "", false
			}
		case 0x7f, 0x08: // Backspace
			if len(line) > 0 {
				line = line[:len(line)-1]
				fmt.Fprint(r.out, "\b \b")
			}
		default:
			if b >= 0x20 && b < 0x7f {
				line = append(line, b)
				fmt.Fprintf(r.out, "%c", b)
			}
		}
	}
}
