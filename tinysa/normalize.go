package tinysa

import "bytes"

var (
	lineBreak   = []byte("\r\n")
	promptToken = []byte(Prompt)
)

// Normalize strips the echoed command line and the trailing prompt from a frame.
// Everything up to and including the first "\r\n" is dropped, then a trailing "ch>"
// and the '\n' right before it. A missing marker leaves that end untouched.
// The returned slice aliases frame.
func Normalize(frame []byte) []byte {
	data := frame
	if i := bytes.Index(data, lineBreak); i >= 0 {
		data = data[i+len(lineBreak):]
	}
	if bytes.HasSuffix(data, promptToken) {
		data = data[:len(data)-len(promptToken)]
		if len(data) > 0 && data[len(data)-1] == '\n' {
			data = data[:len(data)-1]
		}
	}
	return data
}
