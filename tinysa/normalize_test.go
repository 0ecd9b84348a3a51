package tinysa

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  string
	}{
		{"version", versionReply, "1.2.3\r"},
		{"empty payload", "pause\r\nch>", ""},
		{"multi line", "frequencies\r\n1500000000\r\n3000000000\r\nch>", "1500000000\r\n3000000000\r"},
		{"binary", "capture\r\n\x00\r\n\xffch>", "\x00\r\n\xff"},
		{"no line break", "1.2.3\nch>", "1.2.3"},
		{"no prompt", "version\r\n1.2.3\r", "1.2.3\r"},
		{"no framing", "garbage", "garbage"},
		{"empty", "", ""},
		{"other prompt", "version\r\nok>", "ok>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize([]byte(tt.frame))
			if string(got) != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.frame, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	frames := []string{
		versionReply,
		"status\r\nResumed\r\nch>",
		"pause\r\nch>",
		"vbat\r\n4132 mV\rch>",
	}
	for _, f := range frames {
		once := Normalize([]byte(f))
		twice := Normalize(once)
		if string(once) != string(twice) {
			t.Errorf("Normalize not idempotent for %q: %q then %q", f, once, twice)
		}
	}
}
