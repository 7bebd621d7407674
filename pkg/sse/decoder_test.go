// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package sse

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"testing/iotest"
)

func TestConsume(t *testing.T) {
	tests := []struct {
		name          string
		buffer        string
		input         string
		wantLines     []string
		wantRemainder string
	}{
		{
			name:          "no newline keeps everything",
			input:         "data: {\"a\"",
			wantRemainder: "data: {\"a\"",
		},
		{
			name:      "single complete line",
			input:     "data: 1\n",
			wantLines: []string{"data: 1"},
		},
		{
			name:          "buffer is prepended",
			buffer:        "data: {\"a\":",
			input:         "1}\nevent: x",
			wantLines:     []string{"data: {\"a\":1}"},
			wantRemainder: "event: x",
		},
		{
			name:      "blank lines are preserved",
			input:     "data: 1\n\ndata: 2\n",
			wantLines: []string{"data: 1", "", "data: 2"},
		},
		{
			name:          "carriage returns are kept",
			input:         "data: 1\r\nrest",
			wantLines:     []string{"data: 1\r"},
			wantRemainder: "rest",
		},
		{
			name:      "invalid utf8 is replaced",
			input:     "data: \xff\n",
			wantLines: []string{"data: \uFFFD"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lines, rem := Consume([]byte(tc.buffer), []byte(tc.input))
			if !reflect.DeepEqual(lines, tc.wantLines) {
				t.Fatalf("lines mismatch: got %q want %q", lines, tc.wantLines)
			}
			if string(rem) != tc.wantRemainder {
				t.Fatalf("remainder mismatch: got %q want %q", rem, tc.wantRemainder)
			}
		})
	}
}

func TestConsumeSplitMultiByteCharacter(t *testing.T) {
	full := []byte("data: {\"q\":\"café ☕\"}\n")
	// Cut inside the three byte encoding of the coffee cup.
	cut := strings.Index(string(full), "☕") + 1

	lines, rem := Consume(nil, full[:cut])
	if len(lines) != 0 {
		t.Fatalf("expected no complete lines, got %q", lines)
	}

	lines, rem = Consume(rem, full[cut:])
	if len(rem) != 0 {
		t.Fatalf("expected empty remainder, got %q", rem)
	}
	if len(lines) != 1 || lines[0] != "data: {\"q\":\"café ☕\"}" {
		t.Fatalf("unexpected lines: %q", lines)
	}
}

func TestConsumeDoesNotAliasInput(t *testing.T) {
	input := []byte("abc")
	_, rem := Consume(nil, input)
	input[0] = 'z'
	if string(rem) != "abc" {
		t.Fatalf("remainder aliases caller buffer: %q", rem)
	}
}

func TestConsumeReusesHeldBackBuffer(t *testing.T) {
	buffer := make([]byte, 0, 64)
	buffer = append(buffer, "data: {"...)

	lines, rem := Consume(buffer, []byte(`"a":`))
	if len(lines) != 0 {
		t.Fatalf("expected no complete lines, got %q", lines)
	}
	if &rem[0] != &buffer[0] {
		t.Fatal("unterminated input should grow the held back buffer in place")
	}

	lines, rem = Consume(rem, []byte("1}\ntail"))
	if len(lines) != 1 || lines[0] != `data: {"a":1}` {
		t.Fatalf("unexpected lines: %q", lines)
	}
	if string(rem) != "tail" || &rem[0] != &buffer[0] {
		t.Fatalf("remainder should reuse the held back buffer, got %q", rem)
	}
}

func TestDecoderLargeLineInSmallReads(t *testing.T) {
	const size = 8 << 20
	payload := strings.Repeat("a", size)
	stream := `data: {"x":"` + payload + `"}` + "\n" + "data: 1\n"

	r := &smallReader{r: strings.NewReader(stream), max: 4096}
	dec := NewDecoder(r)

	line, err := dec.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if len(line) != size+len(`data: {"x":""}`) {
		t.Fatalf("unexpected line length: %d", len(line))
	}
	if !strings.HasPrefix(line, `data: {"x":"aaa`) || !strings.HasSuffix(line, `aaa"}`) {
		t.Fatalf("line corrupted: %q...%q", line[:16], line[len(line)-8:])
	}
	if _, ok := ParseData(line); !ok {
		t.Fatal("large data line should parse")
	}

	line, err = dec.Next()
	if err != nil || line != "data: 1" {
		t.Fatalf("unexpected second line %q: %v", line, err)
	}
	if _, err := dec.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	if r.reads < size/4096 {
		t.Fatalf("expected the line to arrive in many reads, got %d", r.reads)
	}
}

func BenchmarkDecoderLargeLine(b *testing.B) {
	stream := `data: {"x":"` + strings.Repeat("a", 4<<20) + `"}` + "\n"
	b.SetBytes(int64(len(stream)))
	for i := 0; i < b.N; i++ {
		dec := NewDecoder(&smallReader{r: strings.NewReader(stream), max: 4096})
		if _, err := dec.Next(); err != nil {
			b.Fatalf("Next: %v", err)
		}
	}
}

// smallReader caps every Read at max bytes and counts the calls.
type smallReader struct {
	r     io.Reader
	max   int
	reads int
}

func (s *smallReader) Read(p []byte) (int, error) {
	s.reads++
	if len(p) > s.max {
		p = p[:s.max]
	}
	return s.r.Read(p)
}

func TestDecoderByteAtATime(t *testing.T) {
	stream := "event: message\ndata: {\"id\":1}\n\ndata: {\"emoji\":\"😀\"}\npartial"
	dec := NewDecoder(iotest.OneByteReader(strings.NewReader(stream)))

	var got []string
	for {
		line, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		got = append(got, line)
	}

	want := []string{"event: message", "data: {\"id\":1}", "", "data: {\"emoji\":\"😀\"}"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("lines mismatch: got %q want %q", got, want)
	}
	if string(dec.Remainder()) != "partial" {
		t.Fatalf("unexpected remainder: %q", dec.Remainder())
	}
	if dec.BytesRead() != int64(len(stream)) {
		t.Fatalf("bytes read mismatch: got %d want %d", dec.BytesRead(), len(stream))
	}
}

func TestDecoderPropagatesReadErrors(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(strings.NewReader("data: 1\n"), iotest.ErrReader(boom))
	dec := NewDecoder(r)

	line, err := dec.Next()
	if err != nil {
		t.Fatalf("first Next: %v", err)
	}
	if line != "data: 1" {
		t.Fatalf("unexpected line: %q", line)
	}

	_, err = dec.Next()
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped read error, got %v", err)
	}
}

func TestDecoderDataAndEOFTogether(t *testing.T) {
	dec := NewDecoder(iotest.DataErrReader(strings.NewReader("data: 1\ndata: 2\n")))

	for _, want := range []string{"data: 1", "data: 2"} {
		line, err := dec.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if line != want {
			t.Fatalf("got %q want %q", line, want)
		}
	}
	if _, err := dec.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}
