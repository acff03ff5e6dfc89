package main

import (
	"bufio"
	"io"
	"strings"
	"testing"
)

func TestEventSourceReadsHandshakeBufferFirst(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("early"))
	if _, err := br.Peek(5); err != nil {
		t.Fatal(err)
	}
	conn := strings.NewReader(" later")

	src, release := eventSource(br, conn)
	got, err := io.ReadAll(src)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "early later" {
		t.Errorf("read %q, want %q", got, "early later")
	}
	release()
}

func TestEventSourceWithoutHandshakeBuffer(t *testing.T) {
	conn := strings.NewReader("frames")

	src, release := eventSource(nil, conn)
	if src != io.Reader(conn) {
		t.Error("expected the connection to be read directly")
	}
	release()
}
