// Command relay-client is an interactive terminal client for chanrelay.
// It reads commands from stdin and prints every event the server pushes.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/Tyrowin/chanrelay/internal/logging"
)

func main() {
	addr := flag.String("addr", "ws://127.0.0.1:3012/ws", "websocket endpoint of the relay")
	logLevel := flag.String("log-level", "warn", "Log level: "+logging.LevelNames())
	flag.Parse()

	if err := logging.Setup(logging.Options{Level: *logLevel, Output: os.Stderr}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	conn, br, _, err := ws.DefaultDialer.Dial(ctx, *addr)
	cancel()
	if err != nil {
		slog.Error("dial relay", "addr", *addr, "err", err)
		os.Exit(1)
	}
	defer conn.Close()

	src, release := eventSource(br, conn)

	fmt.Fprintln(os.Stderr, "connected to", *addr)
	fmt.Fprintln(os.Stderr, usage)

	w := &frameWriter{conn: conn}
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer release()
		readEvents(src, w)
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-done:
			return
		case line, ok := <-lines:
			if !ok {
				w.close()
				<-done
				return
			}
			frame, err := parseLine(line)
			if errors.Is(err, errEmptyLine) {
				continue
			}
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			if err := w.write(ws.OpText, frame); err != nil {
				slog.Error("send frame", "err", err)
				return
			}
		}
	}
}

// eventSource returns the reader server frames are read from. br holds any
// frames the server wrote right after the handshake and may be nil. The
// returned release func hands br back to the dialer's pool; call it once
// reading has stopped.
func eventSource(br *bufio.Reader, conn io.Reader) (io.Reader, func()) {
	if br == nil {
		return conn, func() {}
	}
	return io.MultiReader(br, conn), func() { ws.PutReader(br) }
}

// frameWriter serializes writes from the input loop and the pong replies.
type frameWriter struct {
	mu   sync.Mutex
	conn net.Conn
}

func (w *frameWriter) write(op ws.OpCode, payload []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return wsutil.WriteClientMessage(w.conn, op, payload)
}

func (w *frameWriter) close() {
	if err := w.write(ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, "")); err != nil {
		slog.Debug("send close", "err", err)
	}
}

// readEvents prints server frames until the connection ends.
func readEvents(src io.Reader, w *frameWriter) {
	var buf [1]wsutil.Message
	for {
		msgs, err := wsutil.ReadServerMessage(src, buf[:0])
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Info("connection ended", "err", err)
			}
			return
		}

		for i := range msgs {
			msg := &msgs[i]
			switch msg.OpCode {
			case ws.OpClose:
				fmt.Fprintln(os.Stderr, "server closed the connection")
				return
			case ws.OpPing:
				if err := w.write(ws.OpPong, msg.Payload); err != nil {
					slog.Error("send pong", "err", err)
					return
				}
			case ws.OpText, ws.OpBinary:
				fmt.Println(formatEvent(msg.Payload))
			}
		}
	}
}
