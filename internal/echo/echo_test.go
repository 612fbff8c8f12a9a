package echo

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/m-lab/go/rtx"
)

// startServer binds s on a random loopback port and serves it until the
// test ends. It returns a channel that receives Serve's return value.
func startServer(t *testing.T, s Server) (context.CancelFunc, <-chan error) {
	ctx, cancel := context.WithCancel(context.Background())
	rtx.Must(s.Listen(ctx), "cannot listen")
	select {
	case <-s.Ready():
	default:
		t.Fatalf("Ready() not closed after Listen()")
	}
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx)
	}()
	t.Cleanup(cancel)
	return cancel, done
}

func waitServe(t *testing.T, done <-chan error) {
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() returned error after cancel: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("Serve() did not return after cancel")
	}
}

func streamRoundTrip(t *testing.T, addr string, payload []byte) []byte {
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	rtx.Must(err, "cannot dial %s", addr)
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(time.Second))
	_, err = conn.Write(payload)
	rtx.Must(err, "cannot write")
	buf := make([]byte, 1024)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("cannot read echo: %v", err)
	}
	return buf[:n]
}

func TestStreamServer_Echo(t *testing.T) {
	s := NewStreamServer("127.0.0.1:0")
	startServer(t, s)

	payload := []byte("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	for i := 0; i < 10; i++ {
		got := streamRoundTrip(t, s.Addr().String(), payload)
		if !bytes.Equal(got, payload) {
			t.Fatalf("echo = %q, want %q", got, payload)
		}
	}
}

func TestStreamServer_CongestionControl(t *testing.T) {
	prev := log.GetLevel()
	log.SetLevel(log.DebugLevel)
	t.Cleanup(func() { log.SetLevel(prev) })

	// An algorithm the kernel rejects must not prevent the echo.
	s := NewStreamServer("127.0.0.1:0")
	s.CongestionControl = "no-such-cc"
	startServer(t, s)

	payload := []byte("ping")
	if got := streamRoundTrip(t, s.Addr().String(), payload); !bytes.Equal(got, payload) {
		t.Fatalf("echo = %q, want %q", got, payload)
	}
}

func TestStreamServer_ClosesAfterEcho(t *testing.T) {
	s := NewStreamServer("127.0.0.1:0")
	startServer(t, s)

	conn, err := net.Dial("tcp", s.Addr().String())
	rtx.Must(err, "cannot dial")
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(time.Second))
	_, err = conn.Write([]byte("x"))
	rtx.Must(err, "cannot write")
	buf := make([]byte, 8)
	n, err := conn.Read(buf)
	if err != nil || n != 1 {
		t.Fatalf("Read() = %d, %v", n, err)
	}
	// The server closes the connection after a single echo.
	_, err = conn.Read(buf)
	if err == nil {
		t.Errorf("expected EOF after echo, got nil")
	}
}

func TestStreamServer_ZeroByteRead(t *testing.T) {
	s := NewStreamServer("127.0.0.1:0")
	startServer(t, s)

	// Peer closes without sending anything.
	conn, err := net.Dial("tcp", s.Addr().String())
	rtx.Must(err, "cannot dial")
	conn.(*net.TCPConn).CloseWrite()
	conn.SetDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 8)
	n, _ := conn.Read(buf)
	if n != 0 {
		t.Errorf("server echoed %d bytes to an empty request", n)
	}
	conn.Close()

	// A reset connection must not stop the server either.
	conn, err = net.Dial("tcp", s.Addr().String())
	rtx.Must(err, "cannot dial")
	conn.(*net.TCPConn).SetLinger(0)
	conn.Close()

	// The accept loop keeps going.
	got := streamRoundTrip(t, s.Addr().String(), []byte("still alive"))
	if string(got) != "still alive" {
		t.Errorf("echo = %q after empty connection", got)
	}
}

func TestStreamServer_ConcurrentConnections(t *testing.T) {
	s := NewStreamServer("127.0.0.1:0")
	startServer(t, s)

	// An idle connection must not block the next one.
	idle, err := net.Dial("tcp", s.Addr().String())
	rtx.Must(err, "cannot dial")
	defer idle.Close()

	got := streamRoundTrip(t, s.Addr().String(), []byte("second"))
	if string(got) != "second" {
		t.Errorf("echo = %q", got)
	}
}

func TestStreamServer_Shutdown(t *testing.T) {
	s := NewStreamServer("127.0.0.1:0")
	cancel, done := startServer(t, s)

	// An in-flight idle connection must not prevent shutdown.
	idle, err := net.Dial("tcp", s.Addr().String())
	rtx.Must(err, "cannot dial")
	defer idle.Close()
	time.Sleep(10 * time.Millisecond)

	cancel()
	waitServe(t, done)

	_, err = net.DialTimeout("tcp", s.Addr().String(), 100*time.Millisecond)
	if err == nil {
		t.Errorf("listener still accepting after shutdown")
	}
}

func TestServe_NotListening(t *testing.T) {
	for _, s := range []Server{
		NewStreamServer("127.0.0.1:0"),
		NewDatagramServer("127.0.0.1:0"),
	} {
		if err := s.Serve(context.Background()); !errors.Is(err, ErrNotListening) {
			t.Errorf("%T.Serve() = %v, want %v", s, err, ErrNotListening)
		}
		if s.Addr() != nil {
			t.Errorf("%T.Addr() != nil before Listen", s)
		}
	}
}

func TestListen_AddressInUse(t *testing.T) {
	s := NewStreamServer("127.0.0.1:0")
	startServer(t, s)
	other := NewStreamServer(s.Addr().String())
	if err := other.Listen(context.Background()); err == nil {
		t.Errorf("Listen() on a bound port should fail")
	}
}

func TestDatagramServer_Echo(t *testing.T) {
	s := NewDatagramServer("127.0.0.1:0")
	startServer(t, s)

	conn, err := net.Dial("udp", s.Addr().String())
	rtx.Must(err, "cannot dial")
	defer conn.Close()

	buf := make([]byte, 1024)
	for _, payload := range [][]byte{[]byte("a"), bytes.Repeat([]byte{0xff, 0x00}, 256)} {
		conn.SetDeadline(time.Now().Add(time.Second))
		_, err = conn.Write(payload)
		rtx.Must(err, "cannot write")
		n, err := conn.Read(buf)
		if err != nil {
			t.Fatalf("cannot read echo: %v", err)
		}
		if !bytes.Equal(buf[:n], payload) {
			t.Errorf("echo = %x, want %x", buf[:n], payload)
		}
	}
}

func TestDatagramServer_EmptyDatagram(t *testing.T) {
	s := NewDatagramServer("127.0.0.1:0")
	startServer(t, s)

	conn, err := net.Dial("udp", s.Addr().String())
	rtx.Must(err, "cannot dial")
	defer conn.Close()

	_, err = conn.Write(nil)
	rtx.Must(err, "cannot write")
	conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	buf := make([]byte, 8)
	_, err = conn.Read(buf)
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Errorf("expected timeout for empty datagram, got %v", err)
	}

	// The server keeps echoing afterwards.
	conn.SetDeadline(time.Now().Add(time.Second))
	_, err = conn.Write([]byte("ok"))
	rtx.Must(err, "cannot write")
	n, err := conn.Read(buf)
	if err != nil || string(buf[:n]) != "ok" {
		t.Errorf("Read() = %q, %v", buf[:n], err)
	}
}

func TestDatagramServer_Shutdown(t *testing.T) {
	s := NewDatagramServer("127.0.0.1:0")
	cancel, done := startServer(t, s)
	cancel()
	waitServe(t, done)
}
