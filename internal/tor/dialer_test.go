package tor

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
)

func TestNewDialer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		address string
		valid   bool
	}{
		{"127.0.0.1:9050", true},
		{"localhost:9150", true},
		{"[::1]:9050", true},
		{"127.0.0.1", false},
		{":9050", false},
		{"127.0.0.1:0", false},
		{"127.0.0.1:65536", false},
		{"127.0.0.1:port", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			t.Parallel()

			d, err := NewDialer(tt.address)
			if tt.valid {
				if err != nil {
					t.Fatalf("NewDialer(%q) error = %v", tt.address, err)
				}
				if d.ProxyAddress() != tt.address {
					t.Errorf("ProxyAddress() = %q", d.ProxyAddress())
				}
				return
			}
			if !errors.Is(err, ErrInvalidProxyAddress) {
				t.Errorf("NewDialer(%q) error = %v, want ErrInvalidProxyAddress", tt.address, err)
			}
		})
	}
}

// serveSOCKS5 accepts connections on l, performs a no-auth SOCKS5 CONNECT
// handshake and relays bytes to the requested address.
func serveSOCKS5(t *testing.T, l net.Listener, connects chan<- string) {
	t.Helper()

	for {
		conn, err := l.Accept()
		if err != nil {
			return
		}
		go func(conn net.Conn) {
			defer conn.Close()

			head := make([]byte, 2)
			if _, err := io.ReadFull(conn, head); err != nil {
				return
			}
			if _, err := io.ReadFull(conn, make([]byte, head[1])); err != nil {
				return
			}
			if _, err := conn.Write([]byte{0x05, 0x00}); err != nil {
				return
			}

			req := make([]byte, 4)
			if _, err := io.ReadFull(conn, req); err != nil {
				return
			}
			var host string
			switch req[3] {
			case 0x01:
				ip := make([]byte, 4)
				if _, err := io.ReadFull(conn, ip); err != nil {
					return
				}
				host = net.IP(ip).String()
			case 0x03:
				n := make([]byte, 1)
				if _, err := io.ReadFull(conn, n); err != nil {
					return
				}
				name := make([]byte, n[0])
				if _, err := io.ReadFull(conn, name); err != nil {
					return
				}
				host = string(name)
			case 0x04:
				ip := make([]byte, 16)
				if _, err := io.ReadFull(conn, ip); err != nil {
					return
				}
				host = net.IP(ip).String()
			default:
				return
			}
			port := make([]byte, 2)
			if _, err := io.ReadFull(conn, port); err != nil {
				return
			}
			target := net.JoinHostPort(host, strconv.Itoa(int(binary.BigEndian.Uint16(port))))
			connects <- target

			upstream, err := net.Dial("tcp", target)
			if err != nil {
				_, _ = conn.Write([]byte{0x05, 0x05, 0x00, 0x01, 0, 0, 0, 0, 0, 0}) //nolint:errcheck // test proxy
				return
			}
			defer upstream.Close()
			if _, err := conn.Write([]byte{0x05, 0x00, 0x00, 0x01, 0, 0, 0, 0, 0, 0}); err != nil {
				return
			}

			go func() { _, _ = io.Copy(upstream, conn) }() //nolint:errcheck // test proxy
			_, _ = io.Copy(conn, upstream)                  //nolint:errcheck // test proxy
		}(conn)
	}
}

func TestDialerRoutesThroughProxy(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("via proxy")) //nolint:errcheck // test server
	}))
	t.Cleanup(srv.Close)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() }) //nolint:errcheck // test cleanup

	connects := make(chan string, 4)
	go serveSOCKS5(t, l, connects)

	d, err := NewDialer(l.Addr().String())
	if err != nil {
		t.Fatalf("NewDialer() error = %v", err)
	}

	client := &http.Client{Transport: &http.Transport{DialContext: d.DialContext}}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET through proxy: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "via proxy" {
		t.Errorf("body = %q", body)
	}
	if got := <-connects; got != srv.Listener.Addr().String() {
		t.Errorf("proxy CONNECT target = %q, want %q", got, srv.Listener.Addr().String())
	}
}

func TestDialerHonorsContext(t *testing.T) {
	t.Parallel()

	d, err := NewDialer("127.0.0.1:9")
	if err != nil {
		t.Fatalf("NewDialer() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.DialContext(ctx, "tcp", "example.com:80"); err == nil {
		t.Error("expected an error for a cancelled context")
	}
}
