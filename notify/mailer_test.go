package notify

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestMailerIsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		expected bool
	}{
		{name: "empty config", config: Config{}, expected: false},
		{name: "missing host", config: Config{Port: 587, From: "desk@example.com"}, expected: false},
		{name: "missing port", config: Config{Host: "smtp.example.com", From: "desk@example.com"}, expected: false},
		{name: "missing from", config: Config{Host: "smtp.example.com", Port: 587}, expected: false},
		{name: "fully configured", config: Config{Host: "smtp.example.com", Port: 587, From: "desk@example.com"}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewSMTPMailer(tt.config)
			if m.IsConfigured() != tt.expected {
				t.Errorf("IsConfigured() = %v, want %v", m.IsConfigured(), tt.expected)
			}
		})
	}
}

func TestSendRequiresConfiguration(t *testing.T) {
	err := NewSMTPMailer(Config{}).Send(context.Background(), Message{To: []string{"a@example.com"}})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

// fakeSMTP accepts one plain-text SMTP session and records the DATA payload.
func fakeSMTP(t *testing.T) (string, int, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	got := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

		r := bufio.NewReader(conn)
		reply := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }
		reply("220 localhost ready")

		var data strings.Builder
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				reply("250 localhost")
			case strings.HasPrefix(cmd, "MAIL FROM"), strings.HasPrefix(cmd, "RCPT TO"):
				reply("250 OK")
			case cmd == "DATA":
				reply("354 go ahead")
				for {
					l, err := r.ReadString('\n')
					if err != nil {
						return
					}
					if l == ".\r\n" {
						break
					}
					data.WriteString(l)
				}
				reply("250 queued")
			case cmd == "QUIT":
				reply("221 bye")
				got <- data.String()
				return
			default:
				reply("502 not implemented")
			}
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port, got
}

func TestSendPlainSMTP(t *testing.T) {
	host, port, got := fakeSMTP(t)
	m := NewSMTPMailer(Config{Host: host, Port: port, From: "desk@example.com"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := m.Send(ctx, Message{To: []string{"boss@example.com"}, Subject: SoldSubject, HTML: "<p>sold</p>"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case body := <-got:
		for _, want := range []string{"Subject: " + SoldSubject, "To: boss@example.com", "<p>sold</p>"} {
			if !strings.Contains(body, want) {
				t.Errorf("payload missing %q:\n%s", want, body)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("fake smtp server received nothing")
	}
}

func TestSendDialFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	m := NewSMTPMailer(Config{Host: "127.0.0.1", Port: port, From: "desk@example.com"})
	err = m.Send(context.Background(), Message{To: []string{"a@example.com"}})
	if err == nil || !strings.Contains(err.Error(), "dial 127.0.0.1:"+strconv.Itoa(port)) {
		t.Fatalf("expected dial error, got %v", err)
	}
}
