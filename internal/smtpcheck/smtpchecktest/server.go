// Package smtpchecktest provides an implicit-TLS SMTP responder for tests.
// It supports EHLO, AUTH PLAIN, AUTH LOGIN and QUIT and never accepts mail.
package smtpchecktest

import (
	"bufio"
	"crypto/tls"
	"encoding/base64"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	relaytls "github.com/shineum/contact-relay/internal/tls"
)

// Server accepts a single username/password pair.
type Server struct {
	Host string
	Port int

	username   string
	password   string
	mechanisms []string

	mu       sync.Mutex
	commands []string
	authMech []string
}

// NewServer starts a responder on a random loopback port that advertises the
// given AUTH mechanisms (PLAIN and LOGIN when none are given). It is closed
// when the test ends.
func NewServer(t testing.TB, username, password string, mechanisms ...string) *Server {
	t.Helper()

	if len(mechanisms) == 0 {
		mechanisms = []string{"PLAIN", "LOGIN"}
	}

	cert, err := relaytls.GenerateSelfSigned()
	if err != nil {
		t.Fatalf("failed to generate cert: %v", err)
	}

	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
		Certificates: []tls.Certificate{*cert},
		MinVersion:   tls.VersionTLS12,
	})
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)

	s := &Server{
		Host:       host,
		Port:       port,
		username:   username,
		password:   password,
		mechanisms: mechanisms,
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serve(conn)
		}
	}()

	return s
}

// Commands returns the SMTP verbs received so far, in order.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

// AuthMechanisms returns the mechanism named by each AUTH command received.
func (s *Server) AuthMechanisms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.authMech...)
}

func (s *Server) record(verb string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, verb)
}

func (s *Server) recordMech(mech string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authMech = append(s.authMech, mech)
}

func (s *Server) offers(mech string) bool {
	for _, m := range s.mechanisms {
		if m == mech {
			return true
		}
	}
	return false
}

func (s *Server) serve(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	r := bufio.NewReader(conn)
	reply := func(lines ...string) {
		for _, l := range lines {
			_, _ = conn.Write([]byte(l + "\r\n"))
		}
	}
	readLine := func() (string, bool) {
		line, err := r.ReadString('\n')
		if err != nil {
			return "", false
		}
		return strings.TrimRight(line, "\r\n"), true
	}
	decode := func(v string) string {
		b, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return ""
		}
		return string(b)
	}

	reply("220 localhost ESMTP ready")
	for {
		line, ok := readLine()
		if !ok {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			reply("500 5.5.2 Empty command")
			continue
		}
		verb := strings.ToUpper(fields[0])
		s.record(verb)

		switch verb {
		case "EHLO":
			reply("250-localhost", "250 AUTH "+strings.Join(s.mechanisms, " "))
		case "HELO":
			reply("250 localhost")
		case "AUTH":
			if len(fields) < 2 {
				reply("501 5.5.4 Syntax error")
				continue
			}
			mech := strings.ToUpper(fields[1])
			s.recordMech(mech)
			if !s.offers(mech) {
				reply("504 5.5.4 Unrecognized authentication type")
				continue
			}

			var user, pass string
			switch mech {
			case "PLAIN":
				if len(fields) < 3 {
					reply("501 5.5.4 Initial response required")
					continue
				}
				parts := strings.Split(decode(fields[2]), "\x00")
				if len(parts) == 3 {
					user, pass = parts[1], parts[2]
				}
			case "LOGIN":
				if len(fields) >= 3 {
					user = decode(fields[2])
				} else {
					reply("334 " + base64.StdEncoding.EncodeToString([]byte("Username:")))
					l, ok := readLine()
					if !ok {
						return
					}
					user = decode(l)
				}
				reply("334 " + base64.StdEncoding.EncodeToString([]byte("Password:")))
				l, ok := readLine()
				if !ok {
					return
				}
				pass = decode(l)
			}

			if user == s.username && pass == s.password {
				reply("235 2.7.0 Authentication successful")
			} else {
				reply("535 5.7.8 Authentication credentials invalid")
			}
		case "QUIT":
			reply("221 2.0.0 Bye")
			return
		default:
			reply("502 5.5.2 Command not recognized")
		}
	}
}
