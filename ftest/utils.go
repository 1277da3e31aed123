package ftest

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	giimapserver "github.com/emersion/go-imap/v2/imapserver"
	giimapmemserver "github.com/emersion/go-imap/v2/imapserver/imapmemserver"
)

const (
	DefaultUser = "user@example.com"
	DefaultPass = "password"
)

// MailboxMessage is a simple single-part message appended to INBOX.
type MailboxMessage struct {
	From     string
	To       string
	Subject  string
	Date     string
	Body     string
	HTMLBody string
	// Received is the INTERNALDATE; zero means now.
	Received time.Time
}

// RawMessage is appended verbatim.
type RawMessage struct {
	Raw      string
	Received time.Time
}

// Server is a running in-memory IMAPS server.
type Server struct {
	Addr string
	UIDs []uint32
}

// ClientTLSConfig trusts the throwaway certificate of the test server.
func ClientTLSConfig() *tls.Config {
	return &tls.Config{InsecureSkipVerify: true}
}

// SetupIMAPServer starts an IMAPS server whose INBOX holds messages in order.
func SetupIMAPServer(t *testing.T, messages []MailboxMessage) (*Server, func()) {
	t.Helper()

	raws := make([]RawMessage, 0, len(messages))
	for _, msg := range messages {
		raws = append(raws, RawMessage{Raw: SampleMessage(msg), Received: msg.Received})
	}
	return SetupRawIMAPServer(t, raws)
}

// SetupRawIMAPServer starts an IMAPS server whose INBOX holds the raw messages in order.
func SetupRawIMAPServer(t *testing.T, messages []RawMessage) (*Server, func()) {
	t.Helper()

	tlsConfig := testTLSConfig(t)
	mem := giimapmemserver.New()
	user := giimapmemserver.NewUser(DefaultUser, DefaultPass)
	mem.AddUser(user)

	if err := user.Create("INBOX", nil); err != nil {
		t.Fatalf("create mailbox: %v", err)
	}

	srv := &Server{}
	for _, msg := range messages {
		appendTime := msg.Received
		if appendTime.IsZero() {
			appendTime = time.Now()
		}
		data, err := user.Append("INBOX", newLiteral(t, msg.Raw), &imap.AppendOptions{Time: appendTime})
		if err != nil {
			t.Fatalf("append raw message: %v", err)
		}
		srv.UIDs = append(srv.UIDs, uint32(data.UID))
	}

	server := giimapserver.New(&giimapserver.Options{
		NewSession: func(*giimapserver.Conn) (giimapserver.Session, *giimapserver.GreetingData, error) {
			return mem.NewSession(), nil, nil
		},
		Caps: imap.CapSet{
			imap.CapIMAP4rev1: {},
		},
		TLSConfig:    tlsConfig,
		InsecureAuth: true,
	})

	ln, err := tls.Listen("tcp", "127.0.0.1:0", tlsConfig)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv.Addr = ln.Addr().String()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(ln)
	}()

	cleanup := func() {
		_ = server.Close()
		_ = ln.Close()
		select {
		case <-errCh:
		default:
		}
	}

	return srv, cleanup
}

type literalReader struct {
	*bytes.Reader
	size int64
}

func newLiteral(t *testing.T, raw string) imap.LiteralReader {
	t.Helper()
	buf := []byte(raw)
	return &literalReader{
		Reader: bytes.NewReader(buf),
		size:   int64(len(buf)),
	}
}

func (lr *literalReader) Size() int64 {
	return lr.size
}

// SampleMessage renders msg as RFC 5322 text. A message with both bodies becomes
// multipart/alternative.
func SampleMessage(msg MailboxMessage) string {
	builder := &strings.Builder{}
	writeHeader(builder, "From", msg.From)
	writeHeader(builder, "To", msg.To)
	writeHeader(builder, "Subject", msg.Subject)
	writeHeader(builder, "Date", msg.Date)
	builder.WriteString("MIME-Version: 1.0\r\n")

	switch {
	case msg.Body != "" && msg.HTMLBody != "":
		builder.WriteString("Content-Type: multipart/alternative; boundary=\"ftest-boundary\"\r\n")
		builder.WriteString("\r\n")
		builder.WriteString("--ftest-boundary\r\n")
		builder.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		builder.WriteString(msg.Body)
		builder.WriteString("\r\n--ftest-boundary\r\n")
		builder.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
		builder.WriteString(msg.HTMLBody)
		builder.WriteString("\r\n--ftest-boundary--\r\n")
	case msg.HTMLBody != "":
		builder.WriteString("Content-Type: text/html; charset=utf-8\r\n")
		builder.WriteString("\r\n")
		builder.WriteString(msg.HTMLBody)
		builder.WriteString("\r\n")
	default:
		builder.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
		builder.WriteString("\r\n")
		builder.WriteString(msg.Body)
		builder.WriteString("\r\n")
	}
	return builder.String()
}

func writeHeader(builder *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	builder.WriteString(key)
	builder.WriteString(": ")
	builder.WriteString(value)
	builder.WriteString("\r\n")
}

func testTLSConfig(t *testing.T) *tls.Config {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		t.Fatalf("generate serial: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName: "localhost",
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create cert: %v", err)
	}

	cert := tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"imap"},
	}
}
