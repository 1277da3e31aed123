package message

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	gomessage "github.com/emersion/go-message"
	// Register charset decoders (windows-1252, iso-8859-*, koi8-r, etc.)
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// Parsed is the decoded view of one message.
type Parsed struct {
	From    string
	Subject string
	// Date is nil when the header is absent or unparseable.
	Date *time.Time
	Text string
	HTML string
}

// ParseError wraps a failure to decode a raw message.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse message: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse decodes raw RFC 5322 bytes. The first inline text/plain part becomes
// Text and the first inline text/html part becomes HTML; attachments are skipped.
// Unknown charsets are tolerated and leave the part undecoded.
func Parse(raw []byte) (Parsed, error) {
	if len(raw) == 0 {
		return Parsed{}, &ParseError{Err: errors.New("empty message")}
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !gomessage.IsUnknownCharset(err) {
		return Parsed{}, &ParseError{Err: err}
	}
	if mr == nil {
		return Parsed{}, &ParseError{Err: errors.New("no message reader")}
	}
	defer mr.Close()

	parsed := Parsed{
		From:    senderText(mr.Header),
		Subject: subjectText(mr.Header),
	}
	if date, err := mr.Header.Date(); err == nil && !date.IsZero() {
		parsed.Date = &date
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !gomessage.IsUnknownCharset(err) {
			return Parsed{}, &ParseError{Err: err}
		}
		if part == nil {
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, ctErr := h.ContentType()
		if ctErr != nil || contentType == "" {
			contentType = "text/plain"
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain") && parsed.Text == "":
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				return Parsed{}, &ParseError{Err: readErr}
			}
			parsed.Text = string(body)
		case strings.HasPrefix(contentType, "text/html") && parsed.HTML == "":
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				return Parsed{}, &ParseError{Err: readErr}
			}
			parsed.HTML = string(body)
		}
	}

	return parsed, nil
}

func senderText(header mail.Header) string {
	addresses, err := header.AddressList("From")
	if err == nil && len(addresses) > 0 {
		addr := addresses[0]
		if strings.TrimSpace(addr.Name) != "" {
			return fmt.Sprintf("%s <%s>", addr.Name, addr.Address)
		}
		return addr.Address
	}
	value, err := header.Text("From")
	if err != nil {
		return strings.TrimSpace(header.Get("From"))
	}
	return strings.TrimSpace(value)
}

func subjectText(header mail.Header) string {
	subject, err := header.Subject()
	if err != nil {
		return strings.TrimSpace(header.Get("Subject"))
	}
	return strings.TrimSpace(subject)
}
