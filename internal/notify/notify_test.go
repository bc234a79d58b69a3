package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	netmail "net/mail"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eventide/backend/internal/models"
)

var note = models.Notification{EventID: "E1", UserID: "U1", UserName: "Alice", EventTitle: "Demo Talk"}

func testMailer() *SMTPMailer {
	return NewSMTPMailer("smtp.example.com", 587, "", "", "noreply@example.com", "Eventide")
}

// render builds msg and parses the wire form back.
func render(t *testing.T, m *SMTPMailer, msg Message) *netmail.Message {
	t.Helper()
	out, err := m.build(msg)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = out.WriteTo(&buf)
	require.NoError(t, err)
	parsed, err := netmail.ReadMessage(&buf)
	require.NoError(t, err)
	return parsed
}

func decodeHeader(t *testing.T, v string) string {
	t.Helper()
	out, err := new(mime.WordDecoder).DecodeHeader(v)
	require.NoError(t, err)
	return out
}

func TestComposeConfirmed(t *testing.T) {
	msg := Confirmed("alice@example.com", note, []byte("%PDF-1.3"))
	assert.Equal(t, "You're registered: Demo Talk", msg.Subject)
	assert.Contains(t, msg.Body, "Hi Alice")
	assert.Contains(t, msg.Body, "eTicket is attached")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "ticket-E1.pdf", msg.Attachments[0].Filename)

	msg = Confirmed("alice@example.com", models.Notification{EventTitle: "Demo Talk"}, nil)
	assert.Empty(t, msg.Attachments)
	assert.Contains(t, msg.Body, "Hi there")
}

func TestComposeCancelled(t *testing.T) {
	msg := Cancelled("alice@example.com", note)
	assert.Equal(t, "Registration cancelled: Demo Talk", msg.Subject)
	assert.Contains(t, msg.Body, "no longer valid")
}

func TestBuildPlainMessage(t *testing.T) {
	parsed := render(t, testMailer(), Cancelled("alice@example.com", note))

	from, err := netmail.ParseAddress(parsed.Header.Get("From"))
	require.NoError(t, err)
	assert.Equal(t, "Eventide", from.Name)
	assert.Equal(t, "noreply@example.com", from.Address)
	to, err := netmail.ParseAddress(parsed.Header.Get("To"))
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", to.Address)
	assert.Equal(t, "Registration cancelled: Demo Talk", decodeHeader(t, parsed.Header.Get("Subject")))
	assert.NotEmpty(t, parsed.Header.Get("Message-ID"))
	assert.NotEmpty(t, parsed.Header.Get("Date"))

	var body io.Reader = parsed.Body
	if strings.EqualFold(parsed.Header.Get("Content-Transfer-Encoding"), "quoted-printable") {
		body = quotedprintable.NewReader(body)
	}
	text, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Contains(t, string(text), "Hi Alice")
}

func TestBuildMessageWithAttachment(t *testing.T) {
	pdf := bytes.Repeat([]byte("%PDF-1.3 eticket "), 20)
	parsed := render(t, testMailer(), Confirmed("Alice <alice@example.com>", note, pdf))

	mediaType, params, err := mime.ParseMediaType(parsed.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	mr := multipart.NewReader(parsed.Body, params["boundary"])
	text, err := mr.NextPart()
	require.NoError(t, err)
	body, _ := io.ReadAll(text)
	assert.Contains(t, string(body), "You are registered for Demo Talk")

	att, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "ticket-E1.pdf", att.FileName())
	assert.True(t, strings.HasPrefix(att.Header.Get("Content-Type"), "application/pdf"))
	encoded, _ := io.ReadAll(att)
	for _, line := range strings.Split(strings.TrimSpace(string(encoded)), "\r\n") {
		assert.LessOrEqual(t, len(line), 76)
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(string(encoded), "\r\n", ""))
	require.NoError(t, err)
	assert.Equal(t, pdf, decoded)

	_, err = mr.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestBuildRejectsBadRecipient(t *testing.T) {
	_, err := testMailer().build(Message{To: "not an address", Subject: "x"})
	assert.Error(t, err)
}

func TestSendHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, testMailer().Send(ctx, Cancelled("alice@example.com", note)), context.Canceled)
}

// smtpSink is a minimal SMTP relay that accepts every command and records DATA.
type smtpSink struct {
	ln   net.Listener
	mu   sync.Mutex
	rcpt []string
	data []string
}

func newSMTPSink(t *testing.T) *smtpSink {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &smtpSink{ln: ln}
	t.Cleanup(func() { ln.Close() })
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

func (s *smtpSink) serve(conn net.Conn) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 sink ready")
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		cmd := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(cmd, "EHLO"):
			_ = tp.PrintfLine("250-sink")
			_ = tp.PrintfLine("250 8BITMIME")
		case strings.HasPrefix(cmd, "RCPT TO:"):
			s.mu.Lock()
			s.rcpt = append(s.rcpt, line[len("RCPT TO:"):])
			s.mu.Unlock()
			_ = tp.PrintfLine("250 OK")
		case cmd == "DATA":
			_ = tp.PrintfLine("354 go ahead")
			raw, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.data = append(s.data, string(raw))
			s.mu.Unlock()
			_ = tp.PrintfLine("250 queued")
		case cmd == "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("250 OK")
		}
	}
}

func TestSMTPMailerDelivers(t *testing.T) {
	sink := newSMTPSink(t)
	host, portStr, err := net.SplitHostPort(sink.ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	m := NewSMTPMailer(host, port, "", "", "noreply@example.com", "Eventide")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Send(ctx, Confirmed("alice@example.com", note, []byte("%PDF-1.3"))))

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.data, 1)
	assert.Equal(t, []string{"<alice@example.com>"}, sink.rcpt)
	assert.Contains(t, sink.data[0], "ticket-E1.pdf")
}

func TestLogMailer(t *testing.T) {
	assert.NoError(t, NewLogMailer(zap.NewNop()).Send(context.Background(), Confirmed("a@b.c", note, nil)))
}
