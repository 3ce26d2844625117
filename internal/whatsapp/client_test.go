package whatsapp

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"google.golang.org/protobuf/proto"

	"go.mau.fi/whatsmeow/proto/waE2E"

	apperrors "github.com/puntodigital/cursosbot/internal/errors"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		msg  *waE2E.Message
		want string
	}{
		{"Nil message", nil, ""},
		{
			"Plain conversation",
			&waE2E.Message{Conversation: proto.String("hola")},
			"hola",
		},
		{
			"Extended text",
			&waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("con link preview")}},
			"con link preview",
		},
		{
			"Image without caption yields empty",
			&waE2E.Message{ImageMessage: &waE2E.ImageMessage{}},
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractText(tt.msg); got != tt.want {
				t.Errorf("extractText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseJID(t *testing.T) {
	jid, err := parseJID("5493884123456@s.whatsapp.net")
	if err != nil {
		t.Fatalf("parseJID() error = %v", err)
	}
	if jid.User != "5493884123456" {
		t.Errorf("User = %q", jid.User)
	}

	// Bare numbers get the default user server.
	jid, err = parseJID("5493884123456")
	if err != nil {
		t.Fatalf("parseJID(bare) error = %v", err)
	}
	if jid.Server != "s.whatsapp.net" {
		t.Errorf("Server = %q", jid.Server)
	}

	if _, err := parseJID("123:notadevice@s.whatsapp.net"); err == nil {
		t.Error("expected error for malformed JID")
	} else if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

func TestFetchImageRejectsNonImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body>no soy una imagen</body></html>"))
	}))
	defer srv.Close()

	_, _, err := fetchImage(t.Context(), srv.URL)
	if err == nil {
		t.Fatal("expected error for non-image content")
	}
	if !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
	if msg := apperrors.GetUserMessage(err); !strings.Contains(msg, "text/html") {
		t.Errorf("user message = %q, want the detected content type", msg)
	}
}

func TestFetchImageAcceptsImage(t *testing.T) {
	// Minimal PNG header so content sniffing also agrees.
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}))
	defer srv.Close()

	data, mimeType, err := fetchImage(t.Context(), srv.URL)
	if err != nil {
		t.Fatalf("fetchImage() error = %v", err)
	}
	if mimeType != "image/png" {
		t.Errorf("mimeType = %q, want image/png", mimeType)
	}
	if len(data) != len(png) {
		t.Errorf("len(data) = %d, want %d", len(data), len(png))
	}
}
