// Package whatsapp wraps the whatsmeow client behind the small surface
// the rest of the application needs: connect with QR pairing, receive
// text messages, send text and images. Nothing outside this package and
// the container imports whatsmeow.
package whatsapp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	// SQLite driver for the whatsmeow session store.
	_ "github.com/mattn/go-sqlite3"
	"github.com/mdp/qrterminal/v3"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"github.com/puntodigital/cursosbot/internal/bot"
	"github.com/puntodigital/cursosbot/internal/config"
	apperrors "github.com/puntodigital/cursosbot/internal/errors"
	"github.com/puntodigital/cursosbot/internal/logger"
	"github.com/puntodigital/cursosbot/internal/metrics"
)

const mediaFetchLimit = 10 << 20 // 10 MiB cap on downloaded images

var imageWrap = apperrors.NewWrapper("whatsapp", "send_image")

// Client is the WhatsApp transport. It implements bot.Sender.
type Client struct {
	wa      *whatsmeow.Client
	logger  *logger.Logger
	metrics *metrics.Metrics
	handler func(ctx context.Context, msg bot.InboundMessage)
}

// New opens the session store and builds the client. The session lives
// in a local SQLite database; a missing database triggers QR pairing on
// the first Connect.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (*Client, error) {
	if dir := filepath.Dir(cfg.SessionDBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("whatsapp: create session dir: %w", err)
		}
	}

	container, err := sqlstore.New(ctx, "sqlite3",
		fmt.Sprintf("file:%s?_foreign_keys=on", cfg.SessionDBPath),
		newLogAdapter(log, "whatsapp.store"))
	if err != nil {
		return nil, fmt.Errorf("whatsapp: open session store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("whatsapp: load device: %w", err)
	}

	client := &Client{
		wa:      whatsmeow.NewClient(device, newLogAdapter(log, "whatsapp")),
		logger:  log.WithModule("whatsapp"),
		metrics: m,
	}
	client.wa.AddEventHandler(client.handleEvent)
	return client, nil
}

// OnMessage sets the inbound message handler. Must be called before
// Connect. The handler runs synchronously so each chat's messages are
// processed in delivery order.
func (c *Client) OnMessage(handler func(ctx context.Context, msg bot.InboundMessage)) {
	c.handler = handler
}

// Connect establishes the WhatsApp connection. When the device is not
// yet paired, the QR code is printed to stdout for scanning.
func (c *Client) Connect(ctx context.Context) error {
	if c.wa.Store.ID != nil {
		if err := c.wa.Connect(); err != nil {
			return fmt.Errorf("whatsapp: connect: %w", err)
		}
		c.logger.Info("Connected with existing session")
		return nil
	}

	qrChan, err := c.wa.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("whatsapp: qr channel: %w", err)
	}
	if err := c.wa.Connect(); err != nil {
		return fmt.Errorf("whatsapp: connect: %w", err)
	}

	c.logger.Info("No session found, waiting for QR pairing")
	for evt := range qrChan {
		switch evt.Event {
		case "code":
			qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stdout)
			c.logger.Info("Scan the QR code with WhatsApp on your phone")
		case "success":
			c.logger.Info("Device paired")
			return nil
		default:
			c.logger.WithField("event", evt.Event).Warn("QR pairing event")
		}
	}
	return nil
}

// Disconnect closes the WhatsApp connection.
func (c *Client) Disconnect() {
	c.wa.Disconnect()
}

// IsConnected reports whether the transport is connected and logged in.
func (c *Client) IsConnected() bool {
	return c.wa != nil && c.wa.IsConnected() && c.wa.IsLoggedIn()
}

func (c *Client) handleEvent(evt interface{}) {
	switch v := evt.(type) {
	case *events.Message:
		if c.handler == nil {
			return
		}
		c.handler(context.Background(), bot.InboundMessage{
			ChatID:       v.Info.Chat.String(),
			SenderIsSelf: v.Info.IsFromMe,
			Body:         extractText(v.Message),
		})
	case *events.Disconnected:
		c.logger.Warn("Disconnected from WhatsApp")
	case *events.LoggedOut:
		c.logger.Error("Device logged out, delete the session database and pair again")
	}
}

// extractText pulls plain text out of the supported message shapes.
// Media, reactions and other message kinds yield an empty string and
// are ignored upstream.
func extractText(msg *waE2E.Message) string {
	if msg == nil {
		return ""
	}
	if text := msg.GetConversation(); text != "" {
		return text
	}
	return msg.GetExtendedTextMessage().GetText()
}

// SendText delivers a plain text reply to a chat.
func (c *Client) SendText(ctx context.Context, chatID, text string) error {
	jid, err := parseJID(chatID)
	if err != nil {
		return err
	}
	if !c.IsConnected() {
		return apperrors.ErrNotConnected
	}

	_, err = c.wa.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: proto.String(text),
	})
	if err != nil {
		return fmt.Errorf("whatsapp: send text: %w", err)
	}
	return nil
}

// SendImage downloads an image by URL, uploads it to WhatsApp and
// delivers it with an optional caption.
func (c *Client) SendImage(ctx context.Context, chatID, imageURL, caption string) error {
	jid, err := parseJID(chatID)
	if err != nil {
		return err
	}
	if !c.IsConnected() {
		return apperrors.ErrNotConnected
	}

	data, mimeType, err := fetchImage(ctx, imageURL)
	if err != nil {
		return imageWrap.Wrap(err, "no se pudo descargar la imagen")
	}

	uploaded, err := c.wa.Upload(ctx, data, whatsmeow.MediaImage)
	if err != nil {
		return imageWrap.Wrap(err, "no se pudo subir la imagen a WhatsApp")
	}

	_, err = c.wa.SendMessage(ctx, jid, &waE2E.Message{
		ImageMessage: &waE2E.ImageMessage{
			Caption:       proto.String(caption),
			Mimetype:      proto.String(mimeType),
			URL:           proto.String(uploaded.URL),
			DirectPath:    proto.String(uploaded.DirectPath),
			MediaKey:      uploaded.MediaKey,
			FileEncSHA256: uploaded.FileEncSHA256,
			FileSHA256:    uploaded.FileSHA256,
			FileLength:    proto.Uint64(uint64(len(data))),
		},
	})
	if err != nil {
		return fmt.Errorf("whatsapp: send image: %w", err)
	}
	return nil
}

func parseJID(chatID string) (types.JID, error) {
	if !strings.Contains(chatID, "@") {
		// Bare phone numbers address individual users.
		chatID += "@" + types.DefaultUserServer
	}
	jid, err := types.ParseJID(chatID)
	if err != nil {
		return types.EmptyJID, fmt.Errorf("%w: invalid chat id %q: %v", apperrors.ErrInvalidInput, chatID, err)
	}
	return jid, nil
}

func fetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("whatsapp: build image request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("whatsapp: fetch image: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("whatsapp: fetch image: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, mediaFetchLimit))
	if err != nil {
		return nil, "", fmt.Errorf("whatsapp: read image: %w", err)
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" || !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, "", imageWrap.Wrapf(apperrors.ErrInvalidInput, "el enlace no apunta a una imagen (%s)", mimeType)
	}
	return data, mimeType, nil
}
