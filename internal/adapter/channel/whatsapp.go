// Package channel hands order messages to WhatsApp through a wa.me deep link.
package channel

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/rl1809/catalog-cart/internal/core/order"
)

const (
	linkBase       = "https://wa.me/"
	minPhoneDigits = 10
)

var (
	ErrInvalidPhone = errors.New("invalid WhatsApp number")
	ErrEncoding     = errors.New("message could not be encoded")
)

type WhatsApp struct {
	phone   string
	maxLink int
}

// NewWhatsApp keeps only the digits of phone. maxLink caps the length of
// the generated link; zero means no cap.
func NewWhatsApp(phone string, maxLink int) *WhatsApp {
	return &WhatsApp{phone: digits(phone), maxLink: maxLink}
}

func (w *WhatsApp) Check() error {
	if len(w.phone) < minPhoneDigits {
		return errors.Wrapf(ErrInvalidPhone, "%d digits", len(w.phone))
	}
	return nil
}

// Handoff sanitises and encodes message into a deep link. If the full
// message cannot be carried, a Latin-only version is tried before failing.
func (w *WhatsApp) Handoff(ctx context.Context, message string) (string, error) {
	if err := w.Check(); err != nil {
		return "", err
	}
	clean := order.Sanitize(message)
	link, err := w.link(clean)
	if err == nil {
		return link, nil
	}
	log.WithError(err).Warn("falling back to simplified order message")
	link, err = w.link(order.Simplify(clean))
	if err != nil {
		return "", err
	}
	return link, nil
}

func (w *WhatsApp) link(text string) (string, error) {
	encoded, err := EncodeURIComponent(text)
	if err != nil {
		return "", err
	}
	link := linkBase + w.phone + "?text=" + encoded
	if w.maxLink > 0 && len(link) > w.maxLink {
		return "", errors.Wrapf(ErrEncoding, "link is %d bytes, limit %d", len(link), w.maxLink)
	}
	return link, nil
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

const unreserved = "-_.!~*'()"

// EncodeURIComponent percent-encodes UTF-8 bytes of text, leaving ASCII
// letters, digits and -_.!~*'() alone. Invalid UTF-8 is an error.
func EncodeURIComponent(text string) (string, error) {
	if !utf8.ValidString(text) {
		return "", errors.WithStack(ErrEncoding)
	}
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(text) * 3)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || strings.IndexByte(unreserved, c) >= 0 {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String(), nil
}
