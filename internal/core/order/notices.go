package order

import (
	"fmt"

	"github.com/rl1809/catalog-cart/internal/core/domain"
)

const (
	NoticeRequiredFields = "⚠️ Completá los campos requeridos"
	NoticeSent           = "✅ Pedido enviado!"
	NoticeInvalidPhone   = "⚠️ Número de WhatsApp no válido"
	NoticeSendFailed     = "⚠️ Error al enviar el pedido. Intentá de nuevo."
	NoticeEmptyCart      = "⚠️ El carrito está vacío"
)

// StockNotice is the customer-facing text for a failed stock check.
func StockNotice(e *domain.StockError) string {
	if e.Available <= 0 {
		return fmt.Sprintf("\"%s\" ya no está disponible", e.Name)
	}
	return fmt.Sprintf("\"%s\" solo tiene %d unidades disponibles", e.Name, e.Available)
}
