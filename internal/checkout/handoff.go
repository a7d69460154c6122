package checkout

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"bakery/internal/cart"
	"bakery/internal/models"
	"bakery/internal/view"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const Action = "checkout"

var (
	ErrEmptyCart    = errors.New("cart is empty")
	ErrCartTooLarge = fmt.Errorf("cart holds more than %d items", cart.MaxItems)
)

// Sender is the part of *tgbotapi.BotAPI the handoff needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// BuildPayload cleans the items and recomputes the totals from them. Carts
// longer than cart.MaxItems, before or after legacy quantities are split,
// are refused.
func BuildPayload(items []models.LineItem) (models.CheckoutPayload, error) {
	if len(items) > cart.MaxItems {
		return models.CheckoutPayload{}, ErrCartTooLarge
	}
	items = cart.Sanitize(items)
	if len(items) == 0 {
		return models.CheckoutPayload{}, ErrEmptyCart
	}
	if len(items) > cart.MaxItems {
		return models.CheckoutPayload{}, ErrCartTooLarge
	}
	count, total := cart.Sum(items)
	return models.CheckoutPayload{
		Action:     Action,
		Reference:  uuid.NewString(),
		Cart:       items,
		Total:      total,
		TotalItems: count,
	}, nil
}

// Handoff passes a finished cart to the chat. Fulfilment happens outside.
type Handoff struct {
	bot          Sender
	ordersChatID int64
	logger       *zap.Logger
}

func NewHandoff(bot Sender, ordersChatID int64, logger *zap.Logger) *Handoff {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handoff{bot: bot, ordersChatID: ordersChatID, logger: logger}
}

// Submit sends the order summary to the buyer and the raw payload to the
// orders chat when one is configured. A failed copy to the orders chat is
// only logged.
func (h *Handoff) Submit(buyer models.Buyer, items []models.LineItem) (models.CheckoutPayload, error) {
	payload, err := BuildPayload(items)
	if err != nil {
		return payload, err
	}

	msg := tgbotapi.NewMessage(buyer.ChatID, FormatOrder(payload))
	if _, err := h.bot.Send(msg); err != nil {
		return payload, fmt.Errorf("send order to chat %d: %w", buyer.ChatID, err)
	}

	if h.ordersChatID != 0 {
		data, err := json.Marshal(payload)
		if err != nil {
			return payload, err
		}
		text := fmt.Sprintf("Новый заказ от %s (chat %d)\n\n%s", buyer.DisplayName(), buyer.ChatID, data)
		if _, err := h.bot.Send(tgbotapi.NewMessage(h.ordersChatID, text)); err != nil {
			h.logger.Warn("order copy not delivered",
				zap.String("reference", payload.Reference),
				zap.Int64("orders_chat_id", h.ordersChatID),
				zap.Error(err))
		}
	}

	h.logger.Info("checkout handed off",
		zap.String("reference", payload.Reference),
		zap.Int64("chat_id", buyer.ChatID),
		zap.Int("items", payload.TotalItems),
		zap.Int("total", payload.Total))
	return payload, nil
}

func FormatOrder(p models.CheckoutPayload) string {
	var b strings.Builder
	b.WriteString("Ваш заказ:\n\n")
	for _, line := range view.CartLines(p.Cart) {
		b.WriteString(line.Text)
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n💎 Итого: %d₽ (%d шт.)\n", p.Total, p.TotalItems)
	fmt.Fprintf(&b, "Номер заказа: %s", p.Reference)
	return b.String()
}
