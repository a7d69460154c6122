package models

// LineItem is one unit of a product/weight/add-on combination in the cart.
type LineItem struct {
	ID        string `json:"id"` // ключ товара в каталоге
	Name      string `json:"name"`
	Weight    Tier   `json:"weight"`
	HasAddons bool   `json:"hasAddons"`
	Price     int    `json:"price"` // цена за штуку с добавками
	Total     int    `json:"total"`
	Emoji     string `json:"emoji,omitempty"`
	Timestamp int64  `json:"timestamp"` // идентификатор позиции
	Quantity  int    `json:"quantity,omitempty"` // только у старых корзин
}

type CheckoutPayload struct {
	Action     string     `json:"action"`
	Reference  string     `json:"reference"`
	Cart       []LineItem `json:"cart"`
	Total      int        `json:"total"`
	TotalItems int        `json:"totalItems"`
}
