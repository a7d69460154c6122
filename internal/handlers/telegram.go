package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"bakery/internal/cart"
	"bakery/internal/catalog"
	"bakery/internal/checkout"
	"bakery/internal/models"
	"bakery/internal/view"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const DataOnPage = 5 // карточек на странице каталога

// BotAPI is the part of *tgbotapi.BotAPI the shop uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// CartStore keeps carts and can drop all of them at once.
type CartStore interface {
	cart.Store
	DeleteCarts(ctx context.Context) (int, error)
}

type CatalogLoader interface {
	Load(ctx context.Context) (models.Catalog, error)
	Invalidate(ctx context.Context) error
}

type CheckoutSubmitter interface {
	Submit(buyer models.Buyer, items []models.LineItem) (models.CheckoutPayload, error)
}

type TokenIssuer interface {
	Issue(buyer models.Buyer) (string, error)
}

type ShopConfig struct {
	WebAppURL      string
	CollapseWindow time.Duration
	AdminChatIDs   []int64 // кто может сбросить каталог и корзины всех чатов
}

// chatState is one chat's cart session. Updates and collapse timers both
// touch it, so every access holds mu.
type chatState struct {
	mu        sync.Mutex
	session   *cart.Session
	collapser *cart.Collapser
	cards     map[string]int // товар -> id сообщения с карточкой
}

// Shop renders the catalog as product cards and drives the cart engine from
// inline keyboard callbacks.
type Shop struct {
	bot      BotAPI
	catalog  CatalogLoader
	store    CartStore
	checkout CheckoutSubmitter
	tokens   TokenIssuer
	cfg      ShopConfig
	logger   *zap.Logger

	mu    sync.Mutex
	chats map[int64]*chatState
}

func NewShop(bot BotAPI, catalog CatalogLoader, store CartStore, checkout CheckoutSubmitter,
	tokens TokenIssuer, cfg ShopConfig, logger *zap.Logger) *Shop {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CollapseWindow <= 0 {
		cfg.CollapseWindow = cart.DefaultCollapseWindow
	}
	return &Shop{
		bot:      bot,
		catalog:  catalog,
		store:    store,
		checkout: checkout,
		tokens:   tokens,
		cfg:      cfg,
		logger:   logger,
		chats:    make(map[int64]*chatState),
	}
}

// HandleUpdates processes updates one at a time until ctx is done or the
// channel is closed.
func (s *Shop) HandleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			s.HandleUpdate(ctx, update)
		}
	}
}

func (s *Shop) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		s.handleCallback(ctx, update.CallbackQuery)
		return
	}
	if update.Message == nil {
		return
	}
	if !update.Message.IsCommand() {
		s.send(tgbotapi.NewMessage(update.Message.Chat.ID,
			"Откройте каталог: /catalog\nКорзина: /cart\nПоиск: /search ржаной"))
		return
	}
	s.handleCommand(ctx, update.Message)
}

func (s *Shop) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	action := msg.Command()

	switch action {
	case "start":
		s.start(chatID, BuyerFromUser(chatID, msg.From))
	case "catalog":
		s.showPage(ctx, chatID, 1)
	case "search":
		s.search(ctx, chatID, msg.CommandArguments())
	case "cart":
		s.showCart(ctx, chatID, 0)
	case "clear_cache":
		s.clearCache(ctx, chatID)
	default:
		s.send(tgbotapi.NewMessage(chatID, "Неизвестная команда. Попробуйте /catalog"))
	}
	s.logger.Debug("command handled", zap.Int64("chat_id", chatID), zap.String("action", action))
}

func (s *Shop) start(chatID int64, buyer models.Buyer) {
	var rows [][]tgbotapi.InlineKeyboardButton
	if s.cfg.WebAppURL != "" && s.tokens != nil {
		token, err := s.tokens.Issue(buyer)
		if err != nil {
			s.logger.Error("session token not issued", zap.Int64("chat_id", chatID), zap.Error(err))
		} else {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL("🛍 Открыть магазин", webAppLink(s.cfg.WebAppURL, token))))
		}
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("📋 Каталог", "catalog"),
		tgbotapi.NewInlineKeyboardButtonData("🛒 Корзина", "cart"),
	))

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Здравствуйте, %s!\nСвежий хлеб на заказ 🍞", buyer.DisplayName()))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	s.send(msg)
}

func webAppLink(base, token string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("session", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// chat returns the chat's session, restoring the cart on first use.
func (s *Shop) chat(ctx context.Context, chatID int64) (*chatState, error) {
	s.mu.Lock()
	cs, ok := s.chats[chatID]
	s.mu.Unlock()
	if ok {
		return cs, nil
	}

	products, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := cart.Restore(ctx, s.store, cart.ChatKey(chatID), products)
	if err != nil {
		s.logger.Warn("cart not restored, starting empty", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	cs = &chatState{
		session:   sess,
		collapser: cart.NewCollapser(s.cfg.CollapseWindow),
		cards:     make(map[string]int),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.chats[chatID]; ok {
		return existing, nil
	}
	s.chats[chatID] = cs
	return cs, nil
}

func (s *Shop) reportCatalogError(chatID int64, err error) {
	s.logger.Error("catalog load failed", zap.Int64("chat_id", chatID), zap.Error(err))
	text := "😕 Не удалось загрузить каталог\n" + err.Error() + "\n\nПовторите /catalog позже"
	if errors.Is(err, catalog.ErrNoData) {
		text = "😕 Каталог пока пуст. Повторите /catalog позже"
	}
	s.send(tgbotapi.NewMessage(chatID, text))
}

// pageView returns the chat together with the catalog as it is now. Every
// page view reads the catalog again so open chats follow a reset.
func (s *Shop) pageView(ctx context.Context, chatID int64) (*chatState, models.Catalog, error) {
	cs, err := s.chat(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}
	products, err := s.catalog.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	return cs, products, nil
}

func (s *Shop) showPage(ctx context.Context, chatID int64, page int) {
	cs, products, err := s.pageView(ctx, chatID)
	if err != nil {
		s.reportCatalogError(chatID, err)
		return
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.session.Catalog = products

	vm := view.Render(products, cs.session.Items, cs.session.Selections)
	if vm.Empty {
		s.send(tgbotapi.NewMessage(chatID, "🔍 Ничего не найдено"))
		return
	}
	pages := (len(vm.Cards) + DataOnPage - 1) / DataOnPage
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	offset := (page - 1) * DataOnPage
	end := offset + DataOnPage
	if end > len(vm.Cards) {
		end = len(vm.Cards)
	}
	for _, card := range vm.Cards[offset:end] {
		s.sendCard(chatID, cs, card, vm.Cart)
	}

	if pages > 1 {
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Страница %d/%d", page, pages))
		msg.ReplyMarkup = CreatePaginationKeyboard(page, pages)
		s.send(msg)
	}
}

func (s *Shop) search(ctx context.Context, chatID int64, term string) {
	term = strings.TrimSpace(term)
	if term == "" {
		s.send(tgbotapi.NewMessage(chatID, "Укажите запрос, например: /search ржаной"))
		return
	}
	cs, products, err := s.pageView(ctx, chatID)
	if err != nil {
		s.reportCatalogError(chatID, err)
		return
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.session.Catalog = products

	vm := view.Render(products.Search(term), cs.session.Items, cs.session.Selections)
	if vm.Empty {
		s.send(tgbotapi.NewMessage(chatID, "🔍 По запросу «"+term+"» ничего не найдено"))
		return
	}
	found := vm.Cards
	if len(found) > DataOnPage {
		found = found[:DataOnPage]
	}
	for _, card := range found {
		s.sendCard(chatID, cs, card, vm.Cart)
	}
}

// CreatePaginationKeyboard builds the catalog page switcher.
func CreatePaginationKeyboard(currentPage, pages int) tgbotapi.InlineKeyboardMarkup {
	var nav []tgbotapi.InlineKeyboardButton
	if currentPage > 1 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("← Назад",
			fmt.Sprintf("page_%d", currentPage-1)))
	}
	nav = append(nav, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d/%d", currentPage, pages), "noop"))
	if currentPage < pages {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Вперед →",
			fmt.Sprintf("page_%d", currentPage+1)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(nav,
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🛒 Корзина", "cart")))
}

func (s *Shop) renderCard(cs *chatState, productID string) (view.Card, view.Indicator, bool) {
	sess := cs.session
	card, ok := view.RenderCard(sess.Catalog, sess.Items, sess.Selections, productID)
	if !ok {
		return card, view.Indicator{}, false
	}
	card.Closing = cs.collapser.Pending(productID)
	count, total := cart.Totals(sess)
	return card, view.Indicator{Count: count, Total: total, Visible: count > 0}, true
}

func (s *Shop) sendCard(chatID int64, cs *chatState, card view.Card, ind view.Indicator) {
	productID := card.ID
	card.Closing = cs.collapser.Pending(productID)
	msg := tgbotapi.NewMessage(chatID, FormatCard(card))
	if kb, ok := CardKeyboard(card, ind); ok {
		msg.ReplyMarkup = kb
	}
	sent, err := s.bot.Send(msg)
	if err != nil {
		s.logger.Warn("card not sent", zap.Int64("chat_id", chatID), zap.String("product", productID), zap.Error(err))
		return
	}
	cs.cards[productID] = sent.MessageID
}

// refreshCard edits the card message in place; messageID 0 means the last
// message the card was shown in.
func (s *Shop) refreshCard(chatID int64, cs *chatState, productID string, messageID int) {
	if messageID == 0 {
		messageID = cs.cards[productID]
	}
	if messageID == 0 {
		return
	}
	card, ind, ok := s.renderCard(cs, productID)
	if !ok {
		return
	}
	edit := tgbotapi.NewEditMessageText(chatID, messageID, FormatCard(card))
	if kb, ok := CardKeyboard(card, ind); ok {
		edit.ReplyMarkup = &kb
	}
	s.send(edit)
	cs.cards[productID] = messageID
}

func FormatCard(card view.Card) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", card.Emoji, card.Name)
	b.WriteString(card.Ingredients + "\n")
	fmt.Fprintf(&b, "⏰ %s\n", card.PrepTime)
	if card.HasAddons {
		fmt.Fprintf(&b, "✨ %s\n", card.AddonsText)
	}
	if !card.Available {
		b.WriteString("\nНет в наличии")
		return b.String()
	}
	prices := make([]string, 0, len(card.Tiers))
	for _, t := range card.Tiers {
		prices = append(prices, fmt.Sprintf("%sг — %d₽", t.Weight, t.Price))
	}
	b.WriteString("\n" + strings.Join(prices, " · "))
	if card.Selected > 0 {
		fmt.Fprintf(&b, "\nВ корзине: %d шт.", card.Selected)
	}
	if card.Expanded && card.Closing {
		b.WriteString("\n⏳ Карточка свернётся, если ничего не выбрать")
	}
	return b.String()
}

// CardKeyboard returns false when the card has nothing to press.
func CardKeyboard(card view.Card, ind view.Indicator) (tgbotapi.InlineKeyboardMarkup, bool) {
	if !card.Available {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	var rows [][]tgbotapi.InlineKeyboardButton

	if !card.Expanded {
		label := "🛒 В корзину"
		if card.Highlight {
			label = "👉 🛒 В корзину 👈"
		}
		if card.QuickAdd() {
			//один вес: добавляем сразу, без панели
			row := tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("add_%s_%s", card.ID, card.Tiers[0].Weight)))
			if card.Selected > 0 || card.HasAddons {
				row = append(row, tgbotapi.NewInlineKeyboardButtonData("⚙️", "expand_"+card.ID))
			}
			rows = append(rows, row)
		} else {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(label, "expand_"+card.ID)))
		}
	} else {
		for _, t := range card.Tiers {
			row := tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("−", fmt.Sprintf("dec_%s_%s", card.ID, t.Weight)),
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%sг × %d • %d₽", t.Weight, t.Quantity, t.Price), "noop"),
				tgbotapi.NewInlineKeyboardButtonData("+", fmt.Sprintf("inc_%s_%s", card.ID, t.Weight)),
			)
			if card.HasAddons {
				mark := "✨"
				if t.Addon {
					mark = "✅✨"
				}
				row = append(row, tgbotapi.NewInlineKeyboardButtonData(mark, fmt.Sprintf("addon_%s_%s", card.ID, t.Weight)))
			}
			rows = append(rows, row)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Готово", "close_"+card.ID)))
	}

	if ind.Visible {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🛒 %d шт. • %d₽", ind.Count, ind.Total), "cart")))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

func (s *Shop) showCart(ctx context.Context, chatID int64, messageID int) {
	cs, err := s.chat(ctx, chatID)
	if err != nil {
		s.reportCatalogError(chatID, err)
		return
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	s.renderCart(chatID, cs, messageID)
}

func (s *Shop) renderCart(chatID int64, cs *chatState, messageID int) {
	text, kb := FormatCart(cs.session.Items)
	if messageID != 0 {
		edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
		if len(kb.InlineKeyboard) > 0 {
			edit.ReplyMarkup = &kb
		}
		s.send(edit)
		return
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if len(kb.InlineKeyboard) > 0 {
		msg.ReplyMarkup = kb
	}
	s.send(msg)
}

// FormatCart renders the cart text and one remove button per unit.
func FormatCart(items []models.LineItem) (string, tgbotapi.InlineKeyboardMarkup) {
	if len(items) == 0 {
		return "🛒 Корзина пуста", tgbotapi.InlineKeyboardMarkup{}
	}
	lines := view.CartLines(items)
	count, total := cart.Sum(items)

	var b strings.Builder
	b.WriteString("Ваша корзина:\n\n")
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, line := range lines {
		b.WriteString(line.Text + "\n")
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✖ "+line.Text, fmt.Sprintf("rm_%d", line.Timestamp))))
	}
	fmt.Fprintf(&b, "\n💎 Итого: %d₽ (%d шт.)", total, count)
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Оформить заказ", "checkout")))
	return b.String(), tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (s *Shop) isAdmin(chatID int64) bool {
	for _, id := range s.cfg.AdminChatIDs {
		if id == chatID {
			return true
		}
	}
	return false
}

// clearCache resets the whole shop for admin chats. Any other chat only
// empties its own cart.
func (s *Shop) clearCache(ctx context.Context, chatID int64) {
	if !s.isAdmin(chatID) {
		cs, err := s.chat(ctx, chatID)
		if err != nil {
			s.reportCatalogError(chatID, err)
			return
		}
		cs.mu.Lock()
		defer cs.mu.Unlock()
		resetChat(cs, cs.session.Catalog)
		s.persist(ctx, chatID, cs)
		s.send(tgbotapi.NewMessage(chatID, "Корзина очищена"))
		return
	}

	n, err := s.ResetCatalog(ctx)
	if err != nil {
		s.logger.Error("cache not cleared", zap.Int64("chat_id", chatID), zap.Error(err))
		s.send(tgbotapi.NewMessage(chatID, "Не удалось очистить кэш: "+err.Error()))
		return
	}
	s.send(tgbotapi.NewMessage(chatID,
		fmt.Sprintf("Кэш каталога очищен, корзины пусты. Товаров в каталоге: %d", n)))
}

// ResetCatalog drops the catalog snapshot, loads the catalog afresh and
// empties every cart, stored or open. Open chats switch to the new catalog.
// It returns the number of products.
func (s *Shop) ResetCatalog(ctx context.Context) (int, error) {
	if err := s.catalog.Invalidate(ctx); err != nil {
		return 0, err
	}
	products, err := s.catalog.Load(ctx)
	if err != nil {
		return 0, err
	}
	deleted, err := s.store.DeleteCarts(ctx)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	chats := make(map[int64]*chatState, len(s.chats))
	for id, cs := range s.chats {
		chats[id] = cs
	}
	s.mu.Unlock()

	for chatID, cs := range chats {
		cs.mu.Lock()
		resetChat(cs, products)
		s.persist(ctx, chatID, cs)
		cs.mu.Unlock()
	}
	s.logger.Info("catalog reset",
		zap.Int("products", len(products)),
		zap.Int("open_chats", len(chats)),
		zap.Int("stored_carts", deleted))
	return len(products), nil
}

// resetChat empties the cart and closes every card. Callers hold cs.mu.
func resetChat(cs *chatState, products models.Catalog) {
	cs.collapser.Stop()
	cs.session.Catalog = products
	cs.session.Selections = make(map[string]*cart.Selection)
	cart.Clear(cs.session)
	cs.cards = make(map[string]int)
}

func (s *Shop) persist(ctx context.Context, chatID int64, cs *chatState) {
	if err := cart.Persist(ctx, s.store, cs.session); err != nil {
		s.logger.Error("cart not saved", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (s *Shop) collapseFunc(chatID int64, cs *chatState, productID string) func() {
	return func() {
		cs.mu.Lock()
		defer cs.mu.Unlock()
		if !cart.CollapseIfIdle(cs.session, productID) {
			return
		}
		s.logger.Debug("card collapsed", zap.Int64("chat_id", chatID), zap.String("product", productID))
		s.refreshCard(chatID, cs, productID, 0)
	}
}

func (s *Shop) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) { //обработка нажатий на кнопки
	notice := ""
	defer func() {
		if _, err := s.bot.Request(tgbotapi.NewCallback(callback.ID, notice)); err != nil {
			s.logger.Debug("callback not answered", zap.Error(err))
		}
	}()
	if callback.Message == nil || callback.Message.Chat == nil {
		return
	}
	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID
	data := callback.Data

	switch {
	case data == "noop":
		return
	case data == "catalog":
		s.showPage(ctx, chatID, 1)
		return
	case strings.HasPrefix(data, "page_"):
		page, err := strconv.Atoi(strings.TrimPrefix(data, "page_"))
		if err != nil {
			return
		}
		s.showPage(ctx, chatID, page)
		return
	case data == "cart":
		s.showCart(ctx, chatID, 0)
		return
	case data == "checkout":
		notice = s.submit(ctx, chatID, BuyerFromUser(chatID, callback.From))
		return
	}

	cs, err := s.chat(ctx, chatID)
	if err != nil {
		s.reportCatalogError(chatID, err)
		return
	}
	cs.mu.Lock()
	defer cs.mu.Unlock()
	sess := cs.session

	switch {
	case strings.HasPrefix(data, "expand_"):
		productID := strings.TrimPrefix(data, "expand_")
		if _, ok := sess.Catalog[productID]; !ok {
			notice = "Товар больше не продаётся"
			return
		}
		cart.OpenPanel(sess, productID)
		cart.ArmCollapse(sess, cs.collapser, productID, s.collapseFunc(chatID, cs, productID))
		s.refreshCard(chatID, cs, productID, messageID)

	case strings.HasPrefix(data, "add_"):
		productID, tier, ok := splitProductTier(strings.TrimPrefix(data, "add_"))
		if !ok {
			return
		}
		if !cart.AddToCart(sess, productID, tier) {
			notice = refusal(sess, productID)
			return
		}
		s.persist(ctx, chatID, cs)
		notice = fmt.Sprintf("%s (%sг) добавлен в корзину", sess.Catalog[productID].Name, tier)
		s.refreshCard(chatID, cs, productID, messageID)

	case strings.HasPrefix(data, "close_"):
		productID := strings.TrimPrefix(data, "close_")
		cart.ClosePanel(sess, productID)
		cs.collapser.Cancel(productID)
		s.refreshCard(chatID, cs, productID, messageID)

	case strings.HasPrefix(data, "inc_"), strings.HasPrefix(data, "dec_"):
		productID, tier, ok := splitProductTier(data[4:])
		if !ok {
			return
		}
		delta := 1
		if strings.HasPrefix(data, "dec_") {
			delta = -1
		}
		changed, err := cart.ChangeQuantity(sess, productID, tier, delta)
		if err != nil || !changed {
			if delta > 0 {
				notice = refusal(sess, productID)
			}
			return
		}
		s.persist(ctx, chatID, cs)
		if delta > 0 {
			notice = fmt.Sprintf("%s (%sг) добавлен в корзину", sess.Catalog[productID].Name, tier)
		}
		cart.ArmCollapse(sess, cs.collapser, productID, s.collapseFunc(chatID, cs, productID))
		s.refreshCard(chatID, cs, productID, messageID)

	case strings.HasPrefix(data, "addon_"):
		productID, tier, ok := splitProductTier(strings.TrimPrefix(data, "addon_"))
		if !ok {
			return
		}
		enabled := true
		if sel := sess.Selection(productID); sel != nil {
			enabled = !sel.Addons[tier]
		}
		if n := cart.ToggleAddon(sess, productID, tier, enabled); n > 0 {
			s.persist(ctx, chatID, cs)
			notice = fmt.Sprintf("Добавки: %d из %d шт.",
				cart.SelectionCountWithAddon(sess, productID, tier, true), cart.SelectionCount(sess, productID, tier))
		}
		s.refreshCard(chatID, cs, productID, messageID)

	case strings.HasPrefix(data, "rm_"):
		ts, err := strconv.ParseInt(strings.TrimPrefix(data, "rm_"), 10, 64)
		if err != nil {
			return
		}
		productID := ""
		for _, item := range sess.Items {
			if item.Timestamp == ts {
				productID = item.ID
				break
			}
		}
		if !cart.RemoveLineItem(sess, ts) {
			notice = "Позиция уже удалена"
			return
		}
		s.persist(ctx, chatID, cs)
		s.renderCart(chatID, cs, messageID)
		if messageID != cs.cards[productID] {
			s.refreshCard(chatID, cs, productID, 0)
		}
	}
}

// refusal explains why a unit was not added.
func refusal(sess *cart.Session, productID string) string {
	if _, ok := sess.Catalog[productID]; !ok {
		return "Товар больше не продаётся"
	}
	if len(sess.Items) >= cart.MaxItems {
		return fmt.Sprintf("В корзине уже %d шт., больше добавить нельзя", cart.MaxItems)
	}
	return "Этот вес недоступен"
}

func (s *Shop) submit(ctx context.Context, chatID int64, buyer models.Buyer) string {
	cs, err := s.chat(ctx, chatID)
	if err != nil {
		s.reportCatalogError(chatID, err)
		return ""
	}
	cs.mu.Lock()
	items := append([]models.LineItem(nil), cs.session.Items...)
	cs.mu.Unlock()

	payload, err := s.checkout.Submit(buyer, items)
	if errors.Is(err, checkout.ErrEmptyCart) {
		return "Корзина пуста"
	}
	if err != nil {
		s.logger.Error("checkout failed", zap.Int64("chat_id", chatID), zap.Error(err))
		return "Не удалось оформить заказ, попробуйте ещё раз"
	}
	ref := payload.Reference
	if len(ref) > 8 {
		ref = ref[:8]
	}
	return "✅ Заказ " + ref + " оформлен"
}

// splitProductTier parses "<product>_<tier>"; product keys may contain "_".
func splitProductTier(s string) (string, models.Tier, bool) {
	i := strings.LastIndex(s, "_")
	if i <= 0 {
		return "", 0, false
	}
	tier, ok := models.ParseTier(s[i+1:])
	if !ok {
		return "", 0, false
	}
	return s[:i], tier, true
}

// BuyerFromUser builds the buyer of a chat from the Telegram sender.
func BuyerFromUser(chatID int64, user *tgbotapi.User) models.Buyer {
	buyer := models.Buyer{ChatID: chatID}
	if user != nil {
		buyer.Username = user.UserName
		buyer.FirstName = user.FirstName
	}
	return buyer
}

func (s *Shop) send(c tgbotapi.Chattable) {
	if _, err := s.bot.Send(c); err != nil {
		s.logger.Warn("telegram send failed", zap.Error(err))
	}
}
