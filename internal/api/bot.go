package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	app "maize-bot/internal/application"
	"maize-bot/internal/auth"
	"maize-bot/internal/container"
	"maize-bot/internal/domain/entity"
	"maize-bot/internal/domain/port"
)

// Данные inline-кнопок
const (
	cbCamera       = "camera"
	cbGallery      = "gallery"
	cbWarnContinue = "warn:continue"
	cbWarnCancel   = "warn:cancel"
	cbPermAllow    = "perm:allow"
	cbPermDeny     = "perm:deny"
	cbDetect       = "detect"
	cbSave         = "save"
	cbAnother      = "another"
)

const maxFileSize = 20 << 20

// sender часть API Telegram, которой пользуется бот
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// chatSession автомат сценария и источник снимков одного чата
type chatSession struct {
	workflow *app.Workflow
	acquirer *chatAcquirer
}

// Bot представляет Telegram-бота
type Bot struct {
	api       *tgbotapi.BotAPI
	sender    sender
	fetch     fileFetcher
	container *container.Container
	logger    *zap.Logger

	mu       sync.Mutex
	sessions map[int64]*chatSession
	wg       sync.WaitGroup
}

// NewBot создаёт нового бота
func NewBot(token string, c *container.Container, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	logger.Info("authorized on account", zap.String("username", api.Self.UserName))

	b := newBot(api, nil, c, logger)
	b.api = api
	b.fetch = b.downloadFile
	return b, nil
}

func newBot(s sender, fetch fileFetcher, c *container.Container, logger *zap.Logger) *Bot {
	return &Bot{
		sender:    s,
		fetch:     fetch,
		container: c,
		logger:    logger.Named("telegram"),
		sessions:  make(map[int64]*chatSession),
	}
}

// Run запускает основной цикл обработки сообщений до отмены контекста.
// Каждое обновление обрабатывается в своей горутине: ожидание снимка
// не блокирует остальные чаты.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.wg.Wait()
			return nil
		case update, ok := <-updates:
			if !ok {
				b.wg.Wait()
				return nil
			}
			b.wg.Add(1)
			go func() {
				defer b.wg.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("panic while handling update", zap.Any("panic", r), zap.Int("update_id", update.UpdateID))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

// session возвращает сессию чата, создавая её при первом обращении
func (b *Bot) session(chatID int64) *chatSession {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sessions[chatID]
	if !ok {
		acq := newChatAcquirer(b.fetch, b.container.Decoder)
		s = &chatSession{
			workflow: b.container.NewWorkflow(acq, chatID),
			acquirer: acq,
		}
		b.sessions[chatID] = s
	}
	return s
}

func (b *Bot) user(ctx context.Context, userID, chatID int64) *entity.User {
	return entity.NewUser(userID, chatID, b.container.UserService.Locale(ctx, userID, chatID))
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	ctx = auth.WithChatUser(ctx, msg.From.ID)
	user := b.user(ctx, msg.From.ID, msg.Chat.ID)

	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg, user)
		return
	}

	// Обработка фото и файлов
	if file, ok := incomingFromMessage(msg); ok {
		b.handleMedia(msg.Chat.ID, user, file)
		return
	}

	b.sendMessage(msg.Chat.ID, text(user.Locale, msgNotWaiting))
}

func incomingFromMessage(msg *tgbotapi.Message) (incomingFile, bool) {
	if len(msg.Photo) > 0 {
		// Получаем файл с максимальным разрешением
		photo := msg.Photo[len(msg.Photo)-1]
		return incomingFile{FileID: photo.FileID, MimeType: "image/jpeg"}, true
	}
	if msg.Document != nil {
		return incomingFile{
			FileID:   msg.Document.FileID,
			Filename: msg.Document.FileName,
			MimeType: msg.Document.MimeType,
			Document: true,
		}, true
	}
	return incomingFile{}, false
}

// handleMedia передаёт снимок ожидающему автомату
func (b *Bot) handleMedia(chatID int64, user *entity.User, file incomingFile) {
	switch b.session(chatID).acquirer.deliver(file) {
	case deliveryAccepted:
	case deliveryRejected:
		b.sendMessage(chatID, text(user.Locale, msgSendAsPhoto))
	default:
		b.sendMessage(chatID, text(user.Locale, msgNotWaiting))
	}
}

// handleCallback обрабатывает нажатия inline-кнопок
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	if _, err := b.sender.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.logger.Debug("failed to answer callback", zap.Error(err))
	}

	chatID := cb.Message.Chat.ID
	ctx = auth.WithChatUser(ctx, cb.From.ID)
	user := b.user(ctx, cb.From.ID, chatID)
	wf := b.session(chatID).workflow

	switch cb.Data {
	case cbCamera, cbGallery:
		kind := entity.AcquireCamera
		if cb.Data == cbGallery {
			kind = entity.AcquireGallery
		}
		if _, err := wf.Request(kind); err != nil {
			b.reportError(chatID, user, err)
			return
		}
		b.sendWithKeyboard(chatID, text(user.Locale, msgWarning), keyboard(
			button(user.Locale, msgBtnContinue, cbWarnContinue),
			button(user.Locale, msgBtnCancel, cbWarnCancel),
		))

	case cbWarnContinue:
		snap, err := wf.Continue()
		if err != nil {
			b.reportError(chatID, user, err)
			return
		}
		b.sendWithKeyboard(chatID, text(user.Locale, msgPermission, kindText(user.Locale, snap.Kind)), keyboard(
			button(user.Locale, msgBtnAllow, cbPermAllow),
			button(user.Locale, msgBtnDeny, cbPermDeny),
		))

	case cbWarnCancel:
		wf.Cancel()
		b.sendMessage(chatID, text(user.Locale, msgCancelled))

	case cbPermDeny:
		_, err := wf.Deny()
		b.reportError(chatID, user, err)

	case cbPermAllow:
		b.handleAllow(ctx, chatID, user, wf)

	case cbDetect:
		b.handleDetect(ctx, chatID, user, wf)

	case cbSave:
		b.handleSave(ctx, chatID, user, wf)

	case cbAnother:
		wf.Cancel()
		b.sendSourceMenu(chatID, user)

	default:
		b.sendMessage(chatID, text(user.Locale, msgInvalidAction))
	}
}

func (b *Bot) handleAllow(ctx context.Context, chatID int64, user *entity.User, wf *app.Workflow) {
	if wf.Snapshot().State != entity.StatePermissionPending {
		b.sendMessage(chatID, text(user.Locale, msgInvalidAction))
		return
	}
	b.sendMessage(chatID, text(user.Locale, msgSendPhotoNow))

	snap, err := wf.Allow(ctx)
	if err != nil {
		b.reportError(chatID, user, err)
		return
	}
	if snap.State != entity.StateAcquired || snap.Image == nil {
		b.sendMessage(chatID, text(user.Locale, msgCancelled))
		return
	}

	b.sendWithKeyboard(chatID, text(user.Locale, msgPhotoReceived, snap.Image.Width, snap.Image.Height), keyboard(
		button(user.Locale, msgBtnDetect, cbDetect),
		button(user.Locale, msgBtnCancel, cbWarnCancel),
	))
}

func (b *Bot) handleDetect(ctx context.Context, chatID int64, user *entity.User, wf *app.Workflow) {
	state := wf.Snapshot().State
	if state == entity.StateAnalyzing {
		b.sendMessage(chatID, text(user.Locale, msgBusy))
		return
	}
	if state != entity.StateAcquired {
		b.sendMessage(chatID, text(user.Locale, msgInvalidAction))
		return
	}
	b.sendMessage(chatID, text(user.Locale, msgAnalyzing))

	snap, err := wf.Detect(ctx)
	if err != nil {
		if kind, ok := entity.KindOf(err); ok && kind == entity.KindDetectionFailed {
			b.sendWithKeyboard(chatID, text(user.Locale, msgDetectionFailed, flowMessage(err)), keyboard(
				button(user.Locale, msgBtnDetect, cbDetect),
				button(user.Locale, msgBtnCancel, cbWarnCancel),
			))
			return
		}
		b.reportError(chatID, user, err)
		return
	}

	buttons := make([]tgbotapi.InlineKeyboardButton, 0, 2)
	canSave := wf.CanSave(ctx)
	if canSave {
		buttons = append(buttons, button(user.Locale, msgBtnSave, cbSave))
	}
	buttons = append(buttons, button(user.Locale, msgBtnAnother, cbAnother))

	body := formatResult(user.Locale, snap.Result)
	if !canSave {
		body += "\n\n" + text(user.Locale, msgGuestHint)
	}
	b.sendWithKeyboard(chatID, body, keyboard(buttons...))
}

func (b *Bot) handleSave(ctx context.Context, chatID int64, user *entity.User, wf *app.Workflow) {
	_, err := wf.Save(ctx)
	if err != nil {
		if kind, ok := entity.KindOf(err); ok && kind == entity.KindSaveFailed {
			b.sendWithKeyboard(chatID, text(user.Locale, msgSaveFailed, flowMessage(err)), keyboard(
				button(user.Locale, msgBtnSave, cbSave),
				button(user.Locale, msgBtnAnother, cbAnother),
			))
			return
		}
		b.reportError(chatID, user, err)
		return
	}
	b.sendWithKeyboard(chatID, text(user.Locale, msgSaved), keyboard(button(user.Locale, msgBtnAnother, cbAnother)))
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	chatID := msg.Chat.ID
	args := strings.Fields(msg.CommandArguments())
	accounts := b.container.AccountService

	switch msg.Command() {
	case "start":
		b.sendMessage(chatID, text(user.Locale, msgStart))

	case "help":
		b.sendMessage(chatID, text(user.Locale, msgHelp))

	case "detect":
		b.sendSourceMenu(chatID, user)

	case "cancel":
		b.session(chatID).workflow.Cancel()
		b.sendMessage(chatID, text(user.Locale, msgCancelled))

	case "history":
		b.handleHistory(ctx, chatID, user)

	case "delete":
		if len(args) != 1 {
			b.sendMessage(chatID, text(user.Locale, msgUsageDelete))
			return
		}
		userID, ok := accounts.CurrentUserID(ctx)
		if !ok {
			b.sendMessage(chatID, text(user.Locale, msgSignInRequired))
			return
		}
		if err := b.container.HistoryService.Delete(ctx, userID, args[0]); err != nil {
			if errors.Is(err, entity.ErrRecordNotFound) {
				b.sendMessage(chatID, text(user.Locale, msgRecordNotFound))
				return
			}
			b.logger.Error("failed to delete history record", zap.Error(err))
			b.sendMessage(chatID, text(user.Locale, msgInternalError))
			return
		}
		b.sendMessage(chatID, text(user.Locale, msgDeleted))

	case "signup":
		if len(args) < 3 {
			b.sendMessage(chatID, text(user.Locale, msgUsageSignup))
			return
		}
		account, err := accounts.Signup(ctx, args[0], args[1], strings.Join(args[2:], " "))
		if err != nil {
			b.reportAuthError(chatID, user, err)
			return
		}
		b.sendMessage(chatID, text(user.Locale, msgSignedUp, account.Email))

	case "confirm":
		if len(args) != 1 {
			b.sendMessage(chatID, text(user.Locale, msgUsageConfirm))
			return
		}
		if _, err := accounts.Confirm(ctx, args[0]); err != nil {
			b.reportAuthError(chatID, user, err)
			return
		}
		b.sendMessage(chatID, text(user.Locale, msgConfirmed))

	case "login":
		if len(args) != 2 {
			b.sendMessage(chatID, text(user.Locale, msgUsageLogin))
			return
		}
		account, err := accounts.Login(ctx, msg.From.ID, args[0], args[1])
		if err != nil {
			b.reportAuthError(chatID, user, err)
			return
		}
		b.sendMessage(chatID, text(user.Locale, msgLoggedIn, account.Name))

	case "logout":
		if err := accounts.Logout(ctx, msg.From.ID); err != nil {
			b.reportAuthError(chatID, user, err)
			return
		}
		b.sendMessage(chatID, text(user.Locale, msgLoggedOut))

	case "reset":
		if len(args) != 1 {
			b.sendMessage(chatID, text(user.Locale, msgUsageReset))
			return
		}
		if err := accounts.RequestPasswordReset(ctx, args[0]); err != nil {
			b.reportAuthError(chatID, user, err)
			return
		}
		b.sendMessage(chatID, text(user.Locale, msgResetSent))

	case "newpassword":
		if len(args) != 2 {
			b.sendMessage(chatID, text(user.Locale, msgUsageNewPassword))
			return
		}
		if err := accounts.UpdatePassword(ctx, args[0], args[1]); err != nil {
			b.reportAuthError(chatID, user, err)
			return
		}
		b.sendMessage(chatID, text(user.Locale, msgPasswordUpdated))

	case "password":
		if len(args) != 1 {
			b.sendMessage(chatID, text(user.Locale, msgUsagePassword))
			return
		}
		if err := accounts.ChangePassword(ctx, msg.From.ID, args[0]); err != nil {
			if errors.Is(err, app.ErrSignInRequired) {
				b.sendMessage(chatID, text(user.Locale, msgSignInRequired))
				return
			}
			b.reportAuthError(chatID, user, err)
			return
		}
		b.sendMessage(chatID, text(user.Locale, msgPasswordChanged))

	case "profile":
		b.handleProfile(ctx, chatID, user, args)

	case "lang":
		locale, ok := entity.Locale(""), false
		if len(args) == 1 {
			locale, ok = entity.ParseLocale(strings.ToLower(args[0]))
		}
		if !ok {
			b.sendMessage(chatID, text(user.Locale, msgUsageLang))
			return
		}
		updated, err := b.container.UserService.SetLocale(ctx, msg.From.ID, chatID, locale)
		if err != nil {
			b.logger.Error("failed to set locale", zap.Error(err))
			b.sendMessage(chatID, text(user.Locale, msgInternalError))
			return
		}
		b.sendMessage(chatID, text(updated.Locale, msgLangChanged))

	default:
		b.sendMessage(chatID, text(user.Locale, msgUnknownCommand))
	}
}

func (b *Bot) handleHistory(ctx context.Context, chatID int64, user *entity.User) {
	userID, ok := b.container.AccountService.CurrentUserID(ctx)
	if !ok {
		b.sendMessage(chatID, text(user.Locale, msgSignInRequired))
		return
	}

	records, err := b.container.HistoryService.List(ctx, userID)
	if err != nil {
		b.logger.Error("failed to list history", zap.Error(err))
		b.sendMessage(chatID, text(user.Locale, msgInternalError))
		return
	}
	if len(records) == 0 {
		b.sendMessage(chatID, text(user.Locale, msgHistoryEmpty))
		return
	}

	lines := []string{text(user.Locale, msgHistoryHeader)}
	for _, r := range records {
		lines = append(lines, text(user.Locale, msgHistoryItem,
			r.DetectedAt.Format("2006-01-02 15:04"),
			r.DiseaseName,
			r.Confidence,
			severityText(user.Locale, r.Severity),
			r.ID,
		))
	}
	b.sendMessage(chatID, strings.Join(lines, "\n\n"))
}

// handleProfile показывает профиль или меняет одно поле:
// /profile name <имя>, /profile phone <номер|->
func (b *Bot) handleProfile(ctx context.Context, chatID int64, user *entity.User, args []string) {
	accounts := b.container.AccountService
	accountID, ok := accounts.CurrentUserID(ctx)
	if !ok {
		b.sendMessage(chatID, text(user.Locale, msgSignInRequired))
		return
	}

	account, err := accounts.Profile(ctx, accountID)
	if err != nil {
		b.reportAuthError(chatID, user, err)
		return
	}

	if len(args) == 0 {
		phone := account.Phone
		if phone == "" {
			phone = text(user.Locale, msgPhoneNotSet)
		}
		b.sendMessage(chatID, text(user.Locale, msgProfile, account.Name, account.Email, phone))
		return
	}

	if len(args) < 2 {
		b.sendMessage(chatID, text(user.Locale, msgUsageProfile))
		return
	}
	name, phone := account.Name, account.Phone
	value := strings.Join(args[1:], " ")
	switch strings.ToLower(args[0]) {
	case "name":
		name = value
	case "phone":
		phone = value
		if phone == "-" {
			phone = ""
		}
	default:
		b.sendMessage(chatID, text(user.Locale, msgUsageProfile))
		return
	}

	if _, err := accounts.UpdateProfile(ctx, accountID, name, phone); err != nil {
		b.reportAuthError(chatID, user, err)
		return
	}
	b.sendMessage(chatID, text(user.Locale, msgProfileUpdated))
}

// reportError переводит ошибку сценария в сообщение пользователю
func (b *Bot) reportError(chatID int64, user *entity.User, err error) {
	if err == nil {
		return
	}
	if errors.Is(err, entity.ErrStale) {
		return
	}
	if errors.Is(err, entity.ErrBusy) {
		b.sendMessage(chatID, text(user.Locale, msgBusy))
		return
	}
	if errors.Is(err, entity.ErrInvalidTransition) {
		b.sendMessage(chatID, text(user.Locale, msgInvalidAction))
		return
	}

	kind, ok := entity.KindOf(err)
	if !ok {
		b.logger.Error("unexpected workflow error", zap.Error(err))
		b.sendMessage(chatID, text(user.Locale, msgInternalError))
		return
	}

	switch kind {
	case entity.KindPermissionDenied:
		b.sendMessage(chatID, text(user.Locale, msgPermissionDenied))
	case entity.KindAcquisitionFailed:
		b.sendMessage(chatID, text(user.Locale, msgAcquisitionFailed, flowMessage(err)))
	case entity.KindDetectionFailed:
		b.sendMessage(chatID, text(user.Locale, msgDetectionFailed, flowMessage(err)))
	case entity.KindSaveFailed:
		b.sendMessage(chatID, text(user.Locale, msgSaveFailed, flowMessage(err)))
	case entity.KindIdentityRequired:
		b.sendMessage(chatID, text(user.Locale, msgSignInToSave))
	default:
		b.sendMessage(chatID, text(user.Locale, msgCancelled))
	}
}

func (b *Bot) reportAuthError(chatID int64, user *entity.User, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidCredentials),
		errors.Is(err, app.ErrNotConfirmed),
		errors.Is(err, app.ErrInvalidEmail),
		errors.Is(err, app.ErrNameRequired),
		errors.Is(err, app.ErrInvalidPhone),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, port.ErrEmailTaken),
		errors.Is(err, port.ErrAccountNotFound):
		b.sendMessage(chatID, text(user.Locale, msgAuthFailed, err.Error()))
	default:
		b.logger.Error("account operation failed", zap.Error(err))
		b.sendMessage(chatID, text(user.Locale, msgInternalError))
	}
}

func flowMessage(err error) string {
	var fe *entity.FlowError
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	return err.Error()
}

// formatResult собирает текст диагноза с рекомендациями
func formatResult(locale entity.Locale, r *entity.DetectionResult) string {
	if r.Healthy() {
		return text(locale, msgResultHealthy, r.Confidence, r.Description)
	}

	var sb strings.Builder
	sb.WriteString(text(locale, msgResultDisease, r.DiseaseName, r.Confidence, severityText(locale, r.Severity), r.Description))
	if len(r.Suggestions) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(text(locale, msgRecommendations))
		for _, s := range r.Suggestions {
			fmt.Fprintf(&sb, "\n\n• %s: %s\n%s: %s\n⚠️ %s", s.Name, s.Description, text(locale, msgApplication), s.Application, s.SafetyNote)
		}
	}
	return sb.String()
}

func (b *Bot) sendSourceMenu(chatID int64, user *entity.User) {
	b.sendWithKeyboard(chatID, text(user.Locale, msgChooseSource), keyboard(
		button(user.Locale, msgBtnCamera, cbCamera),
		button(user.Locale, msgBtnGallery, cbGallery),
	))
}

func button(locale entity.Locale, key msgKey, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text(locale, key), data)
}

func keyboard(buttons ...tgbotapi.InlineKeyboardButton) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(buttons...))
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	if file.FileSize > maxFileSize {
		return nil, fmt.Errorf("file is too large: %d bytes", file.FileSize)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFileSize))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, body string) {
	msg := tgbotapi.NewMessage(chatID, body)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Warn("error sending message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) sendWithKeyboard(chatID int64, body string, markup tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, body)
	msg.ReplyMarkup = markup
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Warn("error sending message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
