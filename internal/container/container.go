package container

import (
	"time"

	"go.uber.org/zap"

	app "maize-bot/internal/application"
	"maize-bot/internal/auth"
	"maize-bot/internal/domain/entity"
	"maize-bot/internal/domain/port"
)

// Deps внешние зависимости, выбранные по конфигурации
type Deps struct {
	Users         port.UserRepository
	DefaultLocale entity.Locale
	Accounts      port.AccountRepository
	Sessions      port.SessionStore
	Mailer        port.Mailer
	Tokens        *auth.TokenIssuer
	History       port.HistoryRepository
	Images        port.ImageStore
	Detector      port.Detector
	Decoder       port.ImageDecoder
	PublicURL     string
	SessionTTL    time.Duration

	DetectTimeout time.Duration
	Logger        *zap.Logger
}

type Container struct {
	UserService    *app.UserService
	AccountService *app.AccountService
	HistoryService *app.HistoryService
	Detector       port.Detector
	Decoder        port.ImageDecoder

	detectTimeout time.Duration
	logger        *zap.Logger
}

func New(deps Deps) *Container {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Container{
		UserService:    app.NewUserService(deps.Users, deps.DefaultLocale, logger),
		AccountService: app.NewAccountService(deps.Accounts, deps.Sessions, deps.Mailer, deps.Tokens, deps.PublicURL, deps.SessionTTL, logger),
		HistoryService: app.NewHistoryService(deps.History, deps.Images, logger),
		Detector:       deps.Detector,
		Decoder:        deps.Decoder,
		detectTimeout:  deps.DetectTimeout,
		logger:         logger,
	}
}

// NewWorkflow создаёт автомат сценария для одного чата
func (c *Container) NewWorkflow(acquirer port.ImageAcquirer, chatID int64) *app.Workflow {
	return app.NewWorkflow(acquirer, c.Detector, c.HistoryService, c.AccountService,
		app.WithDetectTimeout(c.detectTimeout),
		app.WithLogger(c.logger.Named("workflow").With(zap.Int64("chat_id", chatID))),
	)
}
