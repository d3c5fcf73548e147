package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/xchicks/internal/config"
	"github.com/mamadbah2/xchicks/internal/domain/models"
	"github.com/mamadbah2/xchicks/internal/service/commands"
	client "github.com/mamadbah2/xchicks/pkg/clients/whatsapp"
)

const sendTimeout = 10 * time.Second

// MessagingService describes the operations the HTTP layer can perform.
type MessagingService interface {
	VerifyWebhookToken(mode, verifyToken, challenge string) (string, error)
	HandleWebhook(ctx context.Context, payload models.WebhookPayload) error
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
// Inbound messages from configured manager phones are dispatched as commands.
type MetaWhatsAppService struct {
	cfg        config.WhatsAppConfig
	client     client.Client
	dispatcher commands.Dispatcher
	managers   map[string]struct{}
	logger     *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, c client.Client, dispatcher commands.Dispatcher, logger *zap.Logger) *MetaWhatsAppService {
	svc := &MetaWhatsAppService{
		cfg:        cfg,
		client:     c,
		dispatcher: dispatcher,
		managers:   make(map[string]struct{}, len(cfg.ManagerPhones)),
		logger:     logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	for _, phone := range cfg.ManagerPhones {
		if p := normalizePhone(phone); p != "" {
			svc.managers[p] = struct{}{}
		}
	}
	return svc
}

func normalizePhone(phone string) string {
	return strings.TrimPrefix(strings.ReplaceAll(strings.TrimSpace(phone), " ", ""), "+")
}

// actorFor maps a sender phone to a manager actor. Unknown numbers are refused.
func (s *MetaWhatsAppService) actorFor(phone string) (models.Actor, bool) {
	p := normalizePhone(phone)
	if _, ok := s.managers[p]; !ok {
		return models.Actor{}, false
	}
	return models.Actor{ID: "whatsapp:" + p, Role: models.RoleManager}, true
}

// VerifyWebhookToken validates the callback verification token.
func (s *MetaWhatsAppService) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	if mode == "" || verifyToken == "" {
		return "", errors.New("missing mode or verify token")
	}

	if !strings.EqualFold(mode, "subscribe") {
		return "", fmt.Errorf("unsupported hub.mode %s", mode)
	}

	if verifyToken != s.cfg.VerifyToken {
		return "", errors.New("invalid verify token")
	}

	return challenge, nil
}

// HandleWebhook processes inbound webhook payloads.
func (s *MetaWhatsAppService) HandleWebhook(ctx context.Context, payload models.WebhookPayload) error {
	var firstErr error

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if err := s.handleInboundMessage(ctx, msg); err != nil {
					s.logger.Error("failed to handle inbound message", zap.Error(err), zap.String("message_id", msg.ID))
					if firstErr == nil {
						firstErr = err
					}
				}
			}
		}
	}

	return firstErr
}

func (s *MetaWhatsAppService) handleInboundMessage(ctx context.Context, msg models.InboundMessage) error {
	actor, ok := s.actorFor(msg.From)
	if !ok {
		s.logger.Warn("ignoring message from unregistered number", zap.String("from", msg.From), zap.String("type", msg.Type))
		return nil
	}

	text := msg.Body()
	if text == "" {
		s.logger.Debug("ignoring message without text", zap.String("message_id", msg.ID), zap.String("type", msg.Type))
		return nil
	}

	cmd := models.ParseCommand(text)
	res := s.dispatcher.HandleCommand(ctx, cmd, actor)

	s.logger.Info("handled manager command",
		zap.String("from", msg.From),
		zap.String("command", string(cmd.Type)),
		zap.Bool("success", res.Success),
		zap.String("error_kind", string(res.ErrorKind)))

	return s.Notify(ctx, msg.From, commands.Render(res))
}

// SendOutbound lets internal operators push quick notifications via HTTP.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := s.client.SendText(ctxWithTimeout, client.TextMessage{
		To:         req.To,
		Body:       req.Message,
		PreviewURL: req.PreviewURL,
	})
	return err
}

// Notify sends a plain text to a single phone number.
func (s *MetaWhatsAppService) Notify(ctx context.Context, to, message string) error {
	return s.SendOutbound(ctx, models.OutboundMessageRequest{To: to, Message: message})
}

// NotifyManagers broadcasts message to every configured manager phone and
// returns the joined delivery errors.
func (s *MetaWhatsAppService) NotifyManagers(ctx context.Context, message string) error {
	var errs []error
	for _, phone := range s.cfg.ManagerPhones {
		if err := s.Notify(ctx, phone, message); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", phone, err))
		}
	}
	return errors.Join(errs...)
}
