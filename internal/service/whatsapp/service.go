package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/stockledger/internal/domain/models"
	client "github.com/mamadbah2/stockledger/pkg/clients/whatsapp"
)

// maxBodyLength is the WhatsApp limit for a text body.
const maxBodyLength = 4096

// MessagingService pushes notifications to operators.
type MessagingService interface {
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	client client.Client
	logger *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(c client.Client, logger *zap.Logger) *MetaWhatsAppService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetaWhatsAppService{client: c, logger: logger}
}

// SendOutbound delivers a text message. Bodies over the WhatsApp limit are
// truncated.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	to := strings.TrimSpace(req.To)
	if to == "" {
		return errors.New("recipient is required")
	}

	body := strings.TrimSpace(req.Message)
	if body == "" {
		return errors.New("message is required")
	}
	if runes := []rune(body); len(runes) > maxBodyLength {
		body = string(runes[:maxBodyLength-3]) + "..."
	}

	resp, err := s.client.SendTextMessage(ctx, client.SendTextMessageRequest{To: to, Body: body})
	if err != nil {
		return fmt.Errorf("send outbound to %s: %w", to, err)
	}

	messageID := ""
	if resp != nil && len(resp.Messages) > 0 {
		messageID = resp.Messages[0].ID
	}
	s.logger.Info("outbound message sent", zap.String("to", to), zap.String("message_id", messageID))
	return nil
}
