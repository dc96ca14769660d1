package whatsapp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/stockledger/internal/domain/models"
	client "github.com/mamadbah2/stockledger/pkg/clients/whatsapp"
)

type stubClient struct {
	sent []client.SendTextMessageRequest
	err  error
}

func (s *stubClient) SendTextMessage(_ context.Context, req client.SendTextMessageRequest) (*client.SendTextMessageResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.sent = append(s.sent, req)
	return &client.SendTextMessageResponse{}, nil
}

func TestSendOutbound(t *testing.T) {
	stub := &stubClient{}
	svc := NewMetaWhatsAppService(stub, nil)

	err := svc.SendOutbound(context.Background(), models.OutboundMessageRequest{To: " 6591234567 ", Message: "Stock report"})
	require.NoError(t, err)
	require.Len(t, stub.sent, 1)
	assert.Equal(t, "6591234567", stub.sent[0].To)
	assert.Equal(t, "Stock report", stub.sent[0].Body)
}

func TestSendOutboundValidation(t *testing.T) {
	svc := NewMetaWhatsAppService(&stubClient{}, nil)

	assert.Error(t, svc.SendOutbound(context.Background(), models.OutboundMessageRequest{Message: "hi"}))
	assert.Error(t, svc.SendOutbound(context.Background(), models.OutboundMessageRequest{To: "1", Message: "  "}))
}

func TestSendOutboundTruncatesLongBodies(t *testing.T) {
	stub := &stubClient{}
	svc := NewMetaWhatsAppService(stub, nil)

	err := svc.SendOutbound(context.Background(), models.OutboundMessageRequest{To: "1", Message: strings.Repeat("x", 5000)})
	require.NoError(t, err)
	assert.Len(t, []rune(stub.sent[0].Body), maxBodyLength)
	assert.True(t, strings.HasSuffix(stub.sent[0].Body, "..."))
}

func TestSendOutboundWrapsClientError(t *testing.T) {
	apiErr := &client.APIError{StatusCode: 401, Code: 190, Message: "token expired"}
	svc := NewMetaWhatsAppService(&stubClient{err: apiErr}, nil)

	err := svc.SendOutbound(context.Background(), models.OutboundMessageRequest{To: "1", Message: "hi"})
	var got *client.APIError
	require.True(t, errors.As(err, &got))
	assert.Equal(t, 190, got.Code)
}
