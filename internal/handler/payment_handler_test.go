package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kartcore/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPaymentHandler_Webhook(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		ack            *model.WebhookAck
		err            error
		expectedStatus int
		expectService  bool
	}{
		{
			name: "applied",
			body: `{"orderId":"ORD-1","status":"success","transactionId":"txn_1"}`,
			ack: &model.WebhookAck{
				Received: true, OrderID: "ORD-1", Outcome: model.WebhookApplied, PaymentStatus: model.PaymentStatusPaid,
			},
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name: "replay is still acknowledged",
			body: `{"orderId":"ORD-1","status":"success","transactionId":"txn_1"}`,
			ack: &model.WebhookAck{
				Received: true, OrderID: "ORD-1", Outcome: model.WebhookDuplicate, PaymentStatus: model.PaymentStatusPaid,
			},
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name: "extra gateway fields are ignored",
			body: `{"orderId":"ORD-1","status":"success","transactionId":"txn_1","amount":30000,"currency":"INR","signature":"abc"}`,
			ack: &model.WebhookAck{
				Received: true, OrderID: "ORD-1", Outcome: model.WebhookApplied, PaymentStatus: model.PaymentStatusPaid,
			},
			expectedStatus: http.StatusOK,
			expectService:  true,
		},
		{
			name:           "transaction id too long",
			body:           `{"orderId":"ORD-1","status":"success","transactionId":"` + strings.Repeat("t", 129) + `"}`,
			err:            model.NewInvalidRequestError("transactionId must be at most %d characters", 128),
			expectedStatus: http.StatusBadRequest,
			expectService:  true,
		},
		{
			name:           "unknown order",
			body:           `{"orderId":"NOPE","status":"success","transactionId":"txn_1"}`,
			err:            model.ErrOrderNotFound,
			expectedStatus: http.StatusNotFound,
			expectService:  true,
		},
		{
			name:           "invalid status",
			body:           `{"orderId":"ORD-1","status":"maybe","transactionId":"txn_1"}`,
			err:            model.NewInvalidRequestError("unknown webhook status %q", "maybe"),
			expectedStatus: http.StatusBadRequest,
			expectService:  true,
		},
		{
			name:           "malformed payload",
			body:           `{"orderId":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "trailing document",
			body:           `{"orderId":"ORD-1","status":"success","transactionId":"txn_1"}{}`,
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockPaymentService)
			h := NewPaymentHandler(svc, zerolog.Nop())

			if tt.expectService {
				svc.On("HandlePaymentWebhook", mock.Anything, mock.AnythingOfType("*model.PaymentWebhook")).Return(tt.ack, tt.err)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.Webhook(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.ack != nil {
				var got model.WebhookAck
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
				assert.Equal(t, *tt.ack, got)
			}
			svc.AssertExpectations(t)
		})
	}
}
