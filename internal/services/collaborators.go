package services

import (
	"context"

	"github.com/tbourn/go-chat-intake/internal/domain"
)

// Source yields new events from the chat platform. NextEvent returns nil
// when there is nothing new.
type Source interface {
	NextEvent(ctx context.Context) (*domain.InboundEvent, error)
}

// Vision classifies product photos and reads model numbers off them.
type Vision interface {
	// Classify returns the product class of the image, or "" if unknown.
	Classify(ctx context.Context, imageURL string) (string, error)
	// RecognizeModel returns the raw OCR text of the model number.
	RecognizeModel(ctx context.Context, imageURL string) (string, error)
}

// Dialogue is the generative engine that writes replies.
type Dialogue interface {
	Converse(ctx context.Context, req domain.ConverseRequest) (domain.ConverseResult, error)
}

// Dispatcher performs outbound actions on the chat platform. sellerNick is
// the account that received the message.
type Dispatcher interface {
	SendText(ctx context.Context, sellerNick, buyerNick, text string) error
	TransferToGroup(ctx context.Context, sellerNick, buyerNick, group string) error
	TransferToNick(ctx context.Context, sellerNick, buyerNick, target string) error
}
