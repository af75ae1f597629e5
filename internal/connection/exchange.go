package connection

import (
	"context"

	"github.com/rickgao/mympd-webserver/internal/model"
)

// Exchange is the reply slot of a single HTTP request. The first Send wins.
type Exchange struct {
	reply chan *model.WorkResult
}

// NewExchange creates an empty reply slot.
func NewExchange() *Exchange {
	return &Exchange{reply: make(chan *model.WorkResult, 1)}
}

// Send stores res without blocking.
func (e *Exchange) Send(res *model.WorkResult) error {
	select {
	case e.reply <- res:
		return nil
	default:
		return ErrAlreadyDelivered
	}
}

// Wait blocks until a reply arrives or ctx is done.
func (e *Exchange) Wait(ctx context.Context) (*model.WorkResult, error) {
	select {
	case res := <-e.reply:
		return res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
