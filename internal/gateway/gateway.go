package gateway

import (
	"context"
	"encoding/json"
	"errors"
)

// 通信レベルの失敗（タイムアウト、DNS、解析できない非2xx）
var ErrUnavailable = errors.New("payment gateway unavailable")

const StatusSuccess = "success"

type InitializeRequest struct {
	AmountMinor int64
	Reference   string
	Email       string
	CallbackURL string
}

// OK=false はゲートウェイが拒否した（通信エラーではない）
type InitializeResult struct {
	OK               bool
	AuthorizationURL string
	AccessCode       string
	Raw              json.RawMessage
}

// OK=false は確定的なステータスが返らなかった
type VerifyResult struct {
	OK          bool
	Status      string
	AmountMinor int64
	Raw         json.RawMessage
}

func (r VerifyResult) Succeeded() bool {
	return r.OK && r.Status == StatusSuccess
}

// PaymentGateway is the boundary to the external payment provider.
type PaymentGateway interface {
	Initialize(ctx context.Context, req InitializeRequest) (InitializeResult, error)
	Verify(ctx context.Context, reference string) (VerifyResult, error)
}
