package bridge

import (
	"context"
	"fmt"

	"arb-core/internal/credential"
	"arb-core/internal/domain"
	"arb-core/internal/money"
	"arb-core/internal/venue/httpx"
)

// HTTPTransferer submits and polls cross-chain transfers through a bridge
// service's REST API. The bridge protocol itself (message passing, proof
// verification, relay trust model) is out of scope; this is the thin
// client the controller needs to hand off and track a transfer.
type HTTPTransferer struct {
	client *httpx.Client
	cred   *credential.Handle
}

// NewHTTPTransferer constructs a Transferer bound to a bridge service
// endpoint.
func NewHTTPTransferer(endpoint string, cred *credential.Handle) *HTTPTransferer {
	return &HTTPTransferer{client: httpx.New(endpoint), cred: cred}
}

type submitTransferResponse struct {
	ChainRef string `json:"chainRef"`
}

// SubmitTransfer initiates a transfer of amount of token from one venue to
// the other.
func (t *HTTPTransferer) SubmitTransfer(ctx context.Context, token string, from, to domain.Venue, amount money.Amount) (string, error) {
	key, err := t.cred.Acquire(string(from))
	if err != nil {
		return "", fmt.Errorf("bridge: %w", err)
	}
	defer key.Release()

	payload := map[string]interface{}{
		"token":  token,
		"from":   from,
		"to":     to,
		"amount": amount.String(),
	}
	var resp submitTransferResponse
	if _, err := t.client.PostJSON(ctx, "/v1/transfers", nil, payload, &resp); err != nil {
		return "", fmt.Errorf("bridge: submit transfer: %w", err)
	}
	return resp.ChainRef, nil
}

type pollTransferResponse struct {
	Status string `json:"status"`
}

// PollTransfer reports the current status of a previously submitted
// transfer.
func (t *HTTPTransferer) PollTransfer(ctx context.Context, chainRef string) (domain.BridgeStatus, error) {
	var resp pollTransferResponse
	if _, err := t.client.GetJSON(ctx, "/v1/transfers/"+chainRef, nil, &resp); err != nil {
		return "", fmt.Errorf("bridge: poll transfer: %w", err)
	}
	switch resp.Status {
	case "completed":
		return domain.BridgeCompleted, nil
	case "failed":
		return domain.BridgeFailed, nil
	default:
		return domain.BridgePending, nil
	}
}

var _ Transferer = (*HTTPTransferer)(nil)
