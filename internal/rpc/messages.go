// ABOUTME: Request and response messages of the registry service
// ABOUTME: Includes the account view shared by the gRPC and HTTP surfaces

package rpc

import (
	"encoding/json"

	"github.com/2389/mythic-metadata/internal/auth"
	"github.com/2389/mythic-metadata/internal/ledger"
	"github.com/2389/mythic-metadata/internal/state"
)

type SubmitTransactionRequest struct {
	Transaction *auth.Transaction `json:"transaction"`
}

type SubmitTransactionResponse struct {
	ID   string `json:"id"`
	Op   string `json:"op"`
	Slot uint64 `json:"slot"`
}

type GetAccountRequest struct {
	Address string `json:"address"`
}

type GetAccountResponse struct {
	Account *AccountView `json:"account"`
}

type GetLatestSlotRequest struct{}

type GetLatestSlotResponse struct {
	Slot uint64 `json:"slot"`
}

// AccountView is a stored account with its decoded record alongside the raw
// bytes. Decoded is omitted when the bytes are not a known record.
type AccountView struct {
	Address string          `json:"address"`
	Kind    string          `json:"kind"`
	Version uint64          `json:"version"`
	Slot    uint64          `json:"slot"`
	Data    []byte          `json:"data"`
	Decoded json.RawMessage `json:"decoded,omitempty"`
}

// NewAccountView builds the view of acct.
func NewAccountView(acct *ledger.Account) *AccountView {
	v := &AccountView{
		Address: acct.Address.String(),
		Kind:    acct.Kind,
		Version: acct.Version,
		Slot:    acct.Slot,
		Data:    acct.Data,
	}
	if rec, err := state.Decode(acct.Data); err == nil {
		if decoded, err := json.Marshal(rec); err == nil {
			v.Decoded = decoded
		}
	}
	return v
}
