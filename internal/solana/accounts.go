package solana

import (
	"context"
	"encoding/base64"
	"fmt"
)

// DecodedAccountFetcher adapts HTTPClient to pool.AccountFetcher, decoding
// the base64 account data the JSON-RPC layer returns before handing bytes
// to a decoder.
type DecodedAccountFetcher struct {
	client *HTTPClient
	slot   func(ctx context.Context) (int64, error)
}

// NewDecodedAccountFetcher wraps client for use as a pool.AccountFetcher.
func NewDecodedAccountFetcher(client *HTTPClient) *DecodedAccountFetcher {
	f := &DecodedAccountFetcher{client: client}
	f.slot = client.GetSlot
	return f
}

// GetAccountInfo fetches and base64-decodes address, returning its owning
// program ID, raw data, and the slot observed. Matches the
// internal/pool.AccountFetcher interface signature.
func (f *DecodedAccountFetcher) GetAccountInfo(ctx context.Context, address string) (owner string, data []byte, slot int64, err error) {
	info, err := f.client.GetAccountInfo(ctx, address)
	if err != nil {
		return "", nil, 0, err
	}
	if info == nil {
		return "", nil, 0, fmt.Errorf("solana: account %s not found", address)
	}

	raw, err := base64.StdEncoding.DecodeString(info.Data)
	if err != nil {
		return "", nil, 0, fmt.Errorf("solana: decode account %s data: %w", address, err)
	}

	slotNum, err := f.slot(ctx)
	if err != nil {
		slotNum = 0
	}
	return info.Owner, raw, slotNum, nil
}

// multipleAccountsValue mirrors getMultipleAccounts' per-account response.
type multipleAccountsValue struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"`
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
}

type getMultipleAccountsResult struct {
	Value []*multipleAccountsValue `json:"value"`
}

// GetMultipleAccounts fetches all of pubkeys in a single getMultipleAccounts
// call; it does not split them into batches of rpc.multiple_accounts_batch.
// The pool service's refresh does not use it: it fetches one account at a
// time through GetAccountInfo.
func (c *HTTPClient) GetMultipleAccounts(ctx context.Context, pubkeys []string) ([]*AccountInfo, error) {
	params := []interface{}{
		pubkeys,
		map[string]interface{}{"encoding": "base64"},
	}

	var result getMultipleAccountsResult
	if err := c.call(ctx, "getMultipleAccounts", params, &result); err != nil {
		return nil, err
	}

	out := make([]*AccountInfo, len(result.Value))
	for i, v := range result.Value {
		if v == nil {
			continue
		}
		info := &AccountInfo{Lamports: v.Lamports, Owner: v.Owner, Executable: v.Executable, RentEpoch: v.RentEpoch}
		if len(v.Data) >= 1 {
			info.Data = v.Data[0]
		}
		out[i] = info
	}
	return out, nil
}

// GetBalance returns a wallet's native lamport balance.
func (c *HTTPClient) GetBalance(ctx context.Context, pubkey string) (uint64, error) {
	params := []interface{}{pubkey}
	var result struct {
		Value uint64 `json:"value"`
	}
	if err := c.call(ctx, "getBalance", params, &result); err != nil {
		return 0, err
	}
	return result.Value, nil
}

// tokenAccountBalanceValue mirrors getTokenAccountBalance's value shape.
type tokenAccountBalanceValue struct {
	Amount   string `json:"amount"`
	Decimals int    `json:"decimals"`
}

// GetTokenAccountBalance returns a token account's raw balance and the
// mint's decimal count.
func (c *HTTPClient) GetTokenAccountBalance(ctx context.Context, tokenAccount string) (amountRaw uint64, decimals int, err error) {
	params := []interface{}{tokenAccount}
	var result struct {
		Value tokenAccountBalanceValue `json:"value"`
	}
	if err := c.call(ctx, "getTokenAccountBalance", params, &result); err != nil {
		return 0, 0, err
	}
	var amt uint64
	_, scanErr := fmt.Sscanf(result.Value.Amount, "%d", &amt)
	if scanErr != nil {
		return 0, result.Value.Decimals, fmt.Errorf("solana: parse token balance %q: %w", result.Value.Amount, scanErr)
	}
	return amt, result.Value.Decimals, nil
}

// getTokenAccountsByOwnerValue mirrors one entry of getTokenAccountsByOwner's value array.
type getTokenAccountsByOwnerValue struct {
	Pubkey  string `json:"pubkey"`
	Account struct {
		Data struct {
			Parsed struct {
				Info struct {
					TokenAmount tokenAccountBalanceValue `json:"tokenAmount"`
				} `json:"info"`
			} `json:"parsed"`
		} `json:"data"`
	} `json:"account"`
}

// GetTokenAccountsByOwner sums the raw balance of every token account
// owner holds for mint, without deriving the associated token account
// address client-side: the RPC node does the (owner, mint) filtering.
func (c *HTTPClient) GetTokenAccountsByOwner(ctx context.Context, owner, mint string) (uint64, error) {
	params := []interface{}{
		owner,
		map[string]interface{}{"mint": mint},
		map[string]interface{}{"encoding": "jsonParsed"},
	}
	var result struct {
		Value []getTokenAccountsByOwnerValue `json:"value"`
	}
	if err := c.call(ctx, "getTokenAccountsByOwner", params, &result); err != nil {
		return 0, err
	}

	var total uint64
	for _, v := range result.Value {
		var amt uint64
		amount := v.Account.Data.Parsed.Info.TokenAmount.Amount
		if amount == "" {
			continue
		}
		if _, err := fmt.Sscanf(amount, "%d", &amt); err != nil {
			return 0, fmt.Errorf("solana: parse token account %s balance %q: %w", v.Pubkey, amount, err)
		}
		total += amt
	}
	return total, nil
}

// GetMinimumBalanceForRentExemption returns the rent-exempt minimum for an
// account of the given size, used by the verification subsystem's
// ATA-rent-reclaim detector.
func (c *HTTPClient) GetMinimumBalanceForRentExemption(ctx context.Context, dataLen int) (uint64, error) {
	params := []interface{}{dataLen}
	var result uint64
	if err := c.call(ctx, "getMinimumBalanceForRentExemption", params, &result); err != nil {
		return 0, err
	}
	return result, nil
}

// GetLatestBlockhash returns the current blockhash and its last valid
// block height, required to assemble a transaction message.
func (c *HTTPClient) GetLatestBlockhash(ctx context.Context) (blockhash string, lastValidBlockHeight uint64, err error) {
	params := []interface{}{map[string]interface{}{"commitment": "confirmed"}}
	var result struct {
		Value struct {
			Blockhash            string `json:"blockhash"`
			LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		} `json:"value"`
	}
	if err := c.call(ctx, "getLatestBlockhash", params, &result); err != nil {
		return "", 0, err
	}
	return result.Value.Blockhash, result.Value.LastValidBlockHeight, nil
}

// SendTransaction submits a base64-encoded signed transaction and returns
// its signature.
func (c *HTTPClient) SendTransaction(ctx context.Context, signedTxBase64 string) (signature string, err error) {
	params := []interface{}{
		signedTxBase64,
		map[string]interface{}{"encoding": "base64", "skipPreflight": false},
	}
	var result string
	if err := c.call(ctx, "sendTransaction", params, &result); err != nil {
		return "", err
	}
	return result, nil
}

// getSignatureStatusesValue mirrors getSignatureStatuses' per-signature shape.
type getSignatureStatusesValue struct {
	Slot               int64       `json:"slot"`
	Confirmations      *int        `json:"confirmations"`
	Err                interface{} `json:"err"`
	ConfirmationStatus string      `json:"confirmationStatus"`
}

// GetSignatureStatus fetches a single transaction's confirmation status,
// the primitive the verification subsystem's smart confirmer polls.
func (c *HTTPClient) GetSignatureStatus(ctx context.Context, signature string) (confirmed bool, failed bool, err error) {
	params := []interface{}{
		[]string{signature},
		map[string]interface{}{"searchTransactionHistory": true},
	}
	var result struct {
		Value []*getSignatureStatusesValue `json:"value"`
	}
	if callErr := c.call(ctx, "getSignatureStatuses", params, &result); callErr != nil {
		return false, false, callErr
	}
	if len(result.Value) == 0 || result.Value[0] == nil {
		return false, false, nil
	}
	v := result.Value[0]
	if v.Err != nil {
		return false, true, nil
	}
	return v.ConfirmationStatus == "confirmed" || v.ConfirmationStatus == "finalized", false, nil
}

// GetHealth reports whether the RPC endpoint considers itself healthy.
func (c *HTTPClient) GetHealth(ctx context.Context) error {
	var result string
	return c.call(ctx, "getHealth", nil, &result)
}

// tokenBalanceEntry mirrors one entry of getTransaction's pre/postTokenBalances.
type tokenBalanceEntry struct {
	AccountIndex  int    `json:"accountIndex"`
	Owner         string `json:"owner"`
	UiTokenAmount struct {
		Amount string `json:"amount"`
	} `json:"uiTokenAmount"`
}

// TransactionBalances is the raw pre/post balance snapshot getTransaction
// reports for a confirmed signature's fee payer, used to reconcile a
// submitted swap's actual economics against its intent.
type TransactionBalances struct {
	Err              interface{}
	FeeRaw           uint64
	PreNativeRaw     uint64
	PostNativeRaw    uint64
	PreTokenRaw      uint64
	PostTokenRaw     uint64
}

// GetTransactionBalances fetches signature's confirmed meta and returns
// the fee payer's native lamport balance and, if present, the first
// token-balance entry's raw amount, before and after execution.
func (c *HTTPClient) GetTransactionBalances(ctx context.Context, signature string) (*TransactionBalances, error) {
	params := []interface{}{
		signature,
		map[string]interface{}{"encoding": "jsonParsed", "maxSupportedTransactionVersion": 0},
	}
	var result struct {
		Meta *struct {
			Err               interface{}         `json:"err"`
			Fee               uint64              `json:"fee"`
			PreBalances       []uint64            `json:"preBalances"`
			PostBalances      []uint64            `json:"postBalances"`
			PreTokenBalances  []tokenBalanceEntry `json:"preTokenBalances"`
			PostTokenBalances []tokenBalanceEntry `json:"postTokenBalances"`
		} `json:"meta"`
	}
	if err := c.call(ctx, "getTransaction", params, &result); err != nil {
		return nil, err
	}
	if result.Meta == nil {
		return nil, fmt.Errorf("solana: transaction %s not found", signature)
	}

	out := &TransactionBalances{Err: result.Meta.Err, FeeRaw: result.Meta.Fee}
	if len(result.Meta.PreBalances) > 0 {
		out.PreNativeRaw = result.Meta.PreBalances[0]
	}
	if len(result.Meta.PostBalances) > 0 {
		out.PostNativeRaw = result.Meta.PostBalances[0]
	}
	if len(result.Meta.PreTokenBalances) > 0 {
		fmt.Sscanf(result.Meta.PreTokenBalances[0].UiTokenAmount.Amount, "%d", &out.PreTokenRaw)
	}
	if len(result.Meta.PostTokenBalances) > 0 {
		fmt.Sscanf(result.Meta.PostTokenBalances[0].UiTokenAmount.Amount, "%d", &out.PostTokenRaw)
	}
	return out, nil
}
