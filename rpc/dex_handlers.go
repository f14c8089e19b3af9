package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"alsmadex/crypto"
	nativecommon "alsmadex/native/common"
	"alsmadex/native/dex"
	"alsmadex/observability"
)

type addTokenParams struct {
	Caller string `json:"caller"`
	Token  string `json:"token"`
	Feed   string `json:"feed"`
}

type tokenParams struct {
	Token string `json:"token"`
}

type tokenDetailsParams struct {
	Caller string `json:"caller"`
	Token  string `json:"token"`
}

type stakeParams struct {
	Caller string `json:"caller"`
	Token  string `json:"token"`
	Amount string `json:"amount"`
}

type stakeDetailsParams struct {
	Account string `json:"account"`
	Token   string `json:"token"`
}

type withdrawParams struct {
	Caller string `json:"caller"`
	Token  string `json:"token"`
}

type swapEstimateParams struct {
	FromToken  string `json:"fromToken"`
	ToToken    string `json:"toToken"`
	FromAmount string `json:"fromAmount"`
}

type swapParams struct {
	Caller     string `json:"caller"`
	FromToken  string `json:"fromToken"`
	ToToken    string `json:"toToken"`
	FromAmount string `json:"fromAmount"`
	// ExpectedToAmount bounds acceptable slippage for dex_swapWithSlippageCheck.
	ExpectedToAmount string `json:"expectedToAmount,omitempty"`
}

type tokenResult struct {
	Address      string `json:"address"`
	FeedAddress  string `json:"feedAddress"`
	Symbol       string `json:"symbol"`
	Decimals     uint8  `json:"decimals"`
	FeedDecimals uint8  `json:"feedDecimals"`
}

type tokenDetailsResult struct {
	Token          tokenResult `json:"token"`
	Balance        string      `json:"balance"`
	ExchangeRate   string      `json:"exchangeRate"`
	CommissionRate uint64      `json:"commissionRate"`
}

type stakeResult struct {
	Staked string `json:"staked"`
	Earned string `json:"earned"`
}

type swapQuoteResult struct {
	ExchangeRate string `json:"exchangeRate"`
	ToAmount     string `json:"toAmount"`
	CommissionTo string `json:"commissionTo"`
}

type treasuryResult struct {
	Token   string `json:"token"`
	Balance string `json:"balance"`
}

type amountResult struct {
	Amount string `json:"amount"`
}

func newTokenResult(token *dex.Token) tokenResult {
	return tokenResult{
		Address:      token.Address.String(),
		FeedAddress:  token.FeedAddress.String(),
		Symbol:       token.Symbol,
		Decimals:     token.Decimals,
		FeedDecimals: token.FeedDecimals,
	}
}

func newSwapQuoteResult(quote *dex.SwapQuote) swapQuoteResult {
	return swapQuoteResult{
		ExchangeRate: quote.ExchangeRate.String(),
		ToAmount:     quote.ToAmount.String(),
		CommissionTo: quote.CommissionTo.String(),
	}
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("expected parameter object")
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		return fmt.Errorf("invalid parameter object")
	}
	return nil
}

func decodeBech32(value string) (crypto.Address, error) {
	return crypto.DecodeAddress(strings.TrimSpace(value))
}

func parseAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("amount must be a base-10 integer")
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return amount, nil
}

// parseUnstakeAmount admits zero so the engine can answer with its own
// nothing-to-unstake error, matching the in-process behaviour.
func parseUnstakeAmount(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("amount must be a base-10 integer")
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative")
	}
	return amount, nil
}

// writeEngineError translates engine sentinels into JSON-RPC error envelopes.
func writeEngineError(w http.ResponseWriter, id interface{}, err error) {
	status := http.StatusInternalServerError
	code := codeServerError
	switch {
	case errors.Is(err, dex.ErrUnauthorized):
		status = http.StatusForbidden
		code = codeUnauthorized
	case errors.Is(err, dex.ErrTokenNotFound),
		errors.Is(err, dex.ErrFromTokenNotFound),
		errors.Is(err, dex.ErrToTokenNotFound):
		status = http.StatusNotFound
	case errors.Is(err, dex.ErrDuplicateToken):
		status = http.StatusConflict
	case errors.Is(err, dex.ErrInvalidInterface),
		errors.Is(err, dex.ErrInsufficientBalance),
		errors.Is(err, dex.ErrInsufficientAllowance),
		errors.Is(err, dex.ErrInsufficientReserve),
		errors.Is(err, dex.ErrNothingToUnstake),
		errors.Is(err, dex.ErrSlippageExceeded):
		status = http.StatusBadRequest
	case errors.Is(err, nativecommon.ErrModulePaused):
		status = http.StatusServiceUnavailable
	}
	writeError(w, status, id, code, err.Error(), nil)
}

func (s *Server) handleAddToken(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var input addTokenParams
	if err := decodeParams(req, &input); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(input.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller", err.Error())
		return
	}
	ledger, ok := s.ledgerFor(strings.TrimSpace(input.Token))
	if !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "unknown token ledger", input.Token)
		return
	}
	feed, ok := s.feedFor(strings.TrimSpace(input.Feed))
	if !ok {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "unknown price feed", input.Feed)
		return
	}
	token, err := s.engine.AddToken(caller, ledger, feed)
	observability.Exchange().RecordOperation("add_token", err)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newTokenResult(token))
}

func (s *Server) handleGetTokenList(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if len(req.Params) != 0 {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "no parameters expected", nil)
		return
	}
	tokens, err := s.engine.TokenList()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	results := make([]tokenResult, 0, len(tokens))
	for _, token := range tokens {
		results = append(results, newTokenResult(token))
	}
	writeResult(w, req.ID, results)
}

func (s *Server) handleGetTokenDetails(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var input tokenDetailsParams
	if err := decodeParams(req, &input); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(input.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller", err.Error())
		return
	}
	token, err := decodeBech32(input.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid token", err.Error())
		return
	}
	details, err := s.engine.TokenDetails(caller, token)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, tokenDetailsResult{
		Token:          newTokenResult(details.Token),
		Balance:        details.Balance.String(),
		ExchangeRate:   details.ExchangeRate.String(),
		CommissionRate: details.CommissionRate,
	})
}

func (s *Server) handleStake(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var input stakeParams
	if err := decodeParams(req, &input); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(input.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller", err.Error())
		return
	}
	token, err := decodeBech32(input.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid token", err.Error())
		return
	}
	amount, err := parseAmount(input.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	details, err := s.engine.Stake(caller, token, amount)
	observability.Exchange().RecordOperation("stake", err)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	s.recordStakedGauge(token)
	writeResult(w, req.ID, stakeResult{Staked: details.Staked.String(), Earned: details.Earned.String()})
}

func (s *Server) handleUnstake(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var input stakeParams
	if err := decodeParams(req, &input); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(input.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller", err.Error())
		return
	}
	token, err := decodeBech32(input.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid token", err.Error())
		return
	}
	amount, err := parseUnstakeAmount(input.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	details, err := s.engine.Unstake(caller, token, amount)
	observability.Exchange().RecordOperation("unstake", err)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	s.recordStakedGauge(token)
	writeResult(w, req.ID, stakeResult{Staked: details.Staked.String(), Earned: details.Earned.String()})
}

func (s *Server) handleGetStakeDetails(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var input stakeDetailsParams
	if err := decodeParams(req, &input); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	account, err := decodeBech32(input.Account)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid account", err.Error())
		return
	}
	token, err := decodeBech32(input.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid token", err.Error())
		return
	}
	details, err := s.engine.StakeDetailsFor(token, account)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, stakeResult{Staked: details.Staked.String(), Earned: details.Earned.String()})
}

func (s *Server) handleWithdrawStakingProfits(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var input withdrawParams
	if err := decodeParams(req, &input); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(input.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller", err.Error())
		return
	}
	token, err := decodeBech32(input.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid token", err.Error())
		return
	}
	earned, err := s.engine.WithdrawStakingProfits(caller, token)
	observability.Exchange().RecordOperation("withdraw_profits", err)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, amountResult{Amount: earned.String()})
}

func (s *Server) handleGetEstimatedSwapDetails(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var input swapEstimateParams
	if err := decodeParams(req, &input); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	fromToken, err := decodeBech32(input.FromToken)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid fromToken", err.Error())
		return
	}
	toToken, err := decodeBech32(input.ToToken)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid toToken", err.Error())
		return
	}
	amount, err := parseAmount(input.FromAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	quote, err := s.engine.EstimatedSwapDetails(fromToken, toToken, amount)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, newSwapQuoteResult(quote))
}

func (s *Server) handleSwap(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var input swapParams
	if err := decodeParams(req, &input); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, fromToken, toToken, amount, rpcErr := parseSwapParams(&input)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	quote, err := s.engine.Swap(caller, fromToken, toToken, amount)
	observability.Exchange().RecordOperation("swap", err)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	s.recordSwapMetrics(toToken, quote)
	writeResult(w, req.ID, newSwapQuoteResult(quote))
}

func (s *Server) handleSwapWithSlippageCheck(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var input swapParams
	if err := decodeParams(req, &input); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, fromToken, toToken, amount, rpcErr := parseSwapParams(&input)
	if rpcErr != nil {
		writeError(w, http.StatusBadRequest, req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
		return
	}
	expected, err := parseAmount(input.ExpectedToAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "expectedToAmount: "+err.Error(), nil)
		return
	}
	quote, err := s.engine.SwapWithSlippageCheck(caller, fromToken, toToken, amount, expected)
	observability.Exchange().RecordOperation("swap", err)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	s.recordSwapMetrics(toToken, quote)
	writeResult(w, req.ID, newSwapQuoteResult(quote))
}

func parseSwapParams(input *swapParams) (caller, fromToken, toToken crypto.Address, amount *big.Int, rpcErr *RPCError) {
	caller, err := decodeBech32(input.Caller)
	if err != nil {
		return caller, fromToken, toToken, nil, &RPCError{Code: codeInvalidParams, Message: "invalid caller", Data: err.Error()}
	}
	fromToken, err = decodeBech32(input.FromToken)
	if err != nil {
		return caller, fromToken, toToken, nil, &RPCError{Code: codeInvalidParams, Message: "invalid fromToken", Data: err.Error()}
	}
	toToken, err = decodeBech32(input.ToToken)
	if err != nil {
		return caller, fromToken, toToken, nil, &RPCError{Code: codeInvalidParams, Message: "invalid toToken", Data: err.Error()}
	}
	amount, err = parseAmount(input.FromAmount)
	if err != nil {
		return caller, fromToken, toToken, nil, &RPCError{Code: codeInvalidParams, Message: err.Error()}
	}
	return caller, fromToken, toToken, amount, nil
}

func (s *Server) handleGetTreasuryBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var input tokenParams
	if err := decodeParams(req, &input); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	token, err := decodeBech32(input.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid token", err.Error())
		return
	}
	balance, err := s.engine.TreasuryBalance(token)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, treasuryResult{Token: token.String(), Balance: balance.String()})
}

func (s *Server) handleWithdrawTreasury(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var input withdrawParams
	if err := decodeParams(req, &input); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	caller, err := decodeBech32(input.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid caller", err.Error())
		return
	}
	token, err := decodeBech32(input.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid token", err.Error())
		return
	}
	amount, err := s.engine.WithdrawTreasury(caller, token)
	observability.Exchange().RecordOperation("withdraw_treasury", err)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	s.recordTreasuryGauge(token)
	writeResult(w, req.ID, amountResult{Amount: amount.String()})
}

// tokenLabel resolves a registered token's symbol for metric labels, falling
// back to the bech32 address for anything the registry does not know.
func (s *Server) tokenLabel(token crypto.Address) string {
	tokens, err := s.engine.TokenList()
	if err == nil {
		for _, entry := range tokens {
			if entry.Address.Equal(token) {
				return entry.Symbol
			}
		}
	}
	return token.String()
}

func (s *Server) recordStakedGauge(token crypto.Address) {
	total, err := s.engine.TotalStaked(token)
	if err != nil {
		return
	}
	observability.Exchange().SetStaked(s.tokenLabel(token), total)
}

func (s *Server) recordTreasuryGauge(token crypto.Address) {
	balance, err := s.engine.TreasuryBalance(token)
	if err != nil {
		return
	}
	observability.Exchange().SetTreasury(s.tokenLabel(token), balance)
}

func (s *Server) recordSwapMetrics(toToken crypto.Address, quote *dex.SwapQuote) {
	observability.Exchange().RecordSwap(s.tokenLabel(toToken), quote.ToAmount, quote.CommissionTo)
	s.recordTreasuryGauge(toToken)
}
