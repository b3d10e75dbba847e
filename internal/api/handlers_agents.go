package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apperrors "DeFi-Agent/internal/errors"
	"DeFi-Agent/pkg/dto"
)

const (
	snapshotTimeout = 5 * time.Second
	receiptTimeout  = 30 * time.Second
	receiptPoll     = time.Second
)

// handleListAgents godoc
// @Summary      List agents
// @Tags         agents
// @Produce      json
// @Success      200  {array}  dto.Agent
// @Router       /agents [get]
func (s *Server) handleListAgents(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Agents.Infos())
}

// handleGetAgent godoc
// @Summary      Get an agent
// @Tags         agents
// @Produce      json
// @Param        id   path      string  true  "agent id"
// @Success      200  {object}  dto.Agent
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /agents/{id} [get]
func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	params := dto.AgentParams{ID: chi.URLParam(r, "id")}
	if err := dto.Validate(params); err != nil {
		s.writeError(w, r, err)
		return
	}
	info, ok := s.deps.Agents.Info(params.ID)
	if !ok {
		s.writeError(w, r, apperrors.New(apperrors.CodeNotFoundAgent, "Agent not found"))
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleChains godoc
// @Summary      List configured chains with their latest block
// @Tags         web3
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  dto.ChainInfo
// @Router       /api/chains [get]
func (s *Server) handleChains(w http.ResponseWriter, r *http.Request) {
	names := s.deps.Chains.Names()
	out := make([]dto.ChainInfo, 0, len(names))
	for _, name := range names {
		info := dto.ChainInfo{Name: name}
		_, client, err := s.deps.Chains.Resolve(name)
		if err == nil {
			ctx, cancel := context.WithTimeout(r.Context(), snapshotTimeout)
			snap, snapErr := client.FetchChainSnapshot(ctx)
			cancel()
			err = snapErr
			info.ChainID = snap.ChainID
			info.BlockNumber = snap.BlockNumber
			info.Notes = snap.Notes
		}
		if err != nil {
			s.log.Warn("读取链快照失败", slog.String("chain", name), slog.Any("error", err))
			info.Error = err.Error()
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleBalance godoc
// @Summary      Native balance of a wallet
// @Tags         web3
// @Produce      json
// @Security     BearerAuth
// @Param        walletAddress  query     string  true   "wallet address"
// @Param        chain          query     string  false  "chain name, default chain when empty"
// @Success      200            {object}  dto.Balance
// @Failure      404            {object}  dto.ErrorResponse
// @Failure      503            {object}  dto.ErrorResponse
// @Router       /api/wallet/balance [get]
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	var q dto.BalanceQuery
	if err := queryInto(r, &q); err != nil {
		s.writeError(w, r, err)
		return
	}
	name, client, err := s.deps.Chains.Resolve(q.Chain)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	wei, err := client.Balance(r.Context(), q.WalletAddress)
	if err != nil {
		s.writeError(w, r, apperrors.Wrap(apperrors.CodeOfflineChain, err, ""))
		return
	}
	writeJSON(w, http.StatusOK, dto.Balance{Address: q.WalletAddress, Chain: name, Balance: wei.String()})
}

// handleReceipt godoc
// @Summary      Wait for a transaction receipt
// @Tags         web3
// @Produce      json
// @Security     BearerAuth
// @Param        hash   query     string  true   "transaction hash"
// @Param        chain  query     string  false  "chain name"
// @Success      200    {object}  dto.Receipt
// @Failure      503    {object}  dto.ErrorResponse
// @Router       /api/wallet/receipt [get]
func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	var q dto.ReceiptQuery
	if err := queryInto(r, &q); err != nil {
		s.writeError(w, r, err)
		return
	}
	_, client, err := s.deps.Chains.Resolve(q.Chain)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), receiptTimeout)
	defer cancel()
	receipt, err := client.WaitForReceipt(ctx, q.Hash, receiptPoll)
	if err != nil {
		s.writeError(w, r, apperrors.Wrap(apperrors.CodeOfflineChain, err, ""))
		return
	}
	writeJSON(w, http.StatusOK, dto.Receipt{
		TxHash:      receipt.TxHash,
		Status:      receipt.Status,
		BlockNumber: receipt.BlockNumber,
		GasUsed:     receipt.GasUsed,
	})
}
