package rpc

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"

	"stablecore/crypto"
	"stablecore/native/collateral"
)

type addressParams struct {
	Address string `json:"address"`
}

type assetParams struct {
	Address string `json:"address"`
	Asset   string `json:"asset"`
}

type feedParams struct {
	Asset string `json:"asset"`
}

type amountParams struct {
	Owner  string `json:"owner"`
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

type mintParams struct {
	Owner  string `json:"owner"`
	Amount string `json:"amount"`
}

type compositeParams struct {
	Owner         string `json:"owner"`
	Asset         string `json:"asset"`
	DepositAmount string `json:"depositAmount"`
	MintAmount    string `json:"mintAmount"`
	RedeemAmount  string `json:"redeemAmount"`
	BurnAmount    string `json:"burnAmount"`
}

type liquidateParams struct {
	Liquidator  string `json:"liquidator"`
	Target      string `json:"target"`
	Asset       string `json:"asset"`
	DebtToCover string `json:"debtToCover"`
}

type positionResult struct {
	Owner        string            `json:"owner"`
	Collateral   map[string]string `json:"collateral"`
	Debt         string            `json:"debt"`
	HealthFactor string            `json:"healthFactor"`
}

type feedResult struct {
	Asset     string `json:"asset"`
	Price     string `json:"price"`
	UpdatedAt int64  `json:"updatedAt"`
	RoundID   uint64 `json:"roundId"`
}

type paramsResult struct {
	LiquidationThreshold int    `json:"liquidationThreshold"`
	LiquidationPrecision int    `json:"liquidationPrecision"`
	LiquidationBonus     int    `json:"liquidationBonus"`
	BonusPrecision       int    `json:"bonusPrecision"`
	MinHealthFactor      string `json:"minHealthFactor"`
	Precision            string `json:"precision"`
}

type ackResult struct {
	Status string `json:"status"`
}

var ackOK = ackResult{Status: "ok"}

func decodeParams(req *RPCRequest, dst interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("expected exactly one parameter object")
	}
	return json.Unmarshal(req.Params[0], dst)
}

func parseAddress(raw string) (crypto.Address, error) {
	addr, err := crypto.DecodeAddress(raw)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("invalid address %q: %w", raw, err)
	}
	return addr, nil
}

func parseAmount(raw string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	return amount, nil
}

func (s *Server) handleGetPosition(w http.ResponseWriter, req *RPCRequest) {
	var params addressParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	position, err := s.engine.Position(owner)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	factor, err := s.engine.HealthFactor(owner)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	collateralOut := make(map[string]string, len(position.Collateral))
	for symbol, amount := range position.Collateral {
		collateralOut[symbol] = amount.String()
	}
	writeResult(w, req.ID, positionResult{
		Owner:        owner.String(),
		Collateral:   collateralOut,
		Debt:         position.Debt.String(),
		HealthFactor: factor.String(),
	})
}

func (s *Server) handleGetHealthFactor(w http.ResponseWriter, req *RPCRequest) {
	var params addressParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	factor, err := s.engine.HealthFactor(owner)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"healthFactor": factor.String()})
}

func (s *Server) handleGetCollateralValue(w http.ResponseWriter, req *RPCRequest) {
	var params addressParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	value, err := s.engine.AccountCollateralValue(owner)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"usdValue": value.String()})
}

func (s *Server) handleGetDeposited(w http.ResponseWriter, req *RPCRequest) {
	var params assetParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := s.engine.Deposited(owner, params.Asset)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"amount": amount.String()})
}

func (s *Server) handleGetDebt(w http.ResponseWriter, req *RPCRequest) {
	var params addressParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	debt, err := s.engine.Debt(owner)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, map[string]string{"debt": debt.String()})
}

func (s *Server) handleListAssets(w http.ResponseWriter, req *RPCRequest) {
	writeResult(w, req.ID, map[string][]string{"assets": s.engine.Registry().Assets()})
}

func (s *Server) handleGetFeed(w http.ResponseWriter, req *RPCRequest) {
	var params feedParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	guard, err := s.engine.Registry().Guard(params.Asset)
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	reading, err := guard.Read()
	if err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, feedResult{
		Asset:     collateral.NormalizeAsset(params.Asset),
		Price:     reading.Price.String(),
		UpdatedAt: reading.UpdatedAt.Unix(),
		RoundID:   reading.RoundID,
	})
}

func (s *Server) handleGetParams(w http.ResponseWriter, req *RPCRequest) {
	writeResult(w, req.ID, paramsResult{
		LiquidationThreshold: collateral.LiquidationThreshold,
		LiquidationPrecision: collateral.LiquidationPrecision,
		LiquidationBonus:     collateral.LiquidationBonus,
		BonusPrecision:       collateral.BonusPrecision,
		MinHealthFactor:      collateral.MinHealthFactor().String(),
		Precision:            collateral.Precision().String(),
	})
}

func (s *Server) handleDeposit(w http.ResponseWriter, req *RPCRequest) {
	var params amountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.DepositCollateral(owner, params.Asset, amount); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ackOK)
}

func (s *Server) handleRedeem(w http.ResponseWriter, req *RPCRequest) {
	var params amountParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.RedeemCollateral(owner, params.Asset, amount); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ackOK)
}

func (s *Server) handleMint(w http.ResponseWriter, req *RPCRequest) {
	var params mintParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.MintStable(owner, amount); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ackOK)
}

func (s *Server) handleBurn(w http.ResponseWriter, req *RPCRequest) {
	var params mintParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	amount, err := parseAmount(params.Amount)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.BurnStable(owner, amount); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ackOK)
}

func (s *Server) handleDepositAndMint(w http.ResponseWriter, req *RPCRequest) {
	var params compositeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	depositAmount, err := parseAmount(params.DepositAmount)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	mintAmount, err := parseAmount(params.MintAmount)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.DepositAndMint(owner, params.Asset, depositAmount, mintAmount); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ackOK)
}

func (s *Server) handleBurnAndRedeem(w http.ResponseWriter, req *RPCRequest) {
	var params compositeParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	redeemAmount, err := parseAmount(params.RedeemAmount)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	burnAmount, err := parseAmount(params.BurnAmount)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.BurnAndRedeem(owner, params.Asset, redeemAmount, burnAmount); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ackOK)
}

func (s *Server) handleLiquidate(w http.ResponseWriter, req *RPCRequest) {
	var params liquidateParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	liquidator, err := parseAddress(params.Liquidator)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	target, err := parseAddress(params.Target)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	debtToCover, err := parseAmount(params.DebtToCover)
	if err != nil {
		writeError(w, http.StatusOK, req.ID, codeInvalidParams, err.Error(), nil)
		return
	}
	if err := s.engine.Liquidate(liquidator, params.Asset, target, debtToCover); err != nil {
		writeEngineError(w, req.ID, err)
		return
	}
	writeResult(w, req.ID, ackOK)
}
