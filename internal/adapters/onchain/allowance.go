package onchain

// allowance.go: lectura on-chain del permiso de gasto diario.
//
// El permiso es un approve() ERC-20 de USDC del owner hacia el spender del agente.
// Solo se leen allowance() y balanceOf(); este paquete nunca firma ni envía transacciones.
// El límite efectivo es min(allowance, balance, cap): un approve "infinito" no
// debe convertirse en un presupuesto infinito.

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const (
	// USDC.e collateral on Polygon
	usdcEAddress = "0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"

	usdcDecimals = 6
)

var erc20ABI abi.ABI

func init() {
	var err error
	erc20ABI, err = abi.JSON(strings.NewReader(`[
		{
			"name": "allowance",
			"type": "function",
			"inputs": [
				{"name": "owner", "type": "address"},
				{"name": "spender", "type": "address"}
			],
			"outputs": [{"name": "", "type": "uint256"}]
		},
		{
			"name": "balanceOf",
			"type": "function",
			"inputs": [{"name": "account", "type": "address"}],
			"outputs": [{"name": "", "type": "uint256"}]
		}
	]`))
	if err != nil {
		panic("erc20 abi parse: " + err.Error())
	}
}

// AllowanceConfig identifica el token y las dos cuentas del permiso.
type AllowanceConfig struct {
	RPCURL  string
	Token   string // vacío = USDC.e
	Owner   string
	Spender string
	Cap     float64 // 0 = sin tope
}

// AllowanceReader implementa ports.AllowanceSource.
type AllowanceReader struct {
	caller  ethereum.ContractCaller
	token   common.Address
	owner   common.Address
	spender common.Address
	cap     float64
}

// NewAllowanceReader conecta al RPC y valida las direcciones.
func NewAllowanceReader(cfg AllowanceConfig) (*AllowanceReader, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("onchain.NewAllowanceReader: dial rpc %s: %w", cfg.RPCURL, err)
	}
	r, err := NewAllowanceReaderWithCaller(client, cfg)
	if err != nil {
		client.Close()
		return nil, err
	}
	return r, nil
}

// NewAllowanceReaderWithCaller usa un ContractCaller ya creado (tests, clientes compartidos).
func NewAllowanceReaderWithCaller(caller ethereum.ContractCaller, cfg AllowanceConfig) (*AllowanceReader, error) {
	token := cfg.Token
	if token == "" {
		token = usdcEAddress
	}
	for name, addr := range map[string]string{"token": token, "owner": cfg.Owner, "spender": cfg.Spender} {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("onchain.NewAllowanceReader: invalid %s address %q", name, addr)
		}
	}
	return &AllowanceReader{
		caller:  caller,
		token:   common.HexToAddress(token),
		owner:   common.HexToAddress(cfg.Owner),
		spender: common.HexToAddress(cfg.Spender),
		cap:     cfg.Cap,
	}, nil
}

// DailyAllowance devuelve min(allowance, balance, cap) en USDC.
func (r *AllowanceReader) DailyAllowance(ctx context.Context) (float64, error) {
	allowance, err := r.call(ctx, "allowance", r.owner, r.spender)
	if err != nil {
		return 0, fmt.Errorf("onchain.DailyAllowance: allowance: %w", err)
	}
	balance, err := r.call(ctx, "balanceOf", r.owner)
	if err != nil {
		return 0, fmt.Errorf("onchain.DailyAllowance: balanceOf: %w", err)
	}

	limit := allowance
	if balance.Cmp(limit) < 0 {
		limit = balance
	}
	usdc := ToUSDC(limit)
	if r.cap > 0 && usdc > r.cap {
		usdc = r.cap
	}
	return usdc, nil
}

func (r *AllowanceReader) call(ctx context.Context, method string, args ...any) (*big.Int, error) {
	callData, err := erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, err
	}

	result, err := r.caller.CallContract(ctx, ethereum.CallMsg{
		To:   &r.token,
		Data: callData,
	}, nil)
	if err != nil {
		return nil, err
	}

	vals, err := erc20ABI.Unpack(method, result)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("empty %s result", method)
	}
	v, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s result type %T", method, vals[0])
	}
	return v, nil
}

// ToUSDC convierte unidades base (6 decimales) a USDC.
func ToUSDC(units *big.Int) float64 {
	f := new(big.Float).SetInt(units)
	f.Quo(f, new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(usdcDecimals), nil)))
	out, _ := f.Float64()
	return out
}
