package onchain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testOwner   = "0x1111111111111111111111111111111111111111"
	testSpender = "0x2222222222222222222222222222222222222222"
)

// fakeCaller responde allowance/balanceOf según el selector de la llamada.
type fakeCaller struct {
	allowance *big.Int
	balance   *big.Int
	err       error
	calls     []ethereum.CallMsg
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.calls = append(f.calls, msg)
	if f.err != nil {
		return nil, f.err
	}
	method, err := erc20ABI.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	v := f.balance
	if method.Name == "allowance" {
		v = f.allowance
	}
	return method.Outputs.Pack(v)
}

func usdc(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000))
}

func newReader(t *testing.T, f *fakeCaller, limit float64) *AllowanceReader {
	t.Helper()
	r, err := NewAllowanceReaderWithCaller(f, AllowanceConfig{Owner: testOwner, Spender: testSpender, Cap: limit})
	require.NoError(t, err)
	return r
}

func TestToUSDC(t *testing.T) {
	assert.InDelta(t, 1.5, ToUSDC(big.NewInt(1_500_000)), 1e-12)
	assert.InDelta(t, 0.000001, ToUSDC(big.NewInt(1)), 1e-15)
	assert.Zero(t, ToUSDC(big.NewInt(0)))
}

func TestDailyAllowance_AllowanceBelowBalance(t *testing.T) {
	f := &fakeCaller{allowance: usdc(25), balance: usdc(100)}

	got, err := newReader(t, f, 0).DailyAllowance(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 25.0, got, 1e-9)

	require.Len(t, f.calls, 2)
	assert.Equal(t, common.HexToAddress(usdcEAddress), *f.calls[0].To)
}

func TestDailyAllowance_BoundedByBalance(t *testing.T) {
	f := &fakeCaller{allowance: usdc(500), balance: usdc(40)}

	got, err := newReader(t, f, 0).DailyAllowance(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 40.0, got, 1e-9)
}

func TestDailyAllowance_InfiniteApprovalCapped(t *testing.T) {
	maxUint := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	f := &fakeCaller{allowance: maxUint, balance: usdc(1_000_000)}

	got, err := newReader(t, f, 10).DailyAllowance(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 10.0, got, 1e-9)
}

func TestDailyAllowance_RPCError(t *testing.T) {
	f := &fakeCaller{err: errors.New("connection refused")}

	_, err := newReader(t, f, 0).DailyAllowance(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNewAllowanceReader_InvalidAddress(t *testing.T) {
	_, err := NewAllowanceReaderWithCaller(&fakeCaller{}, AllowanceConfig{Owner: "nope", Spender: testSpender})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "owner")
}
