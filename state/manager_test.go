package state

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"alsmadex/crypto"
	"alsmadex/native/dex"
	"alsmadex/storage"
)

func testAddr(t *testing.T, seed byte) crypto.Address {
	t.Helper()
	return crypto.MustNewAddress(crypto.AlxPrefix, bytes.Repeat([]byte{seed}, 20))
}

func TestTokenRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	token := &dex.Token{
		Address:      testAddr(t, 0x10),
		FeedAddress:  testAddr(t, 0x50),
		Symbol:       "BTC",
		Decimals:     8,
		FeedDecimals: 8,
	}
	require.NoError(t, manager.PutToken(token))

	loaded, err := manager.GetToken(token.Address)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, token.Symbol, loaded.Symbol)
	require.Equal(t, token.Decimals, loaded.Decimals)
	require.Equal(t, token.FeedDecimals, loaded.FeedDecimals)
	require.True(t, token.Address.Equal(loaded.Address))
	require.True(t, token.FeedAddress.Equal(loaded.FeedAddress))

	missing, err := manager.GetToken(testAddr(t, 0x7f))
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestTokenListPreservesOrder(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	symbols := []string{"BTC", "USDT", "ETH"}
	for i, symbol := range symbols {
		require.NoError(t, manager.PutToken(&dex.Token{
			Address:     testAddr(t, byte(0x10+i)),
			FeedAddress: testAddr(t, byte(0x50+i)),
			Symbol:      symbol,
			Decimals:    8,
		}))
	}

	tokens, err := manager.TokenList()
	require.NoError(t, err)
	require.Len(t, tokens, len(symbols))
	for i, symbol := range symbols {
		require.Equal(t, symbol, tokens[i].Symbol)
	}

	// Re-storing a token must not duplicate its index entry.
	require.NoError(t, manager.PutToken(&dex.Token{
		Address:     testAddr(t, 0x10),
		FeedAddress: testAddr(t, 0x50),
		Symbol:      "BTC",
		Decimals:    8,
	}))
	tokens, err = manager.TokenList()
	require.NoError(t, err)
	require.Len(t, tokens, len(symbols))
}

func TestPoolRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	token := testAddr(t, 0x10)

	missing, err := manager.GetPool(token)
	require.NoError(t, err)
	require.Nil(t, missing)

	pool := &dex.Pool{
		TotalStaked:       big.NewInt(1_000),
		AccRewardPerShare: big.NewInt(123_456_789),
		TreasuryBalance:   big.NewInt(77),
		ContractReserve:   big.NewInt(1_077),
	}
	require.NoError(t, manager.PutPool(token, pool))

	loaded, err := manager.GetPool(token)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Zero(t, pool.TotalStaked.Cmp(loaded.TotalStaked))
	require.Zero(t, pool.AccRewardPerShare.Cmp(loaded.AccRewardPerShare))
	require.Zero(t, pool.TreasuryBalance.Cmp(loaded.TreasuryBalance))
	require.Zero(t, pool.ContractReserve.Cmp(loaded.ContractReserve))
}

func TestPositionRoundTrip(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	token := testAddr(t, 0x10)
	account := testAddr(t, 0x20)

	missing, err := manager.GetPosition(token, account)
	require.NoError(t, err)
	require.Nil(t, missing)

	position := &dex.Position{
		Account:    account,
		Staked:     big.NewInt(500),
		RewardDebt: big.NewInt(42),
		Earned:     big.NewInt(7),
	}
	require.NoError(t, manager.PutPosition(token, position))

	loaded, err := manager.GetPosition(token, account)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.True(t, account.Equal(loaded.Account))
	require.Zero(t, position.Staked.Cmp(loaded.Staked))
	require.Zero(t, position.RewardDebt.Cmp(loaded.RewardDebt))
	require.Zero(t, position.Earned.Cmp(loaded.Earned))

	// Positions are scoped per token.
	other, err := manager.GetPosition(testAddr(t, 0x11), account)
	require.NoError(t, err)
	require.Nil(t, other)
}

func TestPutPoolNormalisesNilAmounts(t *testing.T) {
	manager := NewManager(storage.NewMemDB())
	token := testAddr(t, 0x10)
	require.NoError(t, manager.PutPool(token, &dex.Pool{}))

	loaded, err := manager.GetPool(token)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Zero(t, loaded.TotalStaked.Sign())
	require.Zero(t, loaded.AccRewardPerShare.Sign())
}
