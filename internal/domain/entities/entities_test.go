package entities_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Fortis-Ledger/payoova2-sub000/internal/domain/entities"
)

func TestNetwork_IsValid(t *testing.T) {
	for _, network := range entities.SupportedNetworks() {
		assert.True(t, network.IsValid(), string(network))
	}
	assert.False(t, entities.Network("solana").IsValid())
	assert.False(t, entities.Network("").IsValid())
}

func TestNetwork_ValidAddress(t *testing.T) {
	valid := "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
	assert.True(t, entities.NetworkEthereum.ValidAddress(valid))
	assert.True(t, entities.NetworkBase.ValidAddress(valid))

	assert.False(t, entities.NetworkEthereum.ValidAddress(""))
	assert.False(t, entities.NetworkEthereum.ValidAddress("742d35Cc6634C0532925a3b844Bc454e4438f44e"))
	assert.False(t, entities.NetworkEthereum.ValidAddress("0x742d35"))
	assert.False(t, entities.NetworkEthereum.ValidAddress(valid+"ff"))
	assert.False(t, entities.NetworkEthereum.ValidAddress("0xZZZd35Cc6634C0532925a3b844Bc454e4438f44e"))
}

func TestNetwork_NativeCurrency(t *testing.T) {
	assert.Equal(t, "ETH", entities.NetworkEthereum.NativeCurrency())
	assert.Equal(t, "MATIC", entities.NetworkPolygon.NativeCurrency())
	assert.Equal(t, "BNB", entities.NetworkBSC.NativeCurrency())
	assert.Equal(t, "ETH", entities.NetworkBase.NativeCurrency())
}

func TestTransactionStatus_IsTerminal(t *testing.T) {
	assert.False(t, entities.TransactionStatusPending.IsTerminal())
	assert.True(t, entities.TransactionStatusConfirmed.IsTerminal())
	assert.True(t, entities.TransactionStatusFailed.IsTerminal())
	assert.True(t, entities.TransactionStatusCancelled.IsTerminal())
}

func TestWallet_Validate(t *testing.T) {
	wallet := entities.Wallet{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		Network: entities.NetworkEthereum,
		Address: "0x742d35Cc6634C0532925a3b844Bc454e4438f44e",
		Balance: decimal.NewFromInt(1),
	}
	assert.NoError(t, wallet.Validate())

	negative := wallet
	negative.Balance = decimal.NewFromInt(-1)
	assert.Error(t, negative.Validate())

	badNetwork := wallet
	badNetwork.Network = "solana"
	assert.Error(t, badNetwork.Validate())
}

func TestWallet_GetDisplayAddress(t *testing.T) {
	wallet := entities.Wallet{Address: "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"}
	assert.Equal(t, "0x742d...f44e", wallet.GetDisplayAddress())

	short := entities.Wallet{Address: "0xab"}
	assert.Equal(t, "0xab", short.GetDisplayAddress())
}

func TestChangeEvent_Validate(t *testing.T) {
	wallet := &entities.Wallet{ID: uuid.New()}
	tx := &entities.Transaction{ID: uuid.New()}

	tests := []struct {
		name    string
		event   entities.ChangeEvent
		wantErr bool
	}{
		{
			name:  "valid wallet event",
			event: entities.ChangeEvent{EntityType: entities.EntityTypeWallet, Kind: entities.ChangeKindInsert, Wallet: wallet},
		},
		{
			name:  "valid transaction event",
			event: entities.ChangeEvent{EntityType: entities.EntityTypeTransaction, Kind: entities.ChangeKindUpdate, Transaction: tx},
		},
		{
			name:    "missing wallet payload",
			event:   entities.ChangeEvent{EntityType: entities.EntityTypeWallet, Kind: entities.ChangeKindInsert},
			wantErr: true,
		},
		{
			name:    "missing transaction payload",
			event:   entities.ChangeEvent{EntityType: entities.EntityTypeTransaction, Kind: entities.ChangeKindDelete},
			wantErr: true,
		},
		{
			name:    "unknown entity type",
			event:   entities.ChangeEvent{EntityType: "order", Kind: entities.ChangeKindInsert},
			wantErr: true,
		},
		{
			name:    "unknown change kind",
			event:   entities.ChangeEvent{EntityType: entities.EntityTypeWallet, Kind: "upsert", Wallet: wallet},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGasQuote_Tier(t *testing.T) {
	quote := entities.GasQuote{
		Slow:     decimal.NewFromInt(20),
		Standard: decimal.NewFromInt(30),
		Fast:     decimal.NewFromInt(50),
	}
	assert.True(t, quote.Tier(entities.GasTierSlow).Equal(decimal.NewFromInt(20)))
	assert.True(t, quote.Tier(entities.GasTierStandard).Equal(decimal.NewFromInt(30)))
	assert.True(t, quote.Tier(entities.GasTierFast).Equal(decimal.NewFromInt(50)))
	assert.True(t, quote.Tier("").Equal(decimal.NewFromInt(30)))
}
