package auth

import (
	"context"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"beatwise/entity"
	"beatwise/impl/account"
	"beatwise/impl/ledger"
	"beatwise/internal/database"
	"beatwise/lib/clock"
	"beatwise/lib/logger"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const privateKeyHex = "4c0883a69102937d6231471b5dbb6204fe51296170827922b7a56c91b8b56d09"

func testKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	keyBytes, err := hex.DecodeString(privateKeyHex)
	require.NoError(t, err)
	key, _ := btcec.PrivKeyFromBytes(keyBytes)
	return key
}

// sign produces a 65 byte R|S|V personal_sign signature with V in 27/28.
func sign(t *testing.T, key *btcec.PrivateKey, message string) string {
	t.Helper()
	compact := ecdsa.SignCompact(key, personalHash(message), false)
	require.Len(t, compact, 65)
	sig := append(append([]byte{}, compact[1:65]...), compact[0])
	return "0x" + hex.EncodeToString(sig)
}

func TestVerifySignature(t *testing.T) {
	key := testKey(t)
	address := addressOf(key.PubKey())
	message := "Sign this message\nNonce: 1"
	signature := sign(t, key, message)

	assert.True(t, VerifySignature(address, message, signature))
	assert.True(t, VerifySignature("0x"+strings.ToUpper(address[2:]), message, signature))
	assert.False(t, VerifySignature(address, message+" ", signature))
	assert.False(t, VerifySignature("0x0000000000000000000000000000000000000001", message, signature))
	assert.False(t, VerifySignature(address, message, "0x1234"))
	assert.False(t, VerifySignature(address, message, "not hex"))
}

func TestVerifySignatureRecoveryIDs(t *testing.T) {
	key := testKey(t)
	address := addressOf(key.PubKey())
	message := "recovery"
	sig, err := decodeHex(sign(t, key, message))
	require.NoError(t, err)

	// 0/1 form is accepted as well as 27/28
	low := append([]byte{}, sig...)
	low[64] -= 27
	assert.True(t, VerifySignature(address, message, hex.EncodeToString(low)))

	bad := append([]byte{}, sig...)
	bad[64] = 35
	assert.False(t, VerifySignature(address, message, hex.EncodeToString(bad)))
}

func newAuth(t *testing.T) (*Auth, *database.Memory) {
	t.Helper()
	store := database.NewMemory()
	l := ledger.New(store, ledger.Config{}, logger.Discard())
	c := &clock.Fixed{T: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	return New(account.New(store, l, c, logger.Discard()), c, logger.Discard()), store
}

func TestAuthenticate(t *testing.T) {
	a, store := newAuth(t)
	key := testKey(t)
	address := addressOf(key.PubKey())
	ctx := context.Background()

	msg, err := a.AuthMessage(address)
	require.NoError(t, err)
	assert.Contains(t, msg.Message, "Wallet: "+address)
	assert.Contains(t, msg.Message, "Nonce: "+msg.Nonce)
	assert.Equal(t, time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC).UnixMilli(), msg.Timestamp)

	session, err := a.Authenticate(ctx, address, msg.Message, sign(t, key, msg.Message))
	require.NoError(t, err)
	assert.True(t, session.IsNewUser)
	assert.Equal(t, address, session.Account.WalletAddress)

	session, err = a.Authenticate(ctx, address, msg.Message, sign(t, key, msg.Message))
	require.NoError(t, err)
	assert.False(t, session.IsNewUser)

	n, err := store.CountAccounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAuthenticateRejects(t *testing.T) {
	a, store := newAuth(t)
	key := testKey(t)
	ctx := context.Background()

	other := "0x00000000000000000000000000000000000000cc"
	_, err := a.Authenticate(ctx, other, "hello", sign(t, key, "hello"))
	assert.ErrorIs(t, err, entity.ErrInvalidSignature)

	_, err = a.Authenticate(ctx, "0xnope", "hello", sign(t, key, "hello"))
	assert.ErrorIs(t, err, entity.ErrInvalidAddress)

	_, err = a.AuthMessage("wallet")
	assert.ErrorIs(t, err, entity.ErrInvalidAddress)

	n, err := store.CountAccounts(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
