package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/bitfsorg/revsplit-go/revshare"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeAddr(seed byte) revshare.Address {
	var a revshare.Address
	for i := range a {
		a[i] = seed
	}
	return a
}

var (
	alice = makeAddr(0xA1)
	bob   = makeAddr(0xB0)
	token = Token(makeAddr(0x70))
)

// ledgers runs fn against every implementation.
func ledgers(t *testing.T, fn func(t *testing.T, l Ledger)) {
	t.Run("mem", func(t *testing.T) {
		fn(t, NewMemLedger())
	})
	t.Run("bolt", func(t *testing.T) {
		l, err := OpenBoltLedger(filepath.Join(t.TempDir(), "ledger.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = l.Close() })
		fn(t, l)
	})
}

func fund(t *testing.T, l Ledger, asset Asset, to revshare.Address, amount uint64) {
	t.Helper()
	tx, err := l.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Credit(asset, to, uint256.NewInt(amount)))
	require.NoError(t, tx.Commit())
}

func balanceOf(t *testing.T, l Ledger, asset Asset, who revshare.Address) uint64 {
	t.Helper()
	bal, err := l.Balance(context.Background(), asset, who)
	require.NoError(t, err)
	return bal.Uint64()
}

func TestTransferCommit(t *testing.T) {
	ledgers(t, func(t *testing.T, l Ledger) {
		ctx := context.Background()
		fund(t, l, Native, alice, 100)
		fund(t, l, token, alice, 7)

		tx, err := l.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Transfer(ctx, Native, alice, bob, uint256.NewInt(30)))

		inTx, err := tx.Balance(Native, bob)
		require.NoError(t, err)
		assert.Equal(t, uint64(30), inTx.Uint64())
		require.NoError(t, tx.Commit())

		assert.Equal(t, uint64(70), balanceOf(t, l, Native, alice))
		assert.Equal(t, uint64(30), balanceOf(t, l, Native, bob))
		// Assets are independent columns.
		assert.Equal(t, uint64(7), balanceOf(t, l, token, alice))
		assert.Equal(t, uint64(0), balanceOf(t, l, token, bob))
	})
}

func TestRollbackDiscardsEverything(t *testing.T) {
	ledgers(t, func(t *testing.T, l Ledger) {
		ctx := context.Background()
		fund(t, l, Native, alice, 100)

		tx, err := l.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Transfer(ctx, Native, alice, bob, uint256.NewInt(60)))
		require.NoError(t, tx.Emit(Log{Name: "Moved", Data: []byte{1}}))
		require.NoError(t, tx.Rollback())

		assert.Equal(t, uint64(100), balanceOf(t, l, Native, alice))
		assert.Equal(t, uint64(0), balanceOf(t, l, Native, bob))
		logs, err := l.Logs(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, logs)

		// Closed transactions refuse further work; a second rollback is harmless.
		assert.ErrorIs(t, tx.Commit(), ErrTxClosed)
		assert.ErrorIs(t, tx.Transfer(ctx, Native, alice, bob, uint256.NewInt(1)), ErrTxClosed)
		assert.NoError(t, tx.Rollback())
	})
}

func TestInsufficientBalance(t *testing.T) {
	ledgers(t, func(t *testing.T, l Ledger) {
		ctx := context.Background()
		fund(t, l, Native, alice, 10)

		tx, err := l.Begin(ctx)
		require.NoError(t, err)
		err = tx.Transfer(ctx, Native, alice, bob, uint256.NewInt(11))
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.ErrorIs(t, tx.Commit(), ErrTxFailed)

		assert.Equal(t, uint64(10), balanceOf(t, l, Native, alice))
	})
}

func TestZeroTransferReachesHook(t *testing.T) {
	ledgers(t, func(t *testing.T, l Ledger) {
		ctx := context.Background()
		var calls int
		l.SetReceiver(bob, ReceiverFunc(func(_ context.Context, asset Asset, from revshare.Address, amount *uint256.Int) error {
			calls++
			assert.Equal(t, Native, asset)
			assert.Equal(t, alice, from)
			assert.True(t, amount.IsZero())
			return nil
		}))

		tx, err := l.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Transfer(ctx, Native, alice, bob, uint256.NewInt(0)))
		require.NoError(t, tx.Commit())
		assert.Equal(t, 1, calls)
	})
}

func TestReceiverRejects(t *testing.T) {
	ledgers(t, func(t *testing.T, l Ledger) {
		ctx := context.Background()
		fund(t, l, Native, alice, 50)
		refusal := errors.New("no thanks")
		l.SetReceiver(bob, ReceiverFunc(func(context.Context, Asset, revshare.Address, *uint256.Int) error {
			return refusal
		}))

		tx, err := l.Begin(ctx)
		require.NoError(t, err)
		err = tx.Transfer(ctx, Native, alice, bob, uint256.NewInt(5))
		require.ErrorIs(t, err, ErrTransferRejected)
		assert.ErrorIs(t, err, refusal)
		require.NoError(t, tx.Rollback())

		assert.Equal(t, uint64(50), balanceOf(t, l, Native, alice))
		assert.Equal(t, uint64(0), balanceOf(t, l, Native, bob))

		// Removing the hook accepts value again.
		l.SetReceiver(bob, nil)
		tx, err = l.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Transfer(ctx, Native, alice, bob, uint256.NewInt(5)))
		require.NoError(t, tx.Commit())
		assert.Equal(t, uint64(5), balanceOf(t, l, Native, bob))
	})
}

func TestCreditOverflow(t *testing.T) {
	ledgers(t, func(t *testing.T, l Ledger) {
		ctx := context.Background()
		tx, err := l.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Credit(token, alice, new(uint256.Int).SetAllOne()))
		assert.ErrorIs(t, tx.Credit(token, alice, uint256.NewInt(1)), ErrBalanceOverflow)
		require.NoError(t, tx.Rollback())
	})
}

func TestLogsSequence(t *testing.T) {
	ledgers(t, func(t *testing.T, l Ledger) {
		ctx := context.Background()
		var topic [32]byte
		topic[0] = 0xEE

		for i := 0; i < 3; i++ {
			tx, err := l.Begin(ctx)
			require.NoError(t, err)
			require.NoError(t, tx.Emit(Log{Topic: topic, Name: "Tick", Data: []byte{byte(i)}}))
			if i == 1 {
				require.NoError(t, tx.Rollback())
				continue
			}
			require.NoError(t, tx.Commit())
		}

		logs, err := l.Logs(ctx, 0)
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Less(t, logs[0].Seq, logs[1].Seq)
		assert.Equal(t, topic, logs[0].Topic)
		assert.Equal(t, []byte{0}, logs[0].Data)
		assert.Equal(t, []byte{2}, logs[1].Data)

		tail, err := l.Logs(ctx, logs[1].Seq)
		require.NoError(t, err)
		require.Len(t, tail, 1)
		assert.Equal(t, "Tick", tail[0].Name)
	})
}

func TestInvalidAsset(t *testing.T) {
	ledgers(t, func(t *testing.T, l Ledger) {
		_, err := l.Balance(context.Background(), Token(revshare.Address{}), alice)
		assert.ErrorIs(t, err, ErrInvalidAsset)
	})
}

func TestBoltLedger_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := OpenBoltLedger(path)
	require.NoError(t, err)
	fund(t, l, token, alice, 42)
	tx, err := l.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, tx.Emit(Log{Name: "Kept"}))
	require.NoError(t, tx.Commit())
	require.NoError(t, l.Close())

	l, err = OpenBoltLedger(path)
	require.NoError(t, err)
	defer l.Close()
	assert.Equal(t, uint64(42), balanceOf(t, l, token, alice))
	logs, err := l.Logs(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "Kept", logs[0].Name)
}

func TestParseAsset(t *testing.T) {
	a, err := ParseAsset("native")
	require.NoError(t, err)
	assert.True(t, a.IsNative())

	a, err = ParseAsset(token.String())
	require.NoError(t, err)
	assert.Equal(t, token, a)

	_, err = ParseAsset("0x0000000000000000000000000000000000000000")
	assert.ErrorIs(t, err, ErrInvalidAsset)
	_, err = ParseAsset("bogus")
	assert.ErrorIs(t, err, ErrInvalidAsset)
}
