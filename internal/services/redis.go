package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"spinroyale/internal/config"
	"spinroyale/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RedisStore persists one player's wallet, claim records and transaction
// history. The wallet is a hash of integer counters; balance and spin
// mutations run as Lua scripts so a check and its write can never interleave
// with another writer.
type RedisStore struct {
	*Broadcaster

	client  *redis.Client
	profile string
	log     *zap.Logger
}

var (
	_ Ledger     = (*RedisStore)(nil)
	_ ClaimStore = (*RedisStore)(nil)
)

type StoreOption func(*RedisStore)

func WithStoreLogger(log *zap.Logger) StoreOption {
	return func(s *RedisStore) { s.log = log }
}

func NewRedisStore(ctx context.Context, cfg *config.Config, profile string, opts ...StoreOption) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisStoreFromClient(client, profile, opts...), nil
}

func NewRedisStoreFromClient(client *redis.Client, profile string, opts ...StoreOption) *RedisStore {
	s := &RedisStore{
		Broadcaster: NewBroadcaster(),
		client:      client,
		profile:     profile,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) walletKey() string { return fmt.Sprintf(KeyWallet, s.profile) }
func (s *RedisStore) claimsKey() string { return fmt.Sprintf(KeyClaims, s.profile) }

func (s *RedisStore) GetWallet(ctx context.Context) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := s.client.HGetAll(ctx, s.walletKey()).Scan(&wallet); err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (s *RedisStore) SaveWallet(ctx context.Context, wallet *models.Wallet) error {
	err := s.client.HSet(ctx, s.walletKey(),
		"balance", wallet.Balance,
		"spins_remaining", wallet.SpinsRemaining,
		"total_wagered", wallet.TotalWagered,
		"total_won", wallet.TotalWon,
	).Err()
	if err != nil {
		return fmt.Errorf("failed to save wallet: %w", err)
	}
	return nil
}

func (s *RedisStore) Balance(ctx context.Context) (int64, error) {
	wallet, err := s.GetWallet(ctx)
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

func (s *RedisStore) RemainingSpins(ctx context.Context) (int64, error) {
	wallet, err := s.GetWallet(ctx)
	if err != nil {
		return 0, err
	}
	return wallet.SpinsRemaining, nil
}

// The scripts hand ARGV straight to HINCRBY so stored counters stay exact
// int64. Lua numbers are doubles, so the balance comparisons and the values
// returned to Go are exact up to 2^53 coins.

var creditScript = redis.NewScript(`
	local after = redis.call("HINCRBY", KEYS[1], "balance", ARGV[1])
	if ARGV[2] == "1" then
		redis.call("HINCRBY", KEYS[1], "total_won", ARGV[1])
	end
	return after
`)

var debitScript = redis.NewScript(`
	local balance = tonumber(redis.call("HGET", KEYS[1], "balance") or "0")
	if balance < tonumber(ARGV[1]) then
		return redis.error_reply("insufficient balance")
	end

	local after = redis.call("HINCRBY", KEYS[1], "balance", ARGV[2])
	redis.call("HINCRBY", KEYS[1], "total_wagered", ARGV[1])
	return after
`)

var spinsScript = redis.NewScript(`
	local spins = tonumber(redis.call("HGET", KEYS[1], "spins_remaining") or "0")
	if spins + tonumber(ARGV[1]) < 0 then
		return redis.error_reply("no spins left")
	end
	return redis.call("HINCRBY", KEYS[1], "spins_remaining", ARGV[1])
`)

func (s *RedisStore) Credit(ctx context.Context, amount int64, memo Memo) error {
	if amount < 0 {
		return fmt.Errorf("%w: credit %d", models.ErrInvalidAmount, amount)
	}

	won := "0"
	if memo.Type == models.TransactionTypeWin {
		won = "1"
	}

	after, err := creditScript.Run(ctx, s.client, []string{s.walletKey()},
		strconv.FormatInt(amount, 10), won).Int64()
	if err != nil {
		return fmt.Errorf("failed to credit wallet: %w", err)
	}

	s.recordTransaction(ctx, memo, amount, after-amount, after)
	s.BroadcastBalance(after)
	return nil
}

func (s *RedisStore) Debit(ctx context.Context, amount int64, memo Memo) error {
	if amount < 0 {
		return fmt.Errorf("%w: debit %d", models.ErrInvalidAmount, amount)
	}

	after, err := debitScript.Run(ctx, s.client, []string{s.walletKey()},
		strconv.FormatInt(amount, 10), strconv.FormatInt(-amount, 10)).Int64()
	if err != nil {
		if isScriptError(err, "insufficient balance") {
			return fmt.Errorf("%w: need %d", models.ErrInsufficientFunds, amount)
		}
		return fmt.Errorf("failed to debit wallet: %w", err)
	}

	s.recordTransaction(ctx, memo, -amount, after+amount, after)
	s.BroadcastBalance(after)
	return nil
}

func (s *RedisStore) DecrementSpin(ctx context.Context) error {
	spins, err := spinsScript.Run(ctx, s.client, []string{s.walletKey()}, "-1").Int64()
	if err != nil {
		if isScriptError(err, "no spins left") {
			return models.ErrNoSpinsLeft
		}
		return fmt.Errorf("failed to decrement spins: %w", err)
	}

	s.BroadcastSpins(spins)
	return nil
}

func (s *RedisStore) IncrementSpins(ctx context.Context, n int64) error {
	if n < 0 {
		return fmt.Errorf("%w: increment spins by %d", models.ErrInvalidAmount, n)
	}

	spins, err := spinsScript.Run(ctx, s.client, []string{s.walletKey()}, strconv.FormatInt(n, 10)).Int64()
	if err != nil {
		return fmt.Errorf("failed to increment spins: %w", err)
	}

	s.BroadcastSpins(spins)
	return nil
}

func isScriptError(err error, msg string) bool {
	var rerr redis.Error
	return errors.As(err, &rerr) && strings.Contains(rerr.Error(), msg)
}

// recordTransaction is best effort: the balance change is already committed.
// A failed history write is logged and not returned.
func (s *RedisStore) recordTransaction(ctx context.Context, memo Memo, amount, before, after int64) {
	if memo.Type == "" {
		return
	}

	tx := &models.Transaction{
		ID:            models.NewTransactionID(),
		Type:          memo.Type,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		RoundID:       memo.RoundID,
		Description:   memo.Description,
		CreatedAt:     time.Now(),
	}
	if err := s.SaveTransaction(ctx, tx); err != nil {
		s.log.Warn("failed to record transaction",
			zap.String("profile", s.profile),
			zap.String("type", string(memo.Type)),
			zap.String("round_id", memo.RoundID),
			zap.Int64("amount", amount),
			zap.Error(err))
	}
}

func (s *RedisStore) SaveTransaction(ctx context.Context, tx *models.Transaction) error {
	txKey := fmt.Sprintf(KeyTransaction, tx.ID)

	data, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction: %w", err)
	}

	userTxKey := fmt.Sprintf(KeyTransactions, s.profile)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, txKey, data, TTLTransaction)
	pipe.ZAdd(ctx, userTxKey, redis.Z{
		Score:  float64(tx.CreatedAt.UnixNano()),
		Member: tx.ID,
	})
	pipe.ZRemRangeByRank(ctx, userTxKey, 0, -(MaxStoredTransactions + 1))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

// GetTransactions returns up to limit transactions, newest first.
func (s *RedisStore) GetTransactions(ctx context.Context, limit int64) ([]*models.Transaction, error) {
	if limit <= 0 || limit > MaxStoredTransactions {
		limit = 50
	}

	userTxKey := fmt.Sprintf(KeyTransactions, s.profile)

	txIDs, err := s.client.ZRevRange(ctx, userTxKey, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction IDs: %w", err)
	}
	if len(txIDs) == 0 {
		return nil, nil
	}

	keys := make([]string, len(txIDs))
	for i, id := range txIDs {
		keys[i] = fmt.Sprintf(KeyTransaction, id)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}

	var transactions []*models.Transaction
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}

		var tx models.Transaction
		if err := json.Unmarshal([]byte(raw), &tx); err != nil {
			continue
		}
		transactions = append(transactions, &tx)
	}

	return transactions, nil
}

func (s *RedisStore) GetLastClaimDate(ctx context.Context, category models.ClaimCategory) (time.Time, bool, error) {
	raw, err := s.client.HGet(ctx, s.claimsKey(), string(category)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get claim date: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("corrupt claim date %q: %w", raw, err)
	}
	return t, true, nil
}

func (s *RedisStore) SetLastClaimDate(ctx context.Context, category models.ClaimCategory, date time.Time) error {
	if err := s.client.HSet(ctx, s.claimsKey(), string(category), date.Format(time.RFC3339Nano)).Err(); err != nil {
		return fmt.Errorf("failed to set claim date: %w", err)
	}
	return nil
}

func (s *RedisStore) ClearLastClaimDate(ctx context.Context, category models.ClaimCategory) error {
	if err := s.client.HDel(ctx, s.claimsKey(), string(category)).Err(); err != nil {
		return fmt.Errorf("failed to clear claim date: %w", err)
	}
	return nil
}

// DeleteProfile removes every key owned by this profile.
func (s *RedisStore) DeleteProfile(ctx context.Context) error {
	userTxKey := fmt.Sprintf(KeyTransactions, s.profile)

	txIDs, err := s.client.ZRange(ctx, userTxKey, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to list transactions: %w", err)
	}

	keys := []string{s.walletKey(), s.claimsKey(), userTxKey}
	for _, id := range txIDs {
		keys = append(keys, fmt.Sprintf(KeyTransaction, id))
	}
	return s.client.Del(ctx, keys...).Err()
}
