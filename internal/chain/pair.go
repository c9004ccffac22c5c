package chain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

var ErrReserveTooLarge = errors.New("reserve exceeds 64 bits")

// Token describes one side of a pair. Symbol and Decimals are best effort.
type Token struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
}

// PairState is a point-in-time read of a constant-product pair.
type PairState struct {
	Pair               common.Address
	Token0             Token
	Token1             Token
	Reserve0           uint64
	Reserve1           uint64
	BlockTimestampLast uint32
}

// PairReader reads constant-product pairs over eth_call.
type PairReader struct {
	caller Caller
	retry  retryPolicy
	logger *zap.Logger
}

func NewPairReader(caller Caller, maxRetries int, baseDelay time.Duration, logger *zap.Logger) *PairReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PairReader{
		caller: caller,
		retry:  retryPolicy{maxRetries: maxRetries, baseDelay: baseDelay},
		logger: logger,
	}
}

// PairReserves returns the pair's reserves at block, or at the latest block
// when block is nil.
func (r *PairReader) PairReserves(ctx context.Context, pair common.Address, block *big.Int) (uint64, uint64, uint32, error) {
	parsed, err := PairABI()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("parse pair abi: %w", err)
	}
	values, err := r.call(ctx, pair, parsed, "getReserves", block)
	if err != nil {
		return 0, 0, 0, err
	}
	return decodeReserves(values)
}

// Pair reads reserves and token metadata of pair.
func (r *PairReader) Pair(ctx context.Context, pair common.Address, block *big.Int) (PairState, error) {
	parsed, err := PairABI()
	if err != nil {
		return PairState{}, fmt.Errorf("parse pair abi: %w", err)
	}

	state := PairState{Pair: pair}
	state.Reserve0, state.Reserve1, state.BlockTimestampLast, err = r.PairReserves(ctx, pair, block)
	if err != nil {
		return PairState{}, err
	}

	for i, method := range []string{"token0", "token1"} {
		values, err := r.call(ctx, pair, parsed, method, block)
		if err != nil {
			return PairState{}, err
		}
		addr, ok := values[0].(common.Address)
		if !ok {
			return PairState{}, fmt.Errorf("%s: unsupported address type %T", method, values[0])
		}
		token := r.token(ctx, addr)
		if i == 0 {
			state.Token0 = token
		} else {
			state.Token1 = token
		}
	}
	return state, nil
}

func (r *PairReader) token(ctx context.Context, addr common.Address) Token {
	token := Token{Address: addr}

	stringABI, err := erc20StringABI()
	if err != nil {
		r.logger.Debug("parse erc20 abi failed", zap.Error(err))
		return token
	}
	if values, err := r.call(ctx, addr, stringABI, "decimals", nil); err == nil {
		if d, ok := values[0].(uint8); ok {
			token.Decimals = d
		}
	} else {
		r.logger.Debug("decimals call failed", zap.String("token", addr.Hex()), zap.Error(err))
	}

	if values, err := r.call(ctx, addr, stringABI, "symbol", nil); err == nil {
		if s, ok := values[0].(string); ok {
			token.Symbol = s
		}
		return token
	}
	bytes32ABI, err := erc20Bytes32ABI()
	if err != nil {
		return token
	}
	if values, err := r.call(ctx, addr, bytes32ABI, "symbol", nil); err == nil {
		if raw, ok := values[0].([32]byte); ok {
			token.Symbol = string(bytes.TrimRight(raw[:], "\x00"))
		}
	} else {
		r.logger.Debug("symbol call failed", zap.String("token", addr.Hex()), zap.Error(err))
	}
	return token
}

func (r *PairReader) call(ctx context.Context, to common.Address, parsed abi.ABI, method string, block *big.Int) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}

	var resp []byte
	err = r.retry.do(ctx, func(ctx context.Context) error {
		var callErr error
		resp, callErr = r.caller.CallContract(ctx, msg, block)
		return callErr
	}, func(attempt int, delay time.Duration, err error) {
		r.logger.Warn("eth_call failed, retrying",
			zap.String("to", to.Hex()),
			zap.String("method", method),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

func decodeReserves(values []interface{}) (uint64, uint64, uint32, error) {
	if len(values) != 3 {
		return 0, 0, 0, fmt.Errorf("getReserves: %d outputs", len(values))
	}
	r0, err := reserveUint64(values[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("reserve0: %w", err)
	}
	r1, err := reserveUint64(values[1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("reserve1: %w", err)
	}
	ts, ok := values[2].(uint32)
	if !ok {
		return 0, 0, 0, fmt.Errorf("blockTimestampLast: unsupported type %T", values[2])
	}
	return r0, r1, ts, nil
}

func reserveUint64(value interface{}) (uint64, error) {
	v, ok := value.(*big.Int)
	if !ok {
		return 0, fmt.Errorf("unsupported int type %T", value)
	}
	if v.Sign() < 0 || !v.IsUint64() {
		return 0, fmt.Errorf("%s: %w", v.String(), ErrReserveTooLarge)
	}
	return v.Uint64(), nil
}
