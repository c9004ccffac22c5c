package sink

import (
	"go.uber.org/zap"

	"ammCore/internal/amm"
)

// LogSink writes each event as a structured debug entry.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger, pool string) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger.With(zap.String("pool", pool))}
}

func (s *LogSink) Emit(ev amm.Event) {
	switch e := ev.(type) {
	case amm.SwapEvent:
		s.logger.Debug("swap",
			zap.String("direction", string(e.Direction)),
			zap.Uint64("amount_in", e.AmountIn),
			zap.Uint64("amount_out", e.AmountOut),
		)
	case amm.LiquidityEvent:
		s.logger.Debug("liquidity",
			zap.String("action", string(e.Action)),
			zap.Uint64("amount", e.Amount),
		)
	default:
		s.logger.Warn("unknown event", zap.String("kind", ev.Kind()))
	}
}
