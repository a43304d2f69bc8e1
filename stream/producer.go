package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/marketstream/types"
)

var (
	// ErrProducerStarted Run 只能调用一次
	ErrProducerStarted = errors.New("producer already started")

	// ErrNilSlicer 未设置切片函数
	ErrNilSlicer = errors.New("producer slicer is nil")
)

// Slicer computes the entry for the half-open range [start, end).
type Slicer func(start, end int) (string, error)

// SliceFunc adapts an infallible slice function.
func SliceFunc(f func(start, end int) string) Slicer {
	return func(start, end int) (string, error) {
		return f(start, end), nil
	}
}

// TickObserver is notified after each successful tick.
type TickObserver func(tick int, initialized bool)

// ProducerConfig 生产者配置
type ProducerConfig struct {
	// Ticks 总 tick 次数
	Ticks int `json:"ticks" yaml:"ticks"`
	// Interval 每次 tick 之后的等待时间
	Interval time.Duration `json:"interval" yaml:"interval"`
	// Start 第一个 tick 的起始下标
	Start int `json:"start" yaml:"start"`
}

// DefaultProducerConfig returns two ticks five seconds apart starting at item 0.
func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		Ticks:    2,
		Interval: 5 * time.Second,
		Start:    0,
	}
}

// Producer periodically publishes one formatted slice per tick into a Cell.
type Producer struct {
	cell     *Cell
	config   ProducerConfig
	slicer   Slicer
	observer TickObserver
	logger   *zap.Logger

	started atomic.Bool
	done    chan struct{}
	once    sync.Once
	err     error
}

// NewProducer creates a producer writing into cell.
func NewProducer(cell *Cell, config ProducerConfig, slicer Slicer, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Producer{
		cell:   cell,
		config: config,
		slicer: slicer,
		logger: logger.With(zap.String("component", "stream_producer")),
		done:   make(chan struct{}),
	}
}

// WithObserver installs a tick observer. Must be called before Run.
func (p *Producer) WithObserver(o TickObserver) *Producer {
	p.observer = o
	return p
}

// Run executes all ticks and returns when the last post-tick wait finishes,
// the context is cancelled, or the slicer fails.
func (p *Producer) Run(ctx context.Context) error {
	if !p.started.CompareAndSwap(false, true) {
		return ErrProducerStarted
	}
	err := p.run(ctx)
	p.finish(err)
	return err
}

func (p *Producer) run(ctx context.Context) error {
	if p.slicer == nil {
		return ErrNilSlicer
	}

	p.logger.Info("producer started",
		zap.Int("ticks", p.config.Ticks),
		zap.Duration("interval", p.config.Interval),
	)

	for i := 0; i < p.config.Ticks; i++ {
		start := p.config.Start + i
		entry, err := p.slicer(start, start+1)
		if err != nil {
			p.logger.Error("producer tick failed", zap.Int("tick", i), zap.Error(err))
			return types.NewError(types.ErrProducerFailed, fmt.Sprintf("tick %d", i)).WithCause(err)
		}

		if entry == "" {
			p.logger.Debug("empty slice skipped", zap.Int("tick", i))
		} else {
			initialized := p.cell.AppendOrInit(entry)
			if p.observer != nil {
				p.observer(i, initialized)
			}
			p.logger.Debug("entry published", zap.Int("tick", i), zap.Bool("initialized", initialized))
		}

		// 最后一个 tick 之后同样等待，给消费者留出读取窗口
		if err := sleep(ctx, p.config.Interval); err != nil {
			return err
		}
	}

	p.logger.Info("producer finished", zap.Int("ticks", p.config.Ticks))
	return nil
}

func (p *Producer) finish(err error) {
	p.once.Do(func() {
		p.err = err
		close(p.done)
	})
}

// Done is closed once Run has returned.
func (p *Producer) Done() <-chan struct{} {
	return p.done
}

// Err returns the error Run ended with. Only meaningful after Done is closed.
func (p *Producer) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Finished reports whether Run has returned.
func (p *Producer) Finished() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
