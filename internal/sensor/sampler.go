package sensor

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"
)

// SamplerConfig controls the synthetic temperature generator.
type SamplerConfig struct {
	Baseline    float64
	Jitter      float64 // values fall in [Baseline-Jitter, Baseline+Jitter)
	MinInterval time.Duration
	MaxInterval time.Duration
}

// DefaultSamplerConfig returns 20.0 ± 0.4 every 1–10s.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		Baseline:    20.0,
		Jitter:      0.4,
		MinInterval: 1 * time.Second,
		MaxInterval: 10 * time.Second,
	}
}

// Sampler periodically records synthetic readings into a Service while
// sampling is enabled.
type Sampler struct {
	svc *Service
	cfg SamplerConfig
	rng *rand.Rand

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSampler creates a sampler for svc. A nil rng seeds one from the clock.
func NewSampler(svc *Service, cfg SamplerConfig, rng *rand.Rand) *Sampler {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 1 * time.Second
	}
	if cfg.MaxInterval < cfg.MinInterval {
		cfg.MaxInterval = cfg.MinInterval
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Sampler{
		svc:    svc,
		cfg:    cfg,
		rng:    rng,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Next draws the next synthetic value.
func (s *Sampler) Next() float64 {
	return s.cfg.Baseline + (s.rng.Float64()-0.5)*2*s.cfg.Jitter
}

func (s *Sampler) nextDelay() time.Duration {
	span := s.cfg.MaxInterval - s.cfg.MinInterval
	if span <= 0 {
		return s.cfg.MinInterval
	}
	return s.cfg.MinInterval + time.Duration(s.rng.Int63n(int64(span)+1))
}

// Start launches the sampling loop.
func (s *Sampler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Printf("[%s] Sampler started", s.svc.ID())

		timer := time.NewTimer(s.nextDelay())
		defer timer.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-timer.C:
				if s.svc.Sampling() {
					value := s.Next()
					if err := s.svc.record(s.ctx, value); err != nil {
						if s.ctx.Err() != nil {
							return
						}
						log.Printf("[%s] Sampler write failed: %v", s.svc.ID(), err)
					}
				}
				timer.Reset(s.nextDelay())
			}
		}
	}()
}

// Stop stops the sampling loop and waits for it to exit.
func (s *Sampler) Stop() {
	s.cancel()
	s.wg.Wait()
}
