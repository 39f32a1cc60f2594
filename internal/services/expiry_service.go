// internal/services/expiry_service.go
package services

import (
	"time"

	"github.com/sirupsen/logrus"
)

// ExpiryService periodically sweeps overdue proposed/agreed trades into
// expired through the transition engine. Deadlines themselves are only
// data; this sweep is the sole interpreter of them.
type ExpiryService struct {
	tradeService *TradeService
	interval     time.Duration
	stop         chan struct{}
}

func NewExpiryService(tradeService *TradeService, interval time.Duration) *ExpiryService {
	return &ExpiryService{
		tradeService: tradeService,
		interval:     interval,
		stop:         make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called. A non-positive interval
// disables the sweep.
func (s *ExpiryService) Start() {
	if s.interval <= 0 {
		logrus.Info("Trade expiry sweep disabled")
		return
	}

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		logrus.WithField("interval", s.interval).Info("Trade expiry sweep started")
		for {
			select {
			case <-ticker.C:
				if _, err := s.tradeService.ExpireDueTrades(time.Now()); err != nil {
					logrus.WithError(err).Error("Trade expiry sweep failed")
				}
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *ExpiryService) Stop() {
	close(s.stop)
}
