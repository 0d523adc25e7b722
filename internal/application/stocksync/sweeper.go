package stocksync

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jhoicas/wms-ledger/pkg/logger"
)

// Sweeper reintenta periódicamente las advertencias abiertas según una expresión cron.
type Sweeper struct {
	cron  *cron.Cron
	coord *Coordinator
	log   *logger.Logger
}

// NewSweeper registra el barrido. timeout acota cada ejecución.
func NewSweeper(coord *Coordinator, log *logger.Logger, schedule string, timeout time.Duration) (*Sweeper, error) {
	if log == nil {
		log = logger.Nop()
	}
	s := &Sweeper{cron: cron.New(), coord: coord, log: log.Component("sync-sweeper")}
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if _, err := coord.Sweep(ctx, 0); err != nil {
			s.log.Error().Err(err).Msg("barrido de sincronización fallido")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("programación de barrido inválida %q: %w", schedule, err)
	}
	return s, nil
}

// Start arranca el planificador en segundo plano.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop detiene el planificador y espera la ejecución en curso.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
