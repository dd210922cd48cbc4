package server

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// AuditManager batches audit entries and writes them from a small worker pool.
type AuditManager struct {
	logger      *zap.Logger
	workerCount int
	batchSize   int
	timeout     time.Duration

	inputChan  chan AuditLogEntry
	batchChan  chan []AuditLogEntry
	shutdownCh chan struct{}
	stopOnce   sync.Once
	once       sync.Once

	// sendMu is held for reading while LogEntry hands an entry over, so the
	// aggregator can wait out in-flight senders before its final drain.
	sendMu  sync.RWMutex
	stopped bool

	wg sync.WaitGroup
}

func (m *AuditManager) Shutdown(ctx context.Context) {
	m.once.Do(func() {
		m.logger.Debug("Initiating audit manager shutdown")
		m.signalStop()

		done := make(chan struct{})
		go func() {
			m.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			m.logger.Debug("Audit manager shutdown completed")
		case <-ctx.Done():
			m.logger.Warn("Audit manager shutdown interrupted")
		}
	})
}

func (m *AuditManager) signalStop() {
	m.stopOnce.Do(func() { close(m.shutdownCh) })
}

func (m *AuditManager) monitorShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
		m.Shutdown(context.Background())
	case <-m.shutdownCh:
	}
}

func NewAuditManager(workerCount, batchSize int, timeout time.Duration, logger *zap.Logger) *AuditManager {
	return &AuditManager{
		logger:      logger.Named("audit"),
		workerCount: workerCount,
		batchSize:   batchSize,
		timeout:     timeout,
		inputChan:   make(chan AuditLogEntry, workerCount*batchSize*2),
		batchChan:   make(chan []AuditLogEntry, workerCount*2),
		shutdownCh:  make(chan struct{}),
	}
}

func (m *AuditManager) Start(ctx context.Context) {
	m.wg.Add(1)
	go m.runAggregator(ctx)

	for i := 0; i < m.workerCount; i++ {
		m.wg.Add(1)
		go m.runWorker(i)
	}

	go m.monitorShutdown(ctx)
}

// LogEntry queues entry for the workers. Once the manager is stopping the
// entry is written synchronously instead.
func (m *AuditManager) LogEntry(ctx context.Context, entry AuditLogEntry) {
	m.sendMu.RLock()
	defer m.sendMu.RUnlock()

	if m.stopped {
		m.emergencyLog(entry)
		return
	}
	select {
	case m.inputChan <- entry:
	case <-m.shutdownCh:
		m.emergencyLog(entry)
	case <-ctx.Done():
		m.emergencyLog(entry)
	}
}

func (m *AuditManager) runAggregator(ctx context.Context) {
	defer m.wg.Done()

	var (
		batch    []AuditLogEntry
		timer    *time.Timer
		timeoutC <-chan time.Time
	)

	defer func() {
		if timer != nil {
			timer.Stop()
		}
		if len(batch) > 0 {
			m.dispatchBatch(batch)
		}
		close(m.batchChan)
	}()

	for {
		select {
		case entry, ok := <-m.inputChan:
			if !ok {
				return
			}

			batch = append(batch, entry)
			if len(batch) >= m.batchSize {
				m.dispatchBatch(batch)
				batch = nil
				timeoutC = nil
			} else if len(batch) == 1 {
				timer = time.NewTimer(m.timeout)
				timeoutC = timer.C
			}

		case <-timeoutC:
			m.dispatchBatch(batch)
			batch = nil
			timeoutC = nil

		case <-ctx.Done():
			m.drainInput(&batch)
			return

		case <-m.shutdownCh:
			m.drainInput(&batch)
			return
		}
	}
}

// drainInput collects everything LogEntry accepted before the stop.
func (m *AuditManager) drainInput(batch *[]AuditLogEntry) {
	m.signalStop()
	m.sendMu.Lock()
	m.stopped = true
	m.sendMu.Unlock()

	for {
		select {
		case entry := <-m.inputChan:
			*batch = append(*batch, entry)
			if len(*batch) >= m.batchSize {
				m.dispatchBatch(*batch)
				*batch = nil
			}
		default:
			return
		}
	}
}

func (m *AuditManager) dispatchBatch(batch []AuditLogEntry) {
	batchCopy := make([]AuditLogEntry, len(batch))
	copy(batchCopy, batch)

	select {
	case m.batchChan <- batchCopy:
	default:
		m.printBatch(-1, batchCopy)
	}
}

// runWorker exits once the aggregator closes batchChan, which it does on
// every stop path.
func (m *AuditManager) runWorker(id int) {
	defer m.wg.Done()

	for batch := range m.batchChan {
		m.printBatch(id, batch)
	}
}

func (m *AuditManager) emergencyLog(entry AuditLogEntry) {
	m.logger.Warn("Audit entry written outside the pipeline", entry.fields()...)
}

func (m *AuditManager) printBatch(workerID int, batch []AuditLogEntry) {
	logger := m.logger.With(zap.Int("worker", workerID), zap.Int("batch_size", len(batch)))
	for _, entry := range batch {
		logger.Info("Audit", entry.fields()...)
	}
}
