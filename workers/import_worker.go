package workers

import (
	"fmt"
	"log"
	"sync"

	"github.com/classpix/classpixbackend/media"
	"github.com/classpix/classpixbackend/services"
)

// ImportJob is one photograph to run through the import pipeline
type ImportJob struct {
	SessionID uint
	Path      string
}

// PhotoImporter runs one photograph through the import pipeline
type PhotoImporter interface {
	ImportPhoto(sessionID uint, path string) (services.ImportOutcome, error)
}

// ImportStats aggregates what a processor has done since startup
type ImportStats struct {
	Processed     int
	Skipped       int
	Failed        int
	FacesDetected int
	FacesMatched  int
}

// ImportProcessor fans photograph imports out over a fixed pool of workers.
// Each photograph commits independently, so stopping the processor mid-batch
// keeps every photograph already processed.
type ImportProcessor struct {
	JobQueue chan ImportJob
	Imports  PhotoImporter
	Wg       sync.WaitGroup
	StopChan chan struct{}
	Pending  map[string]bool
	Mutex    sync.Mutex

	stats      ImportStats
	statsMutex sync.Mutex
}

func NewImportProcessor(imports PhotoImporter, queueSize, numWorkers int) *ImportProcessor {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	proc := &ImportProcessor{
		JobQueue: make(chan ImportJob, queueSize),
		Imports:  imports,
		StopChan: make(chan struct{}),
		Pending:  make(map[string]bool),
	}
	proc.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go proc.worker(i)
	}
	log.Printf("Started %d import worker(s) with queue size %d", numWorkers, queueSize)
	return proc
}

// worker processes jobs from the queue until stopped
func (ip *ImportProcessor) worker(id int) {
	defer ip.Wg.Done()

	log.Printf("Import worker %d started", id)
	for {
		select {
		case job, ok := <-ip.JobQueue:
			if !ok {
				log.Printf("Import worker %d stopping: Job queue closed", id)
				return
			}

			pendingKey := pendingKey(job)
			log.Printf("Worker %d: importing %s into session %d", id, job.Path, job.SessionID)

			outcome, err := ip.Imports.ImportPhoto(job.SessionID, job.Path)
			ip.record(outcome, err)
			if err != nil {
				log.Printf("Worker %d: ERROR importing %s: %v", id, job.Path, err)
			}

			ip.Mutex.Lock()
			delete(ip.Pending, pendingKey)
			ip.Mutex.Unlock()

		case <-ip.StopChan:
			log.Printf("Import worker %d stopping: Stop signal received", id)
			return
		}
	}
}

func (ip *ImportProcessor) record(outcome services.ImportOutcome, err error) {
	ip.statsMutex.Lock()
	defer ip.statsMutex.Unlock()

	switch {
	case err != nil:
		ip.stats.Failed++
	case !outcome.Imported:
		ip.stats.Skipped++
	default:
		ip.stats.Processed++
		ip.stats.FacesDetected += outcome.FacesDetected
		ip.stats.FacesMatched += outcome.FacesMatched
	}
}

// Stats returns a snapshot of the processor's counters
func (ip *ImportProcessor) Stats() ImportStats {
	ip.statsMutex.Lock()
	defer ip.statsMutex.Unlock()
	return ip.stats
}

func pendingKey(job ImportJob) string {
	return fmt.Sprintf("%d:%s", job.SessionID, job.Path)
}

// QueueJob queues a photograph import if not already pending. A full queue
// rejects the job rather than blocking the caller.
func (ip *ImportProcessor) QueueJob(job ImportJob) bool {
	key := pendingKey(job)

	ip.Mutex.Lock()
	if ip.Pending[key] {
		ip.Mutex.Unlock()
		return false
	}
	ip.Pending[key] = true
	ip.Mutex.Unlock()

	select {
	case ip.JobQueue <- job:
		return true
	default:
		log.Printf("WARNING: Import job queue full. Failed to queue %s for session %d", job.Path, job.SessionID)
		ip.Mutex.Lock()
		delete(ip.Pending, key)
		ip.Mutex.Unlock()
		return false
	}
}

// QueueDirectory enqueues every raster image directly under dir, in natural
// filename order. Returns how many jobs were accepted.
func (ip *ImportProcessor) QueueDirectory(sessionID uint, dir string) (int, error) {
	paths, err := media.ListImages(dir)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, path := range paths {
		if ip.QueueJob(ImportJob{SessionID: sessionID, Path: path}) {
			queued++
		}
	}
	log.Printf("Queued %d of %d photographs from %s for session %d", queued, len(paths), dir, sessionID)
	return queued, nil
}

func (ip *ImportProcessor) Stop() {
	log.Println("Stopping import workers...")
	close(ip.StopChan)
	ip.Wg.Wait()
	log.Println("All import workers stopped")
}
