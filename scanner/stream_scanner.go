package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"equipment_monitor/config"
	"equipment_monitor/logger"
	"equipment_monitor/models"
	"equipment_monitor/stream"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StreamScanner imports recorded measurement streams into the database
type StreamScanner struct {
	db          *gorm.DB
	workerCount int
	batchSize   int
	extensions  []string
}

// FileJob represents a stream file to be processed
type FileJob struct {
	FilePath string
	FileName string
}

// ProcessResult contains the result of importing one stream file
type ProcessResult struct {
	FilePath    string
	ImportID    string
	RecordCount int
	Inserted    int64
	Skipped     int
	ErrorCount  int
	Duration    time.Duration
	Error       error
}

// NewStreamScanner creates a scanner from the scan section of the configuration
func NewStreamScanner(db *gorm.DB, cfg config.ScanConfig) *StreamScanner {
	workerCount := cfg.Workers
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
		if workerCount > 8 {
			workerCount = 8 // Limit to 8 workers to avoid overwhelming the database
		}
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}
	extensions := make([]string, 0, len(cfg.Extensions))
	for _, ext := range cfg.Extensions {
		extensions = append(extensions, strings.ToLower(ext))
	}

	return &StreamScanner{
		db:          db,
		workerCount: workerCount,
		batchSize:   batchSize,
		extensions:  extensions,
	}
}

// SetWorkerCount sets the number of parallel workers
func (ss *StreamScanner) SetWorkerCount(count int) {
	if count > 0 {
		ss.workerCount = count
	}
}

// ScanDirectory imports every stream file of a directory in parallel
func (ss *StreamScanner) ScanDirectory(directoryPath string) ([]ProcessResult, error) {
	logger.Printf("Scanning directory: %s\n", directoryPath)

	if _, err := os.Stat(directoryPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("directory does not exist: %s", directoryPath)
	}

	files, err := ss.findStreamFiles(directoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to find stream files: %w", err)
	}

	if len(files) == 0 {
		logger.Println("No stream files found in the directory")
		return nil, nil
	}

	logger.Printf("Found %d stream file(s) to process\n", len(files))
	logger.Printf("Processing with %d parallel workers\n", ss.workerCount)

	results := ss.processFilesParallel(files)
	ss.displaySummary(results)

	return results, nil
}

// findStreamFiles lists the files with a configured extension (non-recursive)
func (ss *StreamScanner) findStreamFiles(directoryPath string) ([]FileJob, error) {
	var files []FileJob

	entries, err := os.ReadDir(directoryPath)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() || !ss.accepts(entry.Name()) {
			continue
		}
		files = append(files, FileJob{
			FilePath: filepath.Join(directoryPath, entry.Name()),
			FileName: entry.Name(),
		})
	}

	return files, nil
}

func (ss *StreamScanner) accepts(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, want := range ss.extensions {
		if ext == want {
			return true
		}
	}
	return false
}

// processFilesParallel processes stream files in parallel using worker goroutines
func (ss *StreamScanner) processFilesParallel(files []FileJob) []ProcessResult {
	jobs := make(chan FileJob, len(files))
	results := make(chan ProcessResult, len(files))

	var wg sync.WaitGroup
	for i := 0; i < ss.workerCount; i++ {
		wg.Add(1)
		go ss.worker(jobs, results, &wg)
	}

	for _, file := range files {
		jobs <- file
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var allResults []ProcessResult
	for result := range results {
		allResults = append(allResults, result)
	}

	return allResults
}

func (ss *StreamScanner) worker(jobs <-chan FileJob, results chan<- ProcessResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for job := range jobs {
		results <- ss.processStreamFile(job)
	}
}

// processStreamFile imports a single stream file and records the pass in the imports table
func (ss *StreamScanner) processStreamFile(job FileJob) ProcessResult {
	startTime := time.Now()
	result := ProcessResult{
		FilePath: job.FilePath,
		ImportID: uuid.NewString(),
	}

	logger.Printf("Processing file: %s\n", job.FileName)

	file, err := os.Open(job.FilePath)
	if err != nil {
		result.Error = fmt.Errorf("failed to open file: %w", err)
		result.Duration = time.Since(startTime)
		return result
	}
	defer file.Close()

	batch := make([]models.Measurement, 0, ss.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		inserted, err := InsertMeasurements(ss.db, batch, ss.batchSize)
		result.Inserted += inserted
		batch = batch[:0]
		return err
	}

	stats, err := stream.Scan(file, func(rec stream.Record) error {
		batch = append(batch, models.Measurement{
			Source:      job.FileName,
			Run:         rec.Run,
			SequenceID:  rec.Sequence,
			SensorID:    rec.SensorID,
			TimestampMs: rec.TimestampMs,
			Value:       rec.Value,
			ImportID:    result.ImportID,
		})
		if len(batch) >= ss.batchSize {
			return flush()
		}
		return nil
	}, func(line int, err error) {
		logger.Warnf("Line %d in %s: %v\n", line, job.FileName, err)
	})
	if err == nil {
		err = flush()
	}

	result.RecordCount = stats.Records
	result.Skipped = stats.Skipped
	result.ErrorCount = stats.Malformed
	if err != nil {
		result.Error = fmt.Errorf("failed to import %s: %w", job.FileName, err)
		result.Duration = time.Since(startTime)
		return result
	}

	record := models.Import{
		ID:         result.ImportID,
		Source:     job.FileName,
		Records:    result.RecordCount,
		Inserted:   result.Inserted,
		Skipped:    result.Skipped,
		Errors:     result.ErrorCount,
		StartedAt:  startTime,
		FinishedAt: time.Now(),
	}
	if err := ss.db.Create(&record).Error; err != nil {
		result.Error = fmt.Errorf("failed to record import: %w", err)
	}

	result.Duration = time.Since(startTime)
	logger.Printf("✓ Completed %s: %d records, %d new, %d malformed in %v\n",
		job.FileName, result.RecordCount, result.Inserted, result.ErrorCount, result.Duration)

	return result
}

// InsertMeasurements inserts rows in batches. Rows already imported from the same
// source are ignored, so re-scanning a file is harmless. It returns the number of new rows.
func InsertMeasurements(db *gorm.DB, rows []models.Measurement, batchSize int) (int64, error) {
	res := db.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, batchSize)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to insert measurements: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// displaySummary displays a summary of the processing results
func (ss *StreamScanner) displaySummary(results []ProcessResult) {
	logger.Println("\n" + strings.Repeat("=", 60))
	logger.Println("IMPORT SUMMARY")
	logger.Println(strings.Repeat("=", 60))

	var (
		totalRecords, totalErrors, failedFiles int
		totalInserted                          int64
		totalDuration                          time.Duration
	)

	for _, result := range results {
		name := filepath.Base(result.FilePath)
		if result.Error != nil {
			failedFiles++
			logger.LogResult(name, false, result.Error.Error())
		} else {
			totalRecords += result.RecordCount
			totalInserted += result.Inserted
			totalErrors += result.ErrorCount
			logger.LogResult(name, true, fmt.Sprintf("%d records, %d new, %d malformed (%v)",
				result.RecordCount, result.Inserted, result.ErrorCount, result.Duration))
		}
		totalDuration += result.Duration
	}

	logger.Println(strings.Repeat("-", 60))
	logger.Printf("Total files processed: %d\n", len(results))
	logger.Printf("Successful: %d\n", len(results)-failedFiles)
	logger.Printf("Failed: %d\n", failedFiles)
	logger.Printf("Total records read: %d\n", totalRecords)
	logger.Printf("Total records inserted: %d\n", totalInserted)
	logger.Printf("Total malformed lines: %d\n", totalErrors)
	logger.Printf("Total processing time: %v\n", totalDuration)
	logger.Println(strings.Repeat("=", 60))
}
