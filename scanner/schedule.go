package scanner

import (
	"context"
	"fmt"

	"equipment_monitor/logger"

	"github.com/robfig/cron/v3"
)

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule validates a five-field cron expression or an @every/@hourly descriptor
func ParseSchedule(spec string) (cron.Schedule, error) {
	schedule, err := scheduleParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid scan schedule %q: %w", spec, err)
	}
	return schedule, nil
}

// Watch imports the directory once, then again on every tick of the schedule until
// ctx is cancelled. Scans never overlap.
func (ss *StreamScanner) Watch(ctx context.Context, directoryPath, spec string) error {
	schedule, err := ParseSchedule(spec)
	if err != nil {
		return err
	}

	if _, err := ss.ScanDirectory(directoryPath); err != nil {
		return err
	}

	c := cron.New(cron.WithParser(scheduleParser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	c.Schedule(schedule, cron.FuncJob(func() {
		if _, err := ss.ScanDirectory(directoryPath); err != nil {
			logger.Errorf("Scheduled scan failed: %v\n", err)
		}
	}))

	logger.Printf("Watching %s on schedule %q\n", directoryPath, spec)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	logger.Println("Scan watcher stopped")
	return nil
}
