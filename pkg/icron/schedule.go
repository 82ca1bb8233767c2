package icron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/MimeLyc/srt-translate-bot/pkg/log"
)

type TriggerInfo struct {
	Next       time.Time
	Expression string

	TimeUntilNext time.Duration
}

// GetTriggerInfo reports when a standard five field cron expression fires
// next after refTime.
func GetTriggerInfo(cronExpr string, refTime time.Time) (*TriggerInfo, error) {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}

	next := schedule.Next(refTime)
	return &TriggerInfo{
		Expression:    cronExpr,
		Next:          next,
		TimeUntilNext: next.Sub(refTime),
	}, nil
}

// New returns a cron engine whose jobs recover from panics and skip a run
// while the previous one is still going.
func New() *cron.Cron {
	logger := cron.PrintfLogger(printfLogger{})
	return cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
}

type printfLogger struct{}

func (printfLogger) Printf(format string, args ...any) {
	log.Debug("cron: "+format, args...)
}
