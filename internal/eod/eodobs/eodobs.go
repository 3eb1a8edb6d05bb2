package eodobs

import (
	"context"
	"time"

	"scanner-approval/internal/interfaces"
	"scanner-approval/internal/logger"
	"scanner-approval/internal/trace"
)

type observableEodSummarizer struct {
	summarizer interfaces.EodSummarizer
}

var _ interfaces.EodSummarizer = (*observableEodSummarizer)(nil)

func Wrap(summarizer interfaces.EodSummarizer) interfaces.EodSummarizer {
	return &observableEodSummarizer{
		summarizer: summarizer,
	}
}

func (oes *observableEodSummarizer) SummarizeDay(t time.Time) (string, error) {
	ctx, span := trace.StartSpan(context.Background(), "eod.SummarizeDay")
	defer span.End()

	date := t.Format("2006-01-02")
	logger.InfoSkip(ctx, 1, "Starting day summary", "date", date)

	csvPath, err := oes.summarizer.SummarizeDay(t)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Day summary failed", err, "date", date)
		return "", err
	}

	if csvPath == "" {
		logger.InfoSkip(ctx, 1, "No placements logged for day summary", "date", date)
		return "", nil
	}

	logger.InfoSkip(ctx, 1, "Day summary written", "date", date, "csv_path", csvPath)
	return csvPath, nil
}

func (oes *observableEodSummarizer) SummarizeToday() (string, error) {
	ctx, span := trace.StartSpan(context.Background(), "eod.SummarizeToday")
	defer span.End()

	csvPath, err := oes.summarizer.SummarizeToday()
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Today's summary failed", err)
		return "", err
	}

	logger.InfoSkip(ctx, 1, "Today's summary finished", "csv_path", csvPath)
	return csvPath, nil
}

func (oes *observableEodSummarizer) ShouldRunNow() (bool, string) {
	ctx, span := trace.StartSpan(context.Background(), "eod.ShouldRunNow")
	defer span.End()

	shouldRun, csvPath := oes.summarizer.ShouldRunNow()

	logger.DebugSkip(ctx, 1, "Day summary check completed",
		"should_run", shouldRun,
		"csv_path", csvPath,
	)

	return shouldRun, csvPath
}
