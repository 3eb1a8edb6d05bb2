package eod

import (
	"time"

	"scanner-approval/internal/interfaces"
)

var defaultSummarizer interfaces.EodSummarizer = &eodSummarizer{now: istNow}

// SetDefaultSummarizer replaces the package-level summarizer, e.g. with an observable wrapper.
func SetDefaultSummarizer(summarizer interfaces.EodSummarizer) {
	defaultSummarizer = summarizer
}

func NewSummarizer() interfaces.EodSummarizer {
	return &eodSummarizer{now: istNow}
}

func SummarizeDay(t time.Time) (string, error) {
	return defaultSummarizer.SummarizeDay(t)
}

func SummarizeToday() (string, error) {
	return defaultSummarizer.SummarizeToday()
}

func ShouldRunNow() (bool, string) {
	return defaultSummarizer.ShouldRunNow()
}
