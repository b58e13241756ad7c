// Package cron wraps cron expression parsing for periodic round
// scheduling.
package cron

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"
)

var ErrInvalidExpression = errors.New("invalid cron expression")

// Schedule is a parsed five-field cron expression.
type Schedule struct {
	spec cron.Schedule
}

func Parse(expr string) (*Schedule, error) {
	if expr == "" {
		return nil, ErrInvalidExpression
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	spec, err := parser.Parse(expr)
	if err != nil {
		return nil, ErrInvalidExpression
	}

	return &Schedule{spec: spec}, nil
}

// Next returns the first activation strictly after from, in UTC.
func (s *Schedule) Next(from time.Time) time.Time {
	return s.spec.Next(from.UTC())
}
