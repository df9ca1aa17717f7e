// Package timegetter contains the [domain.TimeGetter] implementations used
// to stamp snapshots.
package timegetter

import (
	"time"

	"github.com/Budskyman/BigData-Praktikum-2025/domain"
)

// TimeGetter implements [domain.TimeGetter] with the wall clock in UTC.
type TimeGetter struct{}

// NewTimeGetter returns a new implementation of domain.TimeGetter.
func NewTimeGetter() domain.TimeGetter {
	return &TimeGetter{}
}

// GetTime implements [domain.TimeGetter].
func (t *TimeGetter) GetTime() time.Time {
	return time.Now().UTC()
}

// Fixed implements [domain.TimeGetter] always returning the same instant.
type Fixed time.Time

// GetTime implements [domain.TimeGetter].
func (f Fixed) GetTime() time.Time {
	return time.Time(f)
}
