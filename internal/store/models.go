package store

import (
	"time"

	"github.com/fortuna/athena/internal/stats"
)

// StoredSeason summarises one stored raw table.
type StoredSeason struct {
	Key       stats.SeasonKey `json:"key"`
	Mode      stats.Mode      `json:"mode"`
	RowCount  int             `json:"row_count"`
	FetchedAt time.Time       `json:"fetched_at"`
}
