package models

import "time"

// CountRow строка агрегата GROUP BY.
type CountRow struct {
	Key   string `db:"key"`
	Count int    `db:"count"`
}

// DisputeStatistics сводные счётчики для панели администратора.
type DisputeStatistics struct {
	Total             int            `json:"total"`
	ByStatus          map[string]int `json:"by_status"`
	ByType            map[string]int `json:"by_type"`
	ByResult          map[string]int `json:"by_result"`
	PendingExecutions int            `json:"pending_executions"`
	GeneratedAt       time.Time      `json:"generated_at"`
}
