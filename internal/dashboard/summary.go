// Package dashboard aggregates a visible task set into the counters and
// recent-task list shown on the home screen.
package dashboard

import (
	"sort"

	"github.com/nhle/task-tracker/internal/model"
)

// RecentLimit is the number of most recently created tasks in a Summary.
const RecentLimit = 3

// StatusCounts holds the number of tasks in each status.
type StatusCounts struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
}

// PriorityCounts holds the number of tasks at each priority.
type PriorityCounts struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// Summary is the dashboard read model.
type Summary struct {
	Total      int            `json:"total"`
	ByStatus   StatusCounts   `json:"by_status"`
	ByPriority PriorityCounts `json:"by_priority"`
	Recent     []model.Task   `json:"recent"`
}

// Summarize computes counts and the most recent tasks. The input slice is
// not modified.
func Summarize(tasks []model.Task) Summary {
	s := Summary{Total: len(tasks)}

	for _, t := range tasks {
		switch t.Status {
		case model.StatusPending:
			s.ByStatus.Pending++
		case model.StatusInProgress:
			s.ByStatus.InProgress++
		case model.StatusCompleted:
			s.ByStatus.Completed++
		}

		switch t.Priority {
		case model.PriorityLow:
			s.ByPriority.Low++
		case model.PriorityMedium:
			s.ByPriority.Medium++
		case model.PriorityHigh:
			s.ByPriority.High++
		}
	}

	recent := make([]model.Task, len(tasks))
	copy(recent, tasks)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}
	s.Recent = recent

	return s
}

// Count returns the counter for a single status.
func (c StatusCounts) Count(st model.TaskStatus) int {
	switch st {
	case model.StatusPending:
		return c.Pending
	case model.StatusInProgress:
		return c.InProgress
	case model.StatusCompleted:
		return c.Completed
	}
	return 0
}

// Count returns the counter for a single priority.
func (c PriorityCounts) Count(p model.Priority) int {
	switch p {
	case model.PriorityLow:
		return c.Low
	case model.PriorityMedium:
		return c.Medium
	case model.PriorityHigh:
		return c.High
	}
	return 0
}
