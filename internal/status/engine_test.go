package status

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/task-tracker/internal/model"
)

func items(flags ...bool) []model.ChecklistItem {
	out := make([]model.ChecklistItem, len(flags))
	for i, f := range flags {
		out[i] = model.ChecklistItem{Completed: f}
	}
	return out
}

func TestDerive(t *testing.T) {
	tests := []struct {
		name    string
		current model.TaskStatus
		items   []model.ChecklistItem
		want    model.TaskStatus
	}{
		{"no items keeps pending", model.StatusPending, nil, model.StatusPending},
		{"no items keeps advanced status", model.StatusCompleted, nil, model.StatusCompleted},
		{"none done", model.StatusCompleted, items(false, false), model.StatusPending},
		{"one of many done", model.StatusPending, items(true, false, false), model.StatusInProgress},
		{"all done", model.StatusPending, items(true, true), model.StatusCompleted},
		{"single item done", model.StatusInProgress, items(true), model.StatusCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Derive(tt.current, tt.items))
		})
	}
}

func TestDerive_OrderIrrelevant(t *testing.T) {
	a := Derive(model.StatusPending, items(true, false, true))
	b := Derive(model.StatusPending, items(false, true, true))
	assert.Equal(t, a, b)
}

func TestDerive_ToggleWalk(t *testing.T) {
	list := items(false, false, false, false)
	st := model.StatusPending

	for i := range list {
		list[i].Completed = true
		st = Derive(st, list)
	}
	assert.Equal(t, model.StatusCompleted, st)

	list[2].Completed = false
	st = Derive(st, list)
	assert.Equal(t, model.StatusInProgress, st)

	for i := range list {
		list[i].Completed = false
	}
	st = Derive(st, list)
	assert.Equal(t, model.StatusPending, st)
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 0, Progress(0, 0))
	assert.Equal(t, 50, Progress(2, 4))
	assert.Equal(t, 100, Progress(3, 3))
	assert.Equal(t, 33, Progress(1, 3))
	assert.Equal(t, 66, Progress(2, 3))
}

func TestCount(t *testing.T) {
	done, total := Count(items(true, false, true))
	assert.Equal(t, 2, done)
	assert.Equal(t, 3, total)
}
