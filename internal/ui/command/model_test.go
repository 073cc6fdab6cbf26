package command_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/task-tracker/internal/ui/command"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want command.CommandMsg
		ok   bool
	}{
		{"refresh", command.CommandMsg{Name: "refresh"}, true},
		{"  Status   in_progress ", command.CommandMsg{Name: "status", Arg: "in_progress"}, true},
		{"search quarterly report", command.CommandMsg{Name: "search", Arg: "quarterly report"}, true},
		{"   ", command.CommandMsg{}, false},
	}

	for _, tt := range tests {
		got, ok := command.Parse(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
