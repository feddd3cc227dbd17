package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreflow/coreflow/internal/model"
)

func TestValidateExpression(t *testing.T) {
	assert.NoError(t, ValidateExpression("0 2 * * *"))
	assert.NoError(t, ValidateExpression("0 0 2 * * *"))
	assert.Error(t, ValidateExpression("not a cron expr"))
}

func TestAddWorkflowRequiresSchedule(t *testing.T) {
	r := New(nil, func(context.Context, *model.WorkflowConfig) {})
	err := r.AddWorkflow(&model.WorkflowConfig{Name: "no-schedule"})
	require.Error(t, err)
}

func TestAddWorkflowRejectsInvalidExpression(t *testing.T) {
	r := New(nil, func(context.Context, *model.WorkflowConfig) {})
	err := r.AddWorkflow(&model.WorkflowConfig{Name: "bad", Schedule: "garbage"})
	require.Error(t, err)
}

func TestAddWorkflowAcceptsValidExpression(t *testing.T) {
	r := New(nil, func(context.Context, *model.WorkflowConfig) {})
	err := r.AddWorkflow(&model.WorkflowConfig{Name: "ok", Schedule: "0 2 * * *"})
	require.NoError(t, err)
}
