package tui

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// MockAnswerer implements driving.Answerer for testing.
type MockAnswerer struct {
	AskFunc func(
		ctx context.Context, question string, opts domain.RetrieveOptions,
	) (*domain.Answer, error)
}

func (m *MockAnswerer) Ask(
	ctx context.Context, question string, opts domain.RetrieveOptions,
) (*domain.Answer, error) {
	if m.AskFunc != nil {
		return m.AskFunc(ctx, question, opts)
	}
	return &domain.Answer{}, nil
}

// MockUsageSource implements ask.UsageSource for testing.
type MockUsageSource struct {
	TotalsFunc func() domain.UsageTotals
}

func (m *MockUsageSource) Totals() domain.UsageTotals {
	if m.TotalsFunc != nil {
		return m.TotalsFunc()
	}
	return domain.UsageTotals{}
}

func TestNewPorts(t *testing.T) {
	answerer := &MockAnswerer{}

	ports := NewPorts(answerer)

	require.NotNil(t, ports)
	assert.Equal(t, answerer, ports.Answerer)
	assert.Nil(t, ports.Usage)
}

func TestPorts_Validate_AllSet(t *testing.T) {
	ports := &Ports{
		Answerer: &MockAnswerer{},
		Usage:    &MockUsageSource{},
		Defaults: domain.RetrieveOptions{K: 5},
	}

	err := ports.Validate()

	assert.NoError(t, err)
}

func TestPorts_Validate_AnswererOnly(t *testing.T) {
	ports := &Ports{
		Answerer: &MockAnswerer{},
	}

	err := ports.Validate()

	assert.NoError(t, err)
}

func TestPorts_Validate_MissingAnswerer(t *testing.T) {
	ports := &Ports{
		Answerer: nil,
		Usage:    &MockUsageSource{},
	}

	err := ports.Validate()

	assert.ErrorIs(t, err, ErrMissingAnswerer)
}
