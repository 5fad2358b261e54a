package contract

import (
	"context"

	"github.com/huangsam/pj/schema"
	"github.com/stretchr/testify/mock"
)

// MockAnnotator is a mock implementation of Annotator for testing.
type MockAnnotator struct {
	mock.Mock
}

var _ Annotator = &MockAnnotator{} // Compile-time check

// Annotate implements the Annotator interface.
func (m *MockAnnotator) Annotate(ctx context.Context, path string, content []byte) (*schema.AIAnalysis, error) {
	args := m.Called(ctx, path, content)
	analysis, _ := args.Get(0).(*schema.AIAnalysis)
	return analysis, args.Error(1)
}

// Summarize implements the Annotator interface.
func (m *MockAnnotator) Summarize(ctx context.Context, files []schema.FileRecord) (*schema.ProjectInsights, error) {
	args := m.Called(ctx, files)
	insights, _ := args.Get(0).(*schema.ProjectInsights)
	return insights, args.Error(1)
}

// Model implements the Annotator interface.
func (m *MockAnnotator) Model() string {
	args := m.Called()
	return args.String(0)
}
