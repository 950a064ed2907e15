package nau7802

import (
	"context"
)

// ADCBehaviorFunc defines the function signature for ADC read behavior.
// It returns a raw signed 24-bit conversion code or an error.
type ADCBehaviorFunc func(ctx context.Context) (int32, error)

// MockADC is a mock conversion source driven by a behavior function, so
// application code consuming raw codes can be tested without hardware.
//
// Example usage:
//
//	adc := NewMockADC(func(ctx context.Context) (int32, error) { return 120_000, nil })
type MockADC struct {
	behavior ADCBehaviorFunc
}

// NewMockADC creates a new mock ADC with the given behavior function. The
// behavior function is called whenever Read is invoked.
func NewMockADC(behavior ADCBehaviorFunc) *MockADC {
	return &MockADC{behavior: behavior}
}

// Read returns the next conversion code by calling the behavior function.
func (m *MockADC) Read(ctx context.Context) (int32, error) {
	return m.behavior(ctx)
}
