// Package services provides the credential verification, replication and policy
// gating services of a managed cluster.
package services

import (
	"context"

	"github.com/sufield/clusterauth/internal/core/ports"
)

// MetricsReporter interface for reporting metrics
type MetricsReporter interface {
	RecordVerification(role, result string, seconds float64)
	RecordPolicyDecision(result string)
	RecordContinuation(state string)
}

type noopMetrics struct{}

func (noopMetrics) RecordVerification(string, string, float64) {}
func (noopMetrics) RecordPolicyDecision(string)                 {}
func (noopMetrics) RecordContinuation(string)                   {}

type noopLogger struct{}

func (noopLogger) Debug(context.Context, string, ...ports.LogAttribute) {}
func (noopLogger) Info(context.Context, string, ...ports.LogAttribute)  {}
func (noopLogger) Warn(context.Context, string, ...ports.LogAttribute)  {}
func (noopLogger) Error(context.Context, string, ...ports.LogAttribute) {}
func (l noopLogger) WithAttrs(...ports.LogAttribute) ports.Logger       { return l }
func (l noopLogger) WithGroup(string) ports.Logger                      { return l }
