package manager

import (
	"context"
	"time"

	"llmgate/internal/llm"
)

// admit reserves a generation slot according to the admission policy.
// Returns a release func to be called exactly once when the generation ends.
func (m *Manager) admit(ctx context.Context) (func(), error) {
	// Fast path: respect an already-canceled context
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	switch m.admission {
	case AdmissionReject, AdmissionConcurrent:
		select {
		case m.genCh <- struct{}{}:
			return func() { <-m.genCh }, nil
		default:
			return func() {}, m.reject("generation slots in use")
		}
	}

	// Try to reserve a queue slot with timeout
	timer := time.NewTimer(m.maxWait)
	defer timer.Stop()
	select {
	case m.queueCh <- struct{}{}:
		// reserved queue slot
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		return func() {}, m.reject("queue full")
	}

	// Wait to acquire the single in-flight slot
	acquired := false
	defer func() {
		if !acquired {
			<-m.queueCh
		}
	}()
	// Check for cancellation again before blocking on gen slot
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	select {
	case m.genCh <- struct{}{}:
		acquired = true
		return func() { <-m.genCh; <-m.queueCh }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		return func() {}, m.reject("timed out waiting for generation slot")
	}
}

func (m *Manager) reject(reason string) error {
	m.rejectedTotal.Add(1)
	m.publisher.Publish(Event{Name: "admission_rejected", ModelID: m.model.ID, Fields: map[string]any{"reason": reason}})
	return llm.ErrBusy(reason)
}
