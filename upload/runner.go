package upload

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/GathsaraH/PDF-QA-Assistant/remote"
)

// Transport delivers a document to the remote service.
type Transport interface {
	Upload(ctx context.Context, sessionID, filename, contentType string, content io.Reader) (remote.UploadResult, error)
}

// Transfer performs the network part of a job. It is shared by the runner and the
// interactive driver, which runs it off the event loop.
func Transfer(ctx context.Context, t Transport, file File, sessionID string) (remote.UploadResult, error) {
	rc, err := file.Open()
	if err != nil {
		return remote.UploadResult{}, err
	}
	defer rc.Close()
	return t.Upload(ctx, sessionID, file.Name, file.ContentType, rc)
}

// Runner drives a Machine to completion on the calling goroutine.
type Runner struct {
	machine   *Machine
	transport Transport
}

func NewRunner(m *Machine, t Transport) *Runner {
	return &Runner{machine: m, transport: t}
}

func (r *Runner) Machine() *Machine { return r.machine }

type transferResult struct {
	res remote.UploadResult
	err error
}

// Run uploads file into sessionID and blocks until the job is Ready or has failed.
// Notifications and the ready callback fire exactly as in the interactive driver.
func (r *Runner) Run(ctx context.Context, file File, sessionID string) (Completion, error) {
	m := r.machine
	job, err := m.Select(file, sessionID)
	if err != nil {
		return Completion{}, err
	}

	done := make(chan transferResult, 1)
	go func() {
		res, err := Transfer(ctx, r.transport, file, sessionID)
		done <- transferResult{res: res, err: err}
	}()

	ramp := time.NewTicker(positive(m.policy.RampInterval))
	defer ramp.Stop()

transfer:
	for {
		select {
		case <-ramp.C:
			m.Tick(job)
		case out := <-done:
			if out.err != nil {
				if ctx.Err() != nil {
					m.discard(job)
					return Completion{}, ctx.Err()
				}
				m.Reject(job, out.err)
				return Completion{}, fmt.Errorf("upload %s: %w", file.Name, out.err)
			}
			m.Acknowledge(job, out.res)
			break transfer
		}
	}

	var completion Completion
	ready := false
	prev := m.onReady
	m.onReady = func(c Completion) {
		completion = c
		ready = true
		if prev != nil {
			prev(c)
		}
	}
	defer func() { m.onReady = prev }()

	stages := time.NewTicker(positive(m.policy.StageInterval))
	defer stages.Stop()
	for !ready {
		select {
		case <-ctx.Done():
			m.discard(job)
			return Completion{}, ctx.Err()
		case <-stages.C:
			m.Advance(job)
		}
	}
	return completion, nil
}

func positive(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Millisecond
	}
	return d
}
