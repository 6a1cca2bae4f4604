package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/elee1766/genstudio/src/apiclient"
	"github.com/elee1766/genstudio/src/model"
)

// Submit runs one generation batch: Count concurrent generate calls sharing the
// prompt, the selected reference images and the web-search flag. It returns
// once every slot has settled. If any slot failed, a *apiclient.BatchError is
// returned; successful slots keep their results either way.
func (s *Studio) Submit(ctx context.Context, req SubmitRequest) error {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if err := s.validate.Struct(req); err != nil {
		verr := submitValidationError(err)
		s.setError(verr)
		return verr
	}

	s.mu.Lock()
	s.batch++
	batch := s.batch
	batchID := uuid.NewString()
	slots := make([]Slot, req.Count)
	for i := range slots {
		slots[i] = Slot{ID: i, Status: StatusPending}
	}
	s.state.BatchID = batchID
	s.state.Slots = slots
	s.state.Elapsed = 0
	s.state.Error = ""
	s.state.Prompt = req.Prompt
	s.state.Generating = true
	workspace := s.state.Workspace
	var refs []string
	for _, img := range s.state.SelectedImages() {
		refs = append(refs, img.Path)
	}
	s.mu.Unlock()

	logger := s.logger.With("batch_id", batchID, "count", req.Count, "refs", len(refs))
	logger.Info("starting generation batch")

	events := &emitter{sink: s.sink, batchID: batchID, logger: s.logger}
	events.batchStarted(req.Count)
	for _, slot := range slots {
		events.slot(slot)
	}

	stopTicker := s.startTicker(batch, events)
	defer stopTicker()

	genReq := model.GenerateRequest{
		Prompt:          req.Prompt,
		Images:          refs,
		Workspace:       workspace,
		EnableWebSearch: req.EnableWebSearch,
	}

	errs := make([]error, req.Count)
	var wg sync.WaitGroup
	for i := 0; i < req.Count; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			errs[id] = s.runSlot(ctx, batch, id, genReq, events)
		}(i)
	}
	wg.Wait()
	stopTicker()

	batchErr := &apiclient.BatchError{Total: req.Count}
	for _, err := range errs {
		batchErr.Add(err)
	}
	succeeded := req.Count - batchErr.Failed

	current := s.finishBatch(batch, batchErr)
	events.batchSettled(req.Count, succeeded, batchErr.Failed)
	logger.Info("generation batch settled", "succeeded", succeeded, "failed", batchErr.Failed, "superseded", !current)

	if succeeded > 0 {
		s.refreshInBackground(ctx, workspace)
	}

	if batchErr.HasErrors() {
		return batchErr
	}
	return nil
}

// runSlot drives one slot from generating to success or error.
func (s *Studio) runSlot(ctx context.Context, batch uint64, id int, req model.GenerateRequest, events *emitter) error {
	start := time.Now()
	s.updateSlot(batch, id, events, func(slot Slot) Slot {
		slot.Status = StatusGenerating
		return slot
	})

	result, err := s.images.Generate(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		s.logger.Warn("slot failed", "batch_id", events.batchID, "slot", id, "error", err)
		s.updateSlot(batch, id, events, func(slot Slot) Slot {
			slot.Status = StatusError
			slot.Elapsed = elapsed
			slot.Error = apiclient.DisplayMessage(err)
			return slot
		})
		return err
	}

	s.updateSlot(batch, id, events, func(slot Slot) Slot {
		slot.Status = StatusSuccess
		slot.Elapsed = elapsed
		slot.Parts = result.Parts
		return slot
	})
	return nil
}

// updateSlot applies fn to slot id of the given batch. Updates for a batch
// that has been superseded are dropped.
func (s *Studio) updateSlot(batch uint64, id int, events *emitter, fn func(Slot) Slot) {
	s.mu.Lock()
	if batch != s.batch {
		s.mu.Unlock()
		s.logger.Debug("dropping update for superseded batch", "batch_id", events.batchID, "slot", id)
		return
	}

	slots := make([]Slot, len(s.state.Slots))
	copy(slots, s.state.Slots)
	var updated Slot
	found := false
	for i := range slots {
		if slots[i].ID == id {
			slots[i] = fn(slots[i])
			updated = slots[i]
			found = true
			break
		}
	}
	s.state.Slots = slots
	s.mu.Unlock()

	if found {
		events.slot(updated)
	}
}

// finishBatch records the settled batch and reports whether it is still current.
func (s *Studio) finishBatch(batch uint64, batchErr *apiclient.BatchError) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if batch != s.batch {
		return false
	}
	s.state.Generating = false
	if batchErr.HasErrors() {
		s.state.Error = batchErr.Error()
	}
	return true
}

// startTicker updates the elapsed seconds of the batch every tick until the
// returned stop function is called. stop is safe to call more than once.
func (s *Studio) startTicker(batch uint64, events *emitter) (stop func()) {
	ticker := time.NewTicker(s.tickInterval)
	done := make(chan struct{})
	finished := make(chan struct{})
	start := time.Now()

	go func() {
		defer close(finished)
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				elapsed := int(time.Since(start) / s.tickInterval)
				s.mu.Lock()
				current := batch == s.batch
				if current {
					s.state.Elapsed = elapsed
				}
				s.mu.Unlock()
				if !current {
					return
				}
				events.tick(elapsed)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			ticker.Stop()
			close(done)
			<-finished
		})
	}
}

// refreshInBackground reloads the image list without blocking the caller.
// Failures are logged.
func (s *Studio) refreshInBackground(ctx context.Context, workspace string) {
	ctx = context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		images, err := s.images.List(ctx, workspace)
		if err != nil {
			s.logger.Warn("background refresh failed", "workspace", workspace, "error", err)
			return
		}
		s.applyList(workspace, images)
		s.logger.Debug("background refresh finished", "workspace", workspace, "images", len(images))
	}()
}

func submitValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Field() {
		case "Prompt":
			return apiclient.NewValidationError("prompt", "please enter a prompt")
		case "Count":
			return apiclient.NewValidationError("count", fmt.Sprintf("count must be between 1 and %d", MaxCount))
		}
	}
	return apiclient.NewValidationError("request", err.Error())
}
