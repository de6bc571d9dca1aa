package campaign

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"voice-campaigns-go/internal/history"
	"voice-campaigns-go/internal/types"
)

// placeParams freezes the run configuration for the lifetime of one pipeline;
// setters are undefined behavior mid-run and must not leak into workers.
type placeParams struct {
	assistantID   string
	assistantName string
	trunk         string
	apiKey        string
	outputName    string
}

// StartCampaign validates configuration, seeds one pending result per
// contact and drives the pipeline: place calls, collect transcripts, collect
// analytics, persist history. It blocks until the pipeline completes or is
// cancelled. Worker-level failures never surface here; the only error
// returns are up-front validation and double starts.
func (r *Runner) StartCampaign(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	if r.selectedAssistantID == "" || r.selectedTrunk == "" || r.apiKey == "" || r.userID == "" || len(r.contacts) == 0 {
		r.mu.Unlock()
		r.notify.Error("Missing configuration (Assistant, Trunk, API Key, or User)")
		return ErrMissingConfig
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.running = true
	r.cancel = cancel

	params := placeParams{
		assistantID:   r.selectedAssistantID,
		assistantName: r.assistantName,
		trunk:         r.selectedTrunk,
		apiKey:        r.apiKey,
		outputName:    r.outputFileName,
	}
	contacts := make([]types.Contact, len(r.contacts))
	copy(contacts, r.contacts)
	campaignStart := time.Now()

	seeded := make([]types.CallResult, len(contacts))
	for i, c := range contacts {
		seeded[i] = types.CallResult{
			PhoneNumber: c.PhoneNumber,
			CalleeInfo:  c.CalleeInfo,
			CallStatus:  types.CallPending,
		}
	}
	r.results = seeded
	r.status = types.StatusRunning
	r.progress = 0
	r.currentCallIndex = 0
	r.fetchProgress = ""
	r.persistLocked()
	r.mu.Unlock()

	defer func() {
		cancel()
		r.mu.Lock()
		r.running = false
		r.cancel = nil
		r.mu.Unlock()
	}()

	r.log.WithField("contacts", len(contacts)).WithField("trunk", params.trunk).Info("campaign started")

	callStarts := make([]time.Time, len(contacts))
	r.runPlacement(runCtx, contacts, params, callStarts)
	if runCtx.Err() != nil {
		r.finishCancelled()
		return nil
	}

	if len(r.eligibleFor(types.CallCompleted, false)) > 0 {
		r.runTranscripts(runCtx, callStarts)
		if runCtx.Err() != nil {
			r.finishCancelled()
			return nil
		}

		r.runAnalytics(runCtx, campaignStart)
		if runCtx.Err() != nil {
			r.finishCancelled()
			return nil
		}
	}

	r.saveHistory(params)
	r.finishCompleted()
	return nil
}

// runPlacement is Phase A: a bounded pool claims contact indices from a
// shared cursor and places one call each, sleeping a full call slot between
// claims so live calls per worker stay bounded without a completion signal
// from the backend.
func (r *Runner) runPlacement(ctx context.Context, contacts []types.Contact, params placeParams, callStarts []time.Time) {
	total := len(contacts)
	var cursor int

	claim := func() int {
		r.mu.Lock()
		defer r.mu.Unlock()
		if cursor >= total {
			return -1
		}
		idx := cursor
		cursor++
		r.currentCallIndex = idx
		callStarts[idx] = time.Now()
		r.lastCallStart = callStarts[idx]
		r.persistLocked()
		return idx
	}
	hasMore := func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return cursor < total
	}

	var placed int64
	worker := func() {
		for {
			if ctx.Err() != nil {
				return
			}
			idx := claim()
			if idx < 0 {
				return
			}
			r.updateResult(idx, func(res *types.CallResult) {
				res.CallStatus = types.CallCalling
			})

			result := r.placeOne(ctx, contacts[idx], params)
			if ctx.Err() != nil {
				// Abandoned mid-call; stop already reset the slot.
				return
			}
			r.updateResult(idx, func(res *types.CallResult) {
				*res = result
			})

			done := atomic.AddInt64(&placed, 1)
			r.setProgress(int(math.Round(float64(done) / float64(total) * 100)))

			if !hasMore() {
				return
			}
			if !sleepCtx(ctx, r.cfg.Timings.CallSlotDelay.Std()) {
				return
			}
		}
	}
	runPool(min(total, r.cfg.MaxConcurrentCalls), worker)
}

func (r *Runner) placeOne(ctx context.Context, contact types.Contact, params placeParams) types.CallResult {
	result := types.CallResult{
		PhoneNumber: contact.PhoneNumber,
		CalleeInfo:  contact.CalleeInfo,
	}
	phone := FormatNumber(contact.PhoneNumber, r.cfg.DefaultCountryCode)
	callID, err := r.placer.PlaceCall(ctx, types.PlaceCallRequest{
		PhoneNumber: phone,
		AssistantID: params.assistantID,
		TrunkName:   params.trunk,
		APIKey:      params.apiKey,
		CalleeInfo:  contact.CalleeInfo,
	})
	if err != nil {
		r.log.WithError(err).WithField("phone", phone).Warn("call placement failed")
		result.CallStatus = types.CallFailed
		// The error text doubles as a pseudo-transcript in the results view.
		result.Transcript = err.Error()
		return result
	}
	result.CallID = callID
	result.CallStatus = types.CallCompleted
	return result
}

// runTranscripts is Phase B: wait out the tail of the last placed call, then
// poll the transcript listing for every completed call. A call with no
// transcript inside the budget is treated as never truly connected and
// downgraded to no_answer.
func (r *Runner) runTranscripts(ctx context.Context, callStarts []time.Time) {
	r.mu.Lock()
	last := r.lastCallStart
	r.status = types.StatusFetchingResults
	r.fetchProgress = "Waiting for transcripts processing..."
	r.persistLocked()
	r.mu.Unlock()
	r.notify.Info("Calls done. Fetching transcripts...")

	// Even the last-started call needs a chance to finish before the
	// listing is worth asking.
	if wait := r.cfg.Timings.PostDialWait.Std() - time.Since(last); wait > 0 {
		if !sleepCtx(ctx, wait) {
			return
		}
	}

	queue := r.eligibleFor(types.CallCompleted, false)
	total := len(queue)
	var cursor, fetched int64
	worker := func() {
		for {
			if ctx.Err() != nil {
				return
			}
			n := int(atomic.AddInt64(&cursor, 1)) - 1
			if n >= total {
				return
			}
			idx := queue[n]
			state := r.State()
			phone := FormatNumber(state.Results[idx].PhoneNumber, r.cfg.DefaultCountryCode)

			transcript := r.pollTranscript(ctx, phone, callStarts[idx])
			if ctx.Err() != nil {
				// An empty poll result after cancellation says nothing
				// about the call; leave the slot alone.
				return
			}
			r.updateResult(idx, func(res *types.CallResult) {
				if transcript == "" {
					if res.CallStatus == types.CallCompleted {
						res.CallStatus = types.CallNoAnswer
					}
					res.Transcript = ""
					return
				}
				res.Transcript = transcript
			})
			done := atomic.AddInt64(&fetched, 1)
			r.setFetchProgress(fmt.Sprintf("Fetching transcripts: %d/%d", done, total))
		}
	}
	runPool(min(total, r.cfg.MaxConcurrentCalls), worker)
}

// pollTranscript polls the listing in two phases: a fast burst to catch
// short calls, then a brief extended tail. Listing or content errors count
// as a miss for that attempt.
func (r *Runner) pollTranscript(ctx context.Context, phone string, callStart time.Time) string {
	t := r.cfg.Timings
	cutoff := callStart.Add(-t.TranscriptMatchBuffer.Std())

	check := func() string {
		entries, err := r.transcripts.ListTranscripts(ctx, r.userID)
		if err != nil {
			r.log.WithError(err).Debug("transcript listing failed")
			return ""
		}
		for _, entry := range entries {
			if entry.PhoneNumber != phone || !entry.CreatedAt.After(cutoff) {
				continue
			}
			content, err := r.transcripts.FetchContent(ctx, entry.TranscriptURL)
			if err != nil {
				r.log.WithError(err).WithField("url", entry.TranscriptURL).Debug("transcript content fetch failed")
				continue
			}
			if strings.TrimSpace(content) != "" {
				return content
			}
		}
		return ""
	}

	for attempt := 0; attempt < t.TranscriptFastAttempts; attempt++ {
		if ctx.Err() != nil {
			return ""
		}
		if tr := check(); tr != "" {
			return tr
		}
		if !sleepCtx(ctx, t.TranscriptFastInterval.Std()) {
			return ""
		}
	}
	for attempt := 0; attempt < t.TranscriptExtendedAttempts; attempt++ {
		if ctx.Err() != nil {
			return ""
		}
		if tr := check(); tr != "" {
			return tr
		}
		if !sleepCtx(ctx, t.TranscriptExtendedInterval.Std()) {
			return ""
		}
	}
	return ""
}

// runAnalytics is Phase C: for every connected call with a transcript,
// re-resolve the backend's real call id from the listing, then attach
// analytics. Every queued item ends with analyticsLoaded set so the pipeline
// terminates deterministically whether or not anything was found.
func (r *Runner) runAnalytics(ctx context.Context, campaignStart time.Time) {
	queue := r.eligibleFor(types.CallCompleted, true)
	total := len(queue)

	r.mu.Lock()
	r.status = types.StatusFetchingAnalytics
	r.fetchProgress = fmt.Sprintf("Fetching analytics: 0/%d", total)
	r.persistLocked()
	r.mu.Unlock()

	if total == 0 {
		return
	}

	cutoff := campaignStart.Add(-r.cfg.Timings.AnalyticsMatchBuffer.Std())
	var cursor, processed int64
	worker := func() {
		for {
			if ctx.Err() != nil {
				return
			}
			n := int(atomic.AddInt64(&cursor, 1)) - 1
			if n >= total {
				return
			}
			idx := queue[n]
			state := r.State()
			phoneKey := normalizeDigits(state.Results[idx].PhoneNumber, 10)

			callID := r.lookupCallID(ctx, phoneKey, cutoff)
			var analytics *types.Analytics
			if callID != "" {
				analytics = r.lookupAnalytics(ctx, callID)
			}
			if ctx.Err() != nil {
				return
			}
			r.updateResult(idx, func(res *types.CallResult) {
				if callID != "" {
					res.CallID = callID
				}
				if analytics != nil {
					res.Analytics = analytics
				}
				res.AnalyticsLoaded = true
			})
			done := atomic.AddInt64(&processed, 1)
			r.setFetchProgress(fmt.Sprintf("Fetching analytics: %d/%d", done, total))
		}
	}
	runPool(min(total, r.cfg.MaxConcurrentCalls), worker)
}

func (r *Runner) lookupCallID(ctx context.Context, phoneKey string, cutoff time.Time) string {
	t := r.cfg.Timings
	for attempt := 0; attempt < t.LookupRetries; attempt++ {
		if ctx.Err() != nil {
			return ""
		}
		entries, err := r.transcripts.ListTranscripts(ctx, r.userID)
		if err == nil {
			for _, entry := range entries {
				if normalizeDigits(entry.PhoneNumber, 10) == phoneKey && entry.CreatedAt.After(cutoff) {
					return entry.CallID
				}
			}
		} else {
			r.log.WithError(err).Debug("call id lookup failed")
		}
		if !sleepCtx(ctx, t.LookupRetryDelay.Std()) {
			return ""
		}
	}
	return ""
}

func (r *Runner) lookupAnalytics(ctx context.Context, callID string) *types.Analytics {
	t := r.cfg.Timings
	for attempt := 0; attempt < t.LookupRetries; attempt++ {
		if ctx.Err() != nil {
			return nil
		}
		analytics, err := r.analytics.FetchAnalytics(ctx, callID)
		if err == nil && analytics != nil {
			return analytics
		}
		if err != nil {
			r.log.WithError(err).WithField("call_id", callID).Debug("analytics fetch failed")
		}
		if !sleepCtx(ctx, t.LookupRetryDelay.Std()) {
			return nil
		}
	}
	return nil
}

// eligibleFor returns result indices in ascending order with the given
// status, optionally requiring a non-empty transcript.
func (r *Runner) eligibleFor(status types.CallStatus, needTranscript bool) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var indices []int
	for i, res := range r.results {
		if res.CallStatus != status {
			continue
		}
		if needTranscript && strings.TrimSpace(res.Transcript) == "" {
			continue
		}
		indices = append(indices, i)
	}
	return indices
}

func (r *Runner) saveHistory(params placeParams) {
	r.mu.Lock()
	results := make([]types.CallResult, len(r.results))
	copy(results, r.results)
	r.mu.Unlock()

	rec := history.NewRecord(params.outputName, params.assistantName, params.trunk, results)
	if err := r.histories.Append(r.userID, rec); err != nil {
		r.log.WithError(err).Error("campaign history write failed")
		r.notify.Error("Could not save campaign history.")
		return
	}
	r.log.WithField("record_id", rec.ID).Info("campaign history saved")
}

func (r *Runner) finishCompleted() {
	r.mu.Lock()
	r.status = types.StatusCompleted
	r.fetchProgress = ""
	r.persistLocked()
	r.mu.Unlock()
	r.notify.Success("Campaign completed!")
}

// finishCancelled lands the pipeline after an observed cancellation. Stop
// already downgraded statuses and notified; this only settles the status for
// cancellations arriving through the parent context.
func (r *Runner) finishCancelled() {
	r.mu.Lock()
	if r.status != types.StatusIdle {
		r.status = types.StatusIdle
		r.persistLocked()
	}
	r.mu.Unlock()
	r.log.Info("campaign cancelled before completion")
}
