package campaign

import (
	"context"
	"errors"
	"sync"
	"time"

	"voice-campaigns-go/internal/config"
	"voice-campaigns-go/internal/history"
	"voice-campaigns-go/internal/logger"
	"voice-campaigns-go/internal/session"
	"voice-campaigns-go/internal/types"
)

var (
	ErrMissingConfig  = errors.New("campaign: missing configuration")
	ErrAlreadyRunning = errors.New("campaign: already running")
)

// CallPlacer dials one contact and returns the provisional call id.
type CallPlacer interface {
	PlaceCall(ctx context.Context, req types.PlaceCallRequest) (string, error)
}

// TranscriptSource lists a user's transcripts and resolves their content.
type TranscriptSource interface {
	ListTranscripts(ctx context.Context, userID string) ([]types.TranscriptEntry, error)
	FetchContent(ctx context.Context, transcriptURL string) (string, error)
}

// AnalyticsSource resolves derived call insight by call id.
type AnalyticsSource interface {
	FetchAnalytics(ctx context.Context, callID string) (*types.Analytics, error)
}

// Options wires a Runner to its collaborators.
type Options struct {
	UserID     string
	SessionKey string
	APIKey     string

	Config config.Campaign

	Placer      CallPlacer
	Transcripts TranscriptSource
	Analytics   AnalyticsSource
	Snapshots   session.Store
	Histories   history.Store

	Notifier Notifier
	Log      *logger.Logger
}

// Runner owns one user's campaign-run state and drives the three-phase
// calling pipeline. It is the single writer of results during a run; readers
// get copy-on-write snapshots through State.
type Runner struct {
	mu sync.Mutex

	cfg    config.Campaign
	log    *logger.Logger
	notify Notifier

	placer      CallPlacer
	transcripts TranscriptSource
	analytics   AnalyticsSource
	snapshots   session.Store
	histories   history.Store

	userID     string
	sessionKey string
	apiKey     string

	contacts            []types.Contact
	results             []types.CallResult
	outputFileName      string
	selectedAssistantID string
	assistantName       string
	selectedTrunk       string
	status              types.CampaignStatus
	progress            int
	currentCallIndex    int
	fetchProgress       string

	lastCallStart time.Time
	running       bool
	cancel        context.CancelFunc
}

// State is a read-only copy of the runner's published state.
type State struct {
	Contacts            []types.Contact      `json:"contacts"`
	Results             []types.CallResult   `json:"results"`
	CampaignStatus      types.CampaignStatus `json:"campaignStatus"`
	Progress            int                  `json:"progress"`
	CurrentCallIndex    int                  `json:"currentCallIndex"`
	FetchProgress       string               `json:"fetchProgress"`
	OutputFileName      string               `json:"outputFileName"`
	SelectedAssistantID string               `json:"selectedAssistantId"`
	SelectedTrunk       string               `json:"selectedTrunk"`
}

// NewRunner builds a runner and restores any persisted session snapshot. A
// run found in flight in the snapshot is downgraded: its workers died with
// the previous process, so calling results go back to pending and the status
// returns to idle.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Placer == nil || opts.Transcripts == nil || opts.Analytics == nil {
		return nil, errors.New("campaign: placer, transcripts and analytics collaborators are required")
	}
	if opts.Snapshots == nil || opts.Histories == nil {
		return nil, errors.New("campaign: snapshot and history stores are required")
	}
	log := opts.Log
	if log == nil {
		log = logger.New()
	}
	log = log.WithComponent("campaign")
	notify := opts.Notifier
	if notify == nil {
		notify = NewLogNotifier(log)
	}
	cfg := opts.Config
	if cfg.MaxConcurrentCalls <= 0 {
		cfg = config.Default().Campaign
	}

	r := &Runner{
		cfg:            cfg,
		log:            log,
		notify:         notify,
		placer:         opts.Placer,
		transcripts:    opts.Transcripts,
		analytics:      opts.Analytics,
		snapshots:      opts.Snapshots,
		histories:      opts.Histories,
		userID:         opts.UserID,
		sessionKey:     opts.SessionKey,
		apiKey:         opts.APIKey,
		selectedTrunk:  cfg.DefaultTrunk,
		outputFileName: "campaign_results",
		status:         types.StatusIdle,
	}
	r.restore()
	return r, nil
}

func (r *Runner) key() session.Key {
	return session.Key{UserID: r.userID, SessionKey: r.sessionKey}
}

func (r *Runner) restore() {
	snap, ok, err := r.snapshots.Get(r.key())
	if err != nil {
		r.log.WithError(err).Warn("session restore failed")
		return
	}
	if !ok {
		return
	}

	if len(snap.Contacts) > 0 {
		r.contacts = snap.Contacts
	}
	if len(snap.Results) > 0 {
		restored := make([]types.CallResult, len(snap.Results))
		copy(restored, snap.Results)
		for i := range restored {
			if restored[i].CallStatus == types.CallCalling {
				restored[i].CallStatus = types.CallPending
			}
		}
		r.results = restored
	}
	if snap.OutputFileName != "" {
		r.outputFileName = snap.OutputFileName
	}
	if snap.SelectedAssistantID != "" {
		r.selectedAssistantID = snap.SelectedAssistantID
	}
	if snap.SelectedTrunk != "" {
		r.selectedTrunk = snap.SelectedTrunk
	}
	r.progress = snap.Progress
	r.currentCallIndex = snap.CurrentCallIndex
	r.fetchProgress = snap.FetchProgress

	switch snap.CampaignStatus {
	case types.StatusRunning, types.StatusFetchingResults, types.StatusFetchingAnalytics:
		// The workers that were driving this state no longer exist.
		r.status = types.StatusIdle
		r.notify.Info("Previous campaign was interrupted. You can start again.")
	case "":
		r.status = types.StatusIdle
	default:
		r.status = snap.CampaignStatus
	}
	r.log.WithField("status", r.status).WithField("contacts", len(r.contacts)).Info("session restored")
}

// persistLocked writes the current snapshot; callers must hold r.mu.
func (r *Runner) persistLocked() {
	snap := &types.SessionSnapshot{
		Contacts:            r.contacts,
		Results:             r.results,
		OutputFileName:      r.outputFileName,
		SelectedAssistantID: r.selectedAssistantID,
		SelectedTrunk:       r.selectedTrunk,
		SessionKey:          r.sessionKey,
		CampaignStatus:      r.status,
		Progress:            r.progress,
		CurrentCallIndex:    r.currentCallIndex,
		FetchProgress:       r.fetchProgress,
	}
	if err := r.snapshots.Put(r.key(), snap); err != nil {
		r.log.WithError(err).Warn("session snapshot write failed")
	}
}

// Setters are meaningful only before or between runs; the UI disables them
// while a campaign is in flight.

func (r *Runner) SetContacts(contacts []types.Contact) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacts = contacts
	r.persistLocked()
}

func (r *Runner) SetResults(results []types.CallResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = results
	r.persistLocked()
}

func (r *Runner) SetOutputFileName(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outputFileName = name
	r.persistLocked()
}

func (r *Runner) SetSelectedAssistantID(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selectedAssistantID = id
	r.persistLocked()
}

func (r *Runner) SetAssistantName(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assistantName = name
}

func (r *Runner) SetAPIKey(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apiKey = key
}

func (r *Runner) SetSelectedTrunk(trunk string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selectedTrunk = trunk
	r.persistLocked()
}

func (r *Runner) SetSessionKey(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionKey = key
	r.persistLocked()
}

// State returns a copy of the published run state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	contacts := make([]types.Contact, len(r.contacts))
	copy(contacts, r.contacts)
	results := make([]types.CallResult, len(r.results))
	copy(results, r.results)
	return State{
		Contacts:            contacts,
		Results:             results,
		CampaignStatus:      r.status,
		Progress:            r.progress,
		CurrentCallIndex:    r.currentCallIndex,
		FetchProgress:       r.fetchProgress,
		OutputFileName:      r.outputFileName,
		SelectedAssistantID: r.selectedAssistantID,
		SelectedTrunk:       r.selectedTrunk,
	}
}

// StopCampaign signals cooperative cancellation. Results still marked calling
// go back to pending so a retry starts clean. Safe to call when idle.
func (r *Runner) StopCampaign() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	downgraded := false
	for i := range r.results {
		if r.results[i].CallStatus == types.CallCalling {
			downgraded = true
			break
		}
	}
	if downgraded {
		next := make([]types.CallResult, len(r.results))
		copy(next, r.results)
		for i := range next {
			if next[i].CallStatus == types.CallCalling {
				next[i].CallStatus = types.CallPending
			}
		}
		r.results = next
	}
	if downgraded || r.status != types.StatusIdle {
		r.status = types.StatusIdle
		r.persistLocked()
	}
	r.mu.Unlock()
	r.notify.Info("Campaign stopped.")
}

// ResetCampaign abandons the run entirely: clears state and removes the
// persisted snapshot.
func (r *Runner) ResetCampaign() {
	r.mu.Lock()
	r.contacts = nil
	r.results = nil
	r.status = types.StatusIdle
	r.progress = 0
	r.currentCallIndex = 0
	r.fetchProgress = ""
	key := r.key()
	r.mu.Unlock()
	if err := r.snapshots.Delete(key); err != nil {
		r.log.WithError(err).Warn("session snapshot delete failed")
	}
}

// updateResult rewrites one slot copy-on-write so readers never observe a
// partially written element.
func (r *Runner) updateResult(idx int, mutate func(*types.CallResult)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx < 0 || idx >= len(r.results) {
		return
	}
	next := make([]types.CallResult, len(r.results))
	copy(next, r.results)
	mutate(&next[idx])
	r.results = next
	r.persistLocked()
}

func (r *Runner) setProgress(p int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = p
	r.persistLocked()
}

func (r *Runner) setFetchProgress(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchProgress = msg
	r.persistLocked()
}
