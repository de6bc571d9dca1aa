package campaign

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"voice-campaigns-go/internal/config"
	"voice-campaigns-go/internal/types"
)

// fakeBackend implements all three collaborator interfaces in memory.
type fakeBackend struct {
	mu sync.Mutex

	placeErrs   map[string]error // formatted phone -> placement error
	placeDelay  time.Duration
	blockPlace  chan struct{} // when set, PlaceCall waits for ctx or close
	placedCalls []types.PlaceCallRequest
	nextCallID  int

	transcripts []types.TranscriptEntry
	contents    map[string]string // transcript URL -> text
	listErr     error
	analytics   map[string]*types.Analytics // call id -> analytics

	active    int
	maxActive int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		placeErrs: map[string]error{},
		contents:  map[string]string{},
		analytics: map[string]*types.Analytics{},
	}
}

func (f *fakeBackend) PlaceCall(ctx context.Context, req types.PlaceCallRequest) (string, error) {
	f.mu.Lock()
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	delay := f.placeDelay
	block := f.blockPlace
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()

	if block != nil {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-block:
		}
	}
	if delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.placedCalls = append(f.placedCalls, req)
	if err, ok := f.placeErrs[req.PhoneNumber]; ok {
		return "", err
	}
	f.nextCallID++
	return fmt.Sprintf("prov_%d", f.nextCallID), nil
}

func (f *fakeBackend) ListTranscripts(ctx context.Context, userID string) ([]types.TranscriptEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]types.TranscriptEntry, len(f.transcripts))
	copy(out, f.transcripts)
	return out, nil
}

func (f *fakeBackend) FetchContent(ctx context.Context, transcriptURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.contents[transcriptURL]
	if !ok {
		return "", fmt.Errorf("no content at %s", transcriptURL)
	}
	return content, nil
}

func (f *fakeBackend) FetchAnalytics(ctx context.Context, callID string) (*types.Analytics, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.analytics[callID]
	if !ok {
		return nil, fmt.Errorf("no analytics for %s", callID)
	}
	return a, nil
}

// addTranscript registers a listing row with content for a formatted phone.
func (f *fakeBackend) addTranscript(callID, phone, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	url := fmt.Sprintf("https://transcripts.test/%s", callID)
	f.transcripts = append(f.transcripts, types.TranscriptEntry{
		CallID:        callID,
		PhoneNumber:   phone,
		CreatedAt:     time.Now(),
		TranscriptURL: url,
	})
	f.contents[url] = content
}

func (f *fakeBackend) maxConcurrent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxActive
}

// fakeNotifier records every user-facing message.
type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) record(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

func (n *fakeNotifier) Info(msg string)    { n.record(msg) }
func (n *fakeNotifier) Success(msg string) { n.record(msg) }
func (n *fakeNotifier) Error(msg string)   { n.record(msg) }

func (n *fakeNotifier) all() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.messages))
	copy(out, n.messages)
	return out
}

func (n *fakeNotifier) contains(substr string) bool {
	for _, msg := range n.all() {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

// testTimings shrinks every budget so a full pipeline runs in milliseconds.
func testTimings() config.Timings {
	return config.Timings{
		CallSlotDelay:              config.Duration(2 * time.Millisecond),
		PostDialWait:               config.Duration(5 * time.Millisecond),
		TranscriptFastAttempts:     2,
		TranscriptFastInterval:     config.Duration(2 * time.Millisecond),
		TranscriptExtendedAttempts: 1,
		TranscriptExtendedInterval: config.Duration(2 * time.Millisecond),
		TranscriptMatchBuffer:      config.Duration(30 * time.Second),
		AnalyticsMatchBuffer:       config.Duration(60 * time.Second),
		LookupRetries:              2,
		LookupRetryDelay:           config.Duration(2 * time.Millisecond),
	}
}

func testCampaignConfig() config.Campaign {
	return config.Campaign{
		MaxConcurrentCalls: 5,
		DefaultCountryCode: "+91",
		DefaultTrunk:       "vobiz",
		Timings:            testTimings(),
	}
}
