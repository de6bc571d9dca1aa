package types

import "time"

// Contact is one row of the campaign contact list. CalleeInfo carries the
// per-contact metadata handed to the assistant when the call is placed.
type Contact struct {
	PhoneNumber string            `json:"phoneNumber"`
	CalleeInfo  map[string]string `json:"calleeInfo"`
}

type CallStatus string

const (
	CallPending   CallStatus = "pending"
	CallCalling   CallStatus = "calling"
	CallCompleted CallStatus = "completed"
	CallNoAnswer  CallStatus = "no_answer"
	CallFailed    CallStatus = "failed"
)

// Analytics is the derived insight a connected call gets from the analytics
// service. All fields are optional on the wire.
type Analytics struct {
	Verdict         string         `json:"verdict,omitempty"`
	ConfidenceScore float64        `json:"confidence_score,omitempty"`
	Summary         string         `json:"summary,omitempty"`
	CallQuality     string         `json:"call_quality,omitempty"`
	KeyDiscoveries  map[string]any `json:"key_discoveries,omitempty"`
}

// CallResult is the per-contact outcome slot. Results stay index-aligned with
// the contact list for the whole run. AnalyticsLoaded means no further
// analytics work will arrive for this result.
type CallResult struct {
	PhoneNumber     string            `json:"phoneNumber"`
	CalleeInfo      map[string]string `json:"calleeInfo"`
	CallID          string            `json:"call_id"`
	CallStatus      CallStatus        `json:"call_status"`
	Transcript      string            `json:"transcript"`
	Analytics       *Analytics        `json:"analytics,omitempty"`
	AnalyticsLoaded bool              `json:"analyticsLoaded"`
}

type CampaignStatus string

const (
	StatusIdle              CampaignStatus = "idle"
	StatusReady             CampaignStatus = "ready"
	StatusRunning           CampaignStatus = "running"
	StatusFetchingResults   CampaignStatus = "fetching_results"
	StatusFetchingAnalytics CampaignStatus = "fetching_analytics"
	StatusCompleted         CampaignStatus = "completed"
	// StatusError is reserved; the pipeline never assigns it today.
	StatusError CampaignStatus = "error"
)

// SessionSnapshot is the full serializable run state, persisted after every
// state change and read back once on restore.
type SessionSnapshot struct {
	Contacts            []Contact      `json:"contacts"`
	Results             []CallResult   `json:"results"`
	OutputFileName      string         `json:"outputFileName"`
	SelectedAssistantID string         `json:"selectedAssistantId"`
	SelectedTrunk       string         `json:"selectedTrunk"`
	SessionKey          string         `json:"sessionKey"`
	CampaignStatus      CampaignStatus `json:"campaignStatus"`
	Progress            int            `json:"progress"`
	CurrentCallIndex    int            `json:"currentCallIndex"`
	FetchProgress       string         `json:"fetchProgress"`
}

// PlaceCallRequest is the call-placement payload.
type PlaceCallRequest struct {
	PhoneNumber string            `json:"phone_number"`
	AssistantID string            `json:"assistant_id"`
	TrunkName   string            `json:"trunk_name"`
	APIKey      string            `json:"api_key"`
	CalleeInfo  map[string]string `json:"callee_info"`
}

// TranscriptEntry is one row of the per-user transcript listing.
type TranscriptEntry struct {
	CallID        string    `json:"call_id"`
	PhoneNumber   string    `json:"phone_number"`
	CreatedAt     time.Time `json:"created_at"`
	TranscriptURL string    `json:"transcript_url"`
}

// ConnectedResult is the slim per-call view kept in history for calls that
// produced a conversation.
type ConnectedResult struct {
	PhoneNumber string            `json:"phoneNumber"`
	CalleeInfo  map[string]string `json:"calleeInfo"`
	CallID      string            `json:"call_id"`
	Transcript  string            `json:"transcript"`
	Analytics   *Analytics        `json:"analytics,omitempty"`
}

// NotConnectedResult is the retry-friendly view of calls that never connected.
type NotConnectedResult struct {
	PhoneNumber string            `json:"phoneNumber"`
	CalleeInfo  map[string]string `json:"calleeInfo"`
	CallStatus  CallStatus        `json:"call_status"`
}

// CampaignRecord is one append-only history entry for a completed run.
type CampaignRecord struct {
	ID                  string               `json:"id"`
	Name                string               `json:"name"`
	CreatedAt           string               `json:"createdAt"`
	AssistantName       string               `json:"assistantName"`
	FromNumber          string               `json:"fromNumber"`
	TotalContacts       int                  `json:"totalContacts"`
	Completed           int                  `json:"completed"`
	NoAnswer            int                  `json:"noAnswer"`
	Failed              int                  `json:"failed"`
	Results             []CallResult         `json:"results"`
	ConnectedResults    []ConnectedResult    `json:"connectedResults"`
	NotConnectedResults []NotConnectedResult `json:"notConnectedResults"`
}
