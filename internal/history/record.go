package history

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"voice-campaigns-go/internal/types"
)

// transcriptLimit caps stored transcripts so a long run fits in the store.
const transcriptLimit = 5000

// NewRecord folds final run results into one history entry: totals per
// terminal status plus connected/not-connected subsets for operator followup.
func NewRecord(name, assistantName, trunk string, results []types.CallResult) types.CampaignRecord {
	if name == "" {
		name = "Campaign"
	}
	if assistantName == "" {
		assistantName = "Unknown"
	}

	rec := types.CampaignRecord{
		ID:            "campaign_" + uuid.New().String(),
		Name:          name,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
		AssistantName: assistantName,
		FromNumber:    TrunkDisplayName(trunk),
		TotalContacts: len(results),
	}

	for _, r := range results {
		stored := r
		stored.Transcript = truncate(r.Transcript, transcriptLimit)
		rec.Results = append(rec.Results, stored)

		switch r.CallStatus {
		case types.CallCompleted:
			rec.Completed++
			rec.ConnectedResults = append(rec.ConnectedResults, types.ConnectedResult{
				PhoneNumber: r.PhoneNumber,
				CalleeInfo:  r.CalleeInfo,
				CallID:      r.CallID,
				Transcript:  truncate(r.Transcript, transcriptLimit),
				Analytics:   r.Analytics,
			})
		case types.CallNoAnswer, types.CallFailed:
			if r.CallStatus == types.CallNoAnswer {
				rec.NoAnswer++
			} else {
				rec.Failed++
			}
			rec.NotConnectedResults = append(rec.NotConnectedResults, types.NotConnectedResult{
				PhoneNumber: r.PhoneNumber,
				CalleeInfo:  r.CalleeInfo,
				CallStatus:  r.CallStatus,
			})
		}
	}
	return rec
}

// TrunkDisplayName maps a trunk identifier to the origin-line label shown in
// history.
func TrunkDisplayName(trunk string) string {
	switch strings.ToLower(trunk) {
	case "twilio":
		return "Twilio"
	case "vobiz":
		return "Vobiz"
	case "":
		return "Unknown"
	default:
		return strings.ToUpper(trunk[:1]) + strings.ToLower(trunk[1:])
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
