package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/upkeep/internal/application"
	"github.com/ericfisherdev/upkeep/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is the JSON representation of one update check.
type StatusResponse struct {
	UpdateAvailable bool             `json:"update_available"`
	CurrentVersion  string           `json:"current_version"`
	Latest          *ReleaseResponse `json:"latest,omitempty"`
	Impact          *ImpactResponse  `json:"impact,omitempty"`
	Dismissed       bool             `json:"dismissed"`
	Stale           bool             `json:"stale"`
	Warning         string           `json:"warning,omitempty"`
	Notification    string           `json:"notification,omitempty"`
}

// ReleaseResponse is the JSON representation of a release.
type ReleaseResponse struct {
	Version     string `json:"version"`
	TagName     string `json:"tag_name"`
	PublishedAt string `json:"published_at"`
	URL         string `json:"url,omitempty"`
	Prerelease  bool   `json:"prerelease"`
}

// ImpactResponse is the JSON representation of a changelog impact analysis.
type ImpactResponse struct {
	Severity          string               `json:"severity"`
	BreakingChanges   []string             `json:"breaking_changes"`
	Migrations        []string             `json:"migrations"`
	SecurityFixes     []string             `json:"security_fixes"`
	DependencyUpdates []DependencyResponse `json:"dependency_updates"`
}

// DependencyResponse is a single dependency bump named in the changelog.
type DependencyResponse struct {
	Name string `json:"name"`
	From string `json:"from"`
	To   string `json:"to"`
}

// DismissalResponse is the JSON representation of a dismissal record.
type DismissalResponse struct {
	Version     string `json:"version"`
	DismissedAt string `json:"dismissed_at"`
	CheckCount  int    `json:"check_count"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// toStatusResponse converts a check report to its JSON response representation.
func toStatusResponse(rep application.CheckReport) StatusResponse {
	resp := StatusResponse{
		UpdateAvailable: rep.UpdateAvailable,
		CurrentVersion:  rep.Current.String(),
		Dismissed:       rep.Dismissed,
		Stale:           rep.Stale,
		Warning:         rep.Warning,
		Notification:    rep.Notification,
	}

	if rep.Latest != nil {
		resp.Latest = &ReleaseResponse{
			Version:     rep.Latest.Version.String(),
			TagName:     rep.Latest.TagName,
			PublishedAt: rep.Latest.PublishedAt.UTC().Format(time.RFC3339),
			URL:         rep.Latest.URL,
			Prerelease:  rep.Latest.Prerelease,
		}
	}
	if rep.Impact != nil {
		impact := toImpactResponse(*rep.Impact)
		resp.Impact = &impact
	}

	return resp
}

// toImpactResponse converts a domain ImpactReport to its JSON representation.
func toImpactResponse(impact model.ImpactReport) ImpactResponse {
	deps := make([]DependencyResponse, 0, len(impact.DependencyUpdates))
	for _, d := range impact.DependencyUpdates {
		deps = append(deps, DependencyResponse{Name: d.Name, From: d.From, To: d.To})
	}

	return ImpactResponse{
		Severity:          string(impact.Severity),
		BreakingChanges:   impact.BreakingChanges,
		Migrations:        impact.Migrations,
		SecurityFixes:     impact.SecurityFixes,
		DependencyUpdates: deps,
	}
}

// toDismissalResponse converts a domain Dismissal to its JSON representation.
func toDismissalResponse(d model.Dismissal) DismissalResponse {
	return DismissalResponse{
		Version:     d.Version.String(),
		DismissedAt: d.DismissedAt.UTC().Format(time.RFC3339),
		CheckCount:  d.CheckCount,
	}
}
