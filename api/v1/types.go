// Package v1 defines the run records fmutools persists and prints as JSON.
package v1

import (
	"sort"
	"time"
)

// RunStatus is the outcome of a recorded command.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
)

// RecordKind names a record bucket.
type RecordKind string

const (
	KindDesign  RecordKind = "design"
	KindTornado RecordKind = "tornado"
)

// ─────────────────────────────────────────────────────────────────────────────
// Design runs
// ─────────────────────────────────────────────────────────────────────────────

// DesignRecord describes one `design generate` run.
type DesignRecord struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	Input         string    `json:"input"`
	Output        string    `json:"output"`
	Sensitivities []string  `json:"sensitivities"`
	Realisations  int       `json:"realisations"`
	Parameters    []string  `json:"parameters"`
	Seeds         string    `json:"seeds,omitempty"`
	Status        RunStatus `json:"status"`
	Error         string    `json:"error,omitempty"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Tornado runs
// ─────────────────────────────────────────────────────────────────────────────

// TornadoBar is one sensitivity bar of a stored tornado result.
type TornadoBar struct {
	SensName   string  `json:"sensname"`
	Low        float64 `json:"low"`
	High       float64 `json:"high"`
	LeftLabel  string  `json:"leftlabel"`
	RightLabel string  `json:"rightlabel"`
	TrueLow    float64 `json:"true_low"`
	TrueHigh   float64 `json:"true_high"`
	LowReals   []int   `json:"low_reals,omitempty"`
	HighReals  []int   `json:"high_reals,omitempty"`
}

// TornadoRecord describes one tornado calculation.
type TornadoRecord struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	Design    string            `json:"design"`
	Results   string            `json:"results"`
	Response  string            `json:"response"`
	Selection map[string]string `json:"selection,omitempty"`
	Reference string            `json:"reference"`
	Scale     string            `json:"scale"`
	RefValue  float64           `json:"reference_value"`
	Bars      []TornadoBar      `json:"bars"`
	Status    RunStatus         `json:"status"`
	Error     string            `json:"error,omitempty"`
}

// Title is a one-line description used in listings and the viewer.
func (r TornadoRecord) Title() string {
	keys := make([]string, 0, len(r.Selection))
	for k := range r.Selection {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := r.Response
	for _, k := range keys {
		if v := r.Selection[k]; v != "" {
			t += " " + k + "=" + v
		}
	}
	return t
}
