package domain

import (
	"strings"
	"sync"
)

// FormState holds the answers captured by form blocks of one experience instance.
// Safe for concurrent use.
type FormState struct {
	mu      sync.RWMutex
	fields  map[string]FormField
	order   []string
	answers map[string]string
	touched map[string]bool
}

// NewFormState creates an empty form state.
func NewFormState() *FormState {
	return &FormState{
		fields:  make(map[string]FormField),
		answers: make(map[string]string),
		touched: make(map[string]bool),
	}
}

// Register declares form fields. Re-registering a block keeps the first declaration.
func (f *FormState) Register(fields ...FormField) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, field := range fields {
		if _, exists := f.fields[field.BlockID]; exists {
			continue
		}
		f.fields[field.BlockID] = field
		f.order = append(f.order, field.BlockID)
	}
}

// Set records the answer for a block.
func (f *FormState) Set(blockID, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers[blockID] = value
	f.touched[blockID] = true
}

// Answers returns a copy of all captured answers.
func (f *FormState) Answers() map[string]string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]string, len(f.answers))
	for k, v := range f.answers {
		out[k] = v
	}
	return out
}

// IsValid reports whether every required field has a non-blank answer.
func (f *FormState) IsValid() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, id := range f.order {
		if f.fields[id].Required && strings.TrimSpace(f.answers[id]) == "" {
			return false
		}
	}
	return true
}

// Responses returns the answers of declared fields in declaration order, keyed by label when present.
func (f *FormState) Responses() []FormResponse {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]FormResponse, 0, len(f.order))
	for _, id := range f.order {
		if !f.touched[id] {
			continue
		}
		out = append(out, FormResponse{
			BlockID: id,
			Label:   f.fields[id].Label,
			Value:   f.answers[id],
		})
	}
	return out
}

// FormResponse is a single answered field.
type FormResponse struct {
	BlockID string `json:"fieldId"`
	Label   string `json:"label,omitempty"`
	Value   string `json:"value"`
}
