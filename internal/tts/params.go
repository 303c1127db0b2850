// Package tts drives multi-chunk speech generation against an external
// synthesis backend and assembles the result into one finished artifact.
package tts

import "github.com/example/chatterbox-serve/internal/api"

// Params are the sampling parameters shared across every chunk of one
// request. Holding them (and the reference voice) constant across chunks
// keeps the synthesized voice identity consistent.
type Params struct {
	Temperature       float64 `json:"temperature"`
	TopP              float64 `json:"top_p"`
	TopK              int     `json:"top_k"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
	MinP              float64 `json:"min_p"`
	CFGWeight         float64 `json:"cfg_weight"`
	Exaggeration      float64 `json:"exaggeration"`
}

// DefaultParams returns the backend's documented defaults.
func DefaultParams() Params {
	return Params{
		Temperature:       0.8,
		TopP:              1.0,
		TopK:              1000,
		RepetitionPenalty: 2.0,
		MinP:              0.05,
		CFGWeight:         0.5,
		Exaggeration:      0.5,
	}
}

// Validate range-checks every field and names the offending parameter.
func (p Params) Validate() error {
	switch {
	case p.Temperature < 0.1 || p.Temperature > 2.0:
		return api.Validationf("temperature", "temperature must be between 0.1 and 2.0")
	case p.TopP < 0 || p.TopP > 1:
		return api.Validationf("top_p", "top_p must be between 0.0 and 1.0")
	case p.TopK < 0 || p.TopK > 1000:
		return api.Validationf("top_k", "top_k must be between 0 and 1000")
	case p.RepetitionPenalty < 1.0 || p.RepetitionPenalty > 2.0:
		return api.Validationf("repetition_penalty", "repetition_penalty must be between 1.0 and 2.0")
	case p.MinP < 0 || p.MinP > 1:
		return api.Validationf("min_p", "min_p must be between 0.0 and 1.0")
	case p.CFGWeight < 0 || p.CFGWeight > 1:
		return api.Validationf("cfg_weight", "cfg_weight must be between 0.0 and 1.0")
	case p.Exaggeration < 0 || p.Exaggeration > 1:
		return api.Validationf("exaggeration", "exaggeration must be between 0.0 and 1.0")
	}
	return nil
}

// Request is the immutable generation bundle for one synthesis request:
// the resolved reference-audio path plus validated sampling parameters.
type Request struct {
	VoiceRef string
	Params   Params
}
