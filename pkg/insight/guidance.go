package insight

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Guidance holds the analyst briefing lines woven into the prompt. Teams tune
// these per portfolio without rebuilding the service.
type Guidance struct {
	Persona      string            `yaml:"persona" json:"persona"`
	Sentiments   map[string]string `yaml:"sentiments" json:"sentiments"`
	ActionCues   []string          `yaml:"action_cues" json:"action_cues"`
	NoActionCues []string          `yaml:"no_action_cues" json:"no_action_cues"`
}

func LoadGuidance(path string) (Guidance, error) {
	if path == "" {
		return DefaultGuidance(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultGuidance(), err
	}

	var g Guidance
	if err := yaml.Unmarshal(content, &g); err != nil {
		return Guidance{}, err
	}

	if len(g.Sentiments) == 0 {
		return Guidance{}, errors.New("guidance config has no sentiment definitions")
	}
	if g.Persona == "" {
		g.Persona = DefaultGuidance().Persona
	}

	return g, nil
}

func DefaultGuidance() Guidance {
	return Guidance{
		Persona: "an expert financial and debt collection analyst reviewing customer service call transcripts, often in Hinglish",
		Sentiments: map[string]string{
			"Positive": "customer is cooperative, proactive, or confirms timely payment",
			"Neutral":  "customer agrees after explanation, sets a clear promise to pay, responds calmly",
			"Negative": "customer is confrontational, disputes the debt, or expresses distress or hardship",
		},
		ActionCues: []string{
			"a promise to pay (PTP) is set",
			"a dispute is raised",
			"a hardship or restructuring request is made",
			"legal action is mentioned",
			"a form or document must be sent",
		},
		NoActionCues: []string{
			"a simple reminder met with a vague response",
			"no concrete commitment from the customer",
		},
	}
}
