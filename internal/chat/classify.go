package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// classification is the sentiment/topic analysis of one inbound message.
// It is best-effort: any provider or parse failure degrades to neutral.
type classification struct {
	Sentiment string   `json:"sentiment"`
	Topics    []string `json:"topics"`
}

func neutralClassification() classification {
	return classification{Sentiment: "neutral", Topics: []string{}}
}

func (s *Service) classify(ctx context.Context, userInput string) classification {
	prompt := fmt.Sprintf(
		`Analyze the message and return a minified JSON object: {"sentiment": "...", "topics": ["..."]}. Message: %q`,
		userInput)

	raw, err := s.provider.Generate(ctx, "", prompt)
	if err != nil {
		logrus.WithError(err).Warn("chat: classification call failed, using neutral")
		return neutralClassification()
	}

	out, err := parseClassification(raw)
	if err != nil {
		logrus.WithField("raw", raw).WithError(err).Warn("chat: classification parse failed, using neutral")
		return neutralClassification()
	}
	return out
}

// parseClassification tolerates markdown code fences around the JSON body,
// which the provider frequently adds despite instructions.
func parseClassification(raw string) (classification, error) {
	cleaned := stripCodeFences(raw)

	var out classification
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return classification{}, err
	}
	if out.Sentiment == "" {
		out.Sentiment = "neutral"
	}
	if out.Topics == nil {
		out.Topics = []string{}
	}
	return out, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// language tag on the opening fence, e.g. ```json
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], "{[") {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
