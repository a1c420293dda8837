package media

import (
	"fmt"
	"strings"
)

type Classifier struct {
	policy *Policy
}

func NewClassifier(policy *Policy) *Classifier {
	return &Classifier{policy: policy}
}

// Classify maps a verified MIME type to its processing category. It has no
// side effects.
func (c *Classifier) Classify(mime string) (Category, error) {
	mime = baseMIME(mime)
	category, ok := c.policy.category(mime)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnmappedType, mime)
	}
	return category, nil
}

func baseMIME(mime string) string {
	base, _, _ := strings.Cut(mime, ";")
	return strings.ToLower(strings.TrimSpace(base))
}
