package fetcher

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBlocked marks responses classified as anti-bot interference. Callers
// match it with errors.Is and abandon the current acquisition method.
var ErrBlocked = errors.New("blocked by target site")

// BlockedError carries what triggered the classification.
type BlockedError struct {
	StatusCode int
	Signal     string
}

func (e *BlockedError) Error() string {
	if e.Signal != "" {
		return fmt.Sprintf("blocked: status %d, signal %q", e.StatusCode, e.Signal)
	}
	return fmt.Sprintf("blocked: status %d", e.StatusCode)
}

// Is makes errors.Is(err, ErrBlocked) match.
func (e *BlockedError) Is(target error) bool {
	return target == ErrBlocked
}

// StatusError reports a non-2xx response that is not a blocking signal.
// It is transient: the retry wrapper will rerun it.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// blockStatuses always classify as blocking regardless of body content.
var blockStatuses = map[int]struct{}{
	403: {},
	429: {},
	503: {},
}

// blockPhrases are challenge fingerprints scanned case-insensitively in
// otherwise successful responses.
var blockPhrases = []string{
	"captcha",
	"robot or human",
	"pardon our interruption",
	"access to this page has been denied",
	"px-captcha",
	"unusual traffic",
}

// Challenge interstitials are small; cap the body scan so multi-megabyte
// listing pages are not lowercased end to end.
const blockScanLimit = 512 * 1024

// Check classifies a fetched page. It returns a *BlockedError for anti-bot
// responses, a *StatusError for other non-2xx statuses, and nil otherwise.
func Check(page *Page) error {
	if page == nil {
		return errors.New("page is nil")
	}
	if _, ok := blockStatuses[page.StatusCode]; ok {
		return &BlockedError{StatusCode: page.StatusCode}
	}
	if page.StatusCode < 200 || page.StatusCode >= 300 {
		return &StatusError{StatusCode: page.StatusCode}
	}
	if phrase := challengePhrase(page.Body); phrase != "" {
		return &BlockedError{StatusCode: page.StatusCode, Signal: phrase}
	}
	return nil
}

func challengePhrase(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > blockScanLimit {
		body = body[:blockScanLimit]
	}
	haystack := strings.ToLower(string(body))
	for _, phrase := range blockPhrases {
		if strings.Contains(haystack, phrase) {
			return phrase
		}
	}
	return ""
}
