package harvest

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/lpi-harvester/internal/types"
)

// isAPIResponse reports whether a response is a JSON payload from one of the API endpoints
func isAPIResponse(url, contentType string, markers []string) bool {
	if !strings.Contains(strings.ToLower(contentType), "application/json") {
		return false
	}
	for _, m := range markers {
		if strings.Contains(url, m) {
			return true
		}
	}
	return false
}

// carriesUserPayload reports whether body has data.me or data.user
func carriesUserPayload(body []byte) bool {
	var envelope struct {
		Data *struct {
			Me   json.RawMessage `json:"me"`
			User json.RawMessage `json:"user"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Data == nil {
		return false
	}
	return notNull(envelope.Data.Me) || notNull(envelope.Data.User)
}

func notNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

type pendingResponse struct {
	seq int
	url string
}

type sequenced struct {
	seq  int
	resp types.CapturedResponse
}

// collector keeps captured responses in the order their headers arrived.
// Bodies are fetched asynchronously, so a slow body cannot reorder the result.
type collector struct {
	markers []string

	mu       sync.Mutex
	drained  *sync.Cond
	next     int
	inflight int
	pending  map[string]pendingResponse
	captured []sequenced
}

func newCollector(markers []string) *collector {
	c := &collector{
		markers: markers,
		pending: make(map[string]pendingResponse),
	}
	c.drained = sync.NewCond(&c.mu)
	return c
}

// begin records a response whose headers arrived; false means it is not tracked
func (c *collector) begin(requestID, url, contentType string) bool {
	if !isAPIResponse(url, contentType, c.markers) {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[requestID] = pendingResponse{seq: c.next, url: url}
	c.next++
	return true
}

// finish claims a tracked response once its body is available. The caller must
// call complete exactly once for every claimed response.
func (c *collector) finish(requestID string) (pendingResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.pending[requestID]
	if !ok {
		return pendingResponse{}, false
	}
	delete(c.pending, requestID)
	c.inflight++
	return p, true
}

// drop forgets a tracked response that failed to load
func (c *collector) drop(requestID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, requestID)
}

// complete stores the body of a claimed response if it carries a user payload
func (c *collector) complete(p pendingResponse, body []byte) bool {
	keep := body != nil && carriesUserPayload(body)

	c.mu.Lock()
	defer c.mu.Unlock()
	if keep {
		c.captured = append(c.captured, sequenced{
			seq:  p.seq,
			resp: types.CapturedResponse{SourceURL: p.url, Body: json.RawMessage(body)},
		})
	}
	c.inflight--
	if c.inflight == 0 {
		c.drained.Broadcast()
	}
	return keep
}

// responses waits for in-flight bodies and returns the captured responses in arrival order.
// The wait is bounded by the callers of complete: every claimed body fetch must
// finish or fail within its own timeout.
func (c *collector) responses() []types.CapturedResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.inflight > 0 {
		c.drained.Wait()
	}
	ordered := append([]sequenced(nil), c.captured...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].seq < ordered[j].seq })

	out := make([]types.CapturedResponse, len(ordered))
	for i, s := range ordered {
		out[i] = s.resp
	}
	return out
}

// rejectionSelectors match the elements the login form uses to show errors
const rejectionSelectors = `[role="alert"], .alert, .alert-danger, .error, .error-message, .form-error, .flash-error`

var rejectionHints = []string{
	"incorrect",
	"invalid",
	"not recognized",
	"does not match",
	"doesn't match",
	"try again",
}

// loginRejection looks for a credentials error in the page shown after login
func loginRejection(html string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}

	var message string
	doc.Find(rejectionSelectors).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.Join(strings.Fields(s.Text()), " ")
		lower := strings.ToLower(text)
		for _, hint := range rejectionHints {
			if strings.Contains(lower, hint) {
				message = text
				return false
			}
		}
		return true
	})
	return message, message != ""
}
