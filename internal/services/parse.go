package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"catering-allocation-service/internal/domain"
)

// ParseError reports a completion that could not be turned into a
// candidate allocation. The attempt loop converts it into a
// parse-failure violation rather than aborting the run.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse allocation response: %s", e.Reason)
}

// ParseAllocation extracts the allocation JSON from a raw model
// completion. The happy path is a bare JSON object; fenced code blocks
// and surrounding prose are tolerated. Driver and order ids are
// canonicalized case-insensitively against the fleet snapshots; ids
// with no match are kept verbatim so the validator can report them.
func ParseAllocation(raw string, drivers []*domain.Driver, orders []*domain.Order) (*domain.CandidateAllocation, error) {
	body := extractJSON(raw)
	if body == "" {
		return nil, &ParseError{Raw: raw, Reason: "no JSON object found in response"}
	}

	var payload struct {
		Allocations map[string][]string `json:"allocations"`
		Reasoning   map[string]string   `json:"reasoning"`
		Warnings    []string            `json:"warnings"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		loose, lerr := coerceLoose(body)
		if lerr != nil {
			return nil, &ParseError{Raw: raw, Reason: fmt.Sprintf("invalid JSON: %v", err)}
		}
		payload = *loose
	}

	c := domain.NewCandidateAllocation()
	c.Warnings = payload.Warnings

	driverIDs := canonicalIDs(driverIDList(drivers))
	orderIDs := canonicalIDs(orderIDList(orders))

	for rawDriver, rawOrders := range payload.Allocations {
		driverID := canonical(driverIDs, rawDriver)
		for _, rawOrder := range rawOrders {
			c.Assignments[driverID] = append(c.Assignments[driverID], canonical(orderIDs, rawOrder))
		}
		if len(rawOrders) == 0 {
			c.Assignments[driverID] = []string{}
		}
	}
	for rawOrder, text := range payload.Reasoning {
		c.Reasoning[canonical(orderIDs, rawOrder)] = text
	}

	return c, nil
}

// coerceLoose retries the payload as a free-form map, salvaging
// responses where values have the wrong JSON type (for example a
// single order id as a bare string rather than an array).
func coerceLoose(body string) (*struct {
	Allocations map[string][]string `json:"allocations"`
	Reasoning   map[string]string   `json:"reasoning"`
	Warnings    []string            `json:"warnings"`
}, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return nil, err
	}

	out := &struct {
		Allocations map[string][]string `json:"allocations"`
		Reasoning   map[string]string   `json:"reasoning"`
		Warnings    []string            `json:"warnings"`
	}{
		Allocations: map[string][]string{},
		Reasoning:   map[string]string{},
	}

	if alloc, ok := m["allocations"].(map[string]any); ok {
		for driver, v := range alloc {
			switch vv := v.(type) {
			case []any:
				ids := make([]string, 0, len(vv))
				for _, item := range vv {
					if s, ok := item.(string); ok {
						ids = append(ids, s)
					}
				}
				out.Allocations[driver] = ids
			case string:
				out.Allocations[driver] = []string{vv}
			}
		}
	}
	if reasoning, ok := m["reasoning"].(map[string]any); ok {
		for order, v := range reasoning {
			if s, ok := v.(string); ok {
				out.Reasoning[order] = s
			}
		}
	}
	if warnings, ok := m["warnings"].([]any); ok {
		for _, v := range warnings {
			if s, ok := v.(string); ok {
				out.Warnings = append(out.Warnings, s)
			}
		}
	}

	return out, nil
}

// extractJSON pulls the first complete JSON object out of a
// completion. It strips markdown code fences first, then scans for a
// balanced top-level brace pair, skipping braces inside string
// literals.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if idx := strings.Index(s, "```"); idx >= 0 {
		rest := s[idx+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			fenced := strings.TrimSpace(rest[:end])
			if obj := scanObject(fenced); obj != "" {
				return obj
			}
		}
	}

	return scanObject(s)
}

func scanObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func canonicalIDs(ids []string) map[string]string {
	m := make(map[string]string, len(ids))
	for _, id := range ids {
		m[strings.ToLower(id)] = id
	}
	return m
}

func canonical(known map[string]string, id string) string {
	trimmed := strings.TrimSpace(id)
	if fixed, ok := known[strings.ToLower(trimmed)]; ok {
		return fixed
	}
	return trimmed
}

func driverIDList(drivers []*domain.Driver) []string {
	ids := make([]string, 0, len(drivers))
	for _, d := range drivers {
		ids = append(ids, d.DriverID)
	}
	return ids
}

func orderIDList(orders []*domain.Order) []string {
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.OrderID)
	}
	return ids
}
