// Package sdoh is an HTTP client for an external social-determinants screen.
// Findings are returned as ICD-10 Z-codes for claim enrichment.
package sdoh

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ehr/claimcoder/internal/domain/coding"
)

const maxResponseBytes = 1 << 20

type Client struct {
	baseURL string
	http    *http.Client
}

var _ coding.SocialRiskAssessor = (*Client)(nil)

// NewClient builds a client for baseURL. A nil transport uses
// http.DefaultTransport. Requests are traced through otelhttp.
func NewClient(baseURL string, timeout time.Duration, transport http.RoundTripper) *Client {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
	}
}

type assessmentResponse struct {
	PatientID   string   `json:"patient_id"`
	ZCodes      []string `json:"z_codes"`
	CCMEligible bool     `json:"ccm_eligible"`
	Source      string   `json:"source"`
}

// Assess fetches the latest screen for patientID. A 404 means the patient
// has never been screened and yields an empty assessment.
func (c *Client) Assess(ctx context.Context, patientID string) (*coding.SocialRiskAssessment, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, fmt.Errorf("patient id is required")
	}
	u := c.baseURL + "/v1/patients/" + url.PathEscape(patientID) + "/social-risk"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build sdoh request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sdoh request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &coding.SocialRiskAssessment{Source: "sdoh"}, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("sdoh service returned %d", resp.StatusCode)
	}

	var body assessmentResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode sdoh response: %w", err)
	}

	out := &coding.SocialRiskAssessment{CCMEligible: body.CCMEligible, Source: body.Source}
	if out.Source == "" {
		out.Source = "sdoh"
	}
	for _, code := range body.ZCodes {
		code = strings.ToUpper(strings.TrimSpace(code))
		// Only Z-codes belong on a claim from this source.
		if strings.HasPrefix(code, "Z") {
			out.DiagnosisCodes = append(out.DiagnosisCodes, code)
		}
	}
	return out, nil
}
