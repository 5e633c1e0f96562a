package enrichment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"autograde-backend/internal/domain"
	"autograde-backend/internal/logger"
	"autograde-backend/internal/utils"
)

// VPICOptions configures the NHTSA vPIC decoder.
type VPICOptions struct {
	BaseURL     string
	RatePerSec  float64
	MaxAttempts int
	HTTPClient  *http.Client
	// Now supplies the current year for the model year fallback.
	Now func() time.Time
}

type vpicDecoder struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	retry   RetryOpts
	now     func() time.Time
}

type vpicResponse struct {
	Count   int          `json:"Count"`
	Message string       `json:"Message"`
	Results []vpicResult `json:"Results"`
}

type vpicResult struct {
	Make      string `json:"Make"`
	Model     string `json:"Model"`
	ModelYear string `json:"ModelYear"`
	Trim      string `json:"Trim"`
	BodyClass string `json:"BodyClass"`
	ErrorCode string `json:"ErrorCode"`
	ErrorText string `json:"ErrorText"`
}

// NewVPICDecoder decodes VINs through DecodeVinValues. Calls share a rate
// limiter and are retried on network errors and 5xx responses.
func NewVPICDecoder(opts VPICOptions) IdentifierDecoder {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultRetry.MaxAttempts
	}
	perSec := opts.RatePerSec
	if perSec <= 0 {
		perSec = 2
	}
	retry := DefaultRetry
	retry.MaxAttempts = attempts
	return &vpicDecoder{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(perSec), 1),
		retry:   retry,
		now:     now,
	}
}

func (d *vpicDecoder) DecodeVIN(ctx context.Context, vin string) (domain.VehiclePatch, error) {
	var patch domain.VehiclePatch

	var result vpicResult
	err := Retry(ctx, d.retry, func(ctx context.Context) error {
		if err := d.limiter.Wait(ctx); err != nil {
			return Permanent(err)
		}
		r, err := d.fetch(ctx, vin)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return patch, err
	}

	set := func(name, v string) {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v != "" {
			patch = patch.Set(name, v)
		}
	}
	set(domain.VehicleMake, result.Make)
	set(domain.VehicleModel, result.Model)
	if patch.IsEmpty() {
		return patch, ErrNoResult
	}

	year := strings.TrimSpace(result.ModelYear)
	if year == "" {
		if y, err := utils.ModelYear(vin, d.now().Year()+1); err == nil {
			year = strconv.Itoa(y)
		}
	}
	set(domain.VehicleYear, year)

	trim := result.Trim
	if strings.TrimSpace(trim) == "" {
		trim = bodyType(result.BodyClass)
	}
	set(domain.VehicleTrim, trim)
	return patch, nil
}

func (d *vpicDecoder) fetch(ctx context.Context, vin string) (vpicResult, error) {
	endpoint := fmt.Sprintf("%s/vehicles/DecodeVinValues/%s?format=json", d.baseURL, url.PathEscape(vin))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return vpicResult{}, Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	logger.ExternalServiceCall("vpic", "DecodeVinValues", "vin", vin)
	resp, err := d.client.Do(req)
	if err != nil {
		logger.ExternalServiceResult("vpic", "DecodeVinValues", started, err, "vin", vin)
		return vpicResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		err := fmt.Errorf("vpic: status %d", resp.StatusCode)
		logger.ExternalServiceResult("vpic", "DecodeVinValues", started, err, "vin", vin)
		return vpicResult{}, err
	}
	if resp.StatusCode != http.StatusOK {
		err := Permanent(fmt.Errorf("vpic: status %d", resp.StatusCode))
		logger.ExternalServiceResult("vpic", "DecodeVinValues", started, err, "vin", vin)
		return vpicResult{}, err
	}

	var body vpicResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		err = Permanent(fmt.Errorf("vpic: decode response: %w", err))
		logger.ExternalServiceResult("vpic", "DecodeVinValues", started, err, "vin", vin)
		return vpicResult{}, err
	}
	logger.ExternalServiceResult("vpic", "DecodeVinValues", started, nil, "vin", vin, "count", body.Count)
	if len(body.Results) == 0 {
		return vpicResult{}, Permanent(ErrNoResult)
	}
	return body.Results[0], nil
}

// bodyType shortens vPIC body classes such as
// "Sport Utility Vehicle (SUV)/Multi-Purpose Vehicle (MPV)" to "SUV".
func bodyType(class string) string {
	class = strings.TrimSpace(class)
	if class == "" {
		return ""
	}
	first := strings.TrimSpace(strings.SplitN(class, "/", 2)[0])
	if open := strings.Index(first, "("); open >= 0 {
		if end := strings.Index(first[open:], ")"); end > 1 {
			return first[open+1 : open+end]
		}
	}
	return first
}
