package data

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"esim-service/internal/biz"
	"esim-service/internal/conf"
	"esim-service/internal/constants"
	esimErrors "esim-service/internal/errors"
	"esim-service/internal/metrics"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-resty/resty/v2"
)

// TravelRoamClient is the TravelRoam whitelabel API adapter and the only
// provider that supports catalog-based renewals. Authentication is static
// header credentials, no login round trip.
type TravelRoamClient struct {
	http    *resty.Client
	log     *log.Helper
	metrics *metrics.EsimMetrics
}

// NewTravelRoamClient creates the TravelRoam adapter (returns the
// biz.RenewalProviderClient interface)
func NewTravelRoamClient(c *conf.Bootstrap, logger log.Logger) (biz.RenewalProviderClient, error) {
	if c.Providers == nil || c.Providers.Travelroam == nil {
		return nil, pkgErrors.NewBizErrorWithLang(context.Background(), esimErrors.ErrCodeProviderConfigNil)
	}
	cfg := c.Providers.Travelroam

	timeout := cfg.Timeout.AsDuration()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(cfg.BaseUrl).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("x-api-key", cfg.ApiKey).
		SetHeader("clientSecret", cfg.ClientSecret)

	return &TravelRoamClient{
		http:    httpClient,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}, nil
}

// Name returns the provider tag
func (c *TravelRoamClient) Name() string {
	return constants.ProviderTravelRoam
}

type travelroamDetails struct {
	ICCID                  string `json:"iccid"`
	MatchingID             string `json:"matchingId"`
	ProfileStatus          string `json:"profileStatus"`
	SmdpAddress            string `json:"smdpAddress"`
	FirstInstalledDateTime int64  `json:"firstInstalledDateTime"` // epoch milliseconds
}

type travelroamAssignment struct {
	CallTypeGroup     string  `json:"callTypeGroup"`
	InitialQuantity   float64 `json:"initialQuantity"`   // bytes
	RemainingQuantity float64 `json:"remainingQuantity"` // bytes
	StartTime         string  `json:"startTime"`
	EndTime           string  `json:"endTime"`
}

type travelroamAppliedBundle struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Assignments []travelroamAssignment `json:"assignments"`
}

type travelroamAppliedBundles struct {
	Bundles []travelroamAppliedBundle `json:"bundles"`
}

type travelroamLocation struct {
	NetworkName      string `json:"networkName"`
	NetworkBrandName string `json:"networkBrandName"`
	Country          string `json:"country"`
}

type travelroamCatalogBundle struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Data        float64 `json:"data"`     // GB
	Validity    int     `json:"validity"` // days
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
}

type travelroamCatalog struct {
	Bundles []travelroamCatalogBundle `json:"bundles"`
}

type travelroamOrderResponse struct {
	OrderReference string `json:"orderReference"`
	Status         string `json:"status"`
}

// FetchStatus combines the details, applied-bundles and location endpoints
// into one status record. Details are mandatory; bundles and location only
// enrich the record.
func (c *TravelRoamClient) FetchStatus(ctx context.Context, iccid string) (*biz.EsimStatus, error) {
	fetchStart := time.Now()
	status, err := c.fetchStatus(ctx, iccid)
	c.observeFetch(fetchStart, err)
	return status, err
}

func (c *TravelRoamClient) fetchStatus(ctx context.Context, iccid string) (*biz.EsimStatus, error) {
	var details travelroamDetails
	if err := c.post(ctx, "/esims/details", map[string]string{"iccid": iccid}, &details); err != nil {
		return nil, err
	}
	if details.ICCID == "" {
		return nil, biz.NewUpstreamError(c.Name(), biz.UpstreamNotFound, fmt.Errorf("iccid %s unknown", iccid))
	}

	status := &biz.EsimStatus{
		ICCID:          details.ICCID,
		OrderSimID:     details.MatchingID,
		Provider:       c.Name(),
		Status:         mapTravelroamStatus(details.ProfileStatus),
		ActivationCode: details.SmdpAddress,
		LastUpdated:    time.Now(),
	}
	if details.FirstInstalledDateTime > 0 {
		status.PurchaseDate = time.UnixMilli(details.FirstInstalledDateTime).UTC().Format("2006-01-02 15:04:05")
	}

	var applied travelroamAppliedBundles
	if err := c.post(ctx, "/esims/applied/bundles", map[string]string{"iccid": iccid}, &applied); err != nil {
		c.log.Warnf("travelroam applied bundles fetch failed: iccid=%s, error=%v", iccid, err)
	} else if len(applied.Bundles) > 0 {
		mergeTravelroamBundle(status, &applied.Bundles[0])
	}

	var location travelroamLocation
	if err := c.post(ctx, "/esims/location", map[string]string{"iccid": iccid}, &location); err != nil {
		c.log.Warnf("travelroam location fetch failed: iccid=%s, error=%v", iccid, err)
	} else if name := locationNetwork(&location); name != "" && status.APN == "" {
		status.APN = name
	}

	return status, nil
}

// FetchCatalog returns the bundle catalog for a country.
func (c *TravelRoamClient) FetchCatalog(ctx context.Context, countryCode string) ([]*biz.Bundle, error) {
	payload := map[string]string{}
	if countryCode != "" {
		payload["countries"] = countryCode
	}
	var catalog travelroamCatalog
	if err := c.post(ctx, "/catalogue", payload, &catalog); err != nil {
		return nil, err
	}

	bundles := make([]*biz.Bundle, 0, len(catalog.Bundles))
	for _, b := range catalog.Bundles {
		bundles = append(bundles, &biz.Bundle{
			Name:        b.Name,
			Description: b.Description,
			Country:     countryCode,
			DataGB:      b.Data,
			Days:        b.Validity,
			Price:       b.Price,
			Currency:    b.Currency,
		})
	}
	return bundles, nil
}

// PlaceOrder tops up an existing eSIM with the named bundle.
func (c *TravelRoamClient) PlaceOrder(ctx context.Context, bundleName, iccid string) (*biz.ProviderOrder, error) {
	payload := map[string]string{
		"bundleName": bundleName,
		"orderType":  "COUNTRY",
		"iccid":      iccid,
	}

	var out travelroamOrderResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&out).
		Post("/processorders")
	if err != nil {
		return nil, c.classify(err, 0)
	}
	if resp.IsError() {
		return nil, c.classify(fmt.Errorf("process order status %d: %s", resp.StatusCode(), resp.String()), resp.StatusCode())
	}
	if out.OrderReference == "" {
		return nil, biz.NewUpstreamError(c.Name(), biz.UpstreamMalformed, fmt.Errorf("order response missing reference"))
	}

	c.log.Infof("travelroam order placed: bundle=%s, iccid=%s, reference=%s", bundleName, iccid, out.OrderReference)
	return &biz.ProviderOrder{
		OrderReference: out.OrderReference,
		Payload:        resp.String(),
	}, nil
}

// FetchOrderDetails reads the eSIM assignment created by a provider order.
func (c *TravelRoamClient) FetchOrderDetails(ctx context.Context, providerOrderID string) (*biz.EsimStatus, error) {
	var out struct {
		ICCID         string `json:"iccid"`
		MatchingID    string `json:"matchingId"`
		ProfileStatus string `json:"profileStatus"`
		SmdpAddress   string `json:"smdpAddress"`
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("orderReference", providerOrderID).
		SetResult(&out).
		Get("/getesimassignments")
	if err != nil {
		return nil, c.classify(err, 0)
	}
	if resp.IsError() {
		return nil, c.classify(fmt.Errorf("assignments status %d", resp.StatusCode()), resp.StatusCode())
	}
	if out.ICCID == "" {
		return nil, biz.NewUpstreamError(c.Name(), biz.UpstreamNotFound, fmt.Errorf("order %s has no assignment", providerOrderID))
	}
	return &biz.EsimStatus{
		ICCID:          out.ICCID,
		OrderSimID:     out.MatchingID,
		Provider:       c.Name(),
		Status:         mapTravelroamStatus(out.ProfileStatus),
		ActivationCode: out.SmdpAddress,
		LastUpdated:    time.Now(),
	}, nil
}

// post issues one JSON call with the shared headers and classifies failures.
func (c *TravelRoamClient) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(out).
		Post(path)
	if err != nil {
		return c.classify(err, 0)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return biz.NewUpstreamError(c.Name(), biz.UpstreamNotFound, fmt.Errorf("%s status 404", path))
	}
	if resp.IsError() {
		return c.classify(fmt.Errorf("%s status %d", path, resp.StatusCode()), resp.StatusCode())
	}
	return nil
}

// mergeTravelroamBundle folds the data assignment of the current bundle into
// the status record. Quantities arrive in bytes.
func mergeTravelroamBundle(status *biz.EsimStatus, bundle *travelroamAppliedBundle) {
	if status.PlanName == "" {
		if bundle.Description != "" {
			status.PlanName = bundle.Description
		} else {
			status.PlanName = bundle.Name
		}
	}
	for _, a := range bundle.Assignments {
		if !strings.EqualFold(a.CallTypeGroup, "data") || a.InitialQuantity <= 0 {
			continue
		}
		const gb = 1024 * 1024 * 1024
		initialGB := a.InitialQuantity / gb
		remainingGB := a.RemainingQuantity / gb
		status.DataCapacity = formatGB(initialGB)
		status.DataRemaining = formatGB(remainingGB)
		status.DataConsumed = formatGB(initialGB - remainingGB)

		if a.StartTime != "" && a.EndTime != "" {
			start, errS := time.Parse(time.RFC3339, a.StartTime)
			end, errE := time.Parse(time.RFC3339, a.EndTime)
			if errS == nil && errE == nil {
				status.Validity = strconv.Itoa(int(end.Sub(start).Hours()/24)) + " days"
				if time.Now().After(end) {
					status.Status = constants.EsimStatusExpired
				}
			}
		}
		break
	}
}

// formatGB renders a GB quantity for display.
func formatGB(gb float64) string {
	return strconv.FormatFloat(gb, 'f', 2, 64) + " GB"
}

// locationNetwork renders the serving network for display.
func locationNetwork(loc *travelroamLocation) string {
	name := loc.NetworkName
	if name == "" {
		name = loc.NetworkBrandName
	}
	if name == "" {
		return ""
	}
	if loc.Country != "" {
		return name + " (" + loc.Country + ")"
	}
	return name
}

// mapTravelroamStatus maps the eUICC profile state to the canonical set.
func mapTravelroamStatus(s string) string {
	switch strings.ToLower(s) {
	case "enabled", "installed", "active":
		return constants.EsimStatusActive
	case "disabled", "released", "downloaded", "inactive":
		return constants.EsimStatusInactive
	case "expired", "deleted":
		return constants.EsimStatusExpired
	case "":
		return constants.EsimStatusUnknown
	default:
		return constants.EsimStatusInactive
	}
}

func (c *TravelRoamClient) classify(err error, statusCode int) error {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return biz.NewUpstreamError(c.Name(), biz.UpstreamAuth, err)
	case statusCode > 0:
		return biz.NewUpstreamError(c.Name(), biz.UpstreamHTTP, err)
	case isTimeout(err):
		return biz.NewUpstreamError(c.Name(), biz.UpstreamTimeout, err)
	default:
		return biz.NewUpstreamError(c.Name(), biz.UpstreamHTTP, err)
	}
}

func (c *TravelRoamClient) observeFetch(start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	c.metrics.ProviderFetchDuration.WithLabelValues(c.Name()).Observe(time.Since(start).Seconds())
	result := constants.ResultSuccess
	switch {
	case biz.IsUpstreamNotFound(err):
		result = constants.ResultNotFound
	case err != nil:
		result = constants.ResultFailed
	}
	c.metrics.ProviderFetchTotal.WithLabelValues(c.Name(), result).Inc()
}
