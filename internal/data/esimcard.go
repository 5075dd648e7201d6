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

// EsimCardClient is the eSIMCard reseller API adapter. Unlike AirHub it has
// a direct by-ICCID lookup, so a status check is login plus one request.
type EsimCardClient struct {
	http     *resty.Client
	email    string
	password string
	log      *log.Helper
	metrics  *metrics.EsimMetrics
}

// NewEsimCardClient creates the eSIMCard adapter
func NewEsimCardClient(c *conf.Bootstrap, logger log.Logger) (*EsimCardClient, error) {
	if c.Providers == nil || c.Providers.Esimcard == nil {
		return nil, pkgErrors.NewBizErrorWithLang(context.Background(), esimErrors.ErrCodeProviderConfigNil)
	}
	cfg := c.Providers.Esimcard

	timeout := cfg.Timeout.AsDuration()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(cfg.BaseUrl).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &EsimCardClient{
		http:     httpClient,
		email:    cfg.Email,
		password: cfg.Password,
		log:      log.NewHelper(logger),
		metrics:  metrics.GetMetrics(),
	}, nil
}

// Name returns the provider tag
func (c *EsimCardClient) Name() string {
	return constants.ProviderEsimCard
}

type esimcardLoginResponse struct {
	Status      bool   `json:"status"`
	Message     string `json:"message"`
	AccessToken string `json:"access_token"`
}

type esimcardPackage struct {
	Name                string  `json:"name"`
	InitialDataQuantity float64 `json:"initial_data_quantity"`
	InitialDataUnit     string  `json:"initial_data_unit"`
	RemDataQuantity     float64 `json:"rem_data_quantity"`
	RemDataUnit         string  `json:"rem_data_unit"`
	ExpireAt            string  `json:"expired_at"`
}

type esimcardSim struct {
	ID             int64  `json:"id"`
	ICCID          string `json:"iccid"`
	LastBundle     string `json:"last_bundle"`
	Status         string `json:"status"`
	CreatedAt      string `json:"created_at"`
	QrCodeText     string `json:"qr_code_text"`
	ActivationCode string `json:"activation_code"`
	APN            string `json:"apn"`
}

type esimcardLookupResponse struct {
	Status bool `json:"status"`
	Data   struct {
		Sim           esimcardSim       `json:"sim"`
		InUsePackages []esimcardPackage `json:"in_use_packages"`
		OverallUsage  esimcardPackage   `json:"overall_usage"`
	} `json:"data"`
}

// login authenticates and returns the bearer token.
func (c *EsimCardClient) login(ctx context.Context) (string, error) {
	var out esimcardLoginResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": c.email, "password": c.password}).
		SetResult(&out).
		Post("/login")
	if err != nil {
		return "", c.classify(err, 0)
	}
	if resp.IsError() {
		return "", c.classify(fmt.Errorf("login status %d", resp.StatusCode()), resp.StatusCode())
	}
	if !out.Status || out.AccessToken == "" {
		msg := out.Message
		if msg == "" {
			msg = "no token received"
		}
		return "", biz.NewUpstreamError(c.Name(), biz.UpstreamAuth, fmt.Errorf("login failed: %s", msg))
	}
	return out.AccessToken, nil
}

// FetchStatus resolves the ICCID via the direct lookup endpoint.
func (c *EsimCardClient) FetchStatus(ctx context.Context, iccid string) (*biz.EsimStatus, error) {
	fetchStart := time.Now()
	status, err := c.fetchStatus(ctx, iccid)
	c.observeFetch(fetchStart, err)
	return status, err
}

func (c *EsimCardClient) fetchStatus(ctx context.Context, iccid string) (*biz.EsimStatus, error) {
	token, err := c.login(ctx)
	if err != nil {
		return nil, err
	}

	var out esimcardLookupResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&out).
		Get("/my-esim/iccid/" + iccid)
	if err != nil {
		return nil, c.classify(err, 0)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, biz.NewUpstreamError(c.Name(), biz.UpstreamNotFound, fmt.Errorf("iccid %s unknown", iccid))
	}
	if resp.IsError() {
		return nil, c.classify(fmt.Errorf("lookup status %d", resp.StatusCode()), resp.StatusCode())
	}
	if !out.Status || out.Data.Sim.ICCID == "" {
		return nil, biz.NewUpstreamError(c.Name(), biz.UpstreamNotFound, fmt.Errorf("iccid %s unknown", iccid))
	}

	sim := out.Data.Sim
	status := &biz.EsimStatus{
		ICCID:        sim.ICCID,
		OrderSimID:   strconv.FormatInt(sim.ID, 10),
		Provider:     c.Name(),
		PlanName:     sim.LastBundle,
		Status:       mapEsimcardStatus(sim.Status),
		PurchaseDate: sim.CreatedAt,
		APN:          sim.APN,
		LastUpdated:  time.Now(),
	}
	status.ActivationCode = sim.QrCodeText
	if status.ActivationCode == "" {
		status.ActivationCode = sim.ActivationCode
	}

	if len(out.Data.InUsePackages) > 0 {
		pkg := out.Data.InUsePackages[0]
		status.DataCapacity = formatQuantity(pkg.InitialDataQuantity, pkg.InitialDataUnit)
		status.DataRemaining = formatQuantity(pkg.RemDataQuantity, pkg.RemDataUnit)
		status.DataConsumed = formatQuantity(pkg.InitialDataQuantity-pkg.RemDataQuantity, pkg.RemDataUnit)
		if pkg.ExpireAt != "" {
			status.Validity = pkg.ExpireAt
		}
	} else if out.Data.OverallUsage.InitialDataQuantity > 0 {
		usage := out.Data.OverallUsage
		status.DataCapacity = formatQuantity(usage.InitialDataQuantity, usage.InitialDataUnit)
		status.DataRemaining = formatQuantity(usage.RemDataQuantity, usage.RemDataUnit)
		status.DataConsumed = formatQuantity(usage.InitialDataQuantity-usage.RemDataQuantity, usage.RemDataUnit)
	}
	return status, nil
}

// mapEsimcardStatus maps the upstream status word to the canonical set.
func mapEsimcardStatus(s string) string {
	switch {
	case strings.Contains(strings.ToLower(s), "activ"):
		return constants.EsimStatusActive
	case strings.Contains(strings.ToLower(s), "expir"):
		return constants.EsimStatusExpired
	case s == "":
		return constants.EsimStatusUnknown
	default:
		return constants.EsimStatusInactive
	}
}

// formatQuantity renders an upstream data quantity with its unit for display.
func formatQuantity(quantity float64, unit string) string {
	if unit == "" {
		unit = "GB"
	}
	return strconv.FormatFloat(quantity, 'f', -1, 64) + " " + unit
}

func (c *EsimCardClient) classify(err error, statusCode int) error {
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

func (c *EsimCardClient) observeFetch(start time.Time, err error) {
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
