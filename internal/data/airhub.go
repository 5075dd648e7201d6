package data

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
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

// AirHubClient is the AirHub partner API adapter. AirHub has no per-ICCID
// lookup: a status check logs in, pulls the recent order list and scans it
// for the ICCID.
type AirHubClient struct {
	http     *resty.Client
	username string
	password string
	log      *log.Helper
	metrics  *metrics.EsimMetrics
}

// NewAirHubClient creates the AirHub adapter
func NewAirHubClient(c *conf.Bootstrap, logger log.Logger) (*AirHubClient, error) {
	if c.Providers == nil || c.Providers.Airhub == nil {
		return nil, pkgErrors.NewBizErrorWithLang(context.Background(), esimErrors.ErrCodeProviderConfigNil)
	}
	cfg := c.Providers.Airhub

	timeout := cfg.Timeout.AsDuration()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := resty.New().
		SetBaseURL(cfg.BaseUrl).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &AirHubClient{
		http:     httpClient,
		username: cfg.Username,
		password: cfg.Password,
		log:      log.NewHelper(logger),
		metrics:  metrics.GetMetrics(),
	}, nil
}

// Name returns the provider tag
func (c *AirHubClient) Name() string {
	return constants.ProviderAirHub
}

type airhubLoginResponse struct {
	IsSuccess bool   `json:"isSuccess"`
	Message   string `json:"message"`
	Token     string `json:"token"`
	Data      struct {
		PartnerCode string `json:"partnerCode"`
	} `json:"data"`
}

type airhubOrder struct {
	OrderID       json.Number `json:"orderId"`
	SimID         string      `json:"simID"`
	ICCID         string      `json:"iccid"`
	PlanName      string      `json:"planName"`
	IsActive      bool        `json:"isActive"`
	PurchaseDate  string      `json:"purchaseDate"`
	Validity      json.Number `json:"vaildity"` // upstream field name is misspelled
	Capacity      json.Number `json:"capacity"`
	CapacityUnit  string      `json:"capacityUnit"`
	DataConsumed  string      `json:"dataConsumed"`
	DataRemaining string      `json:"dataRemaining"`
}

type airhubOrderListResponse struct {
	Orders []airhubOrder `json:"getOrderdetails"`
}

type airhubActivation struct {
	ActivationCode string `json:"activationCode"`
	APN            string `json:"apn"`
	ICCID          string `json:"iccid"`
}

// login authenticates and returns the bearer token and partner code.
func (c *AirHubClient) login(ctx context.Context) (token, partnerCode string, err error) {
	var out airhubLoginResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"userName": c.username, "password": c.password}).
		SetResult(&out).
		Post("/api/Authentication/UserLogin")
	if err != nil {
		return "", "", c.classify(err, 0)
	}
	if resp.IsError() {
		return "", "", c.classify(fmt.Errorf("login status %d", resp.StatusCode()), resp.StatusCode())
	}
	if !out.IsSuccess || out.Token == "" {
		msg := out.Message
		if msg == "" {
			msg = "no token received"
		}
		return "", "", biz.NewUpstreamError(c.Name(), biz.UpstreamAuth, fmt.Errorf("login failed: %s", msg))
	}
	if out.Data.PartnerCode == "" {
		return "", "", biz.NewUpstreamError(c.Name(), biz.UpstreamAuth, fmt.Errorf("no partner code received"))
	}
	return out.Token, out.Data.PartnerCode, nil
}

// FetchStatus finds the ICCID in the recent order list and merges in the
// activation details for its order.
func (c *AirHubClient) FetchStatus(ctx context.Context, iccid string) (*biz.EsimStatus, error) {
	fetchStart := time.Now()
	status, err := c.fetchStatus(ctx, iccid)
	c.observeFetch(fetchStart, err)
	return status, err
}

func (c *AirHubClient) fetchStatus(ctx context.Context, iccid string) (*biz.EsimStatus, error) {
	token, partnerCode, err := c.login(ctx)
	if err != nil {
		return nil, err
	}

	var out airhubOrderListResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(map[string]string{
			"partnerCode": partnerCode,
			"flag":        "1",
			"fromDate":    "",
			"toDate":      "",
		}).
		SetResult(&out).
		Post("/api/ESIM/GetOrderDetail")
	if err != nil {
		return nil, c.classify(err, 0)
	}
	if resp.IsError() {
		return nil, c.classify(fmt.Errorf("order fetch status %d", resp.StatusCode()), resp.StatusCode())
	}

	order := findAirhubOrder(out.Orders, iccid)
	if order == nil {
		return nil, biz.NewUpstreamError(c.Name(), biz.UpstreamNotFound, fmt.Errorf("iccid %s not in order list", iccid))
	}

	activation := c.fetchActivation(ctx, token, partnerCode, order.OrderID.String())

	status := &biz.EsimStatus{
		ICCID:         iccid,
		OrderSimID:    order.OrderID.String(),
		Provider:      c.Name(),
		PlanName:      order.PlanName,
		Status:        constants.EsimStatusInactive,
		PurchaseDate:  order.PurchaseDate,
		DataConsumed:  order.DataConsumed,
		DataRemaining: order.DataRemaining,
		LastUpdated:   time.Now(),
	}
	if order.IsActive {
		status.Status = constants.EsimStatusActive
	}
	if order.Validity.String() != "" {
		status.Validity = order.Validity.String() + " days"
	}
	if order.Capacity.String() != "" {
		unit := order.CapacityUnit
		if unit == "" {
			unit = "GB"
		}
		status.DataCapacity = order.Capacity.String() + " " + unit
	}
	if activation != nil {
		status.ActivationCode = activation.ActivationCode
		status.APN = activation.APN
	}
	return status, nil
}

// fetchActivation pulls the activation record for one order. Activation data
// is supplementary; failures degrade to a status without code/APN.
func (c *AirHubClient) fetchActivation(ctx context.Context, token, partnerCode, orderID string) *airhubActivation {
	var raw map[string]json.RawMessage
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(map[string]interface{}{
			"partnerCode": partnerCode,
			"orderid":     []string{orderID},
		}).
		SetResult(&raw).
		Post("/api/ESIM/GetActivationCode")
	if err != nil {
		c.log.Warnf("airhub activation fetch failed: order_id=%s, error=%v", orderID, err)
		return nil
	}
	if resp.IsError() {
		c.log.Warnf("airhub activation fetch failed: order_id=%s, status=%d", orderID, resp.StatusCode())
		return nil
	}
	entry, ok := raw[orderID]
	if !ok {
		return nil
	}
	var activation airhubActivation
	if err := json.Unmarshal(entry, &activation); err != nil {
		return nil
	}
	return &activation
}

// findAirhubOrder scans the order list for a normalized ICCID match.
func findAirhubOrder(orders []airhubOrder, iccid string) *airhubOrder {
	want := normalizeICCID(iccid)
	if want == "" {
		return nil
	}
	for i := range orders {
		got := orders[i].SimID
		if got == "" {
			got = orders[i].ICCID
		}
		got = normalizeICCID(got)
		if got == "" {
			continue
		}
		if got == want || strings.Contains(got, want) {
			return &orders[i]
		}
	}
	return nil
}

// normalizeICCID strips separators so upstream formatting differences do not
// break the match.
func normalizeICCID(iccid string) string {
	iccid = strings.TrimSpace(iccid)
	iccid = strings.ReplaceAll(iccid, " ", "")
	iccid = strings.ReplaceAll(iccid, "-", "")
	return strings.ToLower(iccid)
}

func (c *AirHubClient) classify(err error, statusCode int) error {
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

func (c *AirHubClient) observeFetch(start time.Time, err error) {
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
