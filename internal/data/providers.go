package data

import (
	"errors"
	"net"

	"esim-service/internal/biz"
)

// NewProviderClients assembles the status-check provider set. Order here is
// the tie-break order when several providers report the same freshness.
func NewProviderClients(airhub *AirHubClient, esimcard *EsimCardClient, travelroam biz.RenewalProviderClient) []biz.ProviderClient {
	return []biz.ProviderClient{airhub, esimcard, travelroam}
}

// isTimeout reports whether err is a network timeout.
func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
