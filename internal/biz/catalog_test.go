package biz

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRenewalProvider is a scriptable RenewalProviderClient.
type fakeRenewalProvider struct {
	name         string
	bundles      []*Bundle
	catalogErr   error
	catalogCalls int

	orderRef    string
	orderErr    error
	placedCalls int
	lastBundle  string
	lastICCID   string

	detailCalls int
	lastOrderID string
}

func (f *fakeRenewalProvider) Name() string {
	if f.name == "" {
		return "TRAVELROAM"
	}
	return f.name
}

func (f *fakeRenewalProvider) FetchStatus(ctx context.Context, iccid string) (*EsimStatus, error) {
	return &EsimStatus{ICCID: iccid, Provider: f.Name(), LastUpdated: time.Now()}, nil
}

func (f *fakeRenewalProvider) FetchCatalog(ctx context.Context, countryCode string) ([]*Bundle, error) {
	f.catalogCalls++
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	return f.bundles, nil
}

func (f *fakeRenewalProvider) PlaceOrder(ctx context.Context, bundleName, iccid string) (*ProviderOrder, error) {
	f.placedCalls++
	f.lastBundle = bundleName
	f.lastICCID = iccid
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	ref := f.orderRef
	if ref == "" {
		ref = "TR-REF-1"
	}
	return &ProviderOrder{OrderReference: ref, Payload: `{"orderReference":"` + ref + `"}`}, nil
}

func (f *fakeRenewalProvider) FetchOrderDetails(ctx context.Context, providerOrderID string) (*EsimStatus, error) {
	f.detailCalls++
	f.lastOrderID = providerOrderID
	return &EsimStatus{OrderSimID: providerOrderID, Provider: f.Name(), LastUpdated: time.Now()}, nil
}

// memoryCatalogCache is a map-backed CatalogCache.
type memoryCatalogCache struct {
	entries map[string][]*Bundle
}

func newMemoryCatalogCache() *memoryCatalogCache {
	return &memoryCatalogCache{entries: map[string][]*Bundle{}}
}

func (c *memoryCatalogCache) GetBundles(ctx context.Context, countryCode string) ([]*Bundle, error) {
	return c.entries[countryCode], nil
}

func (c *memoryCatalogCache) SetBundles(ctx context.Context, countryCode string, bundles []*Bundle, ttl time.Duration) error {
	c.entries[countryCode] = bundles
	return nil
}

func turkeyCatalog() []*Bundle {
	return []*Bundle{
		{Name: "esim_1GB_7D_TR_U", Description: "Turkey 1GB 7 Days", Country: "TR", DataGB: 1, Days: 7, Price: 4.5, Currency: "USD"},
		{Name: "esimp_1GB_7D_TR_V2", Description: "Turkey 1GB 7 Days V2", Country: "TR", DataGB: 1, Days: 7, Price: 4.9, Currency: "USD"},
		{Name: "esim_2GB_7D_TR_U", Description: "Turkey 2GB 7 Days", Country: "TR", DataGB: 2, Days: 7, Price: 6.5, Currency: "USD"},
		{Name: "esim_1GB_30D_TR_U", Description: "Turkey 1GB 30 Days", Country: "TR", DataGB: 1, Days: 30, Price: 9.0, Currency: "USD"},
	}
}

func TestMatchResolvesPlanDescription(t *testing.T) {
	provider := &fakeRenewalProvider{bundles: turkeyCatalog()}
	uc := NewCatalogUseCase(provider, nil, testStatusConfig(), testLogger())

	bundle, err := uc.Match(context.Background(), "eSIM, 1GB, 7 Days, Turkey, V2", "TR")
	require.NoError(t, err)
	assert.Equal(t, "esimp_1GB_7D_TR_V2", bundle.Name)
}

func TestMatchHardFiltersOnDataAndDays(t *testing.T) {
	provider := &fakeRenewalProvider{bundles: turkeyCatalog()}
	uc := NewCatalogUseCase(provider, nil, testStatusConfig(), testLogger())

	bundle, err := uc.Match(context.Background(), "Turkey 2GB 7 Days", "TR")
	require.NoError(t, err)
	assert.Equal(t, "esim_2GB_7D_TR_U", bundle.Name)

	bundle, err = uc.Match(context.Background(), "Turkey 1GB 30 Days", "TR")
	require.NoError(t, err)
	assert.Equal(t, "esim_1GB_30D_TR_U", bundle.Name)
}

func TestMatchNoSurvivorFails(t *testing.T) {
	provider := &fakeRenewalProvider{bundles: turkeyCatalog()}
	uc := NewCatalogUseCase(provider, nil, testStatusConfig(), testLogger())

	// A near-miss on size must not be bridged by similarity.
	_, err := uc.Match(context.Background(), "Turkey 5GB 7 Days", "TR")
	assert.Error(t, err)
}

func TestMatchRejectsUnparseablePlan(t *testing.T) {
	provider := &fakeRenewalProvider{bundles: turkeyCatalog()}
	uc := NewCatalogUseCase(provider, nil, testStatusConfig(), testLogger())

	_, err := uc.Match(context.Background(), "my turkey plan", "TR")
	assert.Error(t, err)
	assert.Zero(t, provider.catalogCalls, "an unparseable plan must not hit the catalog")
}

func TestMatchIsDeterministic(t *testing.T) {
	provider := &fakeRenewalProvider{bundles: turkeyCatalog()}
	uc := NewCatalogUseCase(provider, nil, testStatusConfig(), testLogger())

	first, err := uc.Match(context.Background(), "eSIM, 1GB, 7 Days, Turkey", "TR")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := uc.Match(context.Background(), "eSIM, 1GB, 7 Days, Turkey", "TR")
		require.NoError(t, err)
		assert.Equal(t, first.Name, again.Name)
	}
}

func TestListBundlesUsesCache(t *testing.T) {
	provider := &fakeRenewalProvider{bundles: turkeyCatalog()}
	cache := newMemoryCatalogCache()
	uc := NewCatalogUseCase(provider, cache, testStatusConfig(), testLogger())

	_, err := uc.ListBundles(context.Background(), "TR")
	require.NoError(t, err)
	_, err = uc.ListBundles(context.Background(), "TR")
	require.NoError(t, err)

	assert.Equal(t, 1, provider.catalogCalls, "second listing should be served from cache")
}

func TestListBundlesCacheErrorDegradesToUpstream(t *testing.T) {
	provider := &fakeRenewalProvider{bundles: turkeyCatalog()}
	uc := NewCatalogUseCase(provider, failingCache{}, testStatusConfig(), testLogger())

	bundles, err := uc.ListBundles(context.Background(), "TR")
	require.NoError(t, err)
	assert.Len(t, bundles, len(turkeyCatalog()))
}

type failingCache struct{}

func (failingCache) GetBundles(ctx context.Context, countryCode string) ([]*Bundle, error) {
	return nil, context.DeadlineExceeded
}

func (failingCache) SetBundles(ctx context.Context, countryCode string, bundles []*Bundle, ttl time.Duration) error {
	return context.DeadlineExceeded
}

func TestParsePlanSpec(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		dataGB float64
		days   int
	}{
		{"display form", "eSIM, 1GB, 7 Days, Turkey, V2", 1, 7},
		{"bundle code form", "esim 1GB 7D TR U", 1, 7},
		{"fractional size", "Global 0.5GB 3 Days", 0.5, 3},
		{"no tokens", "Turkey unlimited", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := parsePlanSpec(tt.input)
			assert.Equal(t, tt.dataGB, spec.DataGB)
			assert.Equal(t, tt.days, spec.Days)
		})
	}
}
