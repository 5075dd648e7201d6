package biz

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"esim-service/internal/constants"
	esimErrors "esim-service/internal/errors"
	"esim-service/internal/metrics"

	"github.com/agnivade/levenshtein"
	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// CatalogCache is the injected cache collaborator for per-country catalogs.
// A nil cache or a cache error is just the slower path, never a failure.
type CatalogCache interface {
	GetBundles(ctx context.Context, countryCode string) ([]*Bundle, error)
	SetBundles(ctx context.Context, countryCode string, bundles []*Bundle, ttl time.Duration) error
}

// CatalogUseCase fetches the renewal provider's bundle catalog and matches a
// free-text plan description against it.
type CatalogUseCase struct {
	provider RenewalProviderClient
	cache    CatalogCache
	conf     *EsimConfig
	log      *log.Helper
	metrics  *metrics.EsimMetrics
}

// NewCatalogUseCase creates the catalog UseCase
func NewCatalogUseCase(provider RenewalProviderClient, cache CatalogCache, conf *EsimConfig, logger log.Logger) *CatalogUseCase {
	return &CatalogUseCase{
		provider: provider,
		cache:    cache,
		conf:     conf,
		log:      log.NewHelper(logger),
		metrics:  metrics.GetMetrics(),
	}
}

// ListBundles returns the catalog for a country, cache-aside.
func (uc *CatalogUseCase) ListBundles(ctx context.Context, countryCode string) ([]*Bundle, error) {
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))

	if uc.cache != nil {
		bundles, err := uc.cache.GetBundles(ctx, countryCode)
		if err != nil {
			uc.log.Warnf("catalog cache get failed: country=%s, error=%v", countryCode, err)
		} else if bundles != nil {
			if uc.metrics != nil {
				uc.metrics.CatalogFetchTotal.WithLabelValues("cache").Inc()
			}
			return bundles, nil
		}
	}

	fetchStart := time.Now()
	bundles, err := uc.provider.FetchCatalog(ctx, countryCode)
	if uc.metrics != nil {
		uc.metrics.CatalogFetchDuration.Observe(time.Since(fetchStart).Seconds())
	}
	if err != nil {
		uc.log.Errorf("FetchCatalog failed: country=%s, error=%v", countryCode, err)
		return nil, pkgErrors.WrapErrorWithLang(ctx, err, esimErrors.ErrCodeCatalogFetchFailed)
	}
	if uc.metrics != nil {
		uc.metrics.CatalogFetchTotal.WithLabelValues("upstream").Inc()
	}

	if uc.cache != nil {
		if err := uc.cache.SetBundles(ctx, countryCode, bundles, uc.conf.CatalogCacheTTL); err != nil {
			uc.log.Warnf("catalog cache set failed: country=%s, error=%v", countryCode, err)
		}
	}
	return bundles, nil
}

// Match resolves a free-text plan description ("eSIM, 1GB, 7 Days, Turkey, V2")
// to a purchasable bundle for the country. Data size and validity days are
// hard filters; the remaining descriptive tokens break ties by string
// similarity, and similarity ties keep catalog order, so repeated calls over
// the same catalog are deterministic. No survivor means no match, which the
// orchestrator treats as a terminal, non-retryable failure.
func (uc *CatalogUseCase) Match(ctx context.Context, planDescription, countryCode string) (*Bundle, error) {
	want := parsePlanSpec(planDescription)
	if want.DataGB <= 0 || want.Days <= 0 {
		uc.log.Warnf("plan description carries no data/validity tokens: %q", planDescription)
		if uc.metrics != nil {
			uc.metrics.BundleMatchTotal.WithLabelValues(constants.ResultFailed).Inc()
		}
		return nil, pkgErrors.NewBizErrorWithLang(ctx, esimErrors.ErrCodePlanDescriptionInvalid)
	}

	bundles, err := uc.ListBundles(ctx, countryCode)
	if err != nil {
		return nil, err
	}

	var best *Bundle
	bestScore := -1.0
	for _, b := range bundles {
		got := bundleSpec(b)
		if got.DataGB != want.DataGB || got.Days != want.Days {
			continue
		}
		score := tokenSimilarity(want.Tokens, got.Tokens)
		// Strictly greater keeps the first catalog entry on ties.
		if score > bestScore {
			best = b
			bestScore = score
		}
	}

	if best == nil {
		uc.log.Warnf("no matching bundle: plan=%q, country=%s, want=%.2fGB/%dd, catalog=%d entries",
			planDescription, countryCode, want.DataGB, want.Days, len(bundles))
		if uc.metrics != nil {
			uc.metrics.BundleMatchTotal.WithLabelValues(constants.ResultFailed).Inc()
		}
		return nil, pkgErrors.NewBizErrorWithLang(ctx, esimErrors.ErrCodeNoMatchingBundle)
	}

	uc.log.Infof("matched bundle: plan=%q -> %s (%s), score=%.3f", planDescription, best.Name, best.Description, bestScore)
	if uc.metrics != nil {
		uc.metrics.BundleMatchTotal.WithLabelValues(constants.ResultSuccess).Inc()
	}
	return best, nil
}

var (
	dataSizeRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*gb`)
	daysRe     = regexp.MustCompile(`(?i)(\d+)\s*d(?:ays?)?\b`)
	punctRe    = regexp.MustCompile(`[^a-z0-9.]+`)
)

// planSpec is one side of a match: the numeric hard-filter values plus the
// residual descriptive tokens (country names, version suffixes).
type planSpec struct {
	DataGB float64
	Days   int
	Tokens []string
}

// parsePlanSpec normalizes a plan description or bundle display name:
// case-fold, strip punctuation, pull out the data-size and validity tokens.
func parsePlanSpec(s string) planSpec {
	var spec planSpec
	lower := strings.ToLower(s)

	if m := dataSizeRe.FindStringSubmatch(lower); m != nil {
		spec.DataGB, _ = strconv.ParseFloat(m[1], 64)
	}
	if m := daysRe.FindStringSubmatch(lower); m != nil {
		spec.Days, _ = strconv.Atoi(m[1])
	}

	stripped := dataSizeRe.ReplaceAllString(lower, " ")
	stripped = daysRe.ReplaceAllString(stripped, " ")
	for _, tok := range strings.Fields(punctRe.ReplaceAllString(stripped, " ")) {
		switch tok {
		case "esim", "esimp", "day", "days", "gb":
			continue
		}
		spec.Tokens = append(spec.Tokens, tok)
	}
	return spec
}

// bundleSpec parses a catalog entry, preferring the structured fields and
// falling back to the display name and the bundle code ("esim_1GB_7D_TR_U").
func bundleSpec(b *Bundle) planSpec {
	spec := parsePlanSpec(b.Description)
	if b.DataGB > 0 {
		spec.DataGB = b.DataGB
	}
	if b.Days > 0 {
		spec.Days = b.Days
	}
	if spec.DataGB <= 0 || spec.Days <= 0 {
		fromName := parsePlanSpec(strings.ReplaceAll(b.Name, "_", " "))
		if spec.DataGB <= 0 {
			spec.DataGB = fromName.DataGB
		}
		if spec.Days <= 0 {
			spec.Days = fromName.Days
		}
	}
	return spec
}

// tokenSimilarity scores the residual descriptive tokens of both sides as a
// normalized levenshtein ratio in [0,1].
func tokenSimilarity(a, b []string) float64 {
	sa := strings.Join(a, " ")
	sb := strings.Join(b, " ")
	if sa == "" && sb == "" {
		return 1.0
	}
	maxLen := len(sa)
	if len(sb) > maxLen {
		maxLen = len(sb)
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(sa, sb)
	return 1.0 - float64(dist)/float64(maxLen)
}
