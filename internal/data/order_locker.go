package data

import (
	"context"
	"time"

	"esim-service/internal/biz"
	"esim-service/internal/constants"
	esimErrors "esim-service/internal/errors"
	"esim-service/internal/metrics"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"
)

// orderLockExpiry bounds how long a crashed confirm can hold an order lock.
const orderLockExpiry = 30 * time.Second

// orderLocker serializes confirm-payment work per order with a Redis mutex.
type orderLocker struct {
	sync    *redsync.Redsync
	log     *log.Helper
	metrics *metrics.EsimMetrics
}

// NewOrderLocker creates the per-order lock (returns the biz.OrderLocker interface)
func NewOrderLocker(sync *redsync.Redsync, logger log.Logger) biz.OrderLocker {
	return &orderLocker{
		sync:    sync,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// WithOrderLock runs fn while holding the mutex for orderID. Lock keys are
// derived from the order id only, so distinct orders never contend.
func (l *orderLocker) WithOrderLock(ctx context.Context, orderID string, fn func() error) error {
	lockKey := constants.RedisKeyRenewLock + orderID
	mutex := l.sync.NewMutex(lockKey, redsync.WithExpiry(orderLockExpiry))

	lockStart := time.Now()
	if err := mutex.LockContext(ctx); err != nil {
		if l.metrics != nil {
			l.metrics.LockAcquireTotal.WithLabelValues(constants.ResultFailed).Inc()
			l.metrics.LockAcquireDuration.Observe(time.Since(lockStart).Seconds())
		}
		l.log.Errorf("order lock acquire failed: key=%s, error=%v", lockKey, err)
		return pkgErrors.NewBizErrorWithLang(ctx, esimErrors.ErrCodeRenewLockFailed)
	}
	if l.metrics != nil {
		l.metrics.LockAcquireTotal.WithLabelValues(constants.ResultSuccess).Inc()
		l.metrics.LockAcquireDuration.Observe(time.Since(lockStart).Seconds())
	}
	defer func() {
		if ok, err := mutex.Unlock(); !ok || err != nil {
			l.log.Warnf("order lock release failed: key=%s, error=%v", lockKey, err)
		}
	}()

	return fn()
}
