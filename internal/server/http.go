package server

import (
	"esim-service/internal/conf"
	"esim-service/internal/service"

	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHTTPServer creates the HTTP server
func NewHTTPServer(c *conf.Bootstrap, esimService *service.EsimService) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if c.Server != nil && c.Server.Http != nil {
		if c.Server.Http.Network != "" {
			opts = append(opts, http.Network(c.Server.Http.Network))
		}
		if c.Server.Http.Addr != "" {
			opts = append(opts, http.Address(c.Server.Http.Addr))
		}
		if d := c.Server.Http.Timeout.AsDuration(); d > 0 {
			opts = append(opts, http.Timeout(d))
		}
	}
	srv := http.NewServer(opts...)

	registerRoutes(srv, esimService)
	srv.Handle("/metrics", promhttp.Handler())
	return srv
}

func registerRoutes(srv *http.Server, s *service.EsimService) {
	r := srv.Route("/v1")

	r.GET("/esims/{iccid}", func(ctx http.Context) error {
		reply, err := s.GetEsimStatus(ctx, ctx.Vars().Get("iccid"))
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.GET("/packages", func(ctx http.Context) error {
		reply, err := s.ListPackages(ctx, ctx.Query().Get("country"))
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.POST("/renewals", func(ctx http.Context) error {
		var req service.CreateRenewalRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := s.CreateRenewal(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.POST("/renewals/confirm", func(ctx http.Context) error {
		var req service.ConfirmPaymentRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := s.ConfirmPayment(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.POST("/renewals/{order_id}/cancel", func(ctx http.Context) error {
		reply, err := s.CancelOrder(ctx, ctx.Vars().Get("order_id"))
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.GET("/renewals/{order_id}", func(ctx http.Context) error {
		reply, err := s.GetOrder(ctx, ctx.Vars().Get("order_id"))
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})
}
