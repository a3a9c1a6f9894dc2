package eckey

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var keysLoaded = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "jose_eckey_keys_loaded",
	Help: "Number of EC key construction attempts",
}, []string{"backend", "status"})

var signatures = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "jose_eckey_signatures",
	Help: "Number of EC signing attempts",
}, []string{"backend", "alg", "status"})

var verifications = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "jose_eckey_verifications",
	Help: "Number of EC signature verifications",
}, []string{"backend", "alg", "result"})
