package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"voip-router/internal/config"
	"voip-router/internal/trunkhealth"
)

type Deps struct {
	XML     Lookuper
	Trunks  trunkhealth.TxStarter
	Checks  map[string]Pinger
	Limiter *IPRateLimiter
}

func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoverMiddleware)

	r.Get("/health", HealthHandler(deps.Checks))
	r.Get("/version", VersionHandler())

	// mod_xml_curl may use either method depending on the binding.
	xml := XMLCurlHandler(deps.XML, cfg.ResponseDeadline)
	r.With(XMLCurlBasicAuth(cfg.XMLCurlUser, cfg.XMLCurlPass)).Get("/fs/xml", xml)
	r.With(XMLCurlBasicAuth(cfg.XMLCurlUser, cfg.XMLCurlPass)).Post("/fs/xml", xml)

	r.With(RateLimit(deps.Limiter), TokenAuth(cfg.HealthAuthToken)).
		Post("/fs/trunk-health", TrunkHealthHandler(deps.Trunks))

	r.Route("/api", func(api chi.Router) {
		api.Use(RateLimit(deps.Limiter), TokenAuth(cfg.HealthAuthToken))
		api.Post("/ivr-menus/validate", IvrValidateHandler())
	})

	return r
}
