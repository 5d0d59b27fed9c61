package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Mexidense/ppd/internal/service"
)

// Dependencies are the collaborators the HTTP layer is wired with.
type Dependencies struct {
	DB        *sql.DB
	Documents service.DocumentService
	Purchases service.PurchaseService
	Access    service.AccessService

	// IdentityKey is the server's compressed public key hex served by /wallet-info.
	IdentityKey string
	Network     string
	// PublicBaseURL prefixes pay links. Empty means derive it from the request.
	PublicBaseURL string

	// Gatherer backs /metrics; the route is skipped when nil.
	Gatherer prometheus.Gatherer
	// PurchaseLimit guards the purchase endpoint; nil disables it.
	PurchaseLimit fiber.Handler
}

// Metrics serves the Prometheus exposition format for g.
func Metrics(g prometheus.Gatherer) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Dependencies) {
	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())
	if d.Gatherer != nil {
		app.Get("/metrics", Metrics(d.Gatherer))
	}

	app.Get("/wallet-info", WalletInfo(d.IdentityKey, d.Network))

	app.Get("/documents", ListDocuments(d.Documents))
	app.Post("/documents", UploadDocument(d.Documents))
	app.Get("/documents/link/:hash", ResolveLink(d.Access))
	app.Get("/documents/:id", GetDocument(d.Documents))
	app.Patch("/documents/:id/cost", UpdateCost(d.Documents))
	app.Delete("/documents/:id", DeleteDocument(d.Documents))

	purchase := []fiber.Handler{Purchase(d.Purchases)}
	if d.PurchaseLimit != nil {
		purchase = append([]fiber.Handler{d.PurchaseLimit}, purchase...)
	}
	app.Post("/documents/:id/purchase", purchase...)
	app.Get("/documents/:id/view", ViewDocument(d.Access))
	app.Post("/documents/:id/payment-link", PaymentLink(d.Access, d.PublicBaseURL))
	app.Get("/pay/:hash", ResolveLink(d.Access))

	app.Get("/purchases/buyer/:address", BuyerPurchases(d.Purchases))
}
