package handler

import (
	"mime"
	"net/url"
	"path"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Mexidense/ppd/internal/model"
	"github.com/Mexidense/ppd/internal/payment"
	"github.com/Mexidense/ppd/internal/service"
)

// contentCacheControl keeps purchased bytes out of shared caches.
const contentCacheControl = "private, max-age=3600"

// Purchase godoc
// @Summary Purchase a document
// @Description Without X-BSV-Payment the response is 402 with a derivation prefix.
// @Description With a valid payment the purchase is recorded once per transaction id.
// @Tags purchases
// @Param id path string true "document id"
// @Param X-BSV-Payment header string false "payment JSON"
// @Success 200 {object} service.PurchaseReceipt
// @Failure 402 {object} challengePayload
// @Failure 409 {object} duplicatePayload
// @Router /documents/{id}/purchase [post]
func Purchase(purchaseSvc service.PurchaseService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		receipt, err := purchaseSvc.Purchase(c.UserContext(), id, fiberRequest{c: c})
		if err != nil {
			return writeServiceError(c, err)
		}
		c.Set(payment.HeaderSatoshisPaid, strconv.FormatInt(receipt.AmountPaid, 10))
		return c.JSON(receipt)
	}
}

// ViewDocument godoc
// @Summary Release document content to its owner or a buyer
// @Tags purchases
// @Param id path string true "document id"
// @Param buyer query string true "requester identity key"
// @Param delivery query string false "stream (default) or url"
// @Success 200 {object} service.ContentURL
// @Router /documents/{id}/view [get]
func ViewDocument(accessSvc service.AccessService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		buyer := c.Query("buyer")

		if c.Query("delivery") == "url" {
			u, err := accessSvc.ContentURL(c.UserContext(), id, buyer)
			if err != nil {
				return writeServiceError(c, err)
			}
			return c.JSON(u)
		}

		content, err := accessSvc.OpenContent(c.UserContext(), id, buyer)
		if err != nil {
			return writeServiceError(c, err)
		}

		ct := content.Info.ContentType
		if ct == "" {
			ct = content.Document.MimeType
		}
		if ct == "" {
			ct = fiber.MIMEOctetStream
		}
		size := content.Info.Size
		if size <= 0 {
			size = content.Document.Size
		}
		if size <= 0 {
			size = -1
		}

		c.Set(fiber.HeaderContentType, ct)
		c.Set(fiber.HeaderContentDisposition, disposition(content.Document))
		c.Set(fiber.HeaderCacheControl, contentCacheControl)
		// the response writer closes the body once it has been sent
		return c.SendStream(content.Body, int(size))
	}
}

func disposition(doc *model.Document) string {
	name := doc.Title + path.Ext(doc.StoragePath)
	if v := mime.FormatMediaType("inline", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "inline"
}

// PaymentLink godoc
// @Summary Build the shareable pay link of a document
// @Tags purchases
// @Param id path string true "document id"
// @Success 200 {object} service.PaymentLink
// @Router /documents/{id}/payment-link [post]
func PaymentLink(accessSvc service.AccessService, publicBaseURL string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		link, err := accessSvc.PaymentLink(c.UserContext(), id, baseURL(c, publicBaseURL))
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(link)
	}
}

type nextStep struct {
	Method string `json:"method"`
	Href   string `json:"href"`
}

type payLinkResponse struct {
	Document *model.Document `json:"document"`
	Granted  bool            `json:"granted"`
	Reason   string          `json:"reason"`
	Next     nextStep        `json:"next"`
}

// ResolveLink godoc
// @Summary Resolve a pay link
// @Description Returns document metadata and where the requester goes next:
// @Description the content when access is granted, the purchase flow otherwise.
// @Tags purchases
// @Param hash path string true "content hash"
// @Param buyer query string false "requester identity key"
// @Success 200 {object} payLinkResponse
// @Router /documents/link/{hash} [get]
func ResolveLink(accessSvc service.AccessService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		buyer := c.Query("buyer")
		res, err := accessSvc.ResolvePayLink(c.UserContext(), c.Params("hash"), buyer)
		if err != nil {
			return writeServiceError(c, err)
		}

		next := nextStep{Method: fiber.MethodPost, Href: "/documents/" + res.Document.ID + "/purchase"}
		if res.Decision.Granted {
			next = nextStep{
				Method: fiber.MethodGet,
				Href:   "/documents/" + res.Document.ID + "/view?buyer=" + url.QueryEscape(buyer),
			}
		}
		return c.JSON(payLinkResponse{
			Document: res.Document,
			Granted:  res.Decision.Granted,
			Reason:   res.Decision.Reason,
			Next:     next,
		})
	}
}

// BuyerPurchases godoc
// @Summary List a buyer's purchases
// @Tags purchases
// @Param address path string true "buyer identity key"
// @Success 200 {array} model.Purchase
// @Router /purchases/buyer/{address} [get]
func BuyerPurchases(purchaseSvc service.PurchaseService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		address, err := url.PathUnescape(c.Params("address"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ADDRESS", "invalid address")
		}
		list, err := purchaseSvc.ListByBuyer(c.UserContext(), address)
		if err != nil {
			return writeServiceError(c, err)
		}
		if list == nil {
			list = []model.Purchase{}
		}
		return c.JSON(fiber.Map{"data": list, "total": len(list)})
	}
}

// WalletInfo godoc
// @Summary Server identity key buyers derive payment keys against
// @Tags purchases
// @Success 200 {object} map[string]string
// @Router /wallet-info [get]
func WalletInfo(identityKey, network string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"identityKey": identityKey, "network": network})
	}
}
