// Package gin registers the MiniSafe navigation surface on a Gin router.
// It translates gin.Context to the http package's Handler and shares the
// response bodies and status codes with the chi router.
package gin

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/minisafe-go"
	httpminisafe "github.com/mark3labs/minisafe-go/http"
	"github.com/mark3labs/minisafe-go/http/internal/helpers"
)

// NewEngine returns a gin.Engine serving every route in httpminisafe.Routes().
func NewEngine(h *httpminisafe.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(h.Logger()))
	Register(r, h)
	return r
}

// Register adds the routes to r.
//
// Example usage:
//
//	r := gin.Default()
//	Register(r, httpminisafe.NewHandler(controller))
//	r.Run(":8080")
func Register(r gin.IRouter, h *httpminisafe.Handler) {
	r.GET("/", func(c *gin.Context) {
		resp, err := h.Home(c.Request.Context())
		respond(c, resp, err)
	})

	r.GET("/pay", func(c *gin.Context) {
		resp, err := h.Pay(c.Request.Context())
		respond(c, resp, err)
	})

	r.POST("/token", func(c *gin.Context) {
		var req httpminisafe.TokenRequest
		if !bind(c, &req) {
			return
		}
		resp, err := h.SelectToken(req)
		respond(c, resp, err)
	})

	r.POST("/deposit", func(c *gin.Context) {
		var req httpminisafe.AmountRequest
		if !bind(c, &req) {
			return
		}
		resp, err := h.Deposit(c.Request.Context(), req)
		respond(c, resp, err)
	})

	r.POST("/withdraw", func(c *gin.Context) {
		resp, err := h.Withdraw(c.Request.Context())
		respond(c, resp, err)
	})

	r.POST("/break-lock", func(c *gin.Context) {
		resp, err := h.BreakLock(c.Request.Context())
		respond(c, resp, err)
	})

	r.POST("/merchants", func(c *gin.Context) {
		var form minisafe.MerchantForm
		if !bind(c, &form) {
			return
		}
		resp, err := h.AddMerchant(c.Request.Context(), form)
		respond(c, resp, err)
	})

	r.PUT("/merchants/:id", func(c *gin.Context) {
		var form minisafe.MerchantForm
		if !bind(c, &form) {
			return
		}
		resp, err := h.ModifyMerchant(c.Request.Context(), c.Param("id"), form)
		respond(c, resp, err)
	})

	r.POST("/merchants/:id/pay", func(c *gin.Context) {
		var req httpminisafe.AmountRequest
		if !bind(c, &req) {
			return
		}
		resp, err := h.PayMerchant(c.Request.Context(), c.Param("id"), req)
		respond(c, resp, err)
	})

	for _, page := range httpminisafe.Pages {
		page := page
		r.GET(page.Path, func(c *gin.Context) {
			c.JSON(http.StatusOK, page)
		})
	}

	r.GET("/routes", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpminisafe.Routes())
	})
}

// bind decodes the JSON body into v and aborts with 400 on failure.
func bind(c *gin.Context, v interface{}) bool {
	if err := helpers.DecodeJSON(c.Request, v); err != nil {
		c.AbortWithStatusJSON(helpers.StatusFor(err), helpers.NewErrorResponse(err))
		return false
	}
	return true
}

func respond(c *gin.Context, v interface{}, err error) {
	if err != nil {
		c.AbortWithStatusJSON(helpers.StatusFor(err), helpers.NewErrorResponse(err))
		return
	}
	c.JSON(http.StatusOK, v)
}

// RequestLogger logs one line per request with its status and duration.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
