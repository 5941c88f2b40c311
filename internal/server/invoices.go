package server

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListInvoices(c *gin.Context) {
	bookingID, err := parseSnowflakeID("booking_id", c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	invoices, err := s.ledger.ListInvoices(c.Request.Context(), bookingID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": invoices})
}

func (s *Server) InvoiceReceipt(c *gin.Context) {
	invoiceID, err := parseSnowflakeID("invoice_id", c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	doc, err := s.receipts.Generate(c.Request.Context(), invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	raw, err := io.ReadAll(doc)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=receipt-%s.pdf", invoiceID.String()))
	c.Data(http.StatusOK, "application/pdf", raw)
}
