package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	bookingdomain "github.com/smallbiznis/frontdesk/internal/booking/domain"
	checkoutdomain "github.com/smallbiznis/frontdesk/internal/checkout/domain"
)

type startStayRequest struct {
	Mode        string     `json:"mode"`
	Nights      int        `json:"nights"`
	NightlyRate *int64     `json:"nightly_rate"`
	DailyRate   *int64     `json:"daily_rate"`
	CheckInAt   *time.Time `json:"check_in_at"`
}

// extrasRequest accepts explicit lines and the two well-known drink counters
// the desk screen edits directly.
type extrasRequest struct {
	Extras            []checkoutdomain.ExtraRequest `json:"extras"`
	SoftDrinkQuantity *int64                        `json:"soft_drink_quantity"`
	WaterQuantity     *int64                        `json:"water_quantity"`
}

func (r extrasRequest) lines() []checkoutdomain.ExtraRequest {
	out := make([]checkoutdomain.ExtraRequest, 0, len(r.Extras)+2)
	out = append(out, r.Extras...)
	if r.SoftDrinkQuantity != nil {
		out = append(out, checkoutdomain.ExtraRequest{ItemCode: bookingdomain.ItemCodeSoftDrink, Quantity: *r.SoftDrinkQuantity})
	}
	if r.WaterQuantity != nil {
		out = append(out, checkoutdomain.ExtraRequest{ItemCode: bookingdomain.ItemCodeWater, Quantity: *r.WaterQuantity})
	}
	return out
}

type saveStayRequest struct {
	extrasRequest
	Nights          *int   `json:"nights"`
	NightlyRate     *int64 `json:"nightly_rate"`
	DailyRate       *int64 `json:"daily_rate"`
	TargetCollected *int64 `json:"target_collected"`
}

type payStayRequest struct {
	extrasRequest
	TargetCollected *int64 `json:"target_collected"`
	Confirm         bool   `json:"confirm"`
}

func (s *Server) StartStay(c *gin.Context) {
	roomID, err := parseSnowflakeID("room_id", c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req startStayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	mode, ok := bookingdomain.ParseMode(req.Mode)
	if !ok {
		AbortWithError(c, newValidationError("mode", "invalid_mode", "mode must be HOURLY or OVERNIGHT"))
		return
	}

	var checkIn time.Time
	if req.CheckInAt != nil {
		checkIn = *req.CheckInAt
	}

	result, err := s.checkout.Start(c.Request.Context(), checkoutdomain.StartRequest{
		RoomID:      roomID,
		Mode:        mode,
		Nights:      req.Nights,
		NightlyRate: req.NightlyRate,
		DailyRate:   req.DailyRate,
		CheckInAt:   checkIn,
		Actor:       actorFrom(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) QuoteStay(c *gin.Context) {
	bookingID, err := parseSnowflakeID("booking_id", c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.checkout.Quote(c.Request.Context(), bookingID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":            result,
		"refresh_seconds": s.policy.Get().QuoteRefreshSeconds,
	})
}

func (s *Server) SaveStay(c *gin.Context) {
	bookingID, err := parseSnowflakeID("booking_id", c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req saveStayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.checkout.Save(c.Request.Context(), checkoutdomain.SaveRequest{
		BookingID:       bookingID,
		Extras:          req.lines(),
		Nights:          req.Nights,
		NightlyRate:     req.NightlyRate,
		DailyRate:       req.DailyRate,
		TargetCollected: req.TargetCollected,
		Actor:           actorFrom(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) PayStay(c *gin.Context) {
	bookingID, err := parseSnowflakeID("booking_id", c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req payStayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	result, err := s.checkout.Pay(c.Request.Context(), checkoutdomain.PayRequest{
		BookingID:       bookingID,
		Extras:          req.lines(),
		TargetCollected: req.TargetCollected,
		Confirm:         req.Confirm,
		Actor:           actorFrom(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) CancelStay(c *gin.Context) {
	bookingID, err := parseSnowflakeID("booking_id", c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.checkout.Cancel(c.Request.Context(), checkoutdomain.CancelRequest{
		BookingID: bookingID,
		Actor:     actorFrom(c),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
