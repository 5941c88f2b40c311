package receipt

import (
	"context"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/smallbiznis/frontdesk/internal/booking/domain"
	"github.com/smallbiznis/frontdesk/internal/config"
	roomdomain "github.com/smallbiznis/frontdesk/internal/room/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("receipt.service",
	fx.Provide(NewService),
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Ledger bookingdomain.Ledger
	Rooms  roomdomain.Repository
	Cfg    config.Config `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	ledger   bookingdomain.Ledger
	rooms    roomdomain.Repository
	property string
	loc      *time.Location
}

func NewService(p Params) *Service {
	property := p.Cfg.AppName
	if property == "" {
		property = "Front Desk"
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("receipt.service"),
		ledger:   p.Ledger,
		rooms:    p.Rooms,
		property: property,
		loc:      p.Cfg.Location(),
	}
}

// Generate renders the receipt for one invoice.
func (s *Service) Generate(ctx context.Context, invoiceID snowflake.ID) (io.Reader, error) {
	invoice, err := s.ledger.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	booking, err := s.ledger.GetBooking(ctx, invoice.BookingID)
	if err != nil {
		return nil, err
	}
	room, err := s.rooms.FindByID(ctx, s.db, booking.RoomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, roomdomain.ErrNotFound
	}
	extras, err := s.ledger.GetExtras(ctx, booking.ID)
	if err != nil {
		return nil, err
	}

	doc, err := Render(Data{
		PropertyName: s.property,
		Invoice:      *invoice,
		Booking:      *booking,
		Room:         *room,
		Extras:       extras,
		Location:     s.loc,
	})
	if err != nil {
		s.log.Error("receipt render failed", zap.String("invoice_id", invoiceID.String()), zap.Error(err))
		return nil, err
	}
	return doc, nil
}
