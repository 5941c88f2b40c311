package receipt

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	bookingdomain "github.com/smallbiznis/frontdesk/internal/booking/domain"
	roomdomain "github.com/smallbiznis/frontdesk/internal/room/domain"
)

const timeLayout = "02 Jan 2006 15:04"

// Data is everything printed on one receipt.
type Data struct {
	PropertyName string
	Invoice      bookingdomain.Invoice
	Booking      bookingdomain.Booking
	Room         roomdomain.Room
	Extras       []bookingdomain.ExtraLine
	Location     *time.Location
}

// Render lays out a single-page receipt for a payment or adjustment invoice.
func Render(data Data) (io.Reader, error) {
	loc := data.Location
	if loc == nil {
		loc = time.Local
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, data.PropertyName, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, "Receipt", props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(30,
		col.New(6).Add(
			text.New("Receipt no: "+data.Invoice.ID.String(), props.Text{Top: 0}),
			text.New("Booking: "+data.Booking.ID.String(), props.Text{Top: 4}),
			text.New("Issued: "+data.Invoice.CreatedAt.In(loc).Format(timeLayout), props.Text{Top: 8}),
			text.New("Cashier: "+data.Invoice.Actor, props.Text{Top: 12}),
		),
		col.New(6).Add(
			text.New(fmt.Sprintf("Room %s (%s)", data.Room.Number, data.Room.RoomType), props.Text{Style: fontstyle.Bold, Align: align.Right}),
			text.New(stayLine(data.Booking), props.Text{Top: 4, Align: align.Right}),
			text.New("Check-in: "+data.Booking.CheckInAt.In(loc).Format(timeLayout), props.Text{Top: 8, Align: align.Right}),
		),
	)

	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	m.AddRow(8,
		text.NewCol(6, "Room", props.Text{Size: 9}),
		text.NewCol(2, "", props.Text{Size: 9}),
		text.NewCol(2, "", props.Text{Size: 9}),
		text.NewCol(2, Money(data.Invoice.RoomAmount), props.Text{Size: 9, Align: align.Right}),
	)
	for _, line := range data.Extras {
		if line.Quantity == 0 {
			continue
		}
		m.AddRow(8,
			text.NewCol(6, line.ItemName, props.Text{Size: 9}),
			text.NewCol(2, humanize.Comma(line.Quantity), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, Money(line.UnitPrice), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, Money(line.Amount), props.Text{Size: 9, Align: align.Right}),
		)
	}
	if data.Invoice.LateFee > 0 {
		m.AddRow(8,
			text.NewCol(10, "Late checkout", props.Text{Size: 9}),
			text.NewCol(2, Money(data.Invoice.LateFee), props.Text{Size: 9, Align: align.Right}),
		)
	}

	totals := []struct {
		label  string
		amount int64
	}{
		{"Total", data.Invoice.Total},
		{"Previously collected", data.Invoice.CollectedBefore},
		{paidLabel(data.Invoice.Kind), data.Invoice.Amount},
		{"Collected", data.Invoice.CollectedAfter},
	}
	for _, row := range totals {
		m.AddRow(8,
			col.New(6),
			text.NewCol(4, row.label, props.Text{Size: 9}),
			text.NewCol(2, Money(row.amount), props.Text{Size: 9, Align: align.Right}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}

// Money formats a whole-unit amount with thousands separators.
func Money(amount int64) string {
	return humanize.Comma(amount)
}

func stayLine(b bookingdomain.Booking) string {
	if b.Mode == bookingdomain.ModeOvernight {
		if b.Nights == 1 {
			return "Overnight, 1 night"
		}
		return fmt.Sprintf("Overnight, %d nights", b.Nights)
	}
	return "Hourly"
}

func paidLabel(kind bookingdomain.InvoiceKind) string {
	if kind == bookingdomain.InvoiceKindAdjustment {
		return "Adjustment"
	}
	return "Paid now"
}
