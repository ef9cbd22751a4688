package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/cockroachdb/errors"

	"carrental/internal/app"
	"carrental/internal/booking"
	"carrental/internal/models"
)

var errUsage = errors.New("usage")

type cli struct {
	app *app.App
	out io.Writer
}

func (c *cli) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return c.login(ctx, args)
	case "logout":
		return c.app.Client().Logout(ctx)
	case "cars":
		return c.cars(ctx, args)
	case "car":
		return c.car(ctx, args)
	case "quote":
		return c.quote(args)
	case "availability":
		return c.availability(ctx, args)
	case "book":
		return c.book(ctx, args)
	case "bookings":
		return c.bookings(ctx, args)
	case "booking-status":
		return c.bookingStatus(ctx, args)
	case "payment-status":
		return c.paymentStatus(ctx, args)
	case "update-car":
		return c.updateCar(ctx, args)
	case "delete-car":
		return c.deleteCar(ctx, args)
	case "stats":
		return c.stats(ctx)
	case "help", "-h", "--help":
		return errUsage
	}
	return errors.Wrapf(errUsage, "unknown command %q", cmd)
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("login: -email and -password are required")
	}

	res, err := c.app.Client().Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	c.app.Session().Reset()
	fmt.Fprintf(c.out, "logged in as %s (%s)\n", res.User.Name, res.User.Role)
	return nil
}

func (c *cli) cars(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cars", flag.ContinueOnError)
	category := fs.String("category", "", "car category")
	transmission := fs.String("transmission", "", "transmission type")
	fuel := fs.String("fuel", "", "fuel type")
	seats := fs.Int("seats", 0, "minimum seats")
	minPrice := fs.Int64("min-price", -1, "minimum price per day")
	maxPrice := fs.Int64("max-price", -1, "maximum price per day")
	available := fs.Bool("available", false, "only available cars")
	sortBy := fs.String("sort", "", "price_asc, price_desc, year_asc or year_desc")
	query := fs.String("q", "", "free text search")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		list []models.Car
		err  error
	)
	if *query != "" {
		list, err = c.app.Client().SearchCars(ctx, *query)
	} else {
		filter := models.CarFilter{
			Category:     *category,
			Seats:        *seats,
			Transmission: *transmission,
			Fuel:         *fuel,
			Sort:         models.CarSort(*sortBy),
		}
		if *minPrice >= 0 {
			filter.MinPrice = minPrice
		}
		if *maxPrice >= 0 {
			filter.MaxPrice = maxPrice
		}
		if *available {
			filter.Available = available
		}
		list, err = c.app.Client().GetCars(ctx, filter)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tYEAR\tSEATS\tPRICE/DAY\tAVAILABLE")
	for _, car := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%t\n",
			car.ID, car.Title, car.Category, car.Year, car.Seats, car.Price, car.Available)
	}
	return tw.Flush()
}

func (c *cli) car(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.Wrap(errUsage, "car <id>")
	}
	car, err := c.app.Client().GetCar(ctx, args[0])
	if err != nil {
		return err
	}
	return c.printJSON(car)
}

func (c *cli) quote(args []string) error {
	fs := flag.NewFlagSet("quote", flag.ContinueOnError)
	start, end := dateFlags(fs)
	price := fs.Int64("price", 0, "price per day")
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, e, err := parseRange(*start, *end)
	if err != nil {
		return err
	}
	q := booking.NewQuote(s, e, *price)
	fmt.Fprintf(c.out, "%d day(s) x %d = %d\n", q.Days, q.PerDayRate, q.Total)
	return nil
}

func (c *cli) availability(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.Wrap(errUsage, "availability <car-id> -start -end")
	}
	fs := flag.NewFlagSet("availability", flag.ContinueOnError)
	start, end := dateFlags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	s, e, err := parseRange(*start, *end)
	if err != nil {
		return err
	}

	res, err := c.app.Client().CheckCarAvailability(ctx, args[0], s, e)
	if err != nil {
		return err
	}
	if res.Available {
		fmt.Fprintln(c.out, "available")
		return nil
	}
	fmt.Fprintln(c.out, "unavailable")
	for _, d := range res.ConflictDates {
		fmt.Fprintln(c.out, "  booked:", d)
	}
	return nil
}

// book drives the same two-step flow the web form uses.
func (c *cli) book(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.Wrap(errUsage, "book <car-id> -start -end -name -email -phone -agree")
	}
	fs := flag.NewFlagSet("book", flag.ContinueOnError)
	start, end := dateFlags(fs)
	var renter booking.RenterDetails
	fs.StringVar(&renter.Name, "name", "", "renter name")
	fs.StringVar(&renter.Email, "email", "", "renter email")
	fs.StringVar(&renter.Phone, "phone", "", "renter phone")
	fs.BoolVar(&renter.Agreed, "agree", false, "accept the rental terms")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	s, e, err := parseRange(*start, *end)
	if err != nil {
		return err
	}

	flow, car, err := c.app.NewBookingFlow(ctx, args[0])
	if err != nil {
		return err
	}
	defer flow.Close()

	if err := flow.SetDates(s, e); err != nil {
		return err
	}
	state, err := flow.WaitForAvailability(ctx)
	if err != nil {
		return err
	}
	if state.Err != nil {
		return state.Err
	}
	if err := flow.Proceed(); err != nil {
		return err
	}

	if q := flow.Snapshot().Quote; q != nil {
		fmt.Fprintf(c.out, "%s: %d day(s), total %d\n", car.Title, q.Days, q.Total)
	}

	created, err := flow.Submit(ctx, renter)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "booking %s created (%s)\n", created.ID, created.Status)
	return nil
}

func (c *cli) bookings(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("bookings", flag.ContinueOnError)
	status := fs.String("status", "", "booking status")
	user := fs.String("user", "", "only bookings of this user")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		list []models.Booking
		err  error
	)
	if *user != "" {
		list, err = c.app.Client().GetUserBookings(ctx, *user)
	} else {
		filter := models.BookingFilter{}
		if *status != "" {
			if filter.Status, err = models.ParseBookingStatus(*status); err != nil {
				return err
			}
		}
		list, err = c.app.Client().GetBookings(ctx, filter)
	}
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCAR\tUSER\tFROM\tTO\tTOTAL\tSTATUS\tPAYMENT")
	for _, b := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			b.ID, b.CarID, b.UserID, b.StartDate, b.EndDate, b.TotalPrice, b.Status, b.PaymentStatus)
	}
	return tw.Flush()
}

func (c *cli) bookingStatus(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.Wrap(errUsage, "booking-status <id> <status>")
	}
	status, err := models.ParseBookingStatus(args[1])
	if err != nil {
		return err
	}
	b, err := c.app.Client().UpdateBookingStatus(ctx, args[0], status)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "booking %s is %s\n", b.ID, b.Status)
	return nil
}

func (c *cli) paymentStatus(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.Wrap(errUsage, "payment-status <id> <status>")
	}
	status, err := models.ParsePaymentStatus(args[1])
	if err != nil {
		return err
	}
	b, err := c.app.Client().UpdateBookingPaymentStatus(ctx, args[0], status)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "booking %s payment is %s\n", b.ID, b.PaymentStatus)
	return nil
}

// updateCar edits only the fields given on the command line; everything else
// is carried over from the current car.
func (c *cli) updateCar(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return errors.Wrap(errUsage, "update-car <id> [-title] [-price] [-seats] [-year] [-category] [-available]")
	}
	fs := flag.NewFlagSet("update-car", flag.ContinueOnError)
	title := fs.String("title", "", "car title")
	price := fs.Int64("price", 0, "price per day")
	seats := fs.Int("seats", 0, "number of seats")
	year := fs.Int("year", 0, "model year")
	category := fs.String("category", "", "car category")
	available := fs.Bool("available", true, "open for booking")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	car, err := c.app.Client().GetCar(ctx, args[0])
	if err != nil {
		return err
	}
	input := car.Input()
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			input.Title = *title
		case "price":
			input.Price = *price
		case "seats":
			input.Seats = *seats
		case "year":
			input.Year = *year
		case "category":
			input.Category = *category
		case "available":
			input.Available = *available
		}
	})

	updated, err := c.app.Client().UpdateCar(ctx, args[0], input)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "car %s updated: %s, %d/day\n", updated.ID, updated.Title, updated.Price)
	return nil
}

func (c *cli) deleteCar(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.Wrap(errUsage, "delete-car <id>")
	}
	if err := c.app.Client().DeleteCar(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "car %s deleted\n", args[0])
	return nil
}

func (c *cli) stats(ctx context.Context) error {
	stats, err := c.app.Client().GetDashboardStats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "cars: %d\nbookings: %d\nusers: %d\nrevenue: %d\n",
		stats.CarsCount, stats.BookingsCount, stats.UsersCount, stats.Revenue)
	for _, p := range stats.PopularCars {
		fmt.Fprintf(c.out, "  %s: %d booking(s)\n", p.Title, p.BookingsCount)
	}
	return nil
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func dateFlags(fs *flag.FlagSet) (start, end *string) {
	start = fs.String("start", "", "first rental day, YYYY-MM-DD")
	end = fs.String("end", "", "last rental day, YYYY-MM-DD")
	return start, end
}

func parseRange(start, end string) (models.Date, models.Date, error) {
	s, err := models.ParseDate(start)
	if err != nil {
		return models.Date{}, models.Date{}, errors.Wrap(err, "-start")
	}
	e, err := models.ParseDate(end)
	if err != nil {
		return models.Date{}, models.Date{}, errors.Wrap(err, "-end")
	}
	if e.Before(s) {
		return models.Date{}, models.Date{}, models.ErrInvalidDateRange
	}
	return s, e, nil
}
