package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"salonbook/internal/appointments"
	"salonbook/internal/availability"
	"salonbook/internal/config"
	"salonbook/internal/domain"
	"salonbook/internal/httpapi"
	"salonbook/internal/session"
	"salonbook/internal/store/sqlite"
)

const usage = `usage: salonbook <command> [flags]

commands:
  login         -email -password
  logout
  whoami
  availability  -date -employee
  list          [-all]
  book          -date -time -employee -service [-client]
  reschedule    -id [-date] [-time] [-employee] [-service]
  confirm       -id
  complete      -id
  cancel        -id
`

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "salonbook"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "salonbook"),
	)
	slog.SetDefault(log)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log, os.Args[1], os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Error("command failed", slog.String("command", os.Args[1]), slog.Any("err", err))
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type app struct {
	sessions *session.Manager
	resolver *availability.Resolver
	booking  *appointments.Service
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger, command string, args []string) error {
	identityStore, err := sqlite.Open(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("open identity store: %w", err)
	}
	defer func() {
		if err := identityStore.Close(); err != nil {
			log.Warn("identity store close failed", slog.Any("err", err))
		}
	}()

	api := httpapi.NewClient(httpapi.ClientConfig{
		BaseURL:   cfg.APIBaseURL,
		Timeout:   cfg.APITimeout,
		RateLimit: cfg.APIRateLimit,
		RateBurst: cfg.APIRateBurst,
		Cache:     httpapi.NewCache(cfg.CacheTTL, cfg.CacheMaxEntries),
		Logger:    log,
	})

	sessions := session.NewManager(api, identityStore, log)
	resolver := availability.NewResolver(api, log)
	booking := appointments.NewService(api, resolver, sessions, log)
	a := &app{sessions: sessions, resolver: resolver, booking: booking}

	switch command {
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.sessions.SignOut(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "availability":
		return a.availability(ctx, args)
	case "list":
		return a.list(ctx, args)
	case "book":
		return a.book(ctx, args)
	case "reschedule":
		return a.reschedule(ctx, args)
	case "confirm", "complete", "cancel":
		return a.transition(ctx, command, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.sessions.SignIn(ctx, *email, *password); err != nil {
		return err
	}
	user, _ := a.sessions.Current()
	fmt.Printf("signed in as %s (%s)\n", user.Name, user.Role)
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	user, err := a.requireSession(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s> role=%s id=%d\n", user.Name, user.Email, user.Role, user.ID)
	return nil
}

func (a *app) availability(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("availability", flag.ContinueOnError)
	date := fs.String("date", "", "date (YYYY-MM-DD)")
	employee := fs.Int64("employee", 0, "employee id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := a.requireSession(ctx); err != nil {
		return err
	}
	known, err := a.booking.List(ctx, appointments.ListOptions{})
	if err != nil {
		return err
	}
	slots, err := a.resolver.Hours(ctx, *date, *employee, known)
	if err != nil {
		return err
	}

	fmt.Printf("available: %s\n", strings.Join(slots.Available, " "))
	fmt.Printf("reserved:  %s\n", strings.Join(slots.Reserved, " "))
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	all := fs.Bool("all", false, "every appointment (admin)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := a.requireSession(ctx); err != nil {
		return err
	}
	opts := appointments.ListOptions{}
	if *all {
		opts.Scope = appointments.ScopeAll
	}
	appts, err := a.booking.List(ctx, opts)
	if err != nil {
		return err
	}

	names, err := a.booking.ResolveEmployeeNames(ctx, appts)
	if err != nil {
		slog.Warn("employee name resolution incomplete", slog.Any("err", err))
	}
	for _, appt := range appts {
		name := names[employeeRef(appt)]
		service := ""
		if appt.Service != nil {
			service = fmt.Sprintf(" %s (%.2f, %dmin)", appt.Service.Name, appt.Service.Price, appt.Service.Duration)
		}
		fmt.Printf("#%d %s %s [%s] con %s%s\n", appt.ID, appt.Date, appt.ClockTime(), appt.Status, name, service)
	}
	return nil
}

func (a *app) book(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("book", flag.ContinueOnError)
	date := fs.String("date", "", "date (YYYY-MM-DD)")
	hour := fs.String("time", "", "hour (HH:MM)")
	employee := fs.Int64("employee", 0, "employee id")
	client := fs.Int64("client", 0, "client id (defaults to the signed-in client)")
	service := fs.Int64("service", 0, "service id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := a.requireSession(ctx); err != nil {
		return err
	}
	clientID := *client
	if clientID == 0 {
		clientID = a.sessions.ClientID()
	}

	known, err := a.booking.List(ctx, appointments.ListOptions{})
	if err != nil {
		return err
	}
	slots, err := a.resolver.Hours(ctx, *date, *employee, known)
	if err != nil {
		return err
	}

	created, err := a.booking.Book(ctx, appointments.BookInput{
		Date:       *date,
		Hour:       *hour,
		EmployeeID: *employee,
		ClientID:   clientID,
		ServiceID:  *service,
		Slots:      slots,
	})
	if err != nil {
		return err
	}
	fmt.Printf("booked #%d %s %s\n", created.ID, created.Date, created.ClockTime())
	return nil
}

func (a *app) reschedule(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reschedule", flag.ContinueOnError)
	id := fs.Int64("id", 0, "appointment id")
	date := fs.String("date", "", "new date")
	hour := fs.String("time", "", "new hour")
	employee := fs.Int64("employee", 0, "new employee id")
	service := fs.Int64("service", 0, "new service id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := a.requireSession(ctx); err != nil {
		return err
	}
	updated, err := a.booking.Reschedule(ctx, *id, appointments.RescheduleInput{
		Date:       *date,
		Hour:       *hour,
		EmployeeID: *employee,
		ServiceID:  *service,
	})
	if err != nil {
		return err
	}
	fmt.Printf("rescheduled #%d -> %s %s\n", updated.ID, updated.Date, updated.ClockTime())
	return nil
}

func (a *app) transition(ctx context.Context, command string, args []string) error {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	id := fs.Int64("id", 0, "appointment id")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := a.requireSession(ctx); err != nil {
		return err
	}
	var err error
	switch command {
	case "confirm":
		_, err = a.booking.Confirm(ctx, *id)
	case "complete":
		_, err = a.booking.Complete(ctx, *id)
	case "cancel":
		_, err = a.booking.Cancel(ctx, *id)
	}
	if err != nil {
		return err
	}
	fmt.Printf("%s #%d\n", command, *id)
	return nil
}

func (a *app) requireSession(ctx context.Context) (domain.User, error) {
	if err := a.sessions.Bootstrap(ctx); err != nil {
		return domain.User{}, err
	}
	user, ok := a.sessions.Current()
	if !ok {
		return domain.User{}, fmt.Errorf("not signed in; run: salonbook login -email ... -password ...")
	}
	return user, nil
}

func employeeRef(a domain.Appointment) int64 {
	if a.Employee != nil {
		return a.Employee.ID
	}
	return a.EmployeeID
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
