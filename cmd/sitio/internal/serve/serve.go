package serve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mutualangaco/sitio"
	"github.com/mutualangaco/sitio/internal/api"
	"github.com/mutualangaco/sitio/internal/config"
	"github.com/mutualangaco/sitio/internal/contact"
	"github.com/mutualangaco/sitio/internal/logging"
	"github.com/mutualangaco/sitio/internal/media"
	"github.com/mutualangaco/sitio/internal/news"
	"github.com/mutualangaco/sitio/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type Cmd struct {
	Addr    string `help:"Address to listen on (overrides the config file)." short:"a"`
	SiteDir string `help:"Directory with the static site." name:"site-dir" type:"path"`
}

func (c *Cmd) Run(cfg *config.Config) error {
	if c.Addr != "" {
		cfg.Addr = c.Addr
	}
	if c.SiteDir != "" {
		cfg.SiteDir = c.SiteDir
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return Run(ctx, cfg, NewApp(cfg, logger).Handler(), logger)
}

// NewApp wires the stores, the mailer and the endpoints described by cfg.
func NewApp(cfg *config.Config, logger logrus.FieldLogger) *sitio.App {
	images := media.NewStore(cfg.SiteDir, cfg.ImageDir, logger)
	store := news.NewStore(cfg.NewsFile, images,
		news.WithLogger(logger),
		news.WithDefaultAuthor(cfg.Org.Name))

	mailer := contact.NewSMTPMailer(contact.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		TLS:      cfg.SMTP.TLS,
		Timeout:  cfg.SMTP.Timeout,
	})
	svc := contact.NewService(Org(cfg), mailer,
		contact.WithJournal(contact.NewFileJournal(cfg.ContactLogDir)),
		contact.WithLogger(logger),
		contact.WithSubjects(cfg.Subjects))

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.CORSOrigins

	app := sitio.NewApp().
		WithLogger(logger).
		WithMaxRequestBodySize(cfg.MaxRequestBodySize).
		WithMaskInternalErrors().
		WithUnaryInterceptor(middleware.LoggingInterceptor(logger)).
		WithMiddleware(middleware.CORS(cors)).
		WithMiddleware(middleware.RequestIDs)
	if cfg.SiteDir != "" {
		app.WithFallback(StaticSite(cfg.SiteDir))
	}
	api.Register(app, api.Deps{Contact: svc, News: store, Logger: logger})
	return app
}

// Org converts the configured organization into the contact service's view.
func Org(cfg *config.Config) contact.Org {
	org := contact.Org{
		Name:        cfg.Org.Name,
		Sender:      contact.Address{Name: cfg.Org.Name, Email: cfg.SMTP.Username},
		Destination: contact.Address{Name: cfg.Org.Name, Email: cfg.Org.Destination},
		Phone:       cfg.Org.Phone,
		WhatsApp:    cfg.Org.WhatsApp,
		Email:       cfg.Org.Email,
		Address:     cfg.Org.Address,
	}
	if org.Sender.Email == "" {
		org.Sender.Email = cfg.Org.Destination
	}
	for _, cc := range cfg.Org.CC {
		org.CC = append(org.CC, contact.Address{Email: cc})
	}
	return org
}

// StaticSite serves dir, refusing any path with a dot-prefixed segment.
func StaticSite(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, seg := range strings.Split(r.URL.Path, "/") {
			if strings.HasPrefix(seg, ".") {
				http.NotFound(w, r)
				return
			}
		}
		files.ServeHTTP(w, r)
	})
}

// Run serves h on cfg.Addr until ctx is done, then drains in-flight requests.
func Run(ctx context.Context, cfg *config.Config, h http.Handler, logger logrus.FieldLogger) error {
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}
	return serve(ctx, ln, h, logger)
}

// serve owns ln. Requests do not inherit ctx, so cancelling it stops new
// connections while running handlers finish.
func serve(ctx context.Context, ln net.Listener, h http.Handler, logger logrus.FieldLogger) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", ln.Addr().String()).Info("listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
