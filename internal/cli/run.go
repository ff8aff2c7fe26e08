package cli

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/LeJamon/goLoRaRouter/internal/config"
	"github.com/LeJamon/goLoRaRouter/internal/gateway"
	"github.com/LeJamon/goLoRaRouter/internal/ingress"
	"github.com/LeJamon/goLoRaRouter/internal/keys"
	"github.com/LeJamon/goLoRaRouter/internal/logger"
	"github.com/LeJamon/goLoRaRouter/internal/packet"
	"github.com/LeJamon/goLoRaRouter/internal/router"
	"github.com/LeJamon/goLoRaRouter/internal/transport"
)

const shutdownTimeout = 5 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the state channel client",
	Long: `Run connects to the configured router on the first uplink and keeps
paying for packets until interrupted. Uplinks arrive on the ingress websocket
when ingress.listen is set. SIGHUP rereads the configuration file and switches
to a new gateway when the [gateway] section changed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		n, err := newNode(ctx, cfg)
		if err != nil {
			return err
		}
		defer n.close()
		return n.run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// node is a fully wired client with its surrounding services.
type node struct {
	cfg       *config.Config
	log       zerolog.Logger
	client    *router.Client
	transport *transport.Service
	gateway   *gateway.Client
	downlinks *router.DownlinkQueue
	ingress   *ingress.Server
	registry  *prometheus.Registry
	closeDB   func() error

	// dispatch feeds the client: ingress uplinks and gateway swaps.
	dispatch chan router.Dispatch

	mu sync.Mutex
	// retired holds replaced gateways; the client may still be using
	// one until it handles the swap.
	retired []*gateway.Client
}

func newNode(ctx context.Context, cfg *config.Config) (*node, error) {
	log := logger.Module("node")

	kp, err := keys.Load(cfg.KeypairPath())
	if err != nil {
		return nil, err
	}
	region, err := packet.ParseRegion(cfg.Region)
	if err != nil {
		return nil, err
	}
	policy, err := router.ParseUplinkPolicy(cfg.Router.UplinkPolicy)
	if err != nil {
		return nil, err
	}

	store, closeDB, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	n := &node{
		cfg:      cfg,
		log:      log,
		closeDB:  closeDB,
		registry: prometheus.NewRegistry(),
		dispatch: make(chan router.Dispatch, cfg.Ingress.UplinkBuffer),
	}
	n.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	n.gateway, err = gateway.New(gateway.Config{Address: cfg.Gateway.URI, Timeout: cfg.Gateway.Timeout})
	if err != nil {
		n.close()
		return nil, err
	}

	opts := []transport.Option{
		transport.WithAddress(cfg.Router.URI),
		transport.WithConnectTimeout(cfg.Transport.ConnectTimeout),
		transport.WithSendBufferSize(cfg.Transport.SendBuffer),
		transport.WithMessageBufferSize(cfg.Transport.MessageBuffer),
		transport.WithCompression(cfg.Transport.Compression),
		transport.WithLogger(logger.Root()),
	}
	if cfg.Transport.TLS {
		opts = append(opts, transport.WithTLS(&tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: cfg.Transport.InsecureSkipVerify,
		}))
	}
	n.transport = transport.New(opts...)
	n.registry.MustRegister(transport.NewTrafficCollector(n.transport.Traffic()))

	n.downlinks = router.NewDownlinkQueue(cfg.Ingress.DownlinkBuffer)
	if cfg.Ingress.Listen != "" {
		n.ingress = ingress.NewServer(cfg.Ingress.UplinkBuffer, logger.Module("ingress"))
	}

	n.client, err = router.NewClient(router.Config{
		OUI:      cfg.Router.OUI,
		Region:   region,
		Keypair:  kp,
		URI:      cfg.Router.URI,
		Policy:   policy,
		MaxQueue: cfg.Router.MaxQueue,
		Logger:   logger.Root(),
		Metrics:  router.NewMetrics(n.registry),
	}, n.transport, store, nil, n.gateway, n.downlinks)
	if err != nil {
		n.close()
		return nil, err
	}
	return n, nil
}

// run blocks until ctx is done, the router stream ends or a service fails.
func (n *node) run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if n.ingress != nil {
		g.Go(func() error {
			n.pumpUplinks(ctx)
			return nil
		})
		g.Go(func() error {
			return n.ingress.Forward(ctx, n.downlinks.Downlinks())
		})
		g.Go(func() error {
			return serveHTTP(ctx, n.cfg.Ingress.Listen, n.ingress, n.log)
		})
	} else {
		g.Go(func() error {
			n.discardDownlinks(ctx)
			return nil
		})
	}

	if n.cfg.Metrics.Listen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(n.registry, promhttp.HandlerOpts{}))
		g.Go(func() error {
			return serveHTTP(ctx, n.cfg.Metrics.Listen, mux, n.log)
		})
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-hup:
				if _, err := n.reloadGateway(ctx); err != nil {
					n.log.Warn().Err(err).Msg("config reload failed")
				}
			}
		}
	})

	g.Go(func() error {
		defer cancel()
		return n.client.Run(ctx, n.dispatch)
	})

	return g.Wait()
}

func (n *node) pumpUplinks(ctx context.Context) {
	in := n.ingress.Dispatches()
	for {
		select {
		case <-ctx.Done():
			return
		case d := <-in:
			select {
			case n.dispatch <- d:
			case <-ctx.Done():
				return
			}
		}
	}
}

// reloadGateway rereads the configuration file and, when the gateway
// settings changed, hands a new gateway client to the router client. It
// reports whether a swap was dispatched.
func (n *node) reloadGateway(ctx context.Context) (bool, error) {
	cfg, err := config.LoadConfig(n.cfg.GetConfigPath())
	if err != nil {
		return false, err
	}
	if cfg.Gateway == n.cfg.Gateway {
		return false, nil
	}

	gw, err := gateway.New(gateway.Config{Address: cfg.Gateway.URI, Timeout: cfg.Gateway.Timeout})
	if err != nil {
		return false, err
	}
	select {
	case n.dispatch <- router.GatewayDispatch{Gateway: gw}:
	case <-ctx.Done():
		gw.Close()
		return false, ctx.Err()
	}

	n.mu.Lock()
	n.retired = append(n.retired, n.gateway)
	n.gateway = gw
	n.mu.Unlock()
	n.cfg.Gateway = cfg.Gateway
	n.log.Info().Str("gateway", cfg.Gateway.URI).Msg("gateway swap dispatched")
	return true, nil
}

func (n *node) discardDownlinks(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-n.downlinks.Downlinks():
			if !ok {
				return
			}
			n.log.Debug().Int("size", len(p.Payload)).Msg("no ingress configured, discarding downlink")
		}
	}
}

func serveHTTP(ctx context.Context, addr string, h http.Handler, log zerolog.Logger) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (n *node) close() {
	if n.ingress != nil {
		n.ingress.Close()
	}
	if n.downlinks != nil {
		n.downlinks.Close()
	}
	if n.transport != nil {
		n.transport.Close()
	}
	n.mu.Lock()
	for _, gw := range append(n.retired, n.gateway) {
		if gw != nil {
			gw.Close()
		}
	}
	n.mu.Unlock()
	if n.closeDB != nil {
		if err := n.closeDB(); err != nil {
			n.log.Warn().Err(err).Msg("closing cache")
		}
	}
}
