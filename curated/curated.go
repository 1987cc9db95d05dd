// Copyright (c) 2017-2026 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"os"
	"os/signal"
	"syscall"
	"time"

	v1 "github.com/decred/curate/curated/api/v1"
	"github.com/decred/curate/curated/backend"
	"github.com/decred/curate/curated/backend/curatebe"
	"github.com/decred/curate/curated/metrics"
	"github.com/decred/curate/curated/relay"
	"github.com/decred/curate/curated/store"
	"github.com/decred/curate/curated/store/localdb"
	"github.com/decred/curate/curated/store/mysql"
	"github.com/decred/curate/curated/websockets"
	"github.com/decred/curate/util"
	"github.com/decred/curate/util/version"
	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

const (
	// pingInterval is the interval at which websocket clients are
	// pinged.
	pingInterval = 30 * time.Second

	// shutdownTimeout is the time listeners are given to finish
	// serving requests on shutdown.
	shutdownTimeout = 10 * time.Second
)

type permission uint

const (
	permissionPublic permission = iota
	permissionAuth
)

// curated application context.
type curated struct {
	backend  backend.Backend
	cfg      *config
	router   *mux.Router
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	ws       *websockets.Manager
}

// handleNotFound is a generic handler for an invalid route.
func (c *curated) handleNotFound(w http.ResponseWriter, r *http.Request) {
	// Log incoming connection
	log.Debugf("Invalid route: %v %v %v %v", util.RemoteAddr(r), r.Method,
		r.URL, r.Proto)

	// Trace incoming request
	log.Tracef("%v", newLogClosure(func() string {
		trace, err := httputil.DumpRequest(r, true)
		if err != nil {
			trace = []byte(fmt.Sprintf("logging: "+
				"DumpRequest %v", err))
		}
		return string(trace)
	}))

	util.RespondWithJSON(w, http.StatusNotFound, v1.ServerErrorReply{})
}

func (c *curated) check(user, pass string) bool {
	if user != c.cfg.RPCUser || pass != c.cfg.RPCPass {
		return false
	}
	return true
}

func (c *curated) auth(fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || !c.check(user, pass) {
			log.Infof("%v Unauthorized access for: %v",
				util.RemoteAddr(r), user)
			w.Header().Set("WWW-Authenticate",
				`Basic realm="curated"`)
			util.RespondWithJSON(w, http.StatusUnauthorized,
				v1.UserErrorReply{
					ErrorCode: v1.ErrorCodeUnauthorized,
				})
			return
		}
		log.Debugf("%v Authorized access for: %v",
			util.RemoteAddr(r), user)
		fn(w, r)
	}
}

func (c *curated) addRoute(method string, route string, handler http.HandlerFunc, perm permission) {
	route = v1.APIRoute + route
	if perm == permissionAuth {
		handler = c.auth(handler)
	}
	handler = instrument(c.metrics, route, handler)
	handler = closeBody(logging(recoverPanic(maxBodySize(handler))))

	c.router.StrictSlash(true).HandleFunc(route, handler).Methods(method)
}

// setupRouter registers all routes. Writes require RPC credentials. The
// daemon trusts its authenticated client to assert the caller account.
func (c *curated) setupRouter() {
	c.router = mux.NewRouter()

	// Not found
	c.router.NotFoundHandler = closeBody(c.handleNotFound)

	// Public routes
	c.addRoute(http.MethodGet, v1.RouteVersion,
		c.handleVersion, permissionPublic)
	c.addRoute(http.MethodPost, v1.RouteHasRole,
		c.handleHasRole, permissionPublic)
	c.addRoute(http.MethodPost, v1.RouteBalance,
		c.handleBalance, permissionPublic)
	c.addRoute(http.MethodPost, v1.RouteSupply,
		c.handleSupply, permissionPublic)
	c.addRoute(http.MethodPost, v1.RoutePostDetails,
		c.handlePostDetails, permissionPublic)
	c.addRoute(http.MethodPost, v1.RoutePostScore,
		c.handlePostScore, permissionPublic)
	c.addRoute(http.MethodPost, v1.RouteVoteDays,
		c.handleVoteDays, permissionPublic)
	c.addRoute(http.MethodPost, v1.RouteCurrentDay,
		c.handleCurrentDay, permissionPublic)
	c.addRoute(http.MethodPost, v1.RouteDayRecord,
		c.handleDayRecord, permissionPublic)
	c.addRoute(http.MethodPost, v1.RouteSettlementDetails,
		c.handleSettlementDetails, permissionPublic)
	c.addRoute(http.MethodPost, v1.RouteClaimable,
		c.handleClaimable, permissionPublic)
	c.addRoute(http.MethodPost, v1.RouteUnsettled,
		c.handleUnsettled, permissionPublic)
	c.addRoute(http.MethodGet, v1.RouteEvents,
		c.handleEvents, permissionPublic)

	// Routes that require auth
	c.addRoute(http.MethodPost, v1.RouteAppointModerator,
		c.handleAppointModerator, permissionAuth)
	c.addRoute(http.MethodPost, v1.RouteAppointCurator,
		c.handleAppointCurator, permissionAuth)
	c.addRoute(http.MethodPost, v1.RouteRevokeRole,
		c.handleRevokeRole, permissionAuth)
	c.addRoute(http.MethodPost, v1.RouteTransferOwnership,
		c.handleTransferOwnership, permissionAuth)
	c.addRoute(http.MethodPost, v1.RouteSetSettlementAuthority,
		c.handleSetSettlementAuthority, permissionAuth)
	c.addRoute(http.MethodPost, v1.RouteMint,
		c.handleMint, permissionAuth)
	c.addRoute(http.MethodPost, v1.RouteTransfer,
		c.handleTransfer, permissionAuth)
	c.addRoute(http.MethodPost, v1.RouteNewPost,
		c.handleNewPost, permissionAuth)
	c.addRoute(http.MethodPost, v1.RouteVote,
		c.handleVote, permissionAuth)
	c.addRoute(http.MethodPost, v1.RouteSettleDay,
		c.handleSettleDay, permissionAuth)
	c.addRoute(http.MethodPost, v1.RouteClaim,
		c.handleClaim, permissionAuth)

	// The websocket and metrics routes are not wrapped by the request
	// middleware. The websocket upgrade hijacks the connection.
	c.router.HandleFunc(v1.APIRoute+v1.RouteEventsWS,
		c.ws.HandleWebsocket).Methods(http.MethodGet)
	c.router.Handle("/metrics",
		metrics.Handler(c.registry)).Methods(http.MethodGet)
}

// newCurated returns the application context with all routes registered.
// The metrics must be registered with reg.
func newCurated(cfg *config, b backend.Backend, reg *prometheus.Registry, m *metrics.Metrics) *curated {
	c := &curated{
		backend:  b,
		cfg:      cfg,
		registry: reg,
		metrics:  m,
		ws:       websockets.NewManager(cfg.WSReadLimit, m.WSClients),
	}
	c.setupRouter()
	return c
}

// newStore opens the configured blob store.
func newStore(cfg *config) (store.BlobKV, error) {
	log.Infof("Database: %v", cfg.DBType)

	switch cfg.DBType {
	case dbTypeLevelDB:
		var key *[32]byte
		if cfg.Encrypt {
			var err error
			key, err = util.LoadEncryptionKey(log, cfg.KeyFile)
			if err != nil {
				return nil, err
			}
		}
		return localdb.New(cfg.DataDir, key)

	case dbTypeMySQL:
		return mysql.New(cfg.DBHost, cfg.DBUser, cfg.DBPass, cfg.DBName,
			cfg.Encrypt)
	}

	return nil, fmt.Errorf("invalid dbtype: %v", cfg.DBType)
}

// pingWebsockets pings the websocket clients until the context is canceled.
func (c *curated) pingWebsockets(ctx context.Context) error {
	t := time.NewTicker(pingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			c.ws.Ping()
		}
	}
}

func _main() error {
	// Load configuration and parse command line.  This function also
	// initializes logging and configures it accordingly.
	cfg, _, err := loadConfig()
	if err != nil {
		return fmt.Errorf("Could not load configuration file: %v", err)
	}
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	log.Infof("Version : %v", version.String())
	log.Infof("Home dir: %v", cfg.HomeDir)

	// Create the data directory in case it does not exist.
	err = os.MkdirAll(cfg.DataDir, 0700)
	if err != nil {
		return err
	}

	// Generate the TLS cert and key file if both don't already
	// exist.
	if !util.FileExists(cfg.HTTPSKey) &&
		!util.FileExists(cfg.HTTPSCert) {
		log.Infof("Generating HTTPS keypair...")

		err := util.GenCertPair("curated", cfg.HTTPSCert, cfg.HTTPSKey)
		if err != nil {
			return fmt.Errorf("unable to create https keypair: %v",
				err)
		}

		log.Infof("HTTPS keypair created...")
	}

	// Setup backend
	kv, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("new store: %v", err)
	}
	reg := metrics.NewRegistry()
	m := metrics.New(reg)
	clock := clockwork.NewRealClock()
	b, err := curatebe.New(kv, clock, curatebe.Settings{
		Owner:          cfg.owner,
		Genesis:        cfg.Genesis,
		DailyMint:      cfg.dailyMint,
		SettleSchedule: cfg.SettleSchedule,
		Settled:        m.SettledDay,
	})
	if err != nil {
		kv.Close()
		return fmt.Errorf("new curatebe: %v", err)
	}
	defer b.Close()

	log.Infof("Owner   : %v", b.Genesis().Owner)
	log.Infof("Genesis : %v", time.Unix(b.Genesis().Timestamp, 0).UTC())

	err = b.BindSettlement()
	if err != nil {
		return fmt.Errorf("bind settlement: %v", err)
	}
	if cfg.Fsck {
		log.Infof("Verifying accounting invariants")
		err = b.Fsck()
		if err != nil {
			return fmt.Errorf("fsck: %v", err)
		}
	}

	// Setup application context
	c := newCurated(cfg, b, reg, m)
	c.metrics.SetCurrentDay(b.CurrentDay())

	// Setup the event relay
	sinks := []relay.Sink{relay.NewWSSink(c.ws)}
	if cfg.RedisURL != "" {
		rs, err := relay.NewRedisSink(cfg.RedisURL, cfg.RedisStream, 0)
		if err != nil {
			return err
		}
		defer rs.Close()
		sinks = append(sinks, rs)
		log.Infof("Relay events to redis stream %v", cfg.RedisStream)
	}
	rl := relay.New(b, clock, cfg.RelayInterval, relay.Hooks{
		Relayed: c.metrics.Relayed,
		Failed:  c.metrics.RelayFailed,
	}, sinks...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	// Bind to a port and pass our router in
	servers := make([]*http.Server, 0, len(cfg.Listeners))
	for _, listen := range cfg.Listeners {
		srv := &http.Server{
			Addr:              listen,
			Handler:           c.router,
			ReadHeaderTimeout: 10 * time.Second,
		}
		servers = append(servers, srv)
		g.Go(func() error {
			log.Infof("Listen: %v", srv.Addr)
			err := srv.ListenAndServeTLS(cfg.HTTPSCert, cfg.HTTPSKey)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		return rl.Run(gctx)
	})
	g.Go(func() error {
		return c.pingWebsockets(gctx)
	})

	// Shutdown on a signal or on the first failure
	g.Go(func() error {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigs)

		select {
		case sig := <-sigs:
			log.Infof("Terminating with %v", sig)
		case <-gctx.Done():
		}
		cancel()

		sctx, scancel := context.WithTimeout(context.Background(),
			shutdownTimeout)
		defer scancel()
		for _, srv := range servers {
			err := srv.Shutdown(sctx)
			if err != nil {
				log.Errorf("Shutdown %v: %v", srv.Addr, err)
			}
		}
		return nil
	})

	// Tell user we are ready to go.
	log.Infof("Start of day")

	err = g.Wait()
	if err != nil {
		log.Errorf("%v", err)
	}

	log.Infof("Exiting")

	return err
}

func main() {
	err := _main()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
