package main

import (
	"context"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/julienschmidt/httprouter"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	jlog "github.com/luno/jettison/log"

	"github.com/linesight/linesight"
	"github.com/linesight/linesight/api"
	"github.com/linesight/linesight/server/handlers"
	"github.com/linesight/linesight/server/ops"
	"github.com/linesight/linesight/server/ops/config"
)

var (
	port      = flag.Int("port", 8090, "port for the dashboard API")
	debugPort = flag.Int("debug_port", 8091, "port for metrics and readiness")
)

type state struct {
	s *ops.State
}

func (s state) State() *ops.State {
	return s.s
}

func main() {
	if err := godotenv.Load(); err != nil {
		jlog.Info(context.Background(), "no .env file found, using defaults")
	}
	InitLogging()
	flag.Parse()
	config.MustLoadConfig()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	c := config.GetConfig()
	cli := linesight.NewClient(linesight.WithBaseURL(c.Upstream.BaseURL))

	var store ops.Store
	pool, err := ops.NewRedisPool(ctx)
	if err == nil {
		conn, cerr := pool.GetContext(ctx)
		if cerr == nil {
			_ = conn.Close()
			store = ops.NewRedisStore(pool)
		} else {
			err = cerr
		}
	}
	if store == nil {
		jlog.Error(ctx, errors.Wrap(err, "failed to connect to redis, falling back to memory store"))
		store = ops.NewMemStore()
	}

	loader := ops.NewLoader(ctx, cli, store, api.Filters{
		Machine: c.Defaults.Machine,
		Tool:    c.Defaults.Tool,
	})
	s := state{s: ops.NewState(loader, store)}

	go loader.Run(c.Upstream.RefreshSchedule)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		runWebServer(ctx, handlers.CreateRouter(s), *port)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		runWebServer(ctx, handlers.CreateDebugRouter(), *debugPort)
	}()

	wg.Wait()
}

func runWebServer(ctx context.Context, router *httprouter.Router, port int) {
	srv := &http.Server{
		BaseContext: func(listener net.Listener) context.Context { return ctx },
		Handler:     router,
		Addr:        ":" + strconv.Itoa(port),
	}
	go shutdownOnCancel(ctx, srv)
	jlog.Info(ctx, "server listening", j.KV("port", port))
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		panic(err)
	}
	jlog.Info(ctx, "server terminated", j.KV("port", port))
}

func shutdownOnCancel(ctx context.Context, server *http.Server) {
	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	jlog.Info(ctx, "shutting down http server")
	_ = server.Shutdown(ctx)
}
