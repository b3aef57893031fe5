package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nats-io/nats.go"

	"chaters/global"
	"chaters/logger"
	mwsecurity "chaters/middleware/security"
	chatapi "chaters/module/chat"
	messageapi "chaters/module/message"
	pushapi "chaters/module/push"
	"chaters/module/upload"
	userapi "chaters/module/user"
	"chaters/service/chat"
	chathandlers "chaters/service/chat/handlers"
	"chaters/service/cleanup"
	"chaters/service/natsx"
	svcpush "chaters/service/push"
	"chaters/service/storage"
	"chaters/store"
	"chaters/tools/ids"
	"chaters/tools/safe"
	"chaters/tools/security"
)

func main() {
	cfg, err := global.Load()
	if err != nil {
		logger.Errorf("config: %v", err)
		os.Exit(1)
	}
	ids.SetNodeID(cfg.NodeID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Errorf("open store: %v", err)
		os.Exit(1)
	}
	defer st.Close()
	if err := st.InitSchema(ctx); err != nil {
		logger.Errorf("init schema: %v", err)
		os.Exit(1)
	}

	blobs, err := upload.NewBlobs(cfg.UploadDir)
	if err != nil {
		logger.Errorf("upload dir: %v", err)
		os.Exit(1)
	}

	jwtOpts := security.DefaultOptions([]byte(cfg.JWTSecret))
	verifier := &store.SessionVerifier{Store: st, Opts: jwtOpts}

	// presence is optional; without redis the gateway still works and
	// push notifications go to everyone who is offline on this node.
	var presence chat.Presence
	var presenceLookup *storage.Presence
	if rdb, err := storage.Open(ctx, storage.Config{
		Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB,
	}); err != nil {
		logger.Warnf("redis unavailable, presence disabled: %v", err)
	} else {
		defer rdb.Close()
		p := storage.NewPresence(rdb)
		presence, presenceLookup = p, p
	}

	nc, err := natsx.Connect(cfg.NatsURL)
	if err != nil {
		logger.Warnf("nats unavailable, notifications disabled: %v", err)
		nc = nil
	} else {
		defer nc.Close()
	}

	gw := chat.NewServer("gw-"+ids.GenerateString(), verifier, st, presence)
	chathandlers.RegisterAll(gw)

	sender := svcpush.NewSender(cfg.VapidEmail, cfg.VapidPublicKey, cfg.VapidPrivateKey)
	if nc != nil {
		worker := svcpush.NewWorker(st, sender, nil)
		if presenceLookup != nil {
			worker = svcpush.NewWorker(st, sender, presenceLookup)
		}
		safe.Go("notify-worker", func() {
			if err := worker.Run(ctx, nc); err != nil {
				logger.Errorf("notify worker: %v", err)
			}
		})
	}
	safe.Go("cleanup", func() { cleanup.NewJob(st, blobs).Run(ctx) })

	router := buildRouter(st, blobs, gw, verifier, jwtOpts, sender, nc)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	safe.Go("http", func() {
		logger.Infof("chaters listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("http server: %v", err)
			stop()
		}
	})

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}
}

func buildRouter(st *store.Store, blobs *upload.Blobs,
	gw *chat.Server, verifier *store.SessionVerifier, jwtOpts security.Options,
	sender *svcpush.Sender, nc *nats.Conn) *gin.Engine {

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive", "timestamp": time.Now().UTC()})
	})
	router.GET("/api/health", func(c *gin.Context) {
		if err := st.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "database": "disconnected"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "connected", "timestamp": time.Now().UTC()})
	})

	router.Static("/uploads", blobs.Dir())
	router.GET("/ws", gw.HandleWS)

	pub := router.Group("/api")
	auth := router.Group("/api", mwsecurity.Middleware(mwsecurity.Options{
		Verifier: verifier,
		Store:    st,
	}))

	userapi.NewHandler(st, jwtOpts).Register(pub, auth)
	chatapi.NewHandler(st).Register(auth)
	messageapi.NewHandler(st, blobs, nc).Register(auth)
	pushapi.NewHandler(st, sender).Register(pub, auth)

	return router
}
