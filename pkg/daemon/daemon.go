// Package daemon serves a stand-in native runtime over a unix socket, so
// the activity host can be exercised without the native library.
package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/wivrn/wivrn-host/pkg/events"
	"github.com/wivrn/wivrn-host/pkg/utils/ginlog"
)

// NewRouter returns the runtime daemon's routes backed by rt, publishing
// on hub.
func NewRouter(rt *Runtime, hub *events.EventHub) *gin.Engine {
	return newRouter(rt, hub, nil)
}

func newRouter(rt *Runtime, hub *events.EventHub, closing <-chan struct{}) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	h := &handlers{rt: rt, hub: hub, closing: closing}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginlog.Logger(logrus.StandardLogger()))
	router.POST("/permissions-result", h.permissionsResult)
	router.POST("/new-intent", h.newIntent)
	router.POST("/activity-result", h.activityResult)
	router.POST("/battery", h.batteryChanged)
	router.POST("/message", h.message)
	router.POST("/request-permissions", h.requestPermissions)
	router.POST("/start-activity-for-result", h.startActivityForResult)
	router.GET("/requests", h.getRequests)
	router.GET("/battery", h.getBattery)
	router.GET("/stats", h.getStats)
	router.GET("/events", h.streamEvents)
	router.GET("/version", h.getVersion)

	return router
}

// Run serves the runtime daemon on unixSocketPath until SIGINT or SIGTERM.
func Run(unixSocketPath string, allowNonRoot bool) error {
	hub := events.NewEventHub()
	closing := make(chan struct{})
	router := newRouter(NewRuntime(hub), hub, closing)

	srv := &http.Server{
		Handler: router,
	}
	srv.RegisterOnShutdown(func() { close(closing) })

	// Remove a stale socket left by a previous run.
	if err := os.Remove(unixSocketPath); err != nil && !os.IsNotExist(err) {
		return err
	}

	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		return err
	}

	if allowNonRoot {
		logrus.Infof("non-root access is allowed, changing permissions of %s to 0777", unixSocketPath)
		if err := os.Chmod(unixSocketPath, 0777); err != nil {
			return err
		}
	}

	go func() {
		logrus.Infof("runtime daemon listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatal(err)
		}
	}()

	// Handle common process-killing signals, so we can gracefully shut down:
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigc
	logrus.Infof("caught signal \"%s\": shutting down.", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("failed to shutdown http server: %v", err)
	}

	logrus.Info("exiting")
	return nil
}
