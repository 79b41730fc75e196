// Package am serves the activity-manager control API: it injects OS events
// (intents, permission and activity results, broadcasts) into a running
// activity host over a unix socket.
package am

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/wivrn/wivrn-host/pkg/host"
	"github.com/wivrn/wivrn-host/pkg/looper"
	"github.com/wivrn/wivrn-host/pkg/native"
	"github.com/wivrn/wivrn-host/pkg/types"
	"github.com/wivrn/wivrn-host/pkg/utils/ginlog"
)

// Executor runs fn on the main looper and waits for it.
// *looper.Looper satisfies it.
type Executor interface {
	Call(fn func()) error
}

// Broadcaster sends system broadcasts. *broadcast.Dispatcher satisfies it.
type Broadcaster interface {
	Send(intent native.Intent)
	SendSticky(intent native.Intent)
}

// Server is the control API of one activity.
type Server struct {
	activity    *host.Activity
	exec        Executor
	broadcaster Broadcaster

	srv *http.Server
}

// NewServer returns a control server. exec may be nil, in which case
// callbacks run on the request goroutine.
func NewServer(activity *host.Activity, exec Executor, broadcaster Broadcaster) *Server {
	s := &Server{
		activity:    activity,
		exec:        exec,
		broadcaster: broadcaster,
	}
	s.srv = &http.Server{Handler: s.Router()}
	return s
}

// Router returns the control API routes.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(ginlog.Logger(logrus.StandardLogger()))
	router.POST("/intent", s.startIntent)
	router.POST("/permissions-result", s.permissionsResult)
	router.POST("/activity-result", s.activityResult)
	router.POST("/message", s.message)
	router.POST("/broadcast", s.broadcast)
	router.GET("/state", s.getState)

	return router
}

// Serve listens on unixSocketPath and serves until Shutdown.
func (s *Server) Serve(unixSocketPath string) error {
	if err := os.Remove(unixSocketPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	l, err := net.Listen("unix", unixSocketPath)
	if err != nil {
		return err
	}

	logrus.Infof("activity manager listening on %s", l.Addr().String())
	if err := s.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops a server started with Serve.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// run executes a host callback on the looper and returns its error.
func (s *Server) run(fn func() error) error {
	if s.exec == nil {
		return fn()
	}
	var cbErr error
	if err := s.exec.Call(func() { cbErr = fn() }); err != nil {
		return err
	}
	return cbErr
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, host.ErrNotCreated),
		errors.Is(err, host.ErrAlreadyCreated),
		errors.Is(err, host.ErrTerminated),
		errors.Is(err, host.ErrCapabilityDisabled),
		errors.Is(err, host.ErrNoRuntime):
		return http.StatusConflict
	case errors.Is(err, looper.ErrQuit), errors.Is(err, looper.ErrNotRunning):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) reply(c *gin.Context, err error) {
	if err != nil {
		ginlog.Abort(c, statusFor(err), err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) startIntent(c *gin.Context) {
	var intent native.Intent
	if err := c.BindJSON(&intent); err != nil {
		ginlog.Abort(c, http.StatusBadRequest, err)
		return
	}
	if intent.Action == "" {
		intent.Action = native.ActionView
	}
	s.reply(c, s.run(func() error { return s.activity.OnNewIntent(intent) }))
}

func (s *Server) permissionsResult(c *gin.Context) {
	var req types.PermissionsResult
	if err := c.BindJSON(&req); err != nil {
		ginlog.Abort(c, http.StatusBadRequest, err)
		return
	}
	s.reply(c, s.run(func() error {
		return s.activity.OnRequestPermissionsResult(req.RequestCode, req.Permissions, req.GrantResults)
	}))
}

func (s *Server) activityResult(c *gin.Context) {
	var req types.ActivityResult
	if err := c.BindJSON(&req); err != nil {
		ginlog.Abort(c, http.StatusBadRequest, err)
		return
	}
	s.reply(c, s.run(func() error {
		return s.activity.OnActivityResult(req.RequestCode, req.ResultCode, req.Data)
	}))
}

func (s *Server) message(c *gin.Context) {
	var req types.Message
	if err := c.BindJSON(&req); err != nil {
		ginlog.Abort(c, http.StatusBadRequest, err)
		return
	}
	s.reply(c, s.run(func() error { return s.activity.SendMessage(req.Name, req.Arg) }))
}

func (s *Server) broadcast(c *gin.Context) {
	var req types.Broadcast
	if err := c.BindJSON(&req); err != nil {
		ginlog.Abort(c, http.StatusBadRequest, err)
		return
	}
	if req.Intent.Action == "" {
		ginlog.Abort(c, http.StatusBadRequest, errors.New("broadcast intent has no action"))
		return
	}
	if req.Sticky {
		s.broadcaster.SendSticky(req.Intent)
	} else {
		s.broadcaster.Send(req.Intent)
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) getState(c *gin.Context) {
	caps := s.activity.Capabilities()
	c.IndentedJSON(http.StatusOK, types.HostState{
		State:              s.activity.State().String(),
		Resumed:            s.activity.Resumed(),
		ObserverRegistered: s.activity.ObserverRegistered(),
		BatteryObserver:    caps.BatteryObserver,
		MessageSend:        caps.MessageSend,
	})
}
